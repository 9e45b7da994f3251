package llm

import (
	"bytes"
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmwire/llmwire/pkg/provider"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
	"github.com/llmwire/llmwire/pkg/telemetry"
	"github.com/llmwire/llmwire/pkg/usage"
)

// StreamText performs a streaming text generation call. The returned
// Response carries a live Stream; consume it with Next or CollectText,
// then call Finalize to populate Message, Usage, and FinishReason.
//
// The telemetry span opened here stays live for the duration of the
// stream; Finalize records the attributed usage and ends it.
func StreamText(ctx context.Context, model interface{}, prompt interface{}, options ...Option) (*Response, error) {
	cfg := newCallConfig(options)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	resolved, err := resolveModel(model)
	if err != nil {
		return nil, err
	}
	prov, err := resolveProvider(resolved)
	if err != nil {
		return nil, err
	}
	convo, err := normalizePrompt(prompt)
	if err != nil {
		return nil, err
	}

	tracer := telemetry.GetTracer(cfg.telemetry)
	ctx, span := tracer.Start(ctx, "llm.stream_text",
		trace.WithAttributes(telemetry.ModelAttributes(resolved)...))
	fail := func(err error) (*Response, error) {
		telemetry.RecordError(span, err)
		span.End()
		return nil, err
	}

	req := &provider.Request{
		Model:   resolved,
		Context: convo,
		Options: &cfg.opts,
		Stream:  true,
	}

	client := pipelineClient(cfg)
	key, err := client.Credential(resolved)
	if err != nil {
		return fail(err)
	}

	httpReq, encodedBody, err := buildStreamRequest(ctx, prov, resolved, req)
	if err != nil {
		return fail(err)
	}
	prov.Auth(resolved).Apply(httpReq, key)

	body, err := client.OpenStream(ctx, httpReq, encodedBody)
	if err != nil {
		return fail(err)
	}

	decoder := streamDecoder(prov, resolved)
	stream := streaming.Start(ctx, body, decoder)

	return &Response{
		Response: types.Response{Model: resolved.ID, Context: convo},
		Stream:   stream,
		model:    resolved,
		span:     span,
	}, nil
}

// buildStreamRequest prefers the provider's own builder, falling back to
// a POST of the stream-enabled body against the regular path.
func buildStreamRequest(ctx context.Context, prov provider.Provider, model *types.Model, req *provider.Request) (*http.Request, []byte, error) {
	if builder, ok := prov.(provider.StreamRequestBuilder); ok {
		httpReq, err := builder.BuildStreamRequest(ctx, baseURL(model, prov), req)
		if err != nil {
			return nil, nil, err
		}
		var encoded []byte
		if httpReq.GetBody != nil {
			if rc, err := httpReq.GetBody(); err == nil {
				buf := new(bytes.Buffer)
				_, _ = buf.ReadFrom(rc)
				rc.Close()
				encoded = buf.Bytes()
			}
		}
		return httpReq, encoded, nil
	}

	encoded, err := prov.EncodeBody(req)
	if err != nil {
		return nil, nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(model, prov)+prov.Path(model), bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, encoded, nil
}

// streamDecoder returns the per-stream decoder: stateful when the
// provider offers one, the plain codec otherwise.
func streamDecoder(prov provider.Provider, model *types.Model) streaming.Decoder {
	if sd, ok := prov.(provider.StreamDecoderProvider); ok {
		return sd.StreamDecoder(model)
	}
	return func(ev streaming.Event) []types.StreamChunk {
		return prov.DecodeSSEEvent(ev, model)
	}
}

// Finalize populates the post-hoc fields of a streaming response from
// the consumed stream: the synthesized assistant message, attributed
// usage, and the finish reason. It also records the usage on the call's
// telemetry span and ends it. It is a no-op for non-streaming responses.
func (r *Response) Finalize() {
	if r.Stream == nil {
		return
	}
	r.Message = r.Stream.Message()
	r.Usage = usage.Attribute(r.model, r.Stream.Usage())
	r.FinishReason = r.Stream.FinishReason()
	if m := r.Stream.Model(); m != "" {
		r.Model = m
	}
	if r.Message != nil {
		r.Context = r.Context.Append(*r.Message)
	}
	if r.span != nil {
		telemetry.RecordUsage(r.span, r.Usage)
		if err := r.Stream.Err(); err != nil {
			telemetry.RecordError(r.span, err)
		}
		r.span.End()
		r.span = nil
	}
}

// CollectText drains the stream, finalizes the response, and returns the
// concatenated text.
func (r *Response) CollectText() (string, error) {
	if r.Stream == nil {
		return r.Text(), nil
	}
	text, err := r.Stream.CollectText()
	if err != nil {
		return "", err
	}
	r.Finalize()
	return text, nil
}
