package llm

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmwire/llmwire/pkg/provider"
	"github.com/llmwire/llmwire/pkg/telemetry"
	"github.com/llmwire/llmwire/pkg/usage"
)

// GenerateText performs a non-streaming text generation call.
//
// The model argument is a "provider:model" spec string or a resolved
// *types.Model; the prompt is a bare string, a message slice, or a
// Context.
func GenerateText(ctx context.Context, model interface{}, prompt interface{}, options ...Option) (*Response, error) {
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
	return telemetry.RecordSpan(ctx, tracer, "llm.generate_text", telemetry.ModelAttributes(resolved),
		func(ctx context.Context, span trace.Span) (*Response, error) {
			req := &provider.Request{
				Model:   resolved,
				Context: convo,
				Options: &cfg.opts,
			}
			body, err := prov.EncodeBody(req)
			if err != nil {
				return nil, err
			}

			client := pipelineClient(cfg)
			key, err := client.Credential(resolved)
			if err != nil {
				return nil, err
			}

			raw, err := client.Post(ctx, baseURL(resolved, prov), prov.Path(resolved), body, prov.Auth(resolved), key)
			if err != nil {
				return nil, err
			}

			decoded, err := prov.DecodeResponse(raw, resolved)
			if err != nil {
				return nil, err
			}

			decoded.Usage = usage.Attribute(resolved, decoded.Usage)
			telemetry.RecordUsage(span, decoded.Usage)

			decoded.Context = convo
			if decoded.Message != nil {
				decoded.Context = convo.Append(*decoded.Message)
			}

			return &Response{Response: *decoded, model: resolved}, nil
		})
}
