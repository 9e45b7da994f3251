package llm

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmwire/llmwire/pkg/internal/httpx"
	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/providers/anthropic"
	"github.com/llmwire/llmwire/pkg/providers/google"
	"github.com/llmwire/llmwire/pkg/providers/openai"
	"github.com/llmwire/llmwire/pkg/registry"
	"github.com/llmwire/llmwire/pkg/schema"
	"github.com/llmwire/llmwire/pkg/streaming"
)

func init() {
	reg := registry.Default()
	reg.Register(openai.New())
	reg.Register(openai.NewCompat("groq"))
	reg.Register(anthropic.New())
	reg.Register(google.New())
}

// Response is the result of a call. Streaming responses carry a live
// Stream; Message, Usage, and FinishReason fill in post-hoc once the
// stream has been consumed (see Finalize).
type Response struct {
	types.Response

	// Stream is non-nil for streaming responses
	Stream *streaming.Stream

	model        *types.Model
	object       map[string]interface{}
	objectSchema *schema.Schema

	// span is the live telemetry span of a streaming call; Finalize
	// records usage on it and ends it
	span trace.Span
}

// IsStream reports whether the response is streaming.
func (r *Response) IsStream() bool {
	return r.Stream != nil
}

// ResolvedModel returns the resolved model the call ran against.
func (r *Response) ResolvedModel() *types.Model {
	return r.model
}

// resolveModel accepts a "provider:model" spec or an already resolved
// *types.Model.
func resolveModel(v interface{}) (*types.Model, error) {
	switch m := v.(type) {
	case string:
		return registry.Default().Resolve(m)
	case *types.Model:
		if m == nil {
			return nil, &llmerrors.ValidationError{Reason: "nil model"}
		}
		return m, nil
	case types.Model:
		return &m, nil
	default:
		return nil, &llmerrors.ValidationError{Reason: fmt.Sprintf("unsupported model argument type %T", v)}
	}
}

// resolveProvider returns the codec for the model's provider.
func resolveProvider(model *types.Model) (provider.Provider, error) {
	return registry.Default().Provider(model.Provider)
}

// baseURL picks the catalog base URL, falling back to the provider
// default.
func baseURL(model *types.Model, prov provider.Provider) string {
	if model.BaseURL != "" {
		return model.BaseURL
	}
	return prov.DefaultBaseURL()
}

// pipelineClient builds the HTTP pipeline for the call.
func pipelineClient(cfg *callConfig) *httpx.Client {
	return httpx.New(httpx.Config{
		HTTPClient:     cfg.httpClient,
		Protocols:      cfg.protocols,
		Limiter:        cfg.limiter,
		APIKey:         cfg.apiKey,
		DisableRetries: cfg.disableRetries,
	})
}

// normalizePrompt validates and converts the prompt argument.
func normalizePrompt(prompt interface{}) (types.Context, error) {
	convo, err := types.Normalize(prompt)
	if err != nil {
		return types.Context{}, &llmerrors.ValidationError{Reason: "invalid prompt", Cause: err}
	}
	return convo, nil
}
