package llm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/telemetry"
	"github.com/llmwire/llmwire/pkg/usage"
)

// EmbedResult is the result of an embedding call.
type EmbedResult = provider.EmbedResult

// Embed generates embedding vectors for the input, a single string or a
// string slice. Vectors come back in input order.
func Embed(ctx context.Context, model interface{}, input interface{}, options ...Option) (*EmbedResult, error) {
	cfg := newCallConfig(options)

	resolved, err := resolveModel(model)
	if err != nil {
		return nil, err
	}
	if !resolved.Capabilities.Embedding {
		return nil, &llmerrors.ValidationError{
			Reason: fmt.Sprintf("model %s does not support embeddings", resolved.Spec()),
		}
	}
	prov, err := resolveProvider(resolved)
	if err != nil {
		return nil, err
	}
	embedder, ok := prov.(provider.Embedder)
	if !ok {
		return nil, &llmerrors.ValidationError{
			Reason: fmt.Sprintf("provider %s has no embedding endpoint", resolved.Provider),
		}
	}

	texts, err := normalizeEmbedInput(input)
	if err != nil {
		return nil, err
	}

	tracer := telemetry.GetTracer(cfg.telemetry)
	return telemetry.RecordSpan(ctx, tracer, "llm.embed", telemetry.ModelAttributes(resolved),
		func(ctx context.Context, span trace.Span) (*EmbedResult, error) {
			body, err := embedder.EncodeEmbedding(&provider.EmbedRequest{
				Model:           resolved,
				Input:           texts,
				ProviderOptions: cfg.opts.ProviderOptions,
			})
			if err != nil {
				return nil, err
			}

			client := pipelineClient(cfg)
			key, err := client.Credential(resolved)
			if err != nil {
				return nil, err
			}

			raw, err := client.Post(ctx, baseURL(resolved, prov), embedder.EmbedPath(resolved), body, prov.Auth(resolved), key)
			if err != nil {
				return nil, err
			}

			result, err := embedder.DecodeEmbedding(raw, resolved)
			if err != nil {
				return nil, err
			}
			result.Usage = usage.Attribute(resolved, result.Usage)
			telemetry.RecordUsage(span, result.Usage)
			return result, nil
		})
}

func normalizeEmbedInput(input interface{}) ([]string, error) {
	switch v := input.(type) {
	case string:
		return []string{v}, nil
	case []string:
		if len(v) == 0 {
			return nil, &llmerrors.ValidationError{Reason: "empty embedding input"}
		}
		return v, nil
	default:
		return nil, &llmerrors.ValidationError{Reason: fmt.Sprintf("unsupported embedding input type %T", input)}
	}
}
