// Package llm is the public surface of the client: GenerateText,
// StreamText, GenerateObject, StreamObject, and Embed over any provider
// in the registry.
package llm

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/telemetry"
)

// maxStopSequences is the largest accepted stop list.
const maxStopSequences = 4

// Option configures a single call.
type Option func(*callConfig)

// callConfig gathers per-call settings: the provider option bag plus
// pipeline configuration.
type callConfig struct {
	opts           provider.Options
	apiKey         string
	httpClient     *http.Client
	protocols      []string
	limiter        *rate.Limiter
	telemetry      *telemetry.Settings
	disableRetries bool
}

func newCallConfig(options []Option) *callConfig {
	cfg := &callConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// validate enforces the closed option set's constraints.
func (c *callConfig) validate() error {
	if len(c.opts.Stop) > maxStopSequences {
		return &llmerrors.ValidationError{
			Reason: fmt.Sprintf("at most %d stop sequences are supported, got %d", maxStopSequences, len(c.opts.Stop)),
		}
	}
	for _, t := range c.opts.Tools {
		if err := t.Validate(); err != nil {
			return &llmerrors.ValidationError{Reason: "invalid tool", Cause: err}
		}
	}
	return nil
}

// WithTemperature sets the sampling temperature.
func WithTemperature(v float64) Option {
	return func(c *callConfig) { c.opts.Temperature = &v }
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(v float64) Option {
	return func(c *callConfig) { c.opts.TopP = &v }
}

// WithTopK sets the top-k sampling parameter (providers that support it).
func WithTopK(v int) Option {
	return func(c *callConfig) { c.opts.TopK = &v }
}

// WithMaxTokens caps the generated output.
func WithMaxTokens(v int) Option {
	return func(c *callConfig) { c.opts.MaxTokens = &v }
}

// WithStop sets up to four stop sequences.
func WithStop(sequences ...string) Option {
	return func(c *callConfig) { c.opts.Stop = sequences }
}

// WithSeed requests deterministic sampling (providers that support it).
func WithSeed(v int) Option {
	return func(c *callConfig) { c.opts.Seed = &v }
}

// WithFrequencyPenalty sets the frequency penalty.
func WithFrequencyPenalty(v float64) Option {
	return func(c *callConfig) { c.opts.FrequencyPenalty = &v }
}

// WithPresencePenalty sets the presence penalty.
func WithPresencePenalty(v float64) Option {
	return func(c *callConfig) { c.opts.PresencePenalty = &v }
}

// WithTools declares the tools available to the model.
func WithTools(tools ...types.Tool) Option {
	return func(c *callConfig) { c.opts.Tools = append(c.opts.Tools, tools...) }
}

// WithToolChoice sets the tool selection strategy.
func WithToolChoice(tc types.ToolChoice) Option {
	return func(c *callConfig) { c.opts.ToolChoice = &tc }
}

// WithResponseFormat sets the response format hint (e.g. "json_object").
func WithResponseFormat(format string) Option {
	return func(c *callConfig) { c.opts.ResponseFormat = format }
}

// WithReasoningEffort sets the reasoning effort for reasoning-capable
// models ("low", "medium", "high").
func WithReasoningEffort(effort string) Option {
	return func(c *callConfig) { c.opts.ReasoningEffort = effort }
}

// WithProviderOptions passes vendor-specific body fields through
// untouched.
func WithProviderOptions(opts map[string]interface{}) Option {
	return func(c *callConfig) { c.opts.ProviderOptions = opts }
}

// WithAPIKey overrides environment credential lookup.
func WithAPIKey(key string) Option {
	return func(c *callConfig) { c.apiKey = key }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *callConfig) { c.httpClient = client }
}

// WithProtocols declares the transport's protocol set for the HTTP/2
// body guard (e.g. "http2", "http1").
func WithProtocols(protocols ...string) Option {
	return func(c *callConfig) { c.protocols = protocols }
}

// WithLimiter gates dispatch through a client-side rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *callConfig) { c.limiter = l }
}

// WithTelemetry enables OpenTelemetry spans for the call.
func WithTelemetry(settings *telemetry.Settings) Option {
	return func(c *callConfig) { c.telemetry = settings }
}

// WithoutRetries disables the retry policy for the call.
func WithoutRetries() Option {
	return func(c *callConfig) { c.disableRetries = true }
}
