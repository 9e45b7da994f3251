// Package provider defines the contract every vendor implementation
// satisfies: request encoding, response decoding, per-event stream
// decoding, authentication, and endpoint selection. Providers are pure
// codecs; dispatch, retries, and stream scheduling live elsewhere.
package provider

import (
	"context"
	"net/http"

	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
)

// Request carries everything a provider needs to encode a call.
type Request struct {
	// Model resolved from the registry
	Model *types.Model

	// Context holds the conversation
	Context types.Context

	// Options for the call
	Options *Options

	// Stream requests a streaming response
	Stream bool
}

// Options is the closed option set of the public API. Providers drop
// options their vendor does not accept; ProviderOptions passes through
// untouched.
type Options struct {
	Temperature      *float64
	TopP             *float64
	TopK             *int
	MaxTokens        *int
	Stop             []string
	Seed             *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Tools            []types.Tool
	ToolChoice       *types.ToolChoice
	ResponseFormat   string
	ReasoningEffort  string

	// ProviderOptions is an opaque escape hatch merged into the encoded
	// body untouched
	ProviderOptions map[string]interface{}
}

// Auth describes how a provider authenticates requests: either a header
// (with optional value prefix) or a URL query parameter.
type Auth struct {
	// Header name, e.g. "Authorization" or "x-api-key"
	Header string

	// Prefix prepended to the key in the header value, e.g. "Bearer "
	Prefix string

	// QueryParam name when the vendor authenticates via URL query
	QueryParam string

	// Extra headers always sent, e.g. {"anthropic-version": "2023-06-01"}
	Extra map[string]string
}

// Apply injects the credential into the request.
func (a Auth) Apply(req *http.Request, key string) {
	if a.Header != "" {
		req.Header.Set(a.Header, a.Prefix+key)
	}
	if a.QueryParam != "" {
		q := req.URL.Query()
		q.Set(a.QueryParam, key)
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range a.Extra {
		req.Header.Set(k, v)
	}
}

// Provider is a vendor codec: six pure functions plus identity.
type Provider interface {
	// ID returns the provider id as used in model specs
	ID() string

	// DefaultBaseURL returns the endpoint used when the catalog carries
	// no base_url override
	DefaultBaseURL() string

	// Path returns the request path for the given model (e.g.
	// "/chat/completions")
	Path(model *types.Model) string

	// Auth returns the authentication scheme for the given model
	Auth(model *types.Model) Auth

	// EncodeBody encodes the request into the vendor JSON body
	EncodeBody(req *Request) ([]byte, error)

	// DecodeResponse decodes a 2xx vendor body into the canonical
	// Response (usage unattributed; the pipeline attributes cost)
	DecodeResponse(body []byte, model *types.Model) (*types.Response, error)

	// DecodeSSEEvent decodes one SSE event into zero or more stream
	// chunks. Unrecognized events yield nil; the decoder never fails.
	DecodeSSEEvent(event streaming.Event, model *types.Model) []types.StreamChunk
}

// StreamDecoderProvider is implemented by providers whose event decoding
// needs per-stream state (e.g. assigning tool-call indices across
// events). The pipeline calls StreamDecoder once per stream and uses the
// returned decoder instead of DecodeSSEEvent.
type StreamDecoderProvider interface {
	// StreamDecoder returns a fresh stateful decoder for one stream
	StreamDecoder(model *types.Model) streaming.Decoder
}

// StreamRequestBuilder is implemented by providers whose streaming
// endpoint differs from the non-streaming one (path or query). The
// pipeline falls back to Path plus the encoded body with Stream set when
// a provider does not implement it.
type StreamRequestBuilder interface {
	// BuildStreamRequest constructs the streaming HTTP request, without
	// credentials applied
	BuildStreamRequest(ctx context.Context, baseURL string, req *Request) (*http.Request, error)
}

// EmbedRequest carries an embedding call.
type EmbedRequest struct {
	// Model resolved from the registry
	Model *types.Model

	// Input texts; a single-input call holds one element
	Input []string

	// ProviderOptions passes through untouched
	ProviderOptions map[string]interface{}
}

// EmbedResult is the canonical embedding response.
type EmbedResult struct {
	// Vectors, one per input, in input order
	Vectors [][]float32

	// Usage for the call
	Usage types.Usage
}

// Embedder is implemented by providers whose catalog marks embedding
// capability.
type Embedder interface {
	// EmbedPath returns the embeddings endpoint path for the model
	EmbedPath(model *types.Model) string

	// EncodeEmbedding encodes an embedding request body
	EncodeEmbedding(req *EmbedRequest) ([]byte, error)

	// DecodeEmbedding decodes an embedding response body
	DecodeEmbedding(body []byte, model *types.Model) (*EmbedResult, error)
}
