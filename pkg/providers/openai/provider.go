// Package openai implements the OpenAI provider codec. Two inner drivers
// share the package: the Chat Completions API (default) and the
// Responses API, selected by the resolved model's api attribute.
// OpenAI-compatible vendors reuse this codec under their own provider id
// with a catalog-supplied base URL.
package openai

import (
	"github.com/llmwire/llmwire/pkg/provider"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
)

// apiResponses selects the Responses API driver.
const apiResponses = "responses"

// Provider implements provider.Provider for OpenAI and OpenAI-compatible
// endpoints.
type Provider struct {
	id string
}

// New creates the OpenAI provider.
func New() *Provider {
	return &Provider{id: "openai"}
}

// NewCompat creates an OpenAI-compatible provider under a different id
// (e.g. "groq"). The codec is identical; base URL and credentials come
// from the catalog.
func NewCompat(id string) *Provider {
	return &Provider{id: id}
}

// ID returns the provider id
func (p *Provider) ID() string {
	return p.id
}

// DefaultBaseURL returns the OpenAI API endpoint
func (p *Provider) DefaultBaseURL() string {
	return "https://api.openai.com/v1"
}

// Path returns the request path for the model's driver
func (p *Provider) Path(model *types.Model) string {
	if model.API == apiResponses {
		return "/responses"
	}
	return "/chat/completions"
}

// Auth returns the bearer-token scheme used by OpenAI
func (p *Provider) Auth(model *types.Model) provider.Auth {
	return provider.Auth{Header: "Authorization", Prefix: "Bearer "}
}

// EncodeBody encodes the request for the model's driver
func (p *Provider) EncodeBody(req *provider.Request) ([]byte, error) {
	if req.Model.API == apiResponses {
		return encodeResponsesBody(req)
	}
	return encodeChatBody(req)
}

// DecodeResponse decodes a non-streaming response for the model's driver
func (p *Provider) DecodeResponse(body []byte, model *types.Model) (*types.Response, error) {
	if model.API == apiResponses {
		return decodeResponsesResponse(body, model)
	}
	return decodeChatResponse(body, model)
}

// DecodeSSEEvent decodes one SSE event for the model's driver.
// Unrecognized events yield nil.
func (p *Provider) DecodeSSEEvent(event streaming.Event, model *types.Model) []types.StreamChunk {
	if model.API == apiResponses {
		return decodeResponsesSSEEvent(event)
	}
	return decodeChatSSEEvent(event)
}
