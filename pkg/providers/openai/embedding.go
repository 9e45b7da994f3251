package openai

import (
	"encoding/json"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/usage"
)

// EmbedPath returns the embeddings endpoint
func (p *Provider) EmbedPath(model *types.Model) string {
	return "/embeddings"
}

// EncodeEmbedding encodes an embeddings request body
func (p *Provider) EncodeEmbedding(req *provider.EmbedRequest) ([]byte, error) {
	body := map[string]interface{}{
		"model": req.Model.ID,
		"input": req.Input,
	}
	for k, v := range req.ProviderOptions {
		body[k] = v
	}
	return json.Marshal(body)
}

// DecodeEmbedding decodes an embeddings response body
func (p *Provider) DecodeEmbedding(body []byte, model *types.Model) (*provider.EmbedResult, error) {
	var decoded struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Usage map[string]interface{} `json:"usage"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &llmerrors.ProtocolError{Reason: "openai: decoding embeddings", ResponseBody: body, Cause: err}
	}

	vectors := make([][]float32, len(decoded.Data))
	for _, d := range decoded.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return &provider.EmbedResult{
		Vectors: vectors,
		Usage:   usage.Normalize(decoded.Usage),
	}, nil
}
