package google

import (
	"encoding/json"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
)

// EmbedPath returns the batch embedding endpoint for the model
func (p *Provider) EmbedPath(model *types.Model) string {
	return "/models/" + model.ID + ":batchEmbedContents"
}

// EncodeEmbedding encodes a batchEmbedContents request body
func (p *Provider) EncodeEmbedding(req *provider.EmbedRequest) ([]byte, error) {
	requests := make([]map[string]interface{}, len(req.Input))
	for i, text := range req.Input {
		requests[i] = map[string]interface{}{
			"model": "models/" + req.Model.ID,
			"content": map[string]interface{}{
				"parts": []map[string]interface{}{{"text": text}},
			},
		}
	}
	body := map[string]interface{}{"requests": requests}
	for k, v := range req.ProviderOptions {
		body[k] = v
	}
	return json.Marshal(body)
}

// DecodeEmbedding decodes a batchEmbedContents response body. Gemini
// reports no token usage for embeddings.
func (p *Provider) DecodeEmbedding(body []byte, model *types.Model) (*provider.EmbedResult, error) {
	var decoded struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &llmerrors.ProtocolError{Reason: "google: decoding embeddings", ResponseBody: body, Cause: err}
	}
	vectors := make([][]float32, len(decoded.Embeddings))
	for i, e := range decoded.Embeddings {
		vectors[i] = e.Values
	}
	return &provider.EmbedResult{Vectors: vectors}, nil
}
