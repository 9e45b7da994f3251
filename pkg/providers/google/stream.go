package google

import (
	"bytes"
	"context"
	"net/http"

	"github.com/llmwire/llmwire/pkg/provider"
)

// BuildStreamRequest targets the streamGenerateContent endpoint; the
// body carries no stream flag, the path selects streaming.
func (p *Provider) BuildStreamRequest(ctx context.Context, baseURL string, req *provider.Request) (*http.Request, error) {
	body, err := p.EncodeBody(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+p.StreamPath(req.Model), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}
