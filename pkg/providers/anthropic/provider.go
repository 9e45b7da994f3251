// Package anthropic implements the Anthropic Messages API codec.
package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
	"github.com/llmwire/llmwire/pkg/usage"
)

// apiVersion is the anthropic-version header sent with every request.
const apiVersion = "2023-06-01"

// defaultMaxTokens applies when the caller sets no output cap; the
// Messages API requires one.
const defaultMaxTokens = 4096

// Provider implements provider.Provider for Anthropic.
type Provider struct{}

// New creates the Anthropic provider.
func New() *Provider {
	return &Provider{}
}

// ID returns the provider id
func (p *Provider) ID() string {
	return "anthropic"
}

// DefaultBaseURL returns the Anthropic API endpoint
func (p *Provider) DefaultBaseURL() string {
	return "https://api.anthropic.com/v1"
}

// Path returns the Messages API path
func (p *Provider) Path(model *types.Model) string {
	return "/messages"
}

// Auth returns the x-api-key scheme with the version header
func (p *Provider) Auth(model *types.Model) provider.Auth {
	return provider.Auth{
		Header: "x-api-key",
		Extra:  map[string]string{"anthropic-version": apiVersion},
	}
}

// EncodeBody builds the Messages API request body. The system message is
// lifted to the top-level system field.
func (p *Provider) EncodeBody(req *provider.Request) ([]byte, error) {
	messages, err := toMessages(req.Context.WithoutSystem())
	if err != nil {
		return nil, err
	}

	maxTokens := defaultMaxTokens
	if req.Model.MaxTokens != nil {
		maxTokens = *req.Model.MaxTokens
	}

	body := map[string]interface{}{
		"model":      req.Model.ID,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if system, ok := req.Context.System(); ok {
		body["system"] = system
	}
	if req.Stream {
		body["stream"] = true
	}

	opts := req.Options
	if opts != nil {
		if opts.MaxTokens != nil {
			maxTokens = *opts.MaxTokens
			body["max_tokens"] = maxTokens
		}
		if opts.Temperature != nil {
			body["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil {
			body["top_p"] = *opts.TopP
		}
		if opts.TopK != nil {
			body["top_k"] = *opts.TopK
		}
		if len(opts.Stop) > 0 {
			body["stop_sequences"] = opts.Stop
		}
		// seed, frequency_penalty, presence_penalty, response_format
		// have no Messages API equivalents and are dropped.
		if len(opts.Tools) > 0 {
			body["tools"] = toTools(opts.Tools)
		}
		if opts.ToolChoice != nil {
			body["tool_choice"] = toToolChoice(*opts.ToolChoice)
		}
		if opts.ReasoningEffort != "" && req.Model.Capabilities.Reasoning {
			body["thinking"] = map[string]interface{}{
				"type":          "enabled",
				"budget_tokens": thinkingBudget(opts.ReasoningEffort, maxTokens),
			}
		}
		for k, v := range opts.ProviderOptions {
			body[k] = v
		}
	}

	return json.Marshal(body)
}

// thinkingBudget maps a reasoning effort level onto a token budget
// proportional to the output cap.
func thinkingBudget(effort string, maxTokens int) int {
	switch effort {
	case "low":
		return maxTokens / 4
	case "high":
		return maxTokens * 3 / 4
	default:
		return maxTokens / 2
	}
}

func toMessages(ctx types.Context) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, ctx.Len())
	for _, m := range ctx.Messages() {
		blocks, err := toContentBlocks(m)
		if err != nil {
			return nil, err
		}
		role := string(m.Role)
		if m.Role == types.RoleTool {
			// Tool results travel as user messages carrying tool_result
			// blocks.
			role = string(types.RoleUser)
		}
		out = append(out, map[string]interface{}{
			"role":    role,
			"content": blocks,
		})
	}
	return out, nil
}

func toContentBlocks(m types.Message) ([]map[string]interface{}, error) {
	var blocks []map[string]interface{}
	for _, part := range m.Content {
		switch p := part.(type) {
		case types.TextPart:
			blocks = append(blocks, map[string]interface{}{"type": "text", "text": p.Text})
		case types.ReasoningPart:
			blocks = append(blocks, map[string]interface{}{"type": "thinking", "thinking": p.Text})
		case types.ImageURLPart:
			blocks = append(blocks, map[string]interface{}{
				"type":   "image",
				"source": map[string]interface{}{"type": "url", "url": p.URL},
			})
		case types.ImagePart:
			blocks = append(blocks, map[string]interface{}{
				"type": "image",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": p.MediaType,
					"data":       base64.StdEncoding.EncodeToString(p.Data),
				},
			})
		case types.FilePart:
			blocks = append(blocks, map[string]interface{}{
				"type": "document",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": p.MediaType,
					"data":       base64.StdEncoding.EncodeToString(p.Data),
				},
			})
		case types.ToolCallPart:
			args, err := types.ToolCall(p).Args()
			if err != nil {
				return nil, &llmerrors.ValidationError{Reason: "anthropic: tool call arguments are not valid JSON", Cause: err}
			}
			blocks = append(blocks, map[string]interface{}{
				"type":  "tool_use",
				"id":    p.ID,
				"name":  p.Name,
				"input": args,
			})
		case types.ToolResultPart:
			blocks = append(blocks, map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": p.ToolCallID,
				"content":     toolResultContent(p.Output),
			})
		default:
			return nil, &llmerrors.ValidationError{
				Reason: fmt.Sprintf("anthropic: unsupported content part %q on %s message", part.PartType(), m.Role),
			}
		}
	}
	return blocks, nil
}

func toolResultContent(output interface{}) string {
	if s, ok := output.(string); ok {
		return s
	}
	raw, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf("%v", output)
	}
	return string(raw)
}

func toTools(tools []types.Tool) []map[string]interface{} {
	out := make([]map[string]interface{}, len(tools))
	for i, t := range tools {
		out[i] = map[string]interface{}{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.JSONSchema(),
		}
	}
	return out
}

func toToolChoice(tc types.ToolChoice) map[string]interface{} {
	switch tc.Type {
	case types.ToolChoiceTool:
		return map[string]interface{}{"type": "tool", "name": tc.ToolName}
	case types.ToolChoiceRequired:
		return map[string]interface{}{"type": "any"}
	case types.ToolChoiceNone:
		return map[string]interface{}{"type": "none"}
	default:
		return map[string]interface{}{"type": "auto"}
	}
}

// messagesResponse is the Messages API response shape.
type messagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type     string                 `json:"type"`
		Text     string                 `json:"text"`
		Thinking string                 `json:"thinking"`
		ID       string                 `json:"id"`
		Name     string                 `json:"name"`
		Input    map[string]interface{} `json:"input"`
	} `json:"content"`
	StopReason string                 `json:"stop_reason"`
	Usage      map[string]interface{} `json:"usage"`
}

// DecodeResponse decodes a non-streaming Messages API body.
func (p *Provider) DecodeResponse(body []byte, model *types.Model) (*types.Response, error) {
	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &llmerrors.ProtocolError{Reason: "anthropic: decoding response", ResponseBody: body, Cause: err}
	}

	resp := &types.Response{
		ID:           decoded.ID,
		Model:        decoded.Model,
		Usage:        usage.Normalize(decoded.Usage),
		FinishReason: types.NormalizeFinishReason(decoded.StopReason),
		ProviderMeta: map[string]interface{}{
			"usage":       decoded.Usage,
			"stop_reason": decoded.StopReason,
		},
	}

	var parts []types.ContentPart
	for _, block := range decoded.Content {
		switch block.Type {
		case "thinking":
			parts = append(parts, types.ReasoningPart{Text: block.Thinking})
		case "text":
			parts = append(parts, types.TextPart{Text: block.Text})
		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				args = []byte("{}")
			}
			parts = append(parts, types.ToolCallPart(types.NewToolCall(block.ID, block.Name, string(args))))
		}
	}
	if len(parts) > 0 {
		resp.Message = &types.Message{Role: types.RoleAssistant, Content: parts}
	}

	return resp, nil
}

// DecodeSSEEvent decodes one Messages API stream event. The event family
// is message_start, content_block_start, content_block_delta,
// message_delta, message_stop; everything else (ping, unknown) yields
// nil.
func (p *Provider) DecodeSSEEvent(event streaming.Event, model *types.Model) []types.StreamChunk {
	switch event.Name {
	case "message_start":
		var decoded struct {
			Message struct {
				Model string                 `json:"model"`
				Usage map[string]interface{} `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
			return nil
		}
		meta := types.ChunkMeta{Model: decoded.Message.Model}
		if len(decoded.Message.Usage) > 0 {
			u := usage.Normalize(decoded.Message.Usage)
			meta.Usage = &u
		}
		return []types.StreamChunk{types.MetaChunk(meta)}

	case "content_block_start":
		var decoded struct {
			Index        int `json:"index"`
			ContentBlock struct {
				Type string `json:"type"`
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"content_block"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
			return nil
		}
		if decoded.ContentBlock.Type != "tool_use" {
			return nil
		}
		return []types.StreamChunk{types.ToolCallChunk(decoded.ContentBlock.ID, decoded.ContentBlock.Name, decoded.Index)}

	case "content_block_delta":
		var decoded struct {
			Index int `json:"index"`
			Delta struct {
				Type        string `json:"type"`
				Text        string `json:"text"`
				Thinking    string `json:"thinking"`
				PartialJSON string `json:"partial_json"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
			return nil
		}
		switch decoded.Delta.Type {
		case "text_delta":
			return []types.StreamChunk{types.TextChunk(decoded.Delta.Text)}
		case "thinking_delta":
			return []types.StreamChunk{types.ThinkingChunk(decoded.Delta.Thinking)}
		case "input_json_delta":
			return []types.StreamChunk{types.MetaChunk(types.ChunkMeta{
				ToolCallArgs: &types.ToolCallArgsFragment{
					Index:    decoded.Index,
					Fragment: decoded.Delta.PartialJSON,
				},
			})}
		default:
			return nil
		}

	case "message_delta":
		var decoded struct {
			Delta struct {
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
			Usage map[string]interface{} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
			return nil
		}
		meta := types.ChunkMeta{}
		if decoded.Delta.StopReason != "" {
			meta.FinishReason = types.NormalizeFinishReason(decoded.Delta.StopReason)
		}
		if len(decoded.Usage) > 0 {
			u := usage.Normalize(decoded.Usage)
			meta.Usage = &u
		}
		return []types.StreamChunk{types.MetaChunk(meta)}

	case "message_stop":
		return []types.StreamChunk{types.MetaChunk(types.ChunkMeta{Terminal: true})}

	default:
		return nil
	}
}
