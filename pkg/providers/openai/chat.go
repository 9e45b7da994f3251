package openai

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

// encodeChatBody builds the Chat Completions request body.
func encodeChatBody(req *provider.Request) ([]byte, error) {
	messages, err := toChatMessages(req.Context)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"model":    req.Model.ID,
		"messages": messages,
	}
	if req.Stream {
		body["stream"] = true
		body["stream_options"] = map[string]interface{}{"include_usage": true}
	}

	opts := req.Options
	if opts != nil {
		// Reasoning models reject sampling controls and use a separate
		// output-token parameter.
		reasoning := req.Model.Capabilities.Reasoning
		if opts.Temperature != nil && !reasoning {
			body["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil && !reasoning {
			body["top_p"] = *opts.TopP
		}
		if opts.MaxTokens != nil {
			if reasoning {
				body["max_completion_tokens"] = *opts.MaxTokens
			} else {
				body["max_tokens"] = *opts.MaxTokens
			}
		}
		if len(opts.Stop) > 0 {
			body["stop"] = opts.Stop
		}
		if opts.Seed != nil {
			body["seed"] = *opts.Seed
		}
		if opts.FrequencyPenalty != nil {
			body["frequency_penalty"] = *opts.FrequencyPenalty
		}
		if opts.PresencePenalty != nil {
			body["presence_penalty"] = *opts.PresencePenalty
		}
		if opts.ReasoningEffort != "" && reasoning {
			body["reasoning_effort"] = opts.ReasoningEffort
		}
		if len(opts.Tools) > 0 {
			body["tools"] = toChatTools(opts.Tools)
		}
		if opts.ToolChoice != nil {
			body["tool_choice"] = toChatToolChoice(*opts.ToolChoice)
		}
		if opts.ResponseFormat != "" {
			body["response_format"] = map[string]interface{}{"type": opts.ResponseFormat}
		}
		for k, v := range opts.ProviderOptions {
			body[k] = v
		}
	}

	return json.Marshal(body)
}

// toChatMessages converts the context to the Chat Completions message
// list. System messages stay in place; OpenAI accepts them as messages.
func toChatMessages(ctx types.Context) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, ctx.Len())
	for _, m := range ctx.Messages() {
		encoded, err := toChatMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}

func toChatMessage(m types.Message) (map[string]interface{}, error) {
	msg := map[string]interface{}{"role": string(m.Role)}
	if m.Name != "" {
		msg["name"] = m.Name
	}

	if m.Role == types.RoleTool {
		msg["tool_call_id"] = m.ToolCallID
		msg["content"] = toolResultText(m)
		return msg, nil
	}

	var toolCalls []map[string]interface{}
	var blocks []map[string]interface{}
	textOnly := true

	for _, part := range m.Content {
		switch p := part.(type) {
		case types.TextPart:
			blocks = append(blocks, map[string]interface{}{"type": "text", "text": p.Text})
		case types.ReasoningPart:
			// Reasoning is model output; it is not sent back.
		case types.ImageURLPart:
			textOnly = false
			blocks = append(blocks, map[string]interface{}{
				"type":      "image_url",
				"image_url": map[string]interface{}{"url": p.URL},
			})
		case types.ImagePart:
			textOnly = false
			blocks = append(blocks, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]interface{}{
					"url": dataURL(p.MediaType, p.Data),
				},
			})
		case types.FilePart:
			textOnly = false
			blocks = append(blocks, map[string]interface{}{
				"type": "file",
				"file": map[string]interface{}{
					"filename":  p.Filename,
					"file_data": dataURL(p.MediaType, p.Data),
				},
			})
		case types.ToolCallPart:
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":   p.ID,
				"type": "function",
				"function": map[string]interface{}{
					"name":      p.Name,
					"arguments": p.Arguments,
				},
			})
		default:
			return nil, &llmerrors.ValidationError{
				Reason: fmt.Sprintf("openai: unsupported content part %q on %s message", part.PartType(), m.Role),
			}
		}
	}

	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
	}
	switch {
	case len(blocks) == 0:
		msg["content"] = nil
	case textOnly && len(blocks) == 1:
		msg["content"] = blocks[0]["text"]
	default:
		msg["content"] = blocks
	}
	return msg, nil
}

func toolResultText(m types.Message) string {
	for _, part := range m.Content {
		if tr, ok := part.(types.ToolResultPart); ok {
			if s, ok := tr.Output.(string); ok {
				return s
			}
			raw, err := json.Marshal(tr.Output)
			if err != nil {
				return fmt.Sprintf("%v", tr.Output)
			}
			return string(raw)
		}
	}
	return m.Text()
}

func dataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func toChatTools(tools []types.Tool) []map[string]interface{} {
	out := make([]map[string]interface{}, len(tools))
	for i, t := range tools {
		out[i] = map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.JSONSchema(),
			},
		}
	}
	return out
}

func toChatToolChoice(tc types.ToolChoice) interface{} {
	switch tc.Type {
	case types.ToolChoiceTool:
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": tc.ToolName},
		}
	case types.ToolChoiceAuto, types.ToolChoiceNone, types.ToolChoiceRequired:
		return string(tc.Type)
	default:
		return "auto"
	}
}

// chatResponse is the Chat Completions response shape.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content          string         `json:"content"`
			ReasoningContent string         `json:"reasoning_content"`
			ToolCalls        []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage             map[string]interface{} `json:"usage"`
	SystemFingerprint string                 `json:"system_fingerprint"`
}

type chatToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// decodeChatResponse decodes a non-streaming Chat Completions body.
func decodeChatResponse(body []byte, model *types.Model) (*types.Response, error) {
	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &llmerrors.ProtocolError{Reason: "openai: decoding response", ResponseBody: body, Cause: err}
	}

	resp := &types.Response{
		ID:    decoded.ID,
		Model: decoded.Model,
		Usage: usage.Normalize(decoded.Usage),
		ProviderMeta: map[string]interface{}{
			"usage": decoded.Usage,
		},
	}
	if decoded.SystemFingerprint != "" {
		resp.ProviderMeta["system_fingerprint"] = decoded.SystemFingerprint
	}

	if len(decoded.Choices) > 0 {
		choice := decoded.Choices[0]
		resp.FinishReason = types.NormalizeFinishReason(choice.FinishReason)

		var parts []types.ContentPart
		if choice.Message.ReasoningContent != "" {
			parts = append(parts, types.ReasoningPart{Text: choice.Message.ReasoningContent})
		}
		if choice.Message.Content != "" {
			parts = append(parts, types.TextPart{Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			parts = append(parts, types.ToolCallPart(types.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments)))
		}
		if len(parts) > 0 {
			resp.Message = &types.Message{Role: types.RoleAssistant, Content: parts}
		}
	} else {
		resp.FinishReason = types.FinishReasonOther
	}

	return resp, nil
}

// decodeChatSSEEvent decodes one Chat Completions stream event.
func decodeChatSSEEvent(event streaming.Event) []types.StreamChunk {
	if _, ok := event.Object(); !ok {
		return nil
	}

	var decoded struct {
		Model   string `json:"model"`
		Choices []struct {
			Delta struct {
				Content          string         `json:"content"`
				ReasoningContent string         `json:"reasoning_content"`
				ToolCalls        []chatToolCall `json:"tool_calls"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Usage map[string]interface{} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
		return nil
	}

	var chunks []types.StreamChunk
	if len(decoded.Choices) > 0 {
		choice := decoded.Choices[0]
		if choice.Delta.ReasoningContent != "" {
			chunks = append(chunks, types.ThinkingChunk(choice.Delta.ReasoningContent))
		}
		if choice.Delta.Content != "" {
			chunks = append(chunks, types.TextChunk(choice.Delta.Content))
		}
		for _, tc := range choice.Delta.ToolCalls {
			if tc.ID != "" || tc.Function.Name != "" {
				chunks = append(chunks, types.ToolCallChunk(tc.ID, tc.Function.Name, tc.Index))
			}
			if tc.Function.Arguments != "" {
				chunks = append(chunks, types.MetaChunk(types.ChunkMeta{
					ToolCallArgs: &types.ToolCallArgsFragment{
						Index:    tc.Index,
						Fragment: tc.Function.Arguments,
					},
				}))
			}
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			chunks = append(chunks, types.MetaChunk(types.ChunkMeta{
				FinishReason: types.NormalizeFinishReason(*choice.FinishReason),
				Model:        decoded.Model,
			}))
		}
	}
	if len(decoded.Usage) > 0 {
		u := usage.Normalize(decoded.Usage)
		chunks = append(chunks, types.MetaChunk(types.ChunkMeta{Usage: &u, Model: decoded.Model}))
	}
	return chunks
}
