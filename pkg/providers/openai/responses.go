package openai

import (
	"encoding/json"
	"fmt"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
	"github.com/llmwire/llmwire/pkg/usage"
)

// encodeResponsesBody builds the Responses API request body.
func encodeResponsesBody(req *provider.Request) ([]byte, error) {
	input, err := toResponsesInput(req.Context.WithoutSystem())
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"model": req.Model.ID,
		"input": input,
	}
	if system, ok := req.Context.System(); ok {
		body["instructions"] = system
	}
	if req.Stream {
		body["stream"] = true
	}

	opts := req.Options
	if opts != nil {
		reasoning := req.Model.Capabilities.Reasoning
		if opts.Temperature != nil && !reasoning {
			body["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil && !reasoning {
			body["top_p"] = *opts.TopP
		}
		if opts.MaxTokens != nil {
			body["max_output_tokens"] = *opts.MaxTokens
		}
		if opts.ReasoningEffort != "" && reasoning {
			body["reasoning"] = map[string]interface{}{"effort": opts.ReasoningEffort}
		}
		if len(opts.Tools) > 0 {
			body["tools"] = toResponsesTools(opts.Tools)
		}
		if opts.ToolChoice != nil {
			body["tool_choice"] = toResponsesToolChoice(*opts.ToolChoice)
		}
		// stop, seed, frequency_penalty, presence_penalty have no
		// Responses API equivalents and are dropped.
		for k, v := range opts.ProviderOptions {
			body[k] = v
		}
	}

	return json.Marshal(body)
}

// toResponsesInput converts messages to the Responses input list.
func toResponsesInput(ctx types.Context) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, m := range ctx.Messages() {
		switch m.Role {
		case types.RoleTool:
			out = append(out, map[string]interface{}{
				"type":    "function_call_output",
				"call_id": m.ToolCallID,
				"output":  toolResultText(m),
			})
		case types.RoleUser, types.RoleAssistant:
			var blocks []map[string]interface{}
			for _, part := range m.Content {
				switch p := part.(type) {
				case types.TextPart:
					blockType := "input_text"
					if m.Role == types.RoleAssistant {
						blockType = "output_text"
					}
					blocks = append(blocks, map[string]interface{}{"type": blockType, "text": p.Text})
				case types.ImageURLPart:
					blocks = append(blocks, map[string]interface{}{"type": "input_image", "image_url": p.URL})
				case types.ImagePart:
					blocks = append(blocks, map[string]interface{}{"type": "input_image", "image_url": dataURL(p.MediaType, p.Data)})
				case types.FilePart:
					blocks = append(blocks, map[string]interface{}{
						"type":      "input_file",
						"filename":  p.Filename,
						"file_data": dataURL(p.MediaType, p.Data),
					})
				case types.ToolCallPart:
					out = append(out, map[string]interface{}{
						"type":      "function_call",
						"call_id":   p.ID,
						"name":      p.Name,
						"arguments": p.Arguments,
					})
				case types.ReasoningPart:
					// Model output; not sent back.
				default:
					return nil, &llmerrors.ValidationError{
						Reason: fmt.Sprintf("openai responses: unsupported content part %q", part.PartType()),
					}
				}
			}
			if len(blocks) > 0 {
				out = append(out, map[string]interface{}{
					"role":    string(m.Role),
					"content": blocks,
				})
			}
		}
	}
	return out, nil
}

// toResponsesTools flattens function definitions; the Responses API has
// no nested "function" wrapper.
func toResponsesTools(tools []types.Tool) []map[string]interface{} {
	out := make([]map[string]interface{}, len(tools))
	for i, t := range tools {
		out[i] = map[string]interface{}{
			"type":        "function",
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.JSONSchema(),
		}
	}
	return out
}

func toResponsesToolChoice(tc types.ToolChoice) interface{} {
	switch tc.Type {
	case types.ToolChoiceTool:
		return map[string]interface{}{"type": "function", "name": tc.ToolName}
	case types.ToolChoiceAuto, types.ToolChoiceNone, types.ToolChoiceRequired:
		return string(tc.Type)
	default:
		return "auto"
	}
}

// responsesResponse is the Responses API response shape.
type responsesResponse struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Status string `json:"status"`
	Output []struct {
		Type    string `json:"type"`
		CallID  string `json:"call_id"`
		Name    string `json:"name"`
		Args    string `json:"arguments"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Summary []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"summary"`
	} `json:"output"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	Usage map[string]interface{} `json:"usage"`
}

// decodeResponsesResponse decodes a non-streaming Responses API body.
func decodeResponsesResponse(body []byte, model *types.Model) (*types.Response, error) {
	var decoded responsesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &llmerrors.ProtocolError{Reason: "openai responses: decoding response", ResponseBody: body, Cause: err}
	}

	resp := &types.Response{
		ID:    decoded.ID,
		Model: decoded.Model,
		Usage: usage.Normalize(decoded.Usage),
		ProviderMeta: map[string]interface{}{
			"usage":  decoded.Usage,
			"status": decoded.Status,
		},
	}

	var parts []types.ContentPart
	sawToolCall := false
	for _, item := range decoded.Output {
		switch item.Type {
		case "reasoning":
			for _, s := range item.Summary {
				if s.Text != "" {
					parts = append(parts, types.ReasoningPart{Text: s.Text})
				}
			}
		case "message":
			for _, block := range item.Content {
				if block.Type == "output_text" && block.Text != "" {
					parts = append(parts, types.TextPart{Text: block.Text})
				}
			}
		case "function_call":
			sawToolCall = true
			parts = append(parts, types.ToolCallPart(types.NewToolCall(item.CallID, item.Name, item.Args)))
		}
	}
	if len(parts) > 0 {
		resp.Message = &types.Message{Role: types.RoleAssistant, Content: parts}
	}

	switch {
	case sawToolCall:
		resp.FinishReason = types.FinishReasonToolCalls
	case decoded.Status == "incomplete" && decoded.IncompleteDetails != nil && decoded.IncompleteDetails.Reason == "max_output_tokens":
		resp.FinishReason = types.FinishReasonLength
	case decoded.Status == "completed":
		resp.FinishReason = types.FinishReasonStop
	default:
		resp.FinishReason = types.NormalizeFinishReason(decoded.Status)
	}

	return resp, nil
}

// decodeResponsesSSEEvent decodes one Responses API stream event. The
// event name carries the discriminator.
func decodeResponsesSSEEvent(event streaming.Event) []types.StreamChunk {
	switch event.Name {
	case "response.output_text.delta":
		var decoded struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil || decoded.Delta == "" {
			return nil
		}
		return []types.StreamChunk{types.TextChunk(decoded.Delta)}

	case "response.reasoning_summary_text.delta":
		var decoded struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil || decoded.Delta == "" {
			return nil
		}
		return []types.StreamChunk{types.ThinkingChunk(decoded.Delta)}

	case "response.output_item.added":
		var decoded struct {
			OutputIndex int `json:"output_index"`
			Item        struct {
				Type   string `json:"type"`
				CallID string `json:"call_id"`
				Name   string `json:"name"`
			} `json:"item"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
			return nil
		}
		if decoded.Item.Type != "function_call" {
			return nil
		}
		return []types.StreamChunk{types.ToolCallChunk(decoded.Item.CallID, decoded.Item.Name, decoded.OutputIndex)}

	case "response.function_call_arguments.delta":
		var decoded struct {
			OutputIndex int    `json:"output_index"`
			Delta       string `json:"delta"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil || decoded.Delta == "" {
			return nil
		}
		return []types.StreamChunk{types.MetaChunk(types.ChunkMeta{
			ToolCallArgs: &types.ToolCallArgsFragment{
				Index:    decoded.OutputIndex,
				Fragment: decoded.Delta,
			},
		})}

	case "response.completed", "response.incomplete", "response.failed":
		var decoded struct {
			Response responsesResponse `json:"response"`
		}
		if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
			return nil
		}
		meta := types.ChunkMeta{Terminal: true, Model: decoded.Response.Model}
		switch event.Name {
		case "response.completed":
			meta.FinishReason = types.FinishReasonStop
		case "response.incomplete":
			meta.FinishReason = types.FinishReasonLength
		default:
			meta.FinishReason = types.FinishReasonError
		}
		if len(decoded.Response.Usage) > 0 {
			u := usage.Normalize(decoded.Response.Usage)
			meta.Usage = &u
		}
		return []types.StreamChunk{types.MetaChunk(meta)}

	default:
		return nil
	}
}
