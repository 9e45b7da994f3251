// Package google implements the Google Gemini generateContent codec.
package google

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
)

// Provider implements provider.Provider for Google Gemini.
type Provider struct{}

// New creates the Google provider.
func New() *Provider {
	return &Provider{}
}

// ID returns the provider id
func (p *Provider) ID() string {
	return "google"
}

// DefaultBaseURL returns the Gemini API endpoint
func (p *Provider) DefaultBaseURL() string {
	return "https://generativelanguage.googleapis.com/v1beta"
}

// Path returns the generateContent path; streaming switches to
// streamGenerateContent with SSE framing.
func (p *Provider) Path(model *types.Model) string {
	return "/models/" + model.ID + ":generateContent"
}

// StreamPath returns the SSE streaming path.
func (p *Provider) StreamPath(model *types.Model) string {
	return "/models/" + model.ID + ":streamGenerateContent?alt=sse"
}

// Auth returns the API-key header scheme
func (p *Provider) Auth(model *types.Model) provider.Auth {
	return provider.Auth{Header: "x-goog-api-key"}
}

// EncodeBody builds the generateContent request body. The system message
// is lifted to systemInstruction.
func (p *Provider) EncodeBody(req *provider.Request) ([]byte, error) {
	contents, err := toContents(req.Context.WithoutSystem())
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"contents": contents,
	}
	if system, ok := req.Context.System(); ok {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": system}},
		}
	}

	opts := req.Options
	if opts != nil {
		generationConfig := map[string]interface{}{}
		if opts.Temperature != nil {
			generationConfig["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil {
			generationConfig["topP"] = *opts.TopP
		}
		if opts.TopK != nil {
			generationConfig["topK"] = *opts.TopK
		}
		if opts.MaxTokens != nil {
			generationConfig["maxOutputTokens"] = *opts.MaxTokens
		}
		if len(opts.Stop) > 0 {
			generationConfig["stopSequences"] = opts.Stop
		}
		if opts.Seed != nil {
			generationConfig["seed"] = *opts.Seed
		}
		// frequency_penalty, presence_penalty, response_format are
		// dropped.
		if len(generationConfig) > 0 {
			body["generationConfig"] = generationConfig
		}
		if len(opts.Tools) > 0 {
			body["tools"] = []map[string]interface{}{
				{"functionDeclarations": toFunctionDeclarations(opts.Tools)},
			}
		}
		if opts.ToolChoice != nil {
			body["toolConfig"] = toToolConfig(*opts.ToolChoice)
		}
		for k, v := range opts.ProviderOptions {
			body[k] = v
		}
	}

	return json.Marshal(body)
}

func toContents(ctx types.Context) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, m := range ctx.Messages() {
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		var parts []map[string]interface{}
		for _, part := range m.Content {
			switch p := part.(type) {
			case types.TextPart:
				parts = append(parts, map[string]interface{}{"text": p.Text})
			case types.ReasoningPart:
				// Model output; not sent back.
			case types.ImagePart:
				parts = append(parts, map[string]interface{}{
					"inlineData": map[string]interface{}{
						"mimeType": p.MediaType,
						"data":     base64.StdEncoding.EncodeToString(p.Data),
					},
				})
			case types.FilePart:
				parts = append(parts, map[string]interface{}{
					"inlineData": map[string]interface{}{
						"mimeType": p.MediaType,
						"data":     base64.StdEncoding.EncodeToString(p.Data),
					},
				})
			case types.ImageURLPart:
				parts = append(parts, map[string]interface{}{
					"fileData": map[string]interface{}{"fileUri": p.URL},
				})
			case types.ToolCallPart:
				args, err := types.ToolCall(p).Args()
				if err != nil {
					return nil, &llmerrors.ValidationError{Reason: "google: tool call arguments are not valid JSON", Cause: err}
				}
				parts = append(parts, map[string]interface{}{
					"functionCall": map[string]interface{}{
						"name": p.Name,
						"args": args,
					},
				})
			case types.ToolResultPart:
				parts = append(parts, map[string]interface{}{
					"functionResponse": map[string]interface{}{
						"name":     p.ToolName,
						"response": map[string]interface{}{"result": p.Output},
					},
				})
			default:
				return nil, &llmerrors.ValidationError{
					Reason: fmt.Sprintf("google: unsupported content part %q on %s message", part.PartType(), m.Role),
				}
			}
		}
		if len(parts) > 0 {
			out = append(out, map[string]interface{}{"role": role, "parts": parts})
		}
	}
	return out, nil
}

func toFunctionDeclarations(tools []types.Tool) []map[string]interface{} {
	out := make([]map[string]interface{}, len(tools))
	for i, t := range tools {
		out[i] = map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.JSONSchema(),
		}
	}
	return out
}

func toToolConfig(tc types.ToolChoice) map[string]interface{} {
	config := map[string]interface{}{}
	switch tc.Type {
	case types.ToolChoiceNone:
		config["mode"] = "NONE"
	case types.ToolChoiceRequired:
		config["mode"] = "ANY"
	case types.ToolChoiceTool:
		config["mode"] = "ANY"
		config["allowedFunctionNames"] = []string{tc.ToolName}
	default:
		config["mode"] = "AUTO"
	}
	return map[string]interface{}{"functionCallingConfig": config}
}

// generateResponse is the generateContent response shape, shared between
// batch and streaming decoding.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text         string `json:"text"`
				Thought      bool   `json:"thought"`
				FunctionCall *struct {
					Name string                 `json:"name"`
					Args map[string]interface{} `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount        int64 `json:"promptTokenCount"`
		CandidatesTokenCount    int64 `json:"candidatesTokenCount"`
		ThoughtsTokenCount      int64 `json:"thoughtsTokenCount"`
		CachedContentTokenCount int64 `json:"cachedContentTokenCount"`
		TotalTokenCount         int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
	ResponseID   string `json:"responseId"`
}

func (g *generateResponse) usage() types.Usage {
	if g.UsageMetadata == nil {
		return types.Usage{}
	}
	u := types.Usage{
		InputTokens:     g.UsageMetadata.PromptTokenCount,
		OutputTokens:    g.UsageMetadata.CandidatesTokenCount,
		ReasoningTokens: g.UsageMetadata.ThoughtsTokenCount,
		CachedTokens:    g.UsageMetadata.CachedContentTokenCount,
		TotalTokens:     g.UsageMetadata.TotalTokenCount,
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

// DecodeResponse decodes a non-streaming generateContent body.
func (p *Provider) DecodeResponse(body []byte, model *types.Model) (*types.Response, error) {
	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &llmerrors.ProtocolError{Reason: "google: decoding response", ResponseBody: body, Cause: err}
	}

	resp := &types.Response{
		ID:           decoded.ResponseID,
		Model:        decoded.ModelVersion,
		Usage:        decoded.usage(),
		FinishReason: types.FinishReasonOther,
		ProviderMeta: map[string]interface{}{},
	}
	if decoded.UsageMetadata != nil {
		resp.ProviderMeta["usageMetadata"] = *decoded.UsageMetadata
	}

	if len(decoded.Candidates) > 0 {
		candidate := decoded.Candidates[0]
		resp.FinishReason = types.NormalizeFinishReason(candidate.FinishReason)

		var parts []types.ContentPart
		sawToolCall := false
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				sawToolCall = true
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				parts = append(parts, types.ToolCallPart(types.NewToolCall("", part.FunctionCall.Name, string(args))))
			case part.Thought:
				parts = append(parts, types.ReasoningPart{Text: part.Text})
			case part.Text != "":
				parts = append(parts, types.TextPart{Text: part.Text})
			}
		}
		if len(parts) > 0 {
			resp.Message = &types.Message{Role: types.RoleAssistant, Content: parts}
		}
		if sawToolCall {
			resp.FinishReason = types.FinishReasonToolCalls
		}
	}

	return resp, nil
}

// DecodeSSEEvent decodes one streamGenerateContent SSE event without
// cross-event state. Prefer StreamDecoder for live streams; tool-call
// indices are only stable within a single event here.
func (p *Provider) DecodeSSEEvent(event streaming.Event, model *types.Model) []types.StreamChunk {
	decoder := &streamDecoder{}
	return decoder.decode(event)
}

// StreamDecoder returns a per-stream decoder that numbers tool calls
// across events. Gemini sends complete functionCall parts rather than
// argument fragments, so each tool call synthesizes as a start chunk
// plus one whole-JSON fragment.
func (p *Provider) StreamDecoder(model *types.Model) streaming.Decoder {
	decoder := &streamDecoder{}
	return decoder.decode
}

// streamDecoder numbers tool calls in order of appearance per stream.
type streamDecoder struct {
	toolIndex int
}

func (d *streamDecoder) decode(event streaming.Event) []types.StreamChunk {
	if _, ok := event.Object(); !ok {
		return nil
	}
	var decoded generateResponse
	if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
		return nil
	}

	var chunks []types.StreamChunk
	if len(decoded.Candidates) > 0 {
		candidate := decoded.Candidates[0]
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				chunks = append(chunks,
					types.ToolCallChunk(types.NewToolCall("", part.FunctionCall.Name, "").ID, part.FunctionCall.Name, d.toolIndex),
					types.MetaChunk(types.ChunkMeta{
						ToolCallArgs: &types.ToolCallArgsFragment{
							Index:    d.toolIndex,
							Fragment: string(args),
						},
					}),
				)
				d.toolIndex++
			case part.Thought:
				chunks = append(chunks, types.ThinkingChunk(part.Text))
			case part.Text != "":
				chunks = append(chunks, types.TextChunk(part.Text))
			}
		}
		if candidate.FinishReason != "" {
			meta := types.ChunkMeta{
				FinishReason: types.NormalizeFinishReason(candidate.FinishReason),
				Model:        decoded.ModelVersion,
			}
			if decoded.UsageMetadata != nil {
				u := decoded.usage()
				meta.Usage = &u
			}
			chunks = append(chunks, types.MetaChunk(meta))
		}
	}
	return chunks
}
