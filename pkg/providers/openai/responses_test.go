package openai

import (
	"encoding/json"
	"testing"

	"github.com/llmwire/llmwire/pkg/provider"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/streaming"
)

func responsesModel() *types.Model {
	return &types.Model{
		Provider:     "openai",
		ID:           "gpt-4.1",
		API:          "responses",
		Capabilities: types.ModelCapabilities{ToolCall: true, Temperature: true},
	}
}

func TestResponsesDriverSelection(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Path(responsesModel()) != "/responses" {
		t.Errorf("path: %q", p.Path(responsesModel()))
	}
	if p.Path(chatModel()) != "/chat/completions" {
		t.Errorf("chat path: %q", p.Path(chatModel()))
	}
}

func TestEncodeResponses_SystemToInstructions(t *testing.T) {
	t.Parallel()

	maxTokens := 50
	raw, err := New().EncodeBody(&provider.Request{
		Model:   responsesModel(),
		Context: types.NewContext(types.System("Be terse."), types.User("hi")),
		Options: &provider.Options{MaxTokens: &maxTokens},
	})
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatal(err)
	}

	if body["instructions"] != "Be terse." {
		t.Errorf("instructions: %v", body["instructions"])
	}
	if body["max_output_tokens"] != float64(50) {
		t.Errorf("max_output_tokens: %v", body["max_output_tokens"])
	}
	input := body["input"].([]interface{})
	if len(input) != 1 {
		t.Fatalf("system must not appear in input, got %d entries", len(input))
	}
	msg := input[0].(map[string]interface{})
	content := msg["content"].([]interface{})
	block := content[0].(map[string]interface{})
	if block["type"] != "input_text" {
		t.Errorf("block: %v", block)
	}
}

func TestEncodeResponses_FlatTools(t *testing.T) {
	t.Parallel()

	choice := types.SpecificToolChoice("get_weather")
	raw, err := New().EncodeBody(&provider.Request{
		Model:   responsesModel(),
		Context: types.NewContext(types.User("weather?")),
		Options: &provider.Options{
			Tools:      []types.Tool{{Name: "get_weather", Description: "d"}},
			ToolChoice: &choice,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]interface{}
	json.Unmarshal(raw, &body)

	tools := body["tools"].([]interface{})
	entry := tools[0].(map[string]interface{})
	// The Responses API flattens the function shape.
	if entry["name"] != "get_weather" || entry["type"] != "function" {
		t.Errorf("tool entry: %v", entry)
	}
	if _, nested := entry["function"]; nested {
		t.Error("responses tools must not nest under function")
	}
	tc := body["tool_choice"].(map[string]interface{})
	if tc["name"] != "get_weather" {
		t.Errorf("tool_choice: %v", tc)
	}
}

func TestDecodeResponses_TextAndUsage(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"id": "resp_1",
		"model": "gpt-4.1",
		"status": "completed",
		"output": [
			{"type": "reasoning", "summary": [{"type": "summary_text", "text": "thinking..."}]},
			{"type": "message", "content": [{"type": "output_text", "text": "answer"}]}
		],
		"usage": {"input_tokens": 8, "output_tokens": 4, "output_tokens_details": {"reasoning_tokens": 2}}
	}`)

	resp, err := New().DecodeResponse(raw, responsesModel())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text() != "answer" {
		t.Errorf("text: %q", resp.Text())
	}
	if resp.FinishReason != types.FinishReasonStop {
		t.Errorf("finish: %q", resp.FinishReason)
	}
	if resp.Usage.ReasoningTokens != 2 {
		t.Errorf("reasoning tokens: %+v", resp.Usage)
	}
	if _, ok := resp.Message.Content[0].(types.ReasoningPart); !ok {
		t.Error("thinking must precede text in the assistant message")
	}
}

func TestDecodeResponses_FunctionCall(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"id": "resp_2",
		"model": "gpt-4.1",
		"status": "completed",
		"output": [
			{"type": "function_call", "call_id": "call_9", "name": "get_weather", "arguments": "{\"location\":\"Paris\"}"}
		],
		"usage": {"input_tokens": 5, "output_tokens": 3}
	}`)

	resp, err := New().DecodeResponse(raw, responsesModel())
	if err != nil {
		t.Fatal(err)
	}
	calls := resp.ToolCalls()
	if len(calls) != 1 || calls[0].ID != "call_9" {
		t.Fatalf("calls: %+v", calls)
	}
	if resp.FinishReason != types.FinishReasonToolCalls {
		t.Errorf("finish: %q", resp.FinishReason)
	}
}

func TestDecodeResponsesSSE(t *testing.T) {
	t.Parallel()

	p := New()
	m := responsesModel()

	text := p.DecodeSSEEvent(streaming.Event{
		Name: "response.output_text.delta",
		Data: `{"delta":"Hel"}`,
	}, m)
	if len(text) != 1 || text[0].Text != "Hel" {
		t.Errorf("text: %+v", text)
	}

	start := p.DecodeSSEEvent(streaming.Event{
		Name: "response.output_item.added",
		Data: `{"output_index":1,"item":{"type":"function_call","call_id":"call_2","name":"lookup"}}`,
	}, m)
	if len(start) != 1 || start[0].Type != types.ChunkTypeToolCall || start[0].Index != 1 {
		t.Errorf("start: %+v", start)
	}

	frag := p.DecodeSSEEvent(streaming.Event{
		Name: "response.function_call_arguments.delta",
		Data: `{"output_index":1,"delta":"{\"q\":"}`,
	}, m)
	if len(frag) != 1 || frag[0].Meta.ToolCallArgs == nil || frag[0].Meta.ToolCallArgs.Index != 1 {
		t.Errorf("fragment: %+v", frag)
	}

	completed := p.DecodeSSEEvent(streaming.Event{
		Name: "response.completed",
		Data: `{"response":{"model":"gpt-4.1","usage":{"input_tokens":10,"output_tokens":6}}}`,
	}, m)
	if len(completed) != 1 || !completed[0].Meta.Terminal {
		t.Fatalf("completed: %+v", completed)
	}
	if completed[0].Meta.Usage == nil || completed[0].Meta.Usage.OutputTokens != 6 {
		t.Errorf("terminal usage: %+v", completed[0].Meta.Usage)
	}

	// Non-function items and unknown events decode to nothing.
	if chunks := p.DecodeSSEEvent(streaming.Event{
		Name: "response.output_item.added",
		Data: `{"output_index":0,"item":{"type":"message"}}`,
	}, m); len(chunks) != 0 {
		t.Errorf("message item: %+v", chunks)
	}
	if chunks := p.DecodeSSEEvent(streaming.Event{Name: "response.created", Data: `{}`}, m); len(chunks) != 0 {
		t.Errorf("unknown event: %+v", chunks)
	}
}
