package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/llmwire/llmwire/pkg/fixture"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/schema"
)

func characterSchema() *schema.Schema {
	return schema.New(
		schema.Str("name", schema.Required()),
		schema.PosInt("age", schema.Required()),
		schema.Str("occupation"),
	)
}

// structuredOutputHandler answers any chat request with a forced
// structured_output tool call carrying the given arguments.
func structuredOutputHandler(t *testing.T, arguments string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		// The synthetic tool and the forced choice must be on the wire.
		tools, _ := body["tools"].([]interface{})
		if len(tools) != 1 {
			t.Errorf("expected 1 synthetic tool, got %v", body["tools"])
		}
		tc, _ := body["tool_choice"].(map[string]interface{})
		if tc == nil || tc["function"].(map[string]interface{})["name"] != StructuredOutputToolName {
			t.Errorf("tool_choice: %v", body["tool_choice"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-obj",
			"model": "gpt-4o-mini",
			"choices": []map[string]interface{}{{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": "",
					"tool_calls": []map[string]interface{}{{
						"id":   "call_obj",
						"type": "function",
						"function": map[string]interface{}{
							"name":      StructuredOutputToolName,
							"arguments": arguments,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
			"usage": map[string]interface{}{"prompt_tokens": 40, "completion_tokens": 25},
		})
	}
}

func TestGenerateObject(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(structuredOutputHandler(t, `{"name":"Ada Lovelace","age":36,"occupation":"mathematician"}`))
	defer server.Close()

	model := testModel("openai", "gpt-4o-mini", server.URL)
	resp, err := GenerateObject(context.Background(), model, "Generate a fictional character", characterSchema(),
		WithAPIKey("k"), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}

	object := resp.Object()
	if object == nil {
		t.Fatal("expected object")
	}
	if object["name"] != "Ada Lovelace" {
		t.Errorf("name: %v", object["name"])
	}
	age, ok := object["age"].(int64)
	if !ok || age <= 0 {
		t.Errorf("age should coerce to a positive integer, got %T %v", object["age"], object["age"])
	}
}

func TestGenerateObject_SchemaViolation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(structuredOutputHandler(t, `{"name":"Ada","age":-3}`))
	defer server.Close()

	model := testModel("openai", "gpt-4o-mini", server.URL)
	_, err := GenerateObject(context.Background(), model, "character", characterSchema(),
		WithAPIKey("k"), WithHTTPClient(server.Client()))

	var schemaErr *llmerrors.SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
	if len(schemaErr.Paths) == 0 {
		t.Error("expected offending paths")
	}
}

func TestGenerateObject_NoToolCall(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-text",
			"model": "gpt-4o-mini",
			"choices": []map[string]interface{}{{
				"message":       map[string]interface{}{"role": "assistant", "content": "I refuse"},
				"finish_reason": "stop",
			}},
			"usage": map[string]interface{}{"prompt_tokens": 5, "completion_tokens": 3},
		})
	}))
	defer server.Close()

	model := testModel("openai", "gpt-4o-mini", server.URL)
	_, err := GenerateObject(context.Background(), model, "character", characterSchema(),
		WithAPIKey("k"), WithHTTPClient(server.Client()))

	var schemaErr *llmerrors.SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Errorf("expected SchemaValidationError, got %v", err)
	}
}

func TestGenerateObject_NilSchema(t *testing.T) {
	t.Parallel()

	_, err := GenerateObject(context.Background(), "openai:gpt-4o-mini", "x", nil)
	var verr *llmerrors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestStreamObject_ToolCallAccumulation(t *testing.T) {
	t.Parallel()

	// Arguments arrive as split input_json_delta fragments; losing any
	// of them would corrupt the first materialized object.
	events := []string{
		"event: message_start\ndata: {\"message\":{\"model\":\"claude-3-haiku-20240307\",\"usage\":{\"input_tokens\":30,\"output_tokens\":1}}}\n\n",
		"event: content_block_start\ndata: {\"index\":0,\"content_block\":{\"type\":\"tool_use\",\"id\":\"toolu_obj\",\"name\":\"structured_output\"}}\n\n",
		"event: content_block_delta\ndata: {\"index\":0,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"name\\\":\\\"A\"}}\n\n",
		"event: content_block_delta\ndata: {\"index\":0,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"da\\\",\\\"age\\\":36\"}}\n\n",
		"event: content_block_delta\ndata: {\"index\":0,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"}\"}}\n\n",
		"event: message_delta\ndata: {\"delta\":{\"stop_reason\":\"tool_use\"},\"usage\":{\"output_tokens\":18}}\n\n",
		"event: message_stop\ndata: {}\n\n",
	}
	server := httptest.NewServer(sseHandler(events))
	defer server.Close()

	model := testModel("anthropic", "claude-3-haiku-20240307", server.URL)
	resp, err := StreamObject(context.Background(), model, "Generate a fictional character", characterSchema(),
		WithAPIKey("k"), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}

	objects, err := resp.ObjectStream().Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) == 0 {
		t.Fatal("expected at least one materialized object")
	}
	first := objects[0]
	if first["name"] != "Ada" {
		t.Errorf("first object name: %v", first["name"])
	}
	if age, ok := first["age"].(int64); !ok || age != 36 {
		t.Errorf("first object age: %T %v", first["age"], first["age"])
	}
}

func TestGenerateObject_FromFixtureTranscript(t *testing.T) {
	t.Parallel()

	transcript := &fixture.Transcript{
		Provider:  "openai",
		ModelSpec: "openai:gpt-4o-mini",
		Response: fixture.ResponseMeta{
			Status:  200,
			Headers: map[string]string{"Content-Type": "application/json"},
		},
		Events: []fixture.Event{
			{Type: fixture.EventStatus, Payload: 200},
			{Type: fixture.EventData, Payload: `{
				"id": "chatcmpl-fixture",
				"model": "gpt-4o-mini",
				"choices": [{
					"message": {
						"role": "assistant",
						"content": "",
						"tool_calls": [{
							"id": "call_fix",
							"type": "function",
							"function": {"name": "structured_output", "arguments": "{\"name\":\"Grace\",\"age\":45}"}
						}]
					},
					"finish_reason": "tool_calls"
				}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 9}
			}`},
			{Type: fixture.EventDone},
		},
	}

	model := testModel("openai", "gpt-4o-mini", "http://fixture.invalid")
	resp, err := GenerateObject(context.Background(), model, "character", characterSchema(),
		WithAPIKey("k"),
		WithHTTPClient(fixture.NewReplayer(transcript).Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	object := resp.Object()
	if object["name"] != "Grace" {
		t.Errorf("object: %v", object)
	}
}
