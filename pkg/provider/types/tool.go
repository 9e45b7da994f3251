package types

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/llmwire/llmwire/pkg/schema"
)

// toolNamePattern is the accepted shape of tool identifiers: alphanumeric
// plus underscore, not digit-leading, at most 64 characters.
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,63}$`)

// Tool represents a tool that can be called by the model.
// Tools allow the model to perform actions or retrieve information.
type Tool struct {
	// Name of the tool (must be unique within a request)
	Name string `json:"name"`

	// Description of what the tool does (helps the model decide when to use it)
	Description string `json:"description"`

	// Parameters describes the tool input as an ordered property list
	Parameters *schema.Schema `json:"parameters,omitempty"`

	// Execute optionally runs the tool locally.
	// This is not serialized to JSON.
	Execute ToolExecutor `json:"-"`
}

// ToolExecutor is a function that executes a tool.
// It receives the parsed input arguments and returns the result or an error.
type ToolExecutor func(ctx context.Context, input map[string]interface{}) (interface{}, error)

// Validate checks the tool name and parameter schema.
func (t Tool) Validate() error {
	if !toolNamePattern.MatchString(t.Name) {
		return fmt.Errorf("%w: invalid tool name %q", ErrInvalidTool, t.Name)
	}
	if t.Parameters != nil {
		if err := t.Parameters.ValidateShape(); err != nil {
			return fmt.Errorf("%w: tool %q: %v", ErrInvalidTool, t.Name, err)
		}
	}
	return nil
}

// JSONSchema returns the tool parameters as a JSON Schema object.
// A nil parameter list yields an empty object schema.
func (t Tool) JSONSchema() map[string]interface{} {
	if t.Parameters == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	return t.Parameters.JSONSchema()
}

// ToolCall represents a tool call made by the model. Arguments are held as
// the raw JSON string from the wire; Args parses them on demand.
type ToolCall struct {
	// Unique ID for this tool call
	ID string `json:"id"`

	// Name of the tool to call
	Name string `json:"name"`

	// Arguments as a string of JSON
	Arguments string `json:"arguments"`
}

// NewToolCall creates a ToolCall, generating an ID when none is supplied.
func NewToolCall(id, name, arguments string) ToolCall {
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	return ToolCall{ID: id, Name: name, Arguments: arguments}
}

// Args parses the raw argument JSON into a map. An empty argument string
// parses as an empty map.
func (tc ToolCall) Args() (map[string]interface{}, error) {
	if tc.Arguments == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("tool call %s: parsing arguments: %w", tc.ID, err)
	}
	return args, nil
}

// ToolChoice specifies how the model should choose tools
type ToolChoice struct {
	// Type of tool choice
	Type ToolChoiceType `json:"type"`

	// Specific tool name (only used when Type is ToolChoiceTool)
	ToolName string `json:"toolName,omitempty"`
}

// ToolChoiceType represents the type of tool choice
type ToolChoiceType string

const (
	// ToolChoiceAuto lets the model decide whether to call tools
	ToolChoiceAuto ToolChoiceType = "auto"

	// ToolChoiceNone prevents the model from calling any tools
	ToolChoiceNone ToolChoiceType = "none"

	// ToolChoiceRequired forces the model to call at least one tool
	ToolChoiceRequired ToolChoiceType = "required"

	// ToolChoiceTool forces the model to call a specific tool
	ToolChoiceTool ToolChoiceType = "tool"
)

// AutoToolChoice returns a ToolChoice that lets the model decide
func AutoToolChoice() ToolChoice {
	return ToolChoice{Type: ToolChoiceAuto}
}

// NoneToolChoice returns a ToolChoice that prevents tool calls
func NoneToolChoice() ToolChoice {
	return ToolChoice{Type: ToolChoiceNone}
}

// RequiredToolChoice returns a ToolChoice that requires at least one tool call
func RequiredToolChoice() ToolChoice {
	return ToolChoice{Type: ToolChoiceRequired}
}

// SpecificToolChoice returns a ToolChoice for a specific tool
func SpecificToolChoice(toolName string) ToolChoice {
	return ToolChoice{
		Type:     ToolChoiceTool,
		ToolName: toolName,
	}
}
