package types

// MessageRole represents the role of a message sender in a conversation
type MessageRole string

const (
	// RoleSystem represents system instructions
	RoleSystem MessageRole = "system"
	// RoleUser represents user input
	RoleUser MessageRole = "user"
	// RoleAssistant represents model responses
	RoleAssistant MessageRole = "assistant"
	// RoleTool represents tool execution results
	RoleTool MessageRole = "tool"
)

// Message represents a single message in a conversation
type Message struct {
	// Role of the message sender
	Role MessageRole `json:"role"`

	// Content parts of the message (text, images, tool calls, etc.)
	Content []ContentPart `json:"content"`

	// Optional name for the message sender
	Name string `json:"name,omitempty"`

	// ToolCallID links a tool-role message to the assistant tool call it answers
	ToolCallID string `json:"toolCallId,omitempty"`

	// Metadata carries opaque, provider-agnostic annotations
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Text concatenates all text parts of the message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Content {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// ToolCalls returns all tool-call parts of the message in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Content {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, ToolCall(tc))
		}
	}
	return calls
}

// ContentPart represents a part of message content
// This is an interface to support different content types
type ContentPart interface {
	// PartType returns the type of content ("text", "image", "tool_call", etc.)
	PartType() string
}

// TextPart represents plain text content in a message
type TextPart struct {
	Text string `json:"text"`
}

// PartType implements ContentPart interface
func (t TextPart) PartType() string {
	return "text"
}

// ReasoningPart represents model-emitted chain-of-thought content.
// Only valid on assistant messages.
type ReasoningPart struct {
	Text string `json:"text"`
}

// PartType implements ContentPart interface
func (r ReasoningPart) PartType() string {
	return "reasoning"
}

// ImageURLPart represents a remotely hosted image
type ImageURLPart struct {
	URL string `json:"url"`
}

// PartType implements ContentPart interface
func (i ImageURLPart) PartType() string {
	return "image_url"
}

// ImagePart represents inline image content in a message
type ImagePart struct {
	// Image data as bytes
	Data []byte `json:"data"`

	// MIME type of the image (e.g., "image/png", "image/jpeg")
	MediaType string `json:"mediaType"`
}

// PartType implements ContentPart interface
func (i ImagePart) PartType() string {
	return "image"
}

// FilePart represents file content in a message
type FilePart struct {
	// File data as bytes
	Data []byte `json:"data"`

	// MIME type of the file
	MediaType string `json:"mediaType"`

	// Optional filename
	Filename string `json:"filename,omitempty"`
}

// PartType implements ContentPart interface
func (f FilePart) PartType() string {
	return "file"
}

// ToolCallPart represents a model-emitted tool invocation within an
// assistant message. The arguments are kept as the raw JSON string the
// provider sent; use ToolCall.Args to parse them.
type ToolCallPart ToolCall

// PartType implements ContentPart interface
func (t ToolCallPart) PartType() string {
	return "tool_call"
}

// ToolResultPart represents an environment-supplied tool result.
// Only valid on tool-role messages.
type ToolResultPart struct {
	// ID of the tool call this result corresponds to
	ToolCallID string `json:"toolCallId"`

	// Name of the tool that was executed
	ToolName string `json:"toolName"`

	// Result of the tool execution (can be any JSON-serializable value)
	Output interface{} `json:"output"`
}

// PartType implements ContentPart interface
func (t ToolResultPart) PartType() string {
	return "tool_result"
}
