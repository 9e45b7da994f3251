package types

// ChunkType represents the type of stream chunk
type ChunkType string

const (
	// ChunkTypeText indicates a text content chunk
	ChunkTypeText ChunkType = "text"

	// ChunkTypeThinking indicates a reasoning/thinking content chunk
	ChunkTypeThinking ChunkType = "thinking"

	// ChunkTypeToolCall indicates a tool call chunk
	ChunkTypeToolCall ChunkType = "tool_call"

	// ChunkTypeMeta indicates a metadata chunk (usage, terminal marker,
	// tool-call argument fragments, in-band errors)
	ChunkTypeMeta ChunkType = "meta"
)

// StreamChunk represents a single chunk in a streaming response. Ordering
// mirrors wire arrival, except that synthesized tool_call chunks are
// emitted by the runtime just before the terminal meta chunk.
type StreamChunk struct {
	// Type of chunk
	Type ChunkType

	// Text content (when Type is text or thinking)
	Text string

	// Tool name (when Type is tool_call)
	ToolName string

	// Parsed tool arguments (when Type is tool_call); empty map until the
	// runtime finalizes accumulation
	ToolArgs map[string]interface{}

	// ToolCallID identifies the tool call (when Type is tool_call)
	ToolCallID string

	// Index is the per-turn tool-call index (when Type is tool_call)
	Index int

	// Meta payload (when Type is meta)
	Meta *ChunkMeta
}

// ChunkMeta carries streaming metadata.
type ChunkMeta struct {
	// Terminal marks the final chunk of the stream
	Terminal bool

	// FinishReason, when the vendor reported one
	FinishReason FinishReason

	// Usage, when a usage event was observed
	Usage *Usage

	// Model echoed by the vendor, when present
	Model string

	// ToolCallArgs carries a partial tool-call argument fragment to be
	// accumulated by the streaming runtime
	ToolCallArgs *ToolCallArgsFragment

	// Err carries an in-band stream error code (e.g.
	// "invalid_tool_arguments"); the stream keeps going unless Terminal
	// is also set
	Err string

	// ErrDetail carries context for Err (tool call id, index)
	ErrDetail map[string]interface{}
}

// ToolCallArgsFragment is a partial JSON fragment of tool-call arguments,
// addressed by the tool call's per-turn index.
type ToolCallArgsFragment struct {
	Index    int
	Fragment string
}

// TextChunk creates a text chunk.
func TextChunk(text string) StreamChunk {
	return StreamChunk{Type: ChunkTypeText, Text: text}
}

// ThinkingChunk creates a thinking chunk.
func ThinkingChunk(text string) StreamChunk {
	return StreamChunk{Type: ChunkTypeThinking, Text: text}
}

// ToolCallChunk creates a tool-call start chunk with empty arguments.
func ToolCallChunk(id, name string, index int) StreamChunk {
	return StreamChunk{
		Type:       ChunkTypeToolCall,
		ToolName:   name,
		ToolCallID: id,
		Index:      index,
		ToolArgs:   map[string]interface{}{},
	}
}

// MetaChunk creates a meta chunk.
func MetaChunk(meta ChunkMeta) StreamChunk {
	return StreamChunk{Type: ChunkTypeMeta, Meta: &meta}
}
