package types

import (
	"fmt"
)

// Context is an ordered, immutable sequence of messages constituting a
// conversation. Mutators return a new Context; the receiver is never
// modified, so a Context can be shared across goroutines and enumerated
// any number of times.
type Context struct {
	messages []Message
}

// NewContext creates a Context from the given messages, preserving order.
func NewContext(messages ...Message) Context {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return Context{messages: msgs}
}

// Messages returns a copy of the message list.
func (c Context) Messages() []Message {
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs
}

// Len returns the number of messages in the context.
func (c Context) Len() int {
	return len(c.messages)
}

// At returns the message at index i.
func (c Context) At(i int) Message {
	return c.messages[i]
}

// Append returns a new Context with the given messages appended.
func (c Context) Append(messages ...Message) Context {
	msgs := make([]Message, 0, len(c.messages)+len(messages))
	msgs = append(msgs, c.messages...)
	msgs = append(msgs, messages...)
	return Context{messages: msgs}
}

// Prepend returns a new Context with the given messages prepended.
func (c Context) Prepend(messages ...Message) Context {
	msgs := make([]Message, 0, len(c.messages)+len(messages))
	msgs = append(msgs, messages...)
	msgs = append(msgs, c.messages...)
	return Context{messages: msgs}
}

// Concat returns a new Context holding the messages of c followed by the
// messages of other.
func (c Context) Concat(other Context) Context {
	return c.Append(other.messages...)
}

// System returns the system message text and true when the context carries
// a system message, at whatever position.
func (c Context) System() (string, bool) {
	for _, m := range c.messages {
		if m.Role == RoleSystem {
			return m.Text(), true
		}
	}
	return "", false
}

// WithoutSystem returns a new Context with any system message removed.
// Providers that carry system instructions in a dedicated request field
// use this together with System.
func (c Context) WithoutSystem() Context {
	msgs := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role != RoleSystem {
			msgs = append(msgs, m)
		}
	}
	return Context{messages: msgs}
}

// Validate checks the structural invariants of the context:
// at most one system message, non-empty content on every message,
// tool_call_id present on tool messages, and every tool message answering
// a tool call emitted by a prior assistant message.
func (c Context) Validate() error {
	systemCount := 0
	seenCallIDs := map[string]bool{}
	for i, m := range c.messages {
		switch m.Role {
		case RoleSystem:
			systemCount++
			if systemCount > 1 {
				return fmt.Errorf("message %d: %w: more than one system message", i, ErrInvalidMessage)
			}
		case RoleUser, RoleAssistant, RoleTool:
		default:
			return fmt.Errorf("message %d: %w: unknown role %q", i, ErrInvalidMessage, m.Role)
		}
		if len(m.Content) == 0 {
			return fmt.Errorf("message %d: %w: empty content", i, ErrInvalidMessage)
		}
		for _, p := range m.Content {
			switch part := p.(type) {
			case ToolCallPart:
				if m.Role != RoleAssistant {
					return fmt.Errorf("message %d: %w: tool_call part on %s message", i, ErrInvalidMessage, m.Role)
				}
				seenCallIDs[part.ID] = true
			case ReasoningPart:
				if m.Role != RoleAssistant {
					return fmt.Errorf("message %d: %w: reasoning part on %s message", i, ErrInvalidMessage, m.Role)
				}
			case ToolResultPart:
				if m.Role != RoleTool {
					return fmt.Errorf("message %d: %w: tool_result part on %s message", i, ErrInvalidMessage, m.Role)
				}
			}
		}
		if m.Role == RoleTool {
			if m.ToolCallID == "" {
				return fmt.Errorf("message %d: %w: tool message without tool_call_id", i, ErrInvalidMessage)
			}
			if !seenCallIDs[m.ToolCallID] {
				return fmt.Errorf("message %d: %w: tool message references unknown tool_call_id %q", i, ErrInvalidMessage, m.ToolCallID)
			}
		}
	}
	return nil
}

// Normalize accepts a bare string, a message slice, or a Context and
// returns a validated Context. A bare string becomes a single user
// message.
func Normalize(v interface{}) (Context, error) {
	var ctx Context
	switch prompt := v.(type) {
	case string:
		ctx = NewContext(User(prompt))
	case []Message:
		ctx = NewContext(prompt...)
	case Context:
		ctx = prompt
	case Message:
		ctx = NewContext(prompt)
	default:
		return Context{}, fmt.Errorf("%w: unsupported prompt type %T", ErrInvalidMessage, v)
	}
	if err := ctx.Validate(); err != nil {
		return Context{}, err
	}
	return ctx, nil
}

// User creates a user message with a single text part.
func User(text string, parts ...ContentPart) Message {
	return Message{Role: RoleUser, Content: append([]ContentPart{TextPart{Text: text}}, parts...)}
}

// Assistant creates an assistant message with a single text part.
func Assistant(text string, parts ...ContentPart) Message {
	return Message{Role: RoleAssistant, Content: append([]ContentPart{TextPart{Text: text}}, parts...)}
}

// System creates a system message with a single text part.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart{Text: text}}}
}

// ToolResultMsg creates a tool-role message carrying a single tool result.
func ToolResultMsg(toolCallID, toolName string, output interface{}, metadata ...map[string]interface{}) Message {
	msg := Message{
		Role:       RoleTool,
		ToolCallID: toolCallID,
		Content: []ContentPart{ToolResultPart{
			ToolCallID: toolCallID,
			ToolName:   toolName,
			Output:     output,
		}},
	}
	if len(metadata) > 0 {
		msg.Metadata = metadata[0]
	}
	return msg
}

// UserWithImage creates a user message with a text part and an image URL part.
func UserWithImage(text, url string) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentPart{
			TextPart{Text: text},
			ImageURLPart{URL: url},
		},
	}
}
