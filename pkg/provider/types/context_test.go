package types

import (
	"errors"
	"testing"
)

func TestNewContext_PreservesOrder(t *testing.T) {
	t.Parallel()

	ctx := NewContext(System("be brief"), User("hi"), Assistant("hello"))

	if ctx.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", ctx.Len())
	}
	if ctx.At(0).Role != RoleSystem || ctx.At(1).Role != RoleUser || ctx.At(2).Role != RoleAssistant {
		t.Error("messages out of order")
	}
}

func TestContext_Immutability(t *testing.T) {
	t.Parallel()

	base := NewContext(User("one"))
	appended := base.Append(User("two"))
	prepended := base.Prepend(System("sys"))

	if base.Len() != 1 {
		t.Errorf("base mutated: len=%d", base.Len())
	}
	if appended.Len() != 2 || prepended.Len() != 2 {
		t.Error("mutators did not produce new contexts")
	}
}

func TestContext_Concat(t *testing.T) {
	t.Parallel()

	a := NewContext(User("one"))
	b := NewContext(Assistant("two"))
	c := a.Concat(b)

	if c.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", c.Len())
	}
	if c.At(0).Text() != "one" || c.At(1).Text() != "two" {
		t.Error("concat order wrong")
	}
}

func TestContext_Enumeration_Restartable(t *testing.T) {
	t.Parallel()

	ctx := NewContext(User("a"), Assistant("b"))

	first := ctx.Messages()
	second := ctx.Messages()
	if len(first) != len(second) {
		t.Fatal("second enumeration differs")
	}
	// Mutating a returned slice must not affect the context.
	first[0] = System("clobbered")
	if ctx.At(0).Role != RoleUser {
		t.Error("returned slice aliases internal storage")
	}
}

func TestContext_Validate_TwoSystemMessages(t *testing.T) {
	t.Parallel()

	ctx := NewContext(System("a"), System("b"), User("hi"))
	err := ctx.Validate()
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestContext_Validate_SystemAnywhere(t *testing.T) {
	t.Parallel()

	ctx := NewContext(User("hi"), System("late system"))
	if err := ctx.Validate(); err != nil {
		t.Errorf("system message at any position should validate, got %v", err)
	}
}

func TestContext_Validate_EmptyContent(t *testing.T) {
	t.Parallel()

	ctx := NewContext(Message{Role: RoleUser})
	if err := ctx.Validate(); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestContext_Validate_ToolResultNeedsPriorCall(t *testing.T) {
	t.Parallel()

	// Tool message without a prior assistant tool call must fail.
	orphan := NewContext(
		User("hi"),
		ToolResultMsg("call_1", "get_weather", "sunny"),
	)
	if err := orphan.Validate(); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage for orphan tool result, got %v", err)
	}

	// With the matching assistant tool call it validates.
	call := ToolCallPart{ID: "call_1", Name: "get_weather", Arguments: `{"location":"Paris"}`}
	ok := NewContext(
		User("hi"),
		Message{Role: RoleAssistant, Content: []ContentPart{call}},
		ToolResultMsg("call_1", "get_weather", "sunny"),
	)
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid context, got %v", err)
	}
}

func TestContext_Validate_ToolMessageWithoutID(t *testing.T) {
	t.Parallel()

	ctx := NewContext(Message{
		Role:    RoleTool,
		Content: []ContentPart{ToolResultPart{ToolName: "x", Output: "y"}},
	})
	if err := ctx.Validate(); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestContext_Validate_ReasoningOnlyOnAssistant(t *testing.T) {
	t.Parallel()

	ctx := NewContext(Message{
		Role:    RoleUser,
		Content: []ContentPart{ReasoningPart{Text: "hmm"}},
	})
	if err := ctx.Validate(); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestNormalize_String(t *testing.T) {
	t.Parallel()

	ctx, err := Normalize("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Len() != 1 || ctx.At(0).Role != RoleUser || ctx.At(0).Text() != "hello" {
		t.Error("bare string should become a single user message")
	}
}

func TestNormalize_MessageSlice(t *testing.T) {
	t.Parallel()

	ctx, err := Normalize([]Message{System("sys"), User("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", ctx.Len())
	}
}

func TestNormalize_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := Normalize(42); err == nil {
		t.Error("expected error for unsupported prompt type")
	}
	if _, err := Normalize([]Message{{Role: RoleUser}}); err == nil {
		t.Error("expected validation error for empty content")
	}
}

func TestSystemExtraction(t *testing.T) {
	t.Parallel()

	ctx := NewContext(User("hi"), System("be brief"))
	system, ok := ctx.System()
	if !ok || system != "be brief" {
		t.Errorf("expected system text, got %q ok=%v", system, ok)
	}

	stripped := ctx.WithoutSystem()
	if stripped.Len() != 1 {
		t.Errorf("expected 1 message after WithoutSystem, got %d", stripped.Len())
	}
	if _, ok := stripped.System(); ok {
		t.Error("system message survived WithoutSystem")
	}
}

func TestUserWithImage(t *testing.T) {
	t.Parallel()

	msg := UserWithImage("what is this", "https://example.com/cat.png")
	if len(msg.Content) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(msg.Content))
	}
	img, ok := msg.Content[1].(ImageURLPart)
	if !ok || img.URL != "https://example.com/cat.png" {
		t.Error("second part should be the image URL")
	}
}
