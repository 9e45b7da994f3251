package types

// Usage represents normalized token usage for an API call. Counts default
// to zero when the vendor omits them; Cost is nil until pricing has been
// attributed (and stays nil when the catalog has no pricing for the model).
type Usage struct {
	// Number of tokens in the prompt/input
	InputTokens int64 `json:"inputTokens"`

	// Number of tokens in the completion/output
	OutputTokens int64 `json:"outputTokens"`

	// Tokens spent on internal reasoning (reasoning models only)
	ReasoningTokens int64 `json:"reasoningTokens"`

	// Input tokens served from the vendor's prompt cache
	CachedTokens int64 `json:"cachedTokens"`

	// Total tokens; input+output when the vendor reports no explicit total
	TotalTokens int64 `json:"totalTokens"`

	// Cost in dollars, rounded to 6 decimal places; nil without pricing
	Cost *float64 `json:"cost,omitempty"`
}

// Add sums two usages and returns the result. Costs add when both are
// present; a nil on either side yields nil.
func (u Usage) Add(other Usage) Usage {
	sum := Usage{
		InputTokens:     u.InputTokens + other.InputTokens,
		OutputTokens:    u.OutputTokens + other.OutputTokens,
		ReasoningTokens: u.ReasoningTokens + other.ReasoningTokens,
		CachedTokens:    u.CachedTokens + other.CachedTokens,
		TotalTokens:     u.TotalTokens + other.TotalTokens,
	}
	if u.Cost != nil && other.Cost != nil {
		c := *u.Cost + *other.Cost
		sum.Cost = &c
	}
	return sum
}

// FinishReason represents why the model stopped generating
type FinishReason string

const (
	// FinishReasonStop indicates the model generated a natural stop sequence
	FinishReasonStop FinishReason = "stop"

	// FinishReasonLength indicates the generation reached the max token limit
	FinishReasonLength FinishReason = "length"

	// FinishReasonToolCalls indicates the model wants to call tools
	FinishReasonToolCalls FinishReason = "tool_calls"

	// FinishReasonContentFilter indicates content was filtered
	FinishReasonContentFilter FinishReason = "content_filter"

	// FinishReasonError indicates an error occurred
	FinishReasonError FinishReason = "error"

	// FinishReasonOther indicates another reason
	FinishReasonOther FinishReason = "other"
)

// NormalizeFinishReason maps a vendor finish/stop reason onto the closed
// FinishReason set.
func NormalizeFinishReason(raw string) FinishReason {
	switch raw {
	case "stop", "end_turn", "stop_sequence", "STOP", "completed":
		return FinishReasonStop
	case "length", "max_tokens", "MAX_TOKENS", "incomplete":
		return FinishReasonLength
	case "tool_calls", "tool_use", "function_call":
		return FinishReasonToolCalls
	case "content_filter", "SAFETY", "RECITATION", "refusal":
		return FinishReasonContentFilter
	case "error":
		return FinishReasonError
	case "":
		return FinishReasonOther
	default:
		return FinishReasonOther
	}
}
