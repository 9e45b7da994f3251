package usage

import (
	"encoding/json"
	"testing"

	"github.com/llmwire/llmwire/pkg/provider/types"
)

func fromJSON(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNormalize_OpenAIShape(t *testing.T) {
	t.Parallel()

	u := Normalize(fromJSON(t, `{
		"prompt_tokens": 12,
		"completion_tokens": 34,
		"total_tokens": 46,
		"prompt_tokens_details": {"cached_tokens": 4},
		"completion_tokens_details": {"reasoning_tokens": 8}
	}`))

	if u.InputTokens != 12 || u.OutputTokens != 34 || u.TotalTokens != 46 {
		t.Errorf("basic counters wrong: %+v", u)
	}
	if u.CachedTokens != 4 {
		t.Errorf("cached tokens wrong: %d", u.CachedTokens)
	}
	if u.ReasoningTokens != 8 {
		t.Errorf("reasoning tokens wrong: %d", u.ReasoningTokens)
	}
}

func TestNormalize_AnthropicShape(t *testing.T) {
	t.Parallel()

	u := Normalize(fromJSON(t, `{"input_tokens": 7, "output_tokens": 21}`))
	if u.InputTokens != 7 || u.OutputTokens != 21 {
		t.Errorf("counters wrong: %+v", u)
	}
	if u.TotalTokens != 28 {
		t.Errorf("total should default to input+output, got %d", u.TotalTokens)
	}
}

func TestNormalize_NestedUsageShape(t *testing.T) {
	t.Parallel()

	u := Normalize(fromJSON(t, `{"usage": {"input_tokens": 3, "output_tokens": 5, "reasoning_tokens": 1}}`))
	if u.InputTokens != 3 || u.OutputTokens != 5 || u.ReasoningTokens != 1 {
		t.Errorf("nested usage not resolved: %+v", u)
	}
}

func TestNormalize_FirstMatchWins(t *testing.T) {
	t.Parallel()

	// prompt_tokens precedes input_tokens.
	u := Normalize(fromJSON(t, `{"prompt_tokens": 1, "input_tokens": 99}`))
	if u.InputTokens != 1 {
		t.Errorf("expected first alias to win, got %d", u.InputTokens)
	}
}

func TestNormalize_AbsentAndMalformed(t *testing.T) {
	t.Parallel()

	u := Normalize(map[string]interface{}{})
	if u.InputTokens != 0 || u.OutputTokens != 0 || u.TotalTokens != 0 {
		t.Errorf("absent counters should default to zero: %+v", u)
	}

	// Non-integer counters are treated as absent.
	u = Normalize(fromJSON(t, `{"prompt_tokens": "lots", "completion_tokens": 2.5, "output_tokens": 3}`))
	if u.InputTokens != 0 {
		t.Errorf("malformed input counter should be skipped, got %d", u.InputTokens)
	}
	if u.OutputTokens != 3 {
		t.Errorf("fallback alias should apply, got %d", u.OutputTokens)
	}
}

func pricedModel() *types.Model {
	cached := 0.5
	return &types.Model{
		Provider: "openai",
		ID:       "gpt-test",
		Cost: &types.ModelCost{
			InputPerM:       2.0,
			OutputPerM:      10.0,
			CachedInputPerM: &cached,
		},
	}
}

func TestCost(t *testing.T) {
	t.Parallel()

	u := types.Usage{InputTokens: 1000, OutputTokens: 500, CachedTokens: 200}
	cost := Cost(pricedModel(), u)
	if cost == nil {
		t.Fatal("expected cost")
	}
	// (1000*2 + 500*10 + 200*0.5) / 1e6 = 0.0071
	if *cost != 0.0071 {
		t.Errorf("got %v", *cost)
	}
}

func TestCost_NoPricing(t *testing.T) {
	t.Parallel()

	model := &types.Model{Provider: "x", ID: "y"}
	if cost := Cost(model, types.Usage{InputTokens: 10}); cost != nil {
		t.Errorf("expected nil cost without pricing, got %v", *cost)
	}
}

func TestCost_NonNegativeAndLinear(t *testing.T) {
	t.Parallel()

	model := pricedModel()
	u1 := types.Usage{InputTokens: 123, OutputTokens: 456, CachedTokens: 7}
	u2 := types.Usage{InputTokens: 89, OutputTokens: 10, CachedTokens: 11}

	c1 := Cost(model, u1)
	c2 := Cost(model, u2)
	sum := Cost(model, u1.Add(u2))
	if *c1 < 0 || *c2 < 0 || *sum < 0 {
		t.Error("costs must be non-negative")
	}

	// Each Cost call rounds to 6 decimals, so the sides may differ by one
	// unit in the 6th decimal; the 1e-12 absorbs float64 addition error.
	diff := *sum - (*c1 + *c2)
	if diff > 1e-6+1e-12 || diff < -1e-6-1e-12 {
		t.Errorf("linearity violated beyond rounding: %v vs %v", *sum, *c1+*c2)
	}
}

func TestAttribute_InvokesHook(t *testing.T) {
	var got *types.Usage
	OnUsage(func(model *types.Model, u types.Usage) {
		got = &u
	})

	u := Attribute(pricedModel(), types.Usage{InputTokens: 1000, OutputTokens: 0})
	if u.Cost == nil {
		t.Fatal("expected attributed cost")
	}
	if got == nil || got.InputTokens != 1000 {
		t.Error("hook was not invoked with attributed usage")
	}
}

func TestUsage_Add(t *testing.T) {
	t.Parallel()

	a := types.Usage{InputTokens: 1, OutputTokens: 2, ReasoningTokens: 3, CachedTokens: 4, TotalTokens: 3}
	b := types.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	sum := a.Add(b)
	if sum.InputTokens != 11 || sum.OutputTokens != 22 || sum.ReasoningTokens != 3 || sum.CachedTokens != 4 || sum.TotalTokens != 33 {
		t.Errorf("sum wrong: %+v", sum)
	}
}
