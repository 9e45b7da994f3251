// Package usage normalizes vendor token counters into the canonical
// Usage record and attributes cost from model pricing.
package usage

import (
	"math"
	"sync"

	"github.com/llmwire/llmwire/pkg/provider/types"
)

// Hook is invoked with the model and its attributed usage after every
// call. Subscribers are registered process-wide.
type Hook func(model *types.Model, usage types.Usage)

var (
	hookMu sync.RWMutex
	hooks  []Hook
)

// OnUsage registers a usage hook.
func OnUsage(h Hook) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hooks = append(hooks, h)
}

func notify(model *types.Model, u types.Usage) {
	hookMu.RLock()
	defer hookMu.RUnlock()
	for _, h := range hooks {
		h(model, u)
	}
}

// Normalize maps a raw vendor usage object onto the canonical Usage.
// For each field the first matching key wins; absent counters default to
// zero. Malformed (non-numeric) counters are treated as absent.
func Normalize(raw map[string]interface{}) types.Usage {
	var u types.Usage

	u.InputTokens = firstInt(raw,
		"prompt_tokens",
		"input_tokens",
		"usage.input_tokens",
		"usage.prompt_tokens",
	)
	u.OutputTokens = firstInt(raw,
		"completion_tokens",
		"output_tokens",
		"usage.output_tokens",
	)
	u.ReasoningTokens = firstInt(raw,
		"completion_tokens_details.reasoning_tokens",
		"output_tokens_details.reasoning_tokens",
		"usage.reasoning_tokens",
	)
	u.CachedTokens = firstInt(raw,
		"input_tokens_details.cached_tokens",
		"prompt_tokens_details.cached_tokens",
	)

	if total, ok := lookupInt(raw, "total_tokens"); ok {
		u.TotalTokens = total
	} else {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

// firstInt resolves the first present dotted path.
func firstInt(raw map[string]interface{}, paths ...string) int64 {
	for _, path := range paths {
		if v, ok := lookupInt(raw, path); ok {
			return v
		}
	}
	return 0
}

// lookupInt walks a dotted path through nested objects.
func lookupInt(raw map[string]interface{}, path string) (int64, bool) {
	current := raw
	for {
		idx := -1
		for i := 0; i < len(path); i++ {
			if path[i] == '.' {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		next, ok := current[path[:idx]].(map[string]interface{})
		if !ok {
			return 0, false
		}
		current = next
		path = path[idx+1:]
	}
	return asInt(current[path])
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// Cost computes the dollar cost of the usage under the model's pricing,
// rounded to 6 decimal places. Returns nil when the model carries no
// pricing.
func Cost(model *types.Model, u types.Usage) *float64 {
	if model == nil || model.Cost == nil {
		return nil
	}
	perTokens := float64(u.InputTokens)*model.Cost.InputPerM +
		float64(u.OutputTokens)*model.Cost.OutputPerM
	if model.Cost.CachedInputPerM != nil {
		perTokens += float64(u.CachedTokens) * *model.Cost.CachedInputPerM
	}
	cost := math.Round(perTokens) / 1e6
	return &cost
}

// Attribute fills in the cost of the usage from the model pricing and
// notifies registered hooks. Returns the attributed usage.
func Attribute(model *types.Model, u types.Usage) types.Usage {
	u.Cost = Cost(model, u)
	notify(model, u)
	return u
}
