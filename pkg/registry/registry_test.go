package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	provider, model, err := ParseSpec("openai:gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != "openai" || model != "gpt-4o-mini" {
		t.Errorf("got %q %q", provider, model)
	}

	// Model ids may themselves contain colons; split on the first.
	provider, model, err = ParseSpec("openrouter:meta:llama-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != "openrouter" || model != "meta:llama-3" {
		t.Errorf("got %q %q", provider, model)
	}
}

func TestParseSpec_Invalid(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"", "noseparator", ":model", "provider:", "UPPER:model", "9fast:model"} {
		if _, _, err := ParseSpec(spec); !errors.Is(err, llmerrors.ErrInvalidSpec) {
			t.Errorf("%q: expected ErrInvalidSpec, got %v", spec, err)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}

	m, err := r.Resolve("openai:gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Provider != "openai" || m.ID != "gpt-4o-mini" {
		t.Errorf("wrong identity: %+v", m)
	}
	if m.Limits.Context == 0 {
		t.Error("expected context limit from catalog")
	}
	if m.Cost == nil || m.Cost.InputPerM <= 0 {
		t.Error("expected pricing from catalog")
	}
	if !m.Capabilities.ToolCall {
		t.Error("expected tool_call capability")
	}
	if len(m.EnvVars) == 0 {
		t.Error("expected env var list from provider entry")
	}
}

func TestResolve_ReasoningAndAPI(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	o3, err := r.Resolve("openai:o3-mini")
	if err != nil {
		t.Fatal(err)
	}
	if !o3.Capabilities.Reasoning {
		t.Error("o3-mini should have reasoning capability")
	}

	responses, err := r.Resolve("openai:gpt-4.1")
	if err != nil {
		t.Fatal(err)
	}
	if responses.API != "responses" {
		t.Errorf("expected responses api, got %q", responses.API)
	}
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Resolve("nope:gpt-4o"); !errors.Is(err, llmerrors.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := r.Resolve("openai:no-such-model"); !errors.Is(err, llmerrors.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := r.Resolve("bad spec"); !errors.Is(err, llmerrors.ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestLoadPatches_OverrideAndExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patch := `{
		"provider": {"id": "openai"},
		"models": [
			{"id": "gpt-4o-mini", "limit": {"context": 999, "output": 111}},
			{"id": "gpt-4o-custom", "limit": {"context": 1, "output": 1}}
		],
		"exclude": ["o3-mini"]
	}`
	if err := os.WriteFile(filepath.Join(dir, "openai.json"), []byte(patch), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.LoadPatches(dir); err != nil {
		t.Fatalf("loading patches: %v", err)
	}

	// Override replaced the catalog entry.
	m, err := r.Resolve("openai:gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if m.Limits.Context != 999 {
		t.Errorf("patch override not applied: %d", m.Limits.Context)
	}
	// The patch preserved the provider's base URL and env.
	if m.BaseURL == "" || len(m.EnvVars) == 0 {
		t.Error("bare patch provider entry clobbered base fields")
	}

	// New models resolve.
	if _, err := r.Resolve("openai:gpt-4o-custom"); err != nil {
		t.Errorf("patched-in model should resolve: %v", err)
	}

	// Exclusions are visible to the harness but resolution still works.
	if !r.Excluded("openai:o3-mini") {
		t.Error("expected exclusion")
	}
	if _, err := r.Resolve("openai:o3-mini"); err != nil {
		t.Errorf("excluded models still resolve at runtime: %v", err)
	}
}

func TestLoadPatches_MissingDir(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.LoadPatches(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Errorf("missing patch dir should be ignored: %v", err)
	}
}

func TestImplemented(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if r.Implemented("openai") {
		t.Error("fresh registry should have no implementations")
	}
}
