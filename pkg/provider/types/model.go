package types

// Model is a resolved model specification: identity, limits, pricing,
// capabilities and the provider metadata needed to dispatch a request.
// Immutable once constructed.
type Model struct {
	// Provider id (e.g., "openai", "anthropic")
	Provider string `json:"provider"`

	// Model id as the vendor knows it (e.g., "gpt-4o-mini")
	ID string `json:"id"`

	// Limits on context window and output size, in tokens
	Limits ModelLimits `json:"limits"`

	// Cost per million tokens; nil when the catalog carries no pricing
	Cost *ModelCost `json:"cost,omitempty"`

	// Capabilities advertised by the catalog
	Capabilities ModelCapabilities `json:"capabilities"`

	// MaxTokens is a default output cap applied when the caller sets none
	MaxTokens *int `json:"maxTokens,omitempty"`

	// API selects the inner driver for provider families with several
	// endpoints (e.g., "chat" vs "responses" for OpenAI)
	API string `json:"api,omitempty"`

	// BaseURL of the provider endpoint (from the catalog)
	BaseURL string `json:"baseUrl,omitempty"`

	// EnvVars lists environment variables consulted for credentials,
	// in priority order
	EnvVars []string `json:"envVars,omitempty"`

	// Metadata carries any remaining catalog attributes untouched
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ModelLimits describes context and output token limits.
type ModelLimits struct {
	Context int `json:"context"`
	Output  int `json:"output"`
}

// ModelCost describes per-million-token pricing.
type ModelCost struct {
	// InputPerM is the cost of one million input tokens
	InputPerM float64 `json:"inputPerM"`

	// OutputPerM is the cost of one million output tokens
	OutputPerM float64 `json:"outputPerM"`

	// CachedInputPerM is the cost of one million cached input tokens,
	// when the vendor discounts cache reads
	CachedInputPerM *float64 `json:"cachedInputPerM,omitempty"`
}

// ModelCapabilities describes what the model supports.
type ModelCapabilities struct {
	Reasoning   bool `json:"reasoning,omitempty"`
	ToolCall    bool `json:"toolCall,omitempty"`
	Temperature bool `json:"temperature,omitempty"`
	Embedding   bool `json:"embedding,omitempty"`
}

// Spec returns the "provider:model" string for the model.
func (m *Model) Spec() string {
	return m.Provider + ":" + m.ID
}
