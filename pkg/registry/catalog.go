package registry

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/llmwire/llmwire/pkg/provider/types"
)

//go:embed catalog/models/*.json
var catalogFS embed.FS

// catalogFile is the on-disk shape of one provider catalog.
type catalogFile struct {
	Provider catalogProvider `json:"provider"`
	Models   []catalogModel  `json:"models"`

	// Exclude lists model ids the conformance harness skips. The runtime
	// ignores it.
	Exclude []string `json:"exclude,omitempty"`
}

type catalogProvider struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	BaseURL string   `json:"base_url"`
	Env     []string `json:"env"`
	Doc     string   `json:"doc,omitempty"`
}

type catalogModel struct {
	ID           string             `json:"id"`
	Limit        *catalogLimit      `json:"limit,omitempty"`
	Cost         *catalogCost       `json:"cost,omitempty"`
	Modalities   *catalogModalities `json:"modalities,omitempty"`
	Capabilities *catalogCaps       `json:"capabilities,omitempty"`
	Type         string             `json:"type,omitempty"`
	Category     string             `json:"category,omitempty"`
	API          string             `json:"api,omitempty"`
	MaxTokens    *int               `json:"max_tokens,omitempty"`

	// extra holds unrecognized attributes, surfaced as Model.Metadata
	extra map[string]json.RawMessage
}

type catalogLimit struct {
	Context int `json:"context"`
	Output  int `json:"output"`
}

type catalogCost struct {
	Input       float64  `json:"input"`
	Output      float64  `json:"output"`
	CachedInput *float64 `json:"cached_input,omitempty"`
}

type catalogModalities struct {
	Input  []string `json:"input,omitempty"`
	Output []string `json:"output,omitempty"`
}

type catalogCaps struct {
	Reasoning   bool `json:"reasoning,omitempty"`
	ToolCall    bool `json:"tool_call,omitempty"`
	Temperature bool `json:"temperature,omitempty"`
	Embedding   bool `json:"embedding,omitempty"`
}

var knownModelKeys = map[string]bool{
	"id": true, "limit": true, "cost": true, "modalities": true,
	"capabilities": true, "type": true, "category": true, "api": true,
	"max_tokens": true,
}

// UnmarshalJSON keeps unrecognized model attributes in extra so they flow
// into Model.Metadata untouched.
func (m *catalogModel) UnmarshalJSON(data []byte) error {
	type plain catalogModel
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = catalogModel(p)

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if !knownModelKeys[k] {
			if m.extra == nil {
				m.extra = map[string]json.RawMessage{}
			}
			m.extra[k] = all[k]
		}
	}
	return nil
}

// catalog is the merged, read-only view over the embedded catalog files
// plus any local patches.
type catalog struct {
	providers map[string]catalogProvider
	models    map[string]map[string]catalogModel
	excluded  map[string]bool
}

func loadCatalog() (*catalog, error) {
	c := &catalog{
		providers: map[string]catalogProvider{},
		models:    map[string]map[string]catalogModel{},
		excluded:  map[string]bool{},
	}
	entries, err := fs.ReadDir(catalogFS, "catalog/models")
	if err != nil {
		return nil, fmt.Errorf("reading embedded catalog: %w", err)
	}
	for _, entry := range entries {
		data, err := catalogFS.ReadFile("catalog/models/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading catalog file %s: %w", entry.Name(), err)
		}
		if err := c.merge(data); err != nil {
			return nil, fmt.Errorf("catalog file %s: %w", entry.Name(), err)
		}
	}
	return c, nil
}

// merge applies one catalog document: the provider entry is upserted and
// each model overrides any previous entry with the same id.
func (c *catalog) merge(data []byte) error {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Provider.ID == "" {
		return fmt.Errorf("catalog document without provider id")
	}
	id := file.Provider.ID
	if existing, ok := c.providers[id]; ok {
		// Patches may carry a bare {provider:{id}}; keep prior fields.
		if file.Provider.BaseURL == "" {
			file.Provider.BaseURL = existing.BaseURL
		}
		if file.Provider.Name == "" {
			file.Provider.Name = existing.Name
		}
		if len(file.Provider.Env) == 0 {
			file.Provider.Env = existing.Env
		}
	}
	c.providers[id] = file.Provider
	if c.models[id] == nil {
		c.models[id] = map[string]catalogModel{}
	}
	for _, m := range file.Models {
		c.models[id][m.ID] = m
	}
	for _, excluded := range file.Exclude {
		c.excluded[id+":"+excluded] = true
	}
	return nil
}

// loadPatchDir merges every *.json document under dir. Missing dirs are
// not an error.
func (c *catalog) loadPatchDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading patch dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading patch %s: %w", entry.Name(), err)
		}
		if err := c.merge(data); err != nil {
			return fmt.Errorf("patch %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// model builds the resolved Model value for provider:id.
func (c *catalog) model(providerID, modelID string) (*types.Model, bool) {
	prov, ok := c.providers[providerID]
	if !ok {
		return nil, false
	}
	cm, ok := c.models[providerID][modelID]
	if !ok {
		return nil, false
	}

	m := &types.Model{
		Provider: providerID,
		ID:       modelID,
		BaseURL:  prov.BaseURL,
		EnvVars:  prov.Env,
		API:      cm.API,
	}
	if cm.Limit != nil {
		m.Limits = types.ModelLimits{Context: cm.Limit.Context, Output: cm.Limit.Output}
	}
	if cm.Cost != nil {
		m.Cost = &types.ModelCost{
			InputPerM:       cm.Cost.Input,
			OutputPerM:      cm.Cost.Output,
			CachedInputPerM: cm.Cost.CachedInput,
		}
	}
	if cm.Capabilities != nil {
		m.Capabilities = types.ModelCapabilities{
			Reasoning:   cm.Capabilities.Reasoning,
			ToolCall:    cm.Capabilities.ToolCall,
			Temperature: cm.Capabilities.Temperature,
			Embedding:   cm.Capabilities.Embedding,
		}
	}
	if cm.MaxTokens != nil {
		m.MaxTokens = cm.MaxTokens
	}
	if len(cm.extra) > 0 || cm.Type != "" || cm.Category != "" || cm.Modalities != nil {
		m.Metadata = map[string]interface{}{}
		if cm.Type != "" {
			m.Metadata["type"] = cm.Type
		}
		if cm.Category != "" {
			m.Metadata["category"] = cm.Category
		}
		if cm.Modalities != nil {
			m.Metadata["modalities"] = map[string]interface{}{
				"input":  cm.Modalities.Input,
				"output": cm.Modalities.Output,
			}
		}
		for k, raw := range cm.extra {
			var v interface{}
			if err := json.Unmarshal(raw, &v); err == nil {
				m.Metadata[k] = v
			}
		}
	}
	return m, true
}
