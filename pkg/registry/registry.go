// Package registry resolves "provider:model" specs against the embedded
// model catalog and maps provider ids to their codec implementations. The
// embedded catalog is loaded once; Register and LoadPatches update the
// registry afterwards under its lock.
package registry

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
)

// providerIDPattern is the accepted shape of provider ids.
var providerIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ParseSpec splits a "provider:model" spec on the first colon.
func ParseSpec(spec string) (providerID, modelID string, err error) {
	idx := strings.Index(spec, ":")
	if idx <= 0 || idx == len(spec)-1 {
		return "", "", fmt.Errorf("%w: %q", llmerrors.ErrInvalidSpec, spec)
	}
	providerID = spec[:idx]
	modelID = spec[idx+1:]
	if !providerIDPattern.MatchString(providerID) {
		return "", "", fmt.Errorf("%w: bad provider id %q", llmerrors.ErrInvalidSpec, providerID)
	}
	return providerID, modelID, nil
}

// Registry maps provider ids to implementations and resolves model specs
// against the catalog.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
	catalog   *catalog
}

// New creates a registry over the embedded catalog. Catalog read errors
// are fatal at startup.
func New() (*Registry, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return &Registry{
		providers: map[string]provider.Provider{},
		catalog:   cat,
	}, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the process-wide registry, loading the embedded catalog
// on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = New()
		if defaultErr != nil {
			panic(fmt.Sprintf("llmwire: loading embedded model catalog: %v", defaultErr))
		}
	})
	return defaultReg
}

// Register registers a provider implementation under its id.
func (r *Registry) Register(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Implemented reports whether a provider implementation is registered
// under the given id.
func (r *Registry) Implemented(providerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[providerID]
	return ok
}

// Provider returns the implementation for a provider id.
func (r *Registry) Provider(providerID string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", llmerrors.ErrUnknownProvider, providerID)
	}
	return p, nil
}

// Resolve turns a "provider:model" spec into a resolved Model.
func (r *Registry) Resolve(spec string) (*types.Model, error) {
	providerID, modelID, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.catalog.providers[providerID]; !ok {
		return nil, fmt.Errorf("%w: %q", llmerrors.ErrUnknownProvider, providerID)
	}
	m, ok := r.catalog.model(providerID, modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", llmerrors.ErrModelNotFound, spec)
	}
	return m, nil
}

// LoadPatches merges local catalog patch files (models_local/) into the
// registry. Patch documents may override models and list exclusions.
func (r *Registry) LoadPatches(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog.loadPatchDir(dir)
}

// Excluded reports whether a spec is excluded by a catalog patch. Only
// the conformance harness consults exclusions; the runtime resolves
// excluded models normally.
func (r *Registry) Excluded(spec string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.excluded[spec]
}

// Providers lists the catalog provider ids in no particular order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.catalog.providers))
	for id := range r.catalog.providers {
		ids = append(ids, id)
	}
	return ids
}
