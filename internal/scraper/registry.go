package scraper

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

// Registry holds the store profiles the engine can scrape.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]models.StoreProfile
	order    []string
}

// NewRegistry creates a registry holding profiles.
func NewRegistry(profiles ...models.StoreProfile) *Registry {
	r := &Registry{profiles: make(map[string]models.StoreProfile)}
	for _, p := range profiles {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with the built-in stores.
func DefaultRegistry() *Registry {
	return NewRegistry(BuiltinStores()...)
}

// Register adds a profile. It's called at startup.
func (r *Registry) Register(p models.StoreProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(p.ID)
	if _, exists := r.profiles[key]; exists {
		// Panic is appropriate here as it's a developer error during setup.
		panic(fmt.Sprintf("store with ID '%s' is already registered", p.ID))
	}
	r.profiles[key] = p
	r.order = append(r.order, key)
}

// Get looks a profile up by its display name (the store_type form value) or its ID.
func (r *Registry) Get(nameOrID string) (models.StoreProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(nameOrID))
	if p, ok := r.profiles[needle]; ok {
		return p, true
	}
	for _, key := range r.order {
		if p := r.profiles[key]; strings.ToLower(p.Name) == needle {
			return p, true
		}
	}
	return models.StoreProfile{}, false
}

// All returns every profile in registration order.
func (r *Registry) All() []models.StoreProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profiles := make([]models.StoreProfile, 0, len(r.order))
	for _, key := range r.order {
		profiles = append(profiles, r.profiles[key])
	}
	return profiles
}

// Resolve checks that req names a known store, canonicalises the store name
// and fills in the store's default URL when none was given.
func (r *Registry) Resolve(req *jobs.Request) error {
	p, ok := r.Get(req.StoreType)
	if !ok {
		return &jobs.ValidationError{Field: "store_type", Message: fmt.Sprintf("unknown store type %q", req.StoreType)}
	}
	req.StoreType = p.Name
	if req.URL == "" {
		req.URL = p.DefaultURL
	}
	return nil
}
