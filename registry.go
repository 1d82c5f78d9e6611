package rfdecode

import (
	"fmt"
	"sort"
	"sync"

	goversion "github.com/hashicorp/go-version"
)

// Factory creates a new decoder instance. Parameters are decoder-specific
// overrides taken from configuration; unknown keys are ignored by decoders.
type Factory func(params map[string]interface{}) (Decoder, error)

// Registry manages the available decoder types. It holds factories only;
// live instances are owned by whoever attaches them to a Dispatcher.
// There is no package-level registry: construct one and pass it around.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	descriptors map[string]Descriptor
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{
		factories:   make(map[string]Factory),
		descriptors: make(map[string]Descriptor),
	}
}

// Register adds a decoder type. The descriptor must carry a unique ID, a
// parseable semantic version and a positive required sample rate.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.ID == "" {
		return fmt.Errorf("decoder descriptor has no ID")
	}
	if factory == nil {
		return fmt.Errorf("decoder %s: nil factory", desc.ID)
	}
	if desc.SampleRate <= 0 {
		return fmt.Errorf("decoder %s: invalid sample rate %d", desc.ID, desc.SampleRate)
	}
	if _, err := goversion.NewVersion(desc.Version); err != nil {
		return fmt.Errorf("decoder %s: invalid version %q: %w", desc.ID, desc.Version, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[desc.ID]; exists {
		return fmt.Errorf("decoder %s: already registered", desc.ID)
	}
	r.factories[desc.ID] = factory
	r.descriptors[desc.ID] = desc
	return nil
}

// Create instantiates a decoder by ID.
func (r *Registry) Create(id string, params map[string]interface{}) (Decoder, error) {
	r.mu.RLock()
	factory, exists := r.factories[id]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("decoder not found: %s", id)
	}
	return factory(params)
}

// Exists reports whether a decoder type is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[id]
	return exists
}

// List returns the descriptors of all registered decoder types, sorted by ID.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Descriptor, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		list = append(list, desc)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Describe returns the descriptor for a registered decoder type.
func (r *Registry) Describe(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.descriptors[id]
	return desc, ok
}
