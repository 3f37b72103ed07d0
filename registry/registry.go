// Package registry implements the Renderer Registries (spec.md §2,
// component 5; §4.6): the shader, image, and web-instance name->object
// maps that outlive any installed scene and can only be unregistered when
// no installed scene references them. The generic Registry[T] type
// follows the teacher's existing use of generics (common.Coalesce) rather
// than hand-duplicating three near-identical maps.
package registry

import (
	"fmt"
	"sync"
)

// ErrDuplicateID is returned by Register when id is already registered.
type ErrDuplicateID struct {
	Kind string
	ID   string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("registry: %s %q is already registered", e.Kind, e.ID)
}

// ErrNotFound is returned by Get and Unregister when id is unknown.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("registry: %s %q is not registered", e.Kind, e.ID)
}

// ErrInUse is returned by Unregister when InUse reports the id is still
// referenced by the installed scene.
type ErrInUse struct {
	Kind string
	ID   string
}

func (e *ErrInUse) Error() string {
	return fmt.Sprintf("registry: %s %q is still referenced by the installed scene", e.Kind, e.ID)
}

// InUseFunc reports whether id is referenced anywhere in the currently
// installed scene. The pipeline orchestrator supplies this, backed by the
// active scene.SceneSpec — the registry itself has no notion of scenes
// (the same import-direction inversion scene.ConstraintLookup uses).
type InUseFunc func(id string) bool

// Registry is a name->value map for one kind of renderer resource (shader
// source, decoded image, web-renderer instance), guarded by a single
// RWMutex per spec.md §5 ("shader/image/web registries are guarded by a
// single lock each").
type Registry[T any] struct {
	kind string

	mu    sync.RWMutex
	items map[string]T
}

// New returns an empty Registry. kind labels this registry's resource kind
// in error messages (e.g. "shader", "image", "web renderer").
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, items: make(map[string]T)}
}

// Register adds value under id, failing if id is already registered.
// Registration is atomic with respect to scene installation only in the
// sense that a reader taking RLock during Validate's ConstraintLookup
// never observes a partially-written entry — the pipeline orchestrator is
// responsible for not swapping in a scene that references an id whose
// Register call has not yet returned.
func (r *Registry[T]) Register(id string, value T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[id]; exists {
		return &ErrDuplicateID{Kind: r.kind, ID: id}
	}
	r.items[id] = value
	return nil
}

// Unregister removes id, failing with ErrInUse if inUse(id) reports the
// installed scene still references it, or ErrNotFound if id was never
// registered.
func (r *Registry[T]) Unregister(id string, inUse InUseFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[id]; !exists {
		return &ErrNotFound{Kind: r.kind, ID: id}
	}
	if inUse != nil && inUse(id) {
		return &ErrInUse{Kind: r.kind, ID: id}
	}
	delete(r.items, id)
	return nil
}

// Get returns the value registered under id.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, exists := r.items[id]
	if !exists {
		return v, &ErrNotFound{Kind: r.kind, ID: id}
	}
	return v, nil
}

// Has reports whether id is currently registered.
func (r *Registry[T]) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.items[id]
	return exists
}

// IDs returns a snapshot of every currently registered id, in no
// particular order.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	return ids
}
