package config

import (
	"maps"
	"strings"
	"sync"
)

// Repository is a tree of configuration values addressed with dot notation.
//
//	repo := config.NewRepository(map[string]any{"path": map[string]any{"public": "www"}})
//	repo.Get("path.public")         // "www"
//	repo.Get("path.missing", "x")   // "x"
type Repository struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRepository returns a repository holding a deep copy of items.
func NewRepository(items map[string]any) *Repository {
	return &Repository{items: deepCopy(items)}
}

// Get returns the value at key, or the first fallback (nil if none) when
// the key does not exist.
func (r *Repository) Get(key string, fallback ...any) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := lookup(r.items, key); ok {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return nil
}

// String returns the value at key when it is a string, fallback otherwise.
func (r *Repository) String(key, fallback string) string {
	if s, ok := r.Get(key).(string); ok {
		return s
	}
	return fallback
}

// Has returns true if key exists, even with a nil value.
func (r *Repository) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := lookup(r.items, key)
	return ok
}

// Set stores value at key, creating intermediate maps as needed.
func (r *Repository) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	parts := strings.Split(key, ".")
	node := r.items
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}

// MergeRecursiveDistinct merges items into the repository. Maps are merged
// key by key; any other value, lists included, replaces the existing one.
func (r *Repository) MergeRecursiveDistinct(items map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mergeInto(r.items, items)
}

// All returns a deep copy of the whole tree.
func (r *Repository) All() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return deepCopy(r.items)
}

func lookup(items map[string]any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	var node any = items
	for _, p := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = copyValue(v)
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			dst[k] = deepCopy(sub)
			continue
		}
		mergeInto(existing, sub)
	}
}

func deepCopy(items map[string]any) map[string]any {
	out := make(map[string]any, len(items))
	for k, v := range items {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}
