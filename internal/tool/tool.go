// Package tool implements the capability handlers behind the five dispatch
// categories and the registry that maps categories to them.
package tool

import (
	"context"
	"sync"

	"helmsman/internal/domain"
)

// Tool is the uniform contract every capability handler implements.
type Tool interface {
	Name() string
	Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult
}

// Registry maps the closed set of category labels to handlers. The set is
// fixed at wiring time; Dispatch never fails on an unknown label, it falls
// back to the DIRECT handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.Category]Tool
	fallback Tool
}

// NewRegistry creates a registry with the given DIRECT fallback handler.
func NewRegistry(fallback Tool) *Registry {
	r := &Registry{
		handlers: make(map[domain.Category]Tool),
		fallback: fallback,
	}
	r.handlers[domain.CategoryDirect] = fallback
	return r
}

// Register binds a category to a handler.
func (r *Registry) Register(category domain.Category, t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[category] = t
}

// Lookup returns the handler for a category, or the DIRECT fallback for
// anything unrecognized.
func (r *Registry) Lookup(category domain.Category) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.handlers[category]; ok {
		return t
	}
	return r.fallback
}

// Dispatch executes the handler for a category.
func (r *Registry) Dispatch(ctx context.Context, category domain.Category, query string, sess *domain.Session) domain.ToolResult {
	return r.Lookup(category).Execute(ctx, query, sess)
}
