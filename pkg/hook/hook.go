// Package hook implements a post-render hook registry modelled on static
// site generators: each rendered page is passed through the hooks registered
// for an event, which may rewrite the page's output and excerpt in place.
package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmylchreest/smellmark/internal/logger"
)

// Event identifies a point in a page's lifecycle.
type Event string

const (
	PreRender  Event = "pre_render"
	PostRender Event = "post_render"
	PostWrite  Event = "post_write"
)

// Func is a hook. It may modify page in place.
type Func func(ctx context.Context, page *Page) error

type entry struct {
	name string
	fn   Func
}

// Registry holds hooks per event. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hooks map[Event][]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[Event][]entry),
	}
}

// Register adds fn to run on event after any hooks already registered.
func (r *Registry) Register(event Event, name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[event] = append(r.hooks[event], entry{name: name, fn: fn})
}

// Names returns the hook names registered for event, in run order.
func (r *Registry) Names(event Event) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.hooks[event]))
	for i, e := range r.hooks[event] {
		names[i] = e.name
	}
	return names
}

// Trigger runs the hooks for event on page in registration order. It stops
// at the first error, which is wrapped with the hook name.
func (r *Registry) Trigger(ctx context.Context, event Event, page *Page) error {
	r.mu.RLock()
	hooks := r.hooks[event]
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.DebugContext(ctx, "running hook", "event", event, "hook", h.name, "page", page.Path)
		if err := h.fn(ctx, page); err != nil {
			return fmt.Errorf("hook %s on %s: %w", h.name, event, err)
		}
	}
	return nil
}
