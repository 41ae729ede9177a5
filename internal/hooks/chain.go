// Package hooks provides ordered alter chains that let start-up code adjust lists
// (entity types, bundles, facet definitions) before the service uses them.
package hooks

import (
	"context"
	"sync"
)

// Func transforms a value. Returning the input unchanged is allowed.
type Func[T any] func(ctx context.Context, in T) T

// Chain runs its hooks synchronously in registration order.
type Chain[T any] struct {
	mu    sync.RWMutex
	hooks []namedHook[T]
}

type namedHook[T any] struct {
	name string
	fn   Func[T]
}

// NewChain creates an empty chain.
func NewChain[T any]() *Chain[T] {
	return &Chain[T]{}
}

// Register appends a hook. Registration is expected at start-up.
func (c *Chain[T]) Register(name string, fn Func[T]) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, namedHook[T]{name: name, fn: fn})
}

// Names returns the registered hook names in order.
func (c *Chain[T]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.hooks))
	for i, h := range c.hooks {
		names[i] = h.name
	}
	return names
}

// Run passes in through every hook. A nil chain returns in unchanged.
func (c *Chain[T]) Run(ctx context.Context, in T) T {
	if c == nil {
		return in
	}

	c.mu.RLock()
	hooks := make([]namedHook[T], len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()

	out := in
	for _, h := range hooks {
		out = h.fn(ctx, out)
	}
	return out
}
