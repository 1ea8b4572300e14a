// Package di is a small lazy dependency-injection container shared by modules.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by key.
type ServiceRegistry interface {
	Get(key string) any
}

// Container registers values or lazy factories and resolves them once.
type Container interface {
	ServiceRegistry
	Register(key string, value any)
	RegisterFactory(key string, factory func(ServiceRegistry) any)
}

type entry struct {
	once     sync.Once
	factory  func(ServiceRegistry) any
	instance any
}

type container struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewContainer returns an empty container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

func (c *container) Register(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{instance: value}
	e.once.Do(func() {})
	c.entries[key] = e
}

func (c *container) RegisterFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{factory: factory}
}

// Get resolves key, building it on first use. Unknown keys panic: wiring
// mistakes must surface at startup.
func (c *container) Get(key string) any {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", key))
	}

	e.once.Do(func() {
		e.instance = e.factory(c)
	})
	return e.instance
}
