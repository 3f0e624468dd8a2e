package meting

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a provider implementation.
type Factory func() Provider

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register registers a provider factory by name. Providers call it from init.
func Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("provider name required")
	}
	if factory == nil {
		return fmt.Errorf("provider factory required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	factories[name] = factory
	return nil
}

// MustRegister is Register that panics on error.
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Lookup returns a registered factory by name.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := factories[name]
	return factory, ok
}

// Names returns all registered provider names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	nameList := make([]string, 0, len(factories))
	for name := range factories {
		nameList = append(nameList, name)
	}
	sort.Strings(nameList)
	return nameList
}
