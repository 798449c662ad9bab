package encode

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a new encoder instance.
// Factories are registered via Register() and called by New().
type Factory func() Encoder

// Registry state - protected by mutex for thread-safe access.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register registers an encoder factory with the given name.
// This function is typically called from init() in format packages:
//
//	func init() {
//	    encode.Register("png", func() encode.Encoder {
//	        return New(Options{})
//	    })
//	}
//
// Register panics if factory is nil or the name is already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("encode: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("encode: Register called twice for " + name)
	}
	factories[name] = factory
}

// Unregister removes an encoder from the registry.
// If the name is not registered, this is a no-op.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// New creates an encoder by name.
// The error message includes a hint about forgotten imports.
func New(name string) (Encoder, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("encode: unknown format %q (forgotten import?)", name)
	}
	return factory(), nil
}

// MustNew creates an encoder by name, panicking on error.
func MustNew(name string) Encoder {
	enc, err := New(name)
	if err != nil {
		panic(err)
	}
	return enc
}

// Names returns the registered format names in alphabetical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a format with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}
