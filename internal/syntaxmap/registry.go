package syntaxmap

import (
	"fmt"
	"slices"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Builder{}
)

// Register makes a builder available by name. Registering a name twice replaces
// the previous builder.
func Register(b Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[b.Name()] = b
}

// Lookup returns the builder registered under name.
func Lookup(name string) (Builder, error) {
	registryMu.RLock()
	b, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown syntax map backend %q (available: %v)", name, Names())
	}
	return b, nil
}

// Names returns the sorted names of all registered builders.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func registerForTesting(b Builder) func() {
	registryMu.Lock()
	prev, had := registry[b.Name()]
	registry[b.Name()] = b
	registryMu.Unlock()

	return func() {
		registryMu.Lock()
		defer registryMu.Unlock()
		if had {
			registry[b.Name()] = prev
			return
		}
		delete(registry, b.Name())
	}
}
