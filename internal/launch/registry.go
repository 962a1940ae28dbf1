package launch

import (
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]EntryPoint)
)

// Register makes an in-process entry point available by name. It panics if
// entry is nil or the name is already taken.
func Register(name string, entry EntryPoint) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if entry == nil {
		panic("launch: Register entry point is nil")
	}
	if _, dup := registry[name]; dup {
		panic("launch: Register called twice for entry point " + name)
	}
	registry[name] = entry
}

// Lookup returns the entry point registered under name.
func Lookup(name string) (EntryPoint, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	entry, ok := registry[name]
	return entry, ok
}

// Registered returns the sorted names of all registered entry points.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
