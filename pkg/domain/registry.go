package domain

import "sync"

// CompileFunc builds a Filter from the spec of a registered custom kind.
// The spec's Params field carries whatever configuration the kind needs.
type CompileFunc func(spec FilterSpec) (Filter, error)

var (
	filterMu    sync.RWMutex
	filterKinds = make(map[string]CompileFunc)
)

// RegisterFilterKind makes a custom filter kind available to FilterSpec.Compile.
// Registering an existing kind overwrites it; built-in kinds cannot be shadowed.
// Hosts typically register kinds at init time, before definitions are loaded.
func RegisterFilterKind(kind string, fn CompileFunc) {
	filterMu.Lock()
	defer filterMu.Unlock()
	filterKinds[kind] = fn
}

func lookupFilterKind(kind string) (CompileFunc, bool) {
	filterMu.RLock()
	defer filterMu.RUnlock()
	fn, ok := filterKinds[kind]
	return fn, ok
}
