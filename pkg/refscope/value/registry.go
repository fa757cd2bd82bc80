package value

import (
	"sort"
	"sync"
)

// Registry is the symbol table: named types and free functions known to the
// inspector. Decoders register the classes of documents they materialise.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeDescriptor
	funcs map[string]*Method
}

func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*TypeDescriptor),
		funcs: make(map[string]*Method),
	}
}

func (r *Registry) RegisterType(td *TypeDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[td.Name] = td
}

func (r *Registry) RegisterFunc(fn *Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[fn.Name] = fn
}

func (r *Registry) LookupType(name string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	td, ok := r.types[name]
	return td, ok
}

func (r *Registry) LookupFunc(name string) (*Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Ensure returns the named type, building and registering it on first use.
func (r *Registry) Ensure(name string, build func() *TypeDescriptor) *TypeDescriptor {
	if td, ok := r.LookupType(name); ok {
		return td
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if td, ok := r.types[name]; ok {
		return td
	}
	td := build()
	r.types[name] = td
	return td
}

// Types lists registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
