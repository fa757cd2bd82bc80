package host

import (
	"sync"
)

// Docs maps declarations to their documentation comments. Keys are the
// qualified type name ("ledger.Account") optionally followed by a member
// ("ledger.Account.Balance", "ledger.Account.Deposit"); free functions use
// the name they were registered under.
type Docs struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewDocs() *Docs {
	return &Docs{entries: make(map[string]string)}
}

func (d *Docs) Add(key, comment string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = comment
}

// AddAll merges a set of entries, e.g. one loaded from a YAML file.
func (d *Docs) AddAll(entries map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range entries {
		d.entries[k] = v
	}
}

func (d *Docs) Lookup(key string) string {
	if d == nil {
		return ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entries[key]
}
