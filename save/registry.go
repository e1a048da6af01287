// Package save implements the persistence layer: the extension registry
// that lets subsystems persist state without central coordination, and the
// little-endian binary envelope with its fixed legacy slots.
package save

import (
	"errors"
	"fmt"

	"github.com/citygrid/citygrid/logging"
)

// ErrDuplicateKey is returned when two subsystems register the same key.
var ErrDuplicateKey = errors.New("save: duplicate registry key")

// Saveable is the contract a persistable resource offers: a pure encoder
// (nil or empty output means "skip", used to elide defaults), a decoder,
// and a reset to the default value.
type Saveable interface {
	Encode() []byte
	Decode(data []byte) error
	Reset()
}

// entry is one registered resource.
type entry struct {
	key   string
	value Saveable
}

// Registry is the ordered table of persistable resources. Entries are
// read-only once the schedule has started; registration happens only
// during world construction.
type Registry struct {
	entries []entry
	keys    map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]struct{})}
}

// Register records a resource under a unique stable key. Registering a key
// twice is a defect: the first registration is kept, the duplicate is
// logged and rejected.
func (r *Registry) Register(key string, v Saveable) error {
	if _, dup := r.keys[key]; dup {
		logging.Logf("save: duplicate registration for key %q ignored", key)
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	r.keys[key] = struct{}{}
	r.entries = append(r.entries, entry{key: key, value: v})
	return nil
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	return len(r.entries)
}

// KV is one encoded extension entry.
type KV struct {
	Key  string
	Data []byte
}

// SaveAll walks the registry in registration order and collects the
// non-empty encodings. Zero-length output is treated as "skip".
func (r *Registry) SaveAll() []KV {
	var out []KV
	for _, e := range r.entries {
		data := e.value.Encode()
		if len(data) == 0 {
			continue
		}
		out = append(out, KV{Key: e.key, Data: data})
	}
	return out
}

// LoadAll installs decoded values for every registry entry present in the
// incoming map. Unknown keys are ignored for forward compatibility;
// entries without a key retain their current value. A failed decode
// replaces the entry with its default and logs a warning.
func (r *Registry) LoadAll(kvs []KV) {
	byKey := make(map[string][]byte, len(kvs))
	for _, kv := range kvs {
		byKey[kv.Key] = kv.Data
	}
	for _, e := range r.entries {
		data, ok := byKey[e.key]
		if !ok {
			continue
		}
		if err := e.value.Decode(data); err != nil {
			logging.Logf("save: extension %q failed to decode (%d bytes): %v; using default", e.key, len(data), err)
			e.value.Reset()
		}
	}
}

// ResetAll installs the default value for every registered entry. This is
// the new-game teardown contract.
func (r *Registry) ResetAll() {
	for _, e := range r.entries {
		e.value.Reset()
	}
}
