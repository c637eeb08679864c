package area

import (
	"slices"
	"sync"
	"unicode/utf16"
)

// DefaultQuota is the per-origin quota browsers apply to localStorage,
// counted in UTF-16 code units of keys plus values.
const DefaultQuota = 5 * 1024 * 1024

// MemoryArea is an in-memory Area that keeps insertion order for index
// enumeration and enforces a quota the way browsers do.
type MemoryArea struct {
	mu    sync.RWMutex
	keys  []string
	items map[string]string
	used  int
	quota int
}

var _ Area = (*MemoryArea)(nil)

// NewMemoryArea creates an empty area. A quota of 0 disables the limit.
func NewMemoryArea(quota int) *MemoryArea {
	return &MemoryArea{
		items: make(map[string]string),
		quota: quota,
	}
}

// units returns the UTF-16 length of s.
func units(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// GetItem returns the value stored under key.
func (a *MemoryArea) GetItem(key string) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	value, ok := a.items[key]
	return value, ok, nil
}

// SetItem stores value under key.
func (a *MemoryArea) SetItem(key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	old, exists := a.items[key]
	used := a.used + units(value)
	if exists {
		used -= units(old)
	} else {
		used += units(key)
	}
	if a.quota > 0 && used > a.quota {
		return ErrQuotaExceeded
	}

	if !exists {
		a.keys = append(a.keys, key)
	}
	a.items[key] = value
	a.used = used
	return nil
}

// RemoveItem removes key.
func (a *MemoryArea) RemoveItem(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	old, exists := a.items[key]
	if !exists {
		return nil
	}
	delete(a.items, key)
	a.used -= units(key) + units(old)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
	return nil
}

// Clear removes every key.
func (a *MemoryArea) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = nil
	a.items = make(map[string]string)
	a.used = 0
	return nil
}

// Key returns the key at index in insertion order.
func (a *MemoryArea) Key(index int) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.keys) {
		return "", false, nil
	}
	return a.keys[index], true, nil
}

// Length returns the number of stored keys.
func (a *MemoryArea) Length() (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.keys), nil
}

// Used returns the number of quota units currently consumed.
func (a *MemoryArea) Used() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.used
}
