package storage

import (
	"context"
	"iter"
)

// Store is the contract every storage backend implements identically, so
// calling code never needs to know which backend it was handed.
//
// The untyped nil value is the "absent" marker: Get returns nil for a key
// that was never written, and Set with a nil value behaves exactly like
// Delete. Every method may suspend; backends over asynchronous platforms
// honor ctx while waiting.
type Store interface {
	// Size returns the number of items currently in the store.
	Size(ctx context.Context) (int, error)

	// Get returns the value stored under key, or nil if the key is absent
	// or holds an empty value. A missing key is never an error.
	Get(ctx context.Context, key string) (any, error)

	// Set stores value under key. A nil value deletes the key.
	Set(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// Clear removes every key of the store.
	Clear(ctx context.Context) error

	// Keys returns a lazy, single-use sequence of the keys currently in the
	// store. A failure is yielded once as the last element.
	Keys(ctx context.Context) iter.Seq2[string, error]

	// Has reports whether key is present without decoding its value.
	Has(ctx context.Context, key string) (bool, error)

	// Close releases the native handles held by the backend.
	Close() error
}

// Named is implemented by backends that can report which backing store they wrap.
type Named interface {
	BackendName() string
}

// Backend names reported through Named.
const (
	BackendMemory       = "memory"
	BackendLocalStorage = "localStorage"
	BackendIndexedDB    = "indexedDB"
)

// BackendName returns the backend name of s, or "unknown".
func BackendName(s Store) string {
	if n, ok := s.(Named); ok {
		return n.BackendName()
	}
	return "unknown"
}
