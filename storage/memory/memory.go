// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package memory provides the in-process fallback backend. It is always
// available, never persists anything and never fails.
package memory

import (
	"context"
	"iter"
	"slices"

	cache "github.com/patrickmn/go-cache"
	"github.com/poiesic/localstore/storage"
)

// Backend implements storage.Store over an in-process map.
type Backend struct {
	items *cache.Cache
}

var _ storage.Store = (*Backend)(nil)
var _ storage.Named = (*Backend)(nil)

// New creates an empty memory backend.
func New() *Backend {
	return &Backend{
		// items never expire, so the janitor is disabled
		items: cache.New(cache.NoExpiration, 0),
	}
}

// BackendName returns storage.BackendMemory.
func (b *Backend) BackendName() string {
	return storage.BackendMemory
}

// Size returns the number of stored items.
func (b *Backend) Size(ctx context.Context) (int, error) {
	return b.items.ItemCount(), nil
}

// Get returns the value under key, or nil if absent.
func (b *Backend) Get(ctx context.Context, key string) (any, error) {
	value, found := b.items.Get(key)
	if !found {
		return nil, nil
	}
	return value, nil
}

// Set stores value under key. A nil value, or a nil pointer, map or slice,
// deletes the key.
func (b *Backend) Set(ctx context.Context, key string, value any) error {
	if storage.IsAbsent(value) {
		return b.Delete(ctx, key)
	}
	b.items.Set(key, value, cache.NoExpiration)
	return nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.items.Delete(key)
	return nil
}

// Clear removes all items.
func (b *Backend) Clear(ctx context.Context) error {
	b.items.Flush()
	return nil
}

// Keys yields a snapshot of the stored keys in lexicographic order.
func (b *Backend) Keys(ctx context.Context) iter.Seq2[string, error] {
	return storage.SingleUse(func(yield func(string, error) bool) {
		items := b.items.Items()
		keys := make([]string, 0, len(items))
		for key := range items {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			if !yield(key, nil) {
				return
			}
		}
	})
}

// Has reports whether key is present.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	_, found := b.items.Get(key)
	return found, nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}
