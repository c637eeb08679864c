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


// Package localstorage implements storage.Store over a synchronous string
// key/value area such as the browser's localStorage. Values are stored as
// JSON under prefix+key.
package localstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/storage"
)

// ErrAreaRequired is returned when no area is provided.
var ErrAreaRequired = errors.New("area required")

// Backend implements storage.Store over an area.Area.
type Backend struct {
	area   area.Area
	prefix string
	logger *slog.Logger
}

var _ storage.Store = (*Backend)(nil)
var _ storage.Named = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets the key prefix that namespaces this backend inside a
// shared area. Default is no prefix.
//
// Keys are stored as prefix+key with no delimiter, so namespaces are only
// isolated when no prefix is a leading substring of another. With "P1" and
// "P10" sharing an area, the key "x" written under "P10" reads back as "0x"
// under "P1". End prefixes with a separator, such as "app1_", to keep them
// disjoint.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// New creates a backend over a.
func New(a area.Area, opts ...Option) (*Backend, error) {
	if a == nil {
		return nil, ErrAreaRequired
	}
	b := &Backend{
		area:   a,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BackendName returns storage.BackendLocalStorage.
func (b *Backend) BackendName() string {
	return storage.BackendLocalStorage
}

// Prefix returns the configured key prefix.
func (b *Backend) Prefix() string {
	return b.prefix
}

// Size returns the number of keys in this backend's namespace.
func (b *Backend) Size(ctx context.Context) (int, error) {
	n := 0
	for _, err := range b.Keys(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Get returns the decoded value under key, or nil if absent.
func (b *Backend) Get(ctx context.Context, key string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, ok, err := b.area.GetItem(b.prefix + key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", storage.ErrDecodeFailure, key, err)
	}
	return value, nil
}

// Set JSON-encodes value and stores it under key. A nil value deletes the
// key. Non-plain values are rejected before the area is touched.
func (b *Backend) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if storage.IsAbsent(value) {
		return b.Delete(ctx, key)
	}
	if err := storage.CheckPlainValue(value); err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: key %q: %w", storage.ErrEncodeFailed, key, err)
	}

	if err := b.area.SetItem(b.prefix+key, string(encoded)); err != nil {
		if errors.Is(err, area.ErrQuotaExceeded) {
			b.logger.Warn("local storage quota exceeded", "key", key, "size", len(encoded))
		}
		return fmt.Errorf("%w: key %q: %w", storage.ErrPlatformWrite, key, err)
	}
	return nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.area.RemoveItem(b.prefix + key)
}

// Clear removes the keys of this backend's namespace. Without a prefix the
// whole area is cleared.
func (b *Backend) Clear(ctx context.Context) error {
	if b.prefix == "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		return b.area.Clear()
	}

	// collect first: removing while walking shifts index positions
	keys, err := storage.CollectKeys(b.Keys(ctx))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.area.RemoveItem(b.prefix + key); err != nil {
			return err
		}
	}
	return nil
}

// Keys walks the area's index positions and yields, unprefixed, the keys
// that belong to this backend's namespace.
func (b *Backend) Keys(ctx context.Context) iter.Seq2[string, error] {
	return storage.SingleUse(func(yield func(string, error) bool) {
		n, err := b.area.Length()
		if err != nil {
			yield("", err)
			return
		}
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			raw, ok, err := b.area.Key(i)
			if err != nil {
				yield("", err)
				return
			}
			if !ok {
				// the area shrank while walking it
				return
			}
			key, inNamespace := strings.CutPrefix(raw, b.prefix)
			if !inNamespace {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	})
}

// Has scans the namespace for key.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	for candidate, err := range b.Keys(ctx) {
		if err != nil {
			return false, err
		}
		if candidate == key {
			return true, nil
		}
	}
	return false, nil
}

// Close closes the area if it supports closing.
func (b *Backend) Close() error {
	if closer, ok := b.area.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
