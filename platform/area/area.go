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


// Package area defines the synchronous string key/value area consumed by the
// localstorage backend, modeled on the browser Storage interface
// (getItem, setItem, removeItem, clear, key, length).
//
// Implementations: an in-memory area with a browser-like quota (this
// package), goleveldb and SQLite persistent areas (subpackages), and the real
// window.localStorage under js/wasm.
package area

import "errors"

var (
	// ErrQuotaExceeded indicates that a write would exceed the area's quota.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrClosed indicates that the area has been closed.
	ErrClosed = errors.New("area is closed")
)

// Area is a synchronous string key/value store whose keys can be enumerated
// by index position. Index positions are only stable while the area is not
// modified.
type Area interface {
	// GetItem returns the value stored under key and whether it exists.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key. Returns ErrQuotaExceeded if the write
	// does not fit.
	SetItem(key, value string) error

	// RemoveItem removes key. Removing an absent key succeeds.
	RemoveItem(key string) error

	// Clear removes every key.
	Clear() error

	// Key returns the key at index, or false if index is out of range.
	Key(index int) (string, bool, error)

	// Length returns the number of stored keys.
	Length() (int, error)
}
