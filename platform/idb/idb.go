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


// Package idb defines an asynchronous, transactional object-store API modeled
// on the browser's IndexedDB: a factory opens versioned databases, an
// upgrade callback shapes the schema when the version grows, and every
// store-level operation returns a request that settles exactly once with a
// success or a failure.
//
// The badger subpackage implements it natively; the js package binds it to
// the real browser global under GOOS=js.
package idb

import "errors"

var (
	// ErrInvalidVersion is returned synchronously by Factory.Open for a
	// version of 0.
	ErrInvalidVersion = errors.New("idb: version must be greater than zero")

	// ErrVersion indicates that the requested version is lower than the
	// stored one.
	ErrVersion = errors.New("idb: requested version is lower than the existing version")

	// ErrNotFound indicates that an object store does not exist.
	ErrNotFound = errors.New("idb: object store not found")

	// ErrConstraint indicates that an object store already exists.
	ErrConstraint = errors.New("idb: object store already exists")

	// ErrReadOnly indicates a write in a read-only transaction.
	ErrReadOnly = errors.New("idb: transaction is read-only")

	// ErrTransactionInactive indicates a request against a finished transaction.
	ErrTransactionInactive = errors.New("idb: transaction is not active")

	// ErrInvalidState indicates an operation on a closed database or factory.
	ErrInvalidState = errors.New("idb: invalid state")

	// ErrAbort indicates that the transaction or upgrade was aborted.
	ErrAbort = errors.New("idb: aborted")

	// ErrQuotaExceeded indicates that a write does not fit.
	ErrQuotaExceeded = errors.New("idb: quota exceeded")

	// ErrData indicates that a stored value could not be decoded, or a value
	// could not be cloned into the store.
	ErrData = errors.New("idb: data error")
)

// Mode is a transaction mode.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "readwrite"
	}
	return "readonly"
}

// Factory opens databases.
type Factory interface {
	// Open starts opening database name at version. A returned error means
	// the open call failed synchronously and no request was started.
	// Otherwise upgrade runs, if the version is new, before the request
	// succeeds.
	Open(name string, version uint64, upgrade UpgradeFunc) (*Request[Database], error)
}

// UpgradeFunc shapes the schema when a database is opened at a version
// higher than the stored one. Returning an error aborts the open.
type UpgradeFunc func(schema Schema, oldVersion, newVersion uint64) error

// Schema is the schema view available during an upgrade.
type Schema interface {
	ObjectStoreNames() []string
	HasObjectStore(name string) bool
	CreateObjectStore(name string) error
	DeleteObjectStore(name string) error
}

// Database is an open connection.
type Database interface {
	Name() string
	Version() uint64
	ObjectStoreNames() []string

	// Transaction starts a transaction scoped to store. Returns ErrNotFound
	// if the store does not exist and ErrInvalidState once closed.
	Transaction(store string, mode Mode) (Transaction, error)

	Close() error
}

// Transaction is a unit of work against one object store.
type Transaction interface {
	Mode() Mode
	ObjectStore(name string) (ObjectStore, error)

	// Abort ends the transaction, failing pending requests with ErrAbort.
	// Aborting a finished transaction does nothing.
	Abort()
}

// ObjectStore issues requests against a named store of string keys.
type ObjectStore interface {
	Get(key string) *Request[any]
	Put(key string, value any) *Request[struct{}]
	Delete(key string) *Request[struct{}]
	Clear() *Request[struct{}]
	Count() *Request[int]
	CountKey(key string) *Request[int]
	OpenCursor() *CursorRequest
}

// KeyCursorOpener is implemented by stores that can iterate keys without
// loading values. Older engines lack it.
type KeyCursorOpener interface {
	OpenKeyCursor() *CursorRequest
}

// Cursor is a position in an iteration.
type Cursor interface {
	Key() string

	// Value returns the value at the cursor; nil for key cursors.
	Value() any

	// Continue advances the cursor. The next position, or nil at the end,
	// is delivered on the owning CursorRequest.
	Continue()
}
