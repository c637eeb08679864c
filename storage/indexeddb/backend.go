// Package indexeddb implements storage.Store over an idb.Factory, the
// asynchronous transactional object store modeled on the browser's
// IndexedDB.
//
// A Backend opens its database exactly once, at construction. Every
// operation waits for the outcome of that single attempt, opens a
// transaction against the configured object store and races the request's
// success against its failure. A failed open leaves the backend
// permanently unusable.
package indexeddb

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/poiesic/localstore/platform/idb"
	"github.com/poiesic/localstore/storage"
)

const (
	DefaultDatabaseName  = "ngStorage"
	DefaultStoreName     = "localStorage"
	DefaultSchemaVersion = 1

	// wrapKey is the property legacy rows wrap their payload in.
	wrapKey = "value"
)

// ErrFactoryRequired is returned when no factory is provided.
var ErrFactoryRequired = errors.New("idb factory required")

// Backend implements storage.Store over an idb.Factory.
type Backend struct {
	factory       idb.Factory
	databaseName  string
	storeName     string
	schemaVersion uint64
	legacyWrap    bool
	logger        *slog.Logger

	conn *connection

	mu     sync.Mutex
	closed bool
}

var _ storage.Store = (*Backend)(nil)
var _ storage.Named = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithDatabaseName sets the database name. Default is "ngStorage".
func WithDatabaseName(name string) Option {
	return func(b *Backend) {
		b.databaseName = name
	}
}

// WithStoreName sets the object store name. Default is "localStorage".
func WithStoreName(name string) Option {
	return func(b *Backend) {
		b.storeName = name
	}
}

// WithSchemaVersion sets the requested schema version. Default is 1.
func WithSchemaVersion(version uint64) Option {
	return func(b *Backend) {
		b.schemaVersion = version
	}
}

// WithLegacyWrap enables reading and writing values wrapped as
// {"value": payload}, the row shape of older schema generations.
func WithLegacyWrap(enabled bool) Option {
	return func(b *Backend) {
		b.legacyWrap = enabled
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

// New creates a backend and starts its single connection attempt. It does
// not wait for the connection: a failed open surfaces as
// storage.ErrBackingStoreUnusable from every operation.
func New(factory idb.Factory, opts ...Option) (*Backend, error) {
	if factory == nil {
		return nil, ErrFactoryRequired
	}
	b := &Backend{
		factory:       factory,
		databaseName:  DefaultDatabaseName,
		storeName:     DefaultStoreName,
		schemaVersion: DefaultSchemaVersion,
		logger:        slog.Default(),
		conn:          newConnection(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.connect()
	return b, nil
}

// BackendName returns storage.BackendIndexedDB.
func (b *Backend) BackendName() string {
	return storage.BackendIndexedDB
}

// DatabaseName returns the configured database name.
func (b *Backend) DatabaseName() string {
	return b.databaseName
}

// StoreName returns the configured object store name.
func (b *Backend) StoreName() string {
	return b.storeName
}

// connect issues the open request and resolves the connection cell with
// whichever of success or failure settles first.
func (b *Backend) connect() {
	req, err := b.factory.Open(b.databaseName, b.schemaVersion, b.upgrade)
	if err != nil {
		b.logger.Warn("opening database failed", "database", b.databaseName, "err", err)
		b.conn.resolve(nil, fmt.Errorf("%w: %w", storage.ErrBackingStoreUnusable, err))
		return
	}

	go func() {
		select {
		case db := <-req.Success():
			b.logger.Debug("database connected",
				"database", b.databaseName,
				"version", db.Version())
			b.mu.Lock()
			if b.closed {
				// closed while connecting
				b.closeDB(db)
			}
			b.conn.resolve(db, nil)
			b.mu.Unlock()
		case err := <-req.Failure():
			b.logger.Warn("opening database failed", "database", b.databaseName, "err", err)
			b.conn.resolve(nil, fmt.Errorf("%w: %w", storage.ErrBackingStoreUnusable, err))
		}
	}()
}

// upgrade creates the object store unless an earlier version already did.
func (b *Backend) upgrade(schema idb.Schema, oldVersion, newVersion uint64) error {
	if schema.HasObjectStore(b.storeName) {
		return nil
	}
	b.logger.Info("creating object store",
		"database", b.databaseName,
		"store", b.storeName,
		"old_version", oldVersion,
		"new_version", newVersion)
	return schema.CreateObjectStore(b.storeName)
}

// transaction waits for the connection and opens a transaction of mode
// against the configured store.
func (b *Backend) transaction(ctx context.Context, mode idb.Mode) (idb.Transaction, idb.ObjectStore, error) {
	db, err := b.conn.wait(ctx)
	if err != nil {
		return nil, nil, err
	}

	tx, err := db.Transaction(b.storeName, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s (%s): %w", storage.ErrTransactionUnavailable, b.storeName, mode, err)
	}
	store, err := tx.ObjectStore(b.storeName)
	if err != nil {
		tx.Abort()
		return nil, nil, fmt.Errorf("%w: %s (%s): %w", storage.ErrTransactionUnavailable, b.storeName, mode, err)
	}
	return tx, store, nil
}

// await races a request's success against its failure. Cancelling ctx
// aborts the transaction. Failures are mapped by errorf.
func await[T any](ctx context.Context, tx idb.Transaction, req *idb.Request[T], errorf func(error) error) (T, error) {
	var zero T
	select {
	case v := <-req.Success():
		return v, nil
	case err := <-req.Failure():
		return zero, errorf(err)
	case <-ctx.Done():
		tx.Abort()
		return zero, ctx.Err()
	}
}

// readError maps a failed read onto the storage error kinds, keeping the
// native error in the chain.
func readError(err error) error {
	if errors.Is(err, idb.ErrData) {
		return fmt.Errorf("%w: %w", storage.ErrDecodeFailure, err)
	}
	return err
}

// writeError maps a failed write. A data error on a write means the value
// could not be cloned into the store.
func writeError(err error) error {
	switch {
	case errors.Is(err, idb.ErrQuotaExceeded):
		return fmt.Errorf("%w: %w", storage.ErrPlatformWrite, err)
	case errors.Is(err, idb.ErrData):
		return fmt.Errorf("%w: %w", storage.ErrEncodeFailed, err)
	}
	return err
}

// Size returns the number of records in the store.
func (b *Backend) Size(ctx context.Context) (int, error) {
	tx, store, err := b.transaction(ctx, idb.ReadOnly)
	if err != nil {
		return 0, err
	}
	return await(ctx, tx, store.Count(), readError)
}

// Get returns the value under key, or nil if absent. With legacy wrapping
// enabled, wrapped rows are unwrapped.
func (b *Backend) Get(ctx context.Context, key string) (any, error) {
	tx, store, err := b.transaction(ctx, idb.ReadOnly)
	if err != nil {
		return nil, err
	}
	value, err := await(ctx, tx, store.Get(key), readError)
	if err != nil {
		return nil, err
	}
	if b.legacyWrap {
		return unwrap(value), nil
	}
	return value, nil
}

// Set stores value under key. A nil value, or a nil pointer, map or slice,
// deletes the key.
func (b *Backend) Set(ctx context.Context, key string, value any) error {
	if storage.IsAbsent(value) {
		return b.Delete(ctx, key)
	}
	if b.legacyWrap {
		value = map[string]any{wrapKey: value}
	}

	tx, store, err := b.transaction(ctx, idb.ReadWrite)
	if err != nil {
		return err
	}
	_, err = await(ctx, tx, store.Put(key, value), writeError)
	return err
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	tx, store, err := b.transaction(ctx, idb.ReadWrite)
	if err != nil {
		return err
	}
	_, err = await(ctx, tx, store.Delete(key), writeError)
	return err
}

// Clear removes every record of the store.
func (b *Backend) Clear(ctx context.Context) error {
	tx, store, err := b.transaction(ctx, idb.ReadWrite)
	if err != nil {
		return err
	}
	_, err = await(ctx, tx, store.Clear(), writeError)
	return err
}

// Keys iterates the store with a key cursor, or a full cursor on engines
// without one. Breaking out of the loop aborts the transaction.
func (b *Backend) Keys(ctx context.Context) iter.Seq2[string, error] {
	return storage.SingleUse(func(yield func(string, error) bool) {
		tx, store, err := b.transaction(ctx, idb.ReadOnly)
		if err != nil {
			yield("", err)
			return
		}

		var req *idb.CursorRequest
		if opener, ok := store.(idb.KeyCursorOpener); ok {
			req = opener.OpenKeyCursor()
		} else {
			b.logger.Debug("key cursor unavailable, using full cursor", "store", b.storeName)
			req = store.OpenCursor()
		}

		for {
			select {
			case c := <-req.Success():
				if c == nil {
					return
				}
				if !yield(c.Key(), nil) {
					tx.Abort()
					return
				}
				c.Continue()
			case err := <-req.Failure():
				yield("", readError(err))
				return
			case <-ctx.Done():
				tx.Abort()
				yield("", ctx.Err())
				return
			}
		}
	})
}

// Has reports whether key exists. Values are not read.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	tx, store, err := b.transaction(ctx, idb.ReadOnly)
	if err != nil {
		return false, err
	}
	n, err := await(ctx, tx, store.CountKey(key), readError)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the connection. Operations issued afterwards fail with
// storage.ErrTransactionUnavailable wrapping idb.ErrInvalidState. Close
// does not wait for a pending connection attempt.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if db, ok := b.conn.resolved(); ok {
		return b.closeDB(db)
	}
	return nil
}

func (b *Backend) closeDB(db idb.Database) error {
	if db == nil {
		return nil
	}
	b.logger.Debug("closing database", "database", b.databaseName)
	return db.Close()
}

// unwrap returns the payload of a legacy {"value": payload} row, or value
// unchanged when it is not one.
func unwrap(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	if inner, ok := m[wrapKey]; ok && inner != nil {
		return inner
	}
	return value
}
