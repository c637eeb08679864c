package badger

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/localstore/platform/idb"
)

// database is one connection to a badger-backed database.
type database struct {
	factory *Factory
	handle  *handle
	name    string
	version uint64
	id      string
	closed  atomic.Bool
	logger  *slog.Logger
}

var _ idb.Database = (*database)(nil)

func (d *database) Name() string {
	return d.name
}

func (d *database) Version() uint64 {
	return d.version
}

// ObjectStoreNames lists the stores currently registered.
func (d *database) ObjectStoreNames() []string {
	var names []string
	err := d.handle.db.View(func(tx *badger.Txn) error {
		names = storeNames(tx)
		return nil
	})
	if err != nil {
		d.logger.Warn("listing object stores failed", "name", d.name, "err", err)
	}
	return names
}

// Transaction starts a transaction scoped to store. The store registry is
// checked live, so a store removed by a later upgrade is reported as
// idb.ErrNotFound.
func (d *database) Transaction(store string, mode idb.Mode) (idb.Transaction, error) {
	if d.closed.Load() {
		return nil, fmt.Errorf("%w: connection is closed", idb.ErrInvalidState)
	}

	tx := d.handle.db.NewTransaction(mode == idb.ReadWrite)
	_, err := tx.Get(makeStoreMetaKey(store))
	if err == badger.ErrKeyNotFound {
		tx.Discard()
		return nil, fmt.Errorf("%w: %s", idb.ErrNotFound, store)
	}
	if err != nil {
		tx.Discard()
		return nil, translate(err)
	}

	return &transaction{
		db:      d,
		store:   store,
		mode:    mode,
		tx:      tx,
		aborted: make(chan struct{}),
	}, nil
}

// Close marks the connection closed. The underlying badger database stays
// open for other connections until the factory closes.
func (d *database) Close() error {
	if !d.closed.Swap(true) {
		d.logger.Debug("database connection closed", "name", d.name, "connection", d.id)
	}
	return nil
}

// schema is the upgrade-time view of the store registry. Changes happen in
// the upgrade transaction and are discarded if the upgrade fails.
type schema struct {
	tx      *badger.Txn
	version uint64
}

var _ idb.Schema = (*schema)(nil)

func (s *schema) ObjectStoreNames() []string {
	return storeNames(s.tx)
}

func (s *schema) HasObjectStore(name string) bool {
	_, err := s.tx.Get(makeStoreMetaKey(name))
	return err == nil
}

func (s *schema) CreateObjectStore(name string) error {
	if s.HasObjectStore(name) {
		return fmt.Errorf("%w: %s", idb.ErrConstraint, name)
	}
	return translate(s.tx.Set(makeStoreMetaKey(name), marshalVersion(s.version)))
}

func (s *schema) DeleteObjectStore(name string) error {
	if !s.HasObjectStore(name) {
		return fmt.Errorf("%w: %s", idb.ErrNotFound, name)
	}
	if err := deletePrefix(s.tx, makeStorePrefix(name)); err != nil {
		return err
	}
	return translate(s.tx.Delete(makeStoreMetaKey(name)))
}

// storeNames lists registered stores in name order.
func storeNames(tx *badger.Txn) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = storeMetaPrefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var names []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		names = append(names, string(bytes.TrimPrefix(key, storeMetaPrefix)))
	}
	return names
}

// deletePrefix deletes every key under prefix within tx.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)

	// collect first: deleting while iterating is not supported
	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return translate(err)
		}
	}
	return nil
}
