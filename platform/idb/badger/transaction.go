package badger

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/localstore/platform/idb"
)

// transaction wraps one badger transaction. It serves a single request:
// once that request settles, a read-write transaction is committed, a
// read-only one discarded, and further requests fail with
// idb.ErrTransactionInactive.
type transaction struct {
	db    *database
	store string
	mode  idb.Mode

	mu       sync.Mutex
	tx       *badger.Txn
	finished bool

	abortOnce sync.Once
	aborted   chan struct{}
}

var _ idb.Transaction = (*transaction)(nil)

func (t *transaction) Mode() idb.Mode {
	return t.mode
}

// ObjectStore returns the store the transaction is scoped to.
func (t *transaction) ObjectStore(name string) (idb.ObjectStore, error) {
	if name != t.store {
		return nil, fmt.Errorf("%w: %s is not in the transaction scope", idb.ErrNotFound, name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil, idb.ErrTransactionInactive
	}
	return &objectStore{t: t, prefix: makeStorePrefix(name)}, nil
}

// Abort fails pending requests with idb.ErrAbort and discards the badger
// transaction. A running cursor stops at its next position.
func (t *transaction) Abort() {
	t.abortOnce.Do(func() {
		close(t.aborted)
	})
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finish()
}

// finish discards the badger transaction. Callers hold t.mu.
func (t *transaction) finish() {
	if !t.finished {
		t.tx.Discard()
		t.finished = true
	}
}

// exec runs fn on the badger transaction, then commits or discards it.
func (t *transaction) exec(write bool, fn func(tx *badger.Txn) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.aborted:
		return idb.ErrAbort
	default:
	}
	if t.finished {
		return idb.ErrTransactionInactive
	}
	if t.db.closed.Load() {
		t.finish()
		return fmt.Errorf("%w: connection is closed", idb.ErrInvalidState)
	}

	err := fn(t.tx)
	if err == nil && write {
		err = t.tx.Commit()
	}
	t.finish()
	return translate(err)
}

// schedule issues fn as a request on the factory's worker pool.
func schedule[T any](t *transaction, write bool, fn func(tx *badger.Txn) (T, error)) *idb.Request[T] {
	if write && t.mode != idb.ReadWrite {
		t.Abort()
		return idb.FailedRequest[T](idb.ErrReadOnly)
	}

	req := idb.NewRequest[T]()
	err := t.db.factory.pool.Submit(func() {
		var result T
		err := t.exec(write, func(tx *badger.Txn) error {
			var err error
			result, err = fn(tx)
			return err
		})
		if err != nil {
			req.Fail(err)
			return
		}
		req.Succeed(result)
	})
	if err != nil {
		req.Fail(fmt.Errorf("%w: %w", idb.ErrInvalidState, err))
	}
	return req
}

// objectStore issues requests against one store of a transaction.
type objectStore struct {
	t      *transaction
	prefix []byte
}

var _ idb.ObjectStore = (*objectStore)(nil)
var _ idb.KeyCursorOpener = (*objectStore)(nil)

func (s *objectStore) Get(key string) *idb.Request[any] {
	return schedule(s.t, false, func(tx *badger.Txn) (any, error) {
		item, err := tx.Get(makeRecordKey(s.t.store, key))
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		var value any
		err = item.Value(func(val []byte) error {
			var err error
			value, err = unmarshalValue(val)
			return err
		})
		return value, err
	})
}

func (s *objectStore) Put(key string, value any) *idb.Request[struct{}] {
	// clone eagerly, like structured clone does at call time
	data, err := marshalValue(value)
	if err != nil {
		s.t.Abort()
		return idb.FailedRequest[struct{}](err)
	}
	return schedule(s.t, true, func(tx *badger.Txn) (struct{}, error) {
		return struct{}{}, tx.Set(makeRecordKey(s.t.store, key), data)
	})
}

func (s *objectStore) Delete(key string) *idb.Request[struct{}] {
	return schedule(s.t, true, func(tx *badger.Txn) (struct{}, error) {
		return struct{}{}, tx.Delete(makeRecordKey(s.t.store, key))
	})
}

func (s *objectStore) Clear() *idb.Request[struct{}] {
	return schedule(s.t, true, func(tx *badger.Txn) (struct{}, error) {
		return struct{}{}, deletePrefix(tx, s.prefix)
	})
}

func (s *objectStore) Count() *idb.Request[int] {
	return schedule(s.t, false, func(tx *badger.Txn) (int, error) {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		n := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return n, nil
	})
}

// CountKey returns 1 if key exists, 0 otherwise. The value is not read.
func (s *objectStore) CountKey(key string) *idb.Request[int] {
	return schedule(s.t, false, func(tx *badger.Txn) (int, error) {
		_, err := tx.Get(makeRecordKey(s.t.store, key))
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
}

func (s *objectStore) OpenCursor() *idb.CursorRequest {
	return s.openCursor(false)
}

func (s *objectStore) OpenKeyCursor() *idb.CursorRequest {
	return s.openCursor(true)
}
