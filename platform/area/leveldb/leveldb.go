// Package leveldb provides a persistent area.Area on goleveldb. Index
// positions follow the database's key order.
package leveldb

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/localstore/platform/area"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"
)

// Area is an area.Area stored in a LevelDB database.
type Area struct {
	sync.RWMutex
	db     *leveldb.DB
	logger *slog.Logger
}

var _ area.Area = (*Area)(nil)

// Open opens or creates the LevelDB database at path.
func Open(path string) (*Area, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(path, opt)
	if err != nil {
		return nil, fmt.Errorf("open leveldb area %s: %w", path, err)
	}
	slog.Default().Debug("opened leveldb area", "path", path)
	return &Area{db: db, logger: slog.Default()}, nil
}

// OpenMemory opens an area backed by LevelDB's in-memory storage.
func OpenMemory() (*Area, error) {
	db, err := leveldb.Open(ldb_storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Area{db: db, logger: slog.Default()}, nil
}

// Close closes the database.
func (a *Area) Close() error {
	a.Lock()
	defer a.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// GetItem returns the value stored under key.
func (a *Area) GetItem(key string) (string, bool, error) {
	a.RLock()
	defer a.RUnlock()
	if a.db == nil {
		return "", false, area.ErrClosed
	}
	value, err := a.db.Get([]byte(key), nil)
	if leveldb.ErrNotFound == err {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

// SetItem stores value under key.
func (a *Area) SetItem(key, value string) error {
	a.RLock()
	defer a.RUnlock()
	if a.db == nil {
		return area.ErrClosed
	}
	return a.db.Put([]byte(key), []byte(value), nil)
}

// RemoveItem removes key.
func (a *Area) RemoveItem(key string) error {
	a.RLock()
	defer a.RUnlock()
	if a.db == nil {
		return area.ErrClosed
	}
	return a.db.Delete([]byte(key), nil)
}

// Clear removes every key in a single batch.
func (a *Area) Clear() error {
	a.RLock()
	defer a.RUnlock()
	if a.db == nil {
		return area.ErrClosed
	}

	batch := new(leveldb.Batch)
	iter := a.db.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	a.logger.Debug("clearing leveldb area", "keys", batch.Len())
	return a.db.Write(batch, nil)
}

// Key returns the key at index in key order.
func (a *Area) Key(index int) (string, bool, error) {
	a.RLock()
	defer a.RUnlock()
	if a.db == nil {
		return "", false, area.ErrClosed
	}
	if index < 0 {
		return "", false, nil
	}

	iter := a.db.NewIterator(nil, nil)
	defer iter.Release()
	for i := 0; iter.Next(); i++ {
		if i == index {
			return string(iter.Key()), true, nil
		}
	}
	return "", false, iter.Error()
}

// Length returns the number of stored keys.
func (a *Area) Length() (int, error) {
	a.RLock()
	defer a.RUnlock()
	if a.db == nil {
		return 0, area.ErrClosed
	}

	n := 0
	iter := a.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		n += 1
	}
	return n, iter.Error()
}
