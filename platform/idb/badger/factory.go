// Package badger implements the idb object-store API on BadgerDB. Each
// database name maps to one badger database shared by every connection the
// factory opens.
package badger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/localstore/platform/idb"
)

// Factory implements idb.Factory on BadgerDB.
type Factory struct {
	root     string
	inMemory bool
	pool     *ants.Pool
	logger   *slog.Logger

	mu     sync.Mutex
	dbs    map[string]*handle
	closed bool
}

var _ idb.Factory = (*Factory)(nil)

// handle is one badger database. versionMu serializes open/upgrade
// sequences for the same name.
type handle struct {
	db        *badger.DB
	versionMu sync.Mutex
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Option configures a Factory.
type Option func(*Factory) error

// WithPoolSize sets the number of workers that execute requests.
// Default is runtime.NumCPU(), with a minimum of 2.
func WithPoolSize(size int) Option {
	return func(f *Factory) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if f.pool != nil {
			f.pool.Release()
		}
		f.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// OpenFactory creates a factory whose databases live under root. With
// inMemory set, root is ignored and databases live for the lifetime of the
// factory. Creates the root directory if it doesn't exist.
func OpenFactory(root string, inMemory bool, opts ...Option) (*Factory, error) {
	if !inMemory {
		info, err := os.Stat(root)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(root, 0755); err != nil {
				return nil, err
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", root)
		}
	}

	poolSize := runtime.NumCPU()
	if poolSize < 2 {
		poolSize = 2
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		root:     root,
		inMemory: inMemory,
		pool:     pool,
		logger:   slog.Default(),
		dbs:      make(map[string]*handle),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			f.pool.Release()
			return nil, err
		}
	}
	return f, nil
}

// Close closes every database and stops the worker pool. Connections
// obtained from the factory fail afterwards.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.pool.Release()

	var errs []error
	for name, h := range f.dbs {
		if err := h.db.Close(); err != nil {
			f.logger.Error("error closing database", "name", name, "err", err)
			errs = append(errs, err)
		}
	}
	f.dbs = nil
	return errors.Join(errs...)
}

// Open starts opening database name at version. The open, and the upgrade
// if the version is new, run on the worker pool.
func (f *Factory) Open(name string, version uint64, upgrade idb.UpgradeFunc) (*idb.Request[idb.Database], error) {
	if version == 0 {
		return nil, idb.ErrInvalidVersion
	}
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: factory is closed", idb.ErrInvalidState)
	}

	req := idb.NewRequest[idb.Database]()
	err := f.pool.Submit(func() {
		db, err := f.open(name, version, upgrade)
		if err != nil {
			req.Fail(err)
			return
		}
		req.Succeed(db)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", idb.ErrInvalidState, err)
	}
	return req, nil
}

func (f *Factory) open(name string, version uint64, upgrade idb.UpgradeFunc) (*database, error) {
	h, err := f.handle(name)
	if err != nil {
		return nil, err
	}

	h.versionMu.Lock()
	defer h.versionMu.Unlock()

	err = h.db.Update(func(tx *badger.Txn) error {
		current, err := readVersion(tx)
		if err != nil {
			return err
		}
		if version < current {
			return fmt.Errorf("%w: %d < %d", idb.ErrVersion, version, current)
		}
		if version == current {
			return nil
		}

		f.logger.Debug("upgrading database", "name", name, "from", current, "to", version)
		if upgrade != nil {
			if err := upgrade(&schema{tx: tx, version: version}, current, version); err != nil {
				return fmt.Errorf("%w: upgrade: %w", idb.ErrAbort, err)
			}
		}
		return tx.Set(versionKey, marshalVersion(version))
	})
	if err != nil {
		return nil, translate(err)
	}

	db := &database{
		factory: f,
		handle:  h,
		name:    name,
		version: version,
		id:      uuid.NewString(),
		logger:  f.logger,
	}
	f.logger.Debug("database connection opened", "name", name, "version", version, "connection", db.id)
	return db, nil
}

// handle returns the badger database for name, opening it on first use.
func (f *Factory) handle(name string) (*handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("%w: factory is closed", idb.ErrInvalidState)
	}
	if h, ok := f.dbs[name]; ok {
		return h, nil
	}

	var opts badger.Options
	if f.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(f.root, directoryName(name)))
	}
	opts.Logger = &badgerLoggerAdapter{logger: f.logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	h := &handle{db: db}
	f.dbs[name] = h
	return h, nil
}

// directoryName derives a filesystem-safe directory for a database name:
// a readable prefix plus a BLAKE2b digest that keeps distinct names apart.
func directoryName(name string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(name))
	digest := hex.EncodeToString(h.Sum(nil))

	readable := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if len(readable) > 32 {
		readable = readable[:32]
	}
	return readable + "-" + digest
}

// translate maps badger errors onto idb errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("%w: %w", idb.ErrQuotaExceeded, err)
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %w", idb.ErrInvalidState, err)
	case errors.Is(err, badger.ErrDiscardedTxn):
		return fmt.Errorf("%w: %w", idb.ErrTransactionInactive, err)
	}
	return err
}
