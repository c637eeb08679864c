// Package localstore provides a key/value store that picks the best
// storage the runtime offers: an indexed transactional database, a
// synchronous string area, or process memory.
//
// Select probes an Environment once and returns exactly one
// storage.Store. Platform is the Environment of native processes; under
// GOOS=js, BrowserEnvironment probes the real browser globals.
package localstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/idb"
	"github.com/poiesic/localstore/storage"
	"github.com/poiesic/localstore/storage/indexeddb"
	"github.com/poiesic/localstore/storage/localstorage"
	"github.com/poiesic/localstore/storage/memory"
)

// ErrProbePanicked reports a capability probe that panicked.
var ErrProbePanicked = errors.New("storage probe panicked")

// Environment exposes the storage capabilities of a runtime. A nil result
// means the capability is missing.
type Environment interface {
	// IsBrowser reports whether the runtime is a browser context.
	IsBrowser() bool

	IndexedDB() idb.Factory
	LocalStorage() area.Area
}

// Select returns the backend for env:
//
//   - not a browser context: memory;
//   - an indexed database: indexeddb;
//   - a synchronous area: localstorage;
//   - nothing usable, or a probe that panics: memory.
//
// The choice is final. A backend that breaks later reports errors from its
// operations; Select is not consulted again.
func Select(env Environment, cfg *Config) storage.Store {
	return selectStore(env, cfg, slog.Default())
}

func selectStore(env Environment, cfg *Config, logger *slog.Logger) storage.Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if env == nil || !env.IsBrowser() {
		logger.Debug("not a browser context", "backend", storage.BackendMemory)
		return memory.New()
	}

	store, err := probe(env, cfg, logger)
	if err != nil {
		logger.Warn("storage probe failed", "backend", storage.BackendMemory, "err", err)
		return memory.New()
	}
	if store == nil {
		logger.Debug("no platform storage available", "backend", storage.BackendMemory)
		return memory.New()
	}
	logger.Debug("storage selected", "backend", storage.BackendName(store))
	return store
}

func probe(env Environment, cfg *Config, logger *slog.Logger) (store storage.Store, err error) {
	defer func() {
		if r := recover(); r != nil {
			store = nil
			err = fmt.Errorf("%w: %v", ErrProbePanicked, r)
		}
	}()

	if !cfg.DisableIndexedDB {
		if factory := env.IndexedDB(); factory != nil {
			return indexeddb.New(factory,
				indexeddb.WithDatabaseName(cfg.DatabaseName),
				indexeddb.WithStoreName(cfg.StoreName),
				indexeddb.WithSchemaVersion(cfg.SchemaVersion),
				indexeddb.WithLegacyWrap(cfg.LegacyWrap),
				indexeddb.WithLogger(logger),
			)
		}
	}

	if !cfg.DisableLocalStorage {
		if a := env.LocalStorage(); a != nil {
			return localstorage.New(a,
				localstorage.WithPrefix(cfg.KeyPrefix),
				localstorage.WithLogger(logger),
			)
		}
	}
	return nil, nil
}
