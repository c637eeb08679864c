package localstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/area/leveldb"
	"github.com/poiesic/localstore/platform/area/sqlite"
	"github.com/poiesic/localstore/platform/idb"
	idbbadger "github.com/poiesic/localstore/platform/idb/badger"
)

const (
	indexedDBDir     = "indexeddb"
	levelDBAreaDir   = "localstorage.ldb"
	sqliteAreaFile   = "localstorage.db"
	sqliteMemoryPath = ":memory:"
)

// Platform is the Environment of a native process. It provides a badger
// backed indexed database and a synchronous area on the configured engine,
// both under Config.DataDir, or in memory when DataDir is empty.
//
// A Platform reports a browser context unless Config.Server is set.
type Platform struct {
	factory *idbbadger.Factory
	area    area.Area
	server  bool
	logger  *slog.Logger
}

var _ Environment = (*Platform)(nil)

// PlatformOption configures a Platform.
type PlatformOption func(*platformOptions)

type platformOptions struct {
	logger *slog.Logger
}

// WithPlatformLogger sets a custom logger.
// Default is slog.Default().
func WithPlatformLogger(logger *slog.Logger) PlatformOption {
	return func(o *platformOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// OpenPlatform opens the native storage described by cfg.
func OpenPlatform(cfg *Config, opts ...PlatformOption) (*Platform, error) {
	options := &platformOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	inMemory := cfg.DataDir == ""
	if !inMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	p := &Platform{server: cfg.Server, logger: options.logger}

	var root string
	if !inMemory {
		root = filepath.Join(cfg.DataDir, indexedDBDir)
	}
	factory, err := idbbadger.OpenFactory(root, inMemory, idbbadger.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}
	p.factory = factory

	a, err := openArea(cfg, inMemory)
	if err != nil {
		factory.Close()
		return nil, err
	}
	p.area = a

	options.logger.Debug("platform opened",
		"data_dir", cfg.DataDir,
		"area_engine", cfg.AreaEngine,
		"in_memory", inMemory)
	return p, nil
}

func openArea(cfg *Config, inMemory bool) (area.Area, error) {
	switch cfg.AreaEngine {
	case AreaEngineLevelDB:
		if inMemory {
			return leveldb.OpenMemory()
		}
		return leveldb.Open(filepath.Join(cfg.DataDir, levelDBAreaDir))
	case AreaEngineSQLite:
		if inMemory {
			return sqlite.Open(sqliteMemoryPath)
		}
		return sqlite.Open(filepath.Join(cfg.DataDir, sqliteAreaFile))
	case AreaEngineMemory:
		return area.NewMemoryArea(cfg.AreaQuota), nil
	}
	return nil, fmt.Errorf("unknown area engine %q", cfg.AreaEngine)
}

// IsBrowser reports true unless the platform was configured as a server.
func (p *Platform) IsBrowser() bool {
	return !p.server
}

// IndexedDB returns the badger backed factory.
func (p *Platform) IndexedDB() idb.Factory {
	return p.factory
}

// LocalStorage returns the synchronous area.
func (p *Platform) LocalStorage() area.Area {
	return p.area
}

// Close closes the area and the factory.
func (p *Platform) Close() error {
	var errs []error
	if closer, ok := p.area.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error("error closing area", "err", err)
			errs = append(errs, err)
		}
	}
	if err := p.factory.Close(); err != nil {
		p.logger.Error("error closing indexed database factory", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
