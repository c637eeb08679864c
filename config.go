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


package localstore

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/storage/indexeddb"
)

// Area engines backing the synchronous key/value area of a native Platform.
const (
	AreaEngineLevelDB = "leveldb"
	AreaEngineSQLite  = "sqlite"
	AreaEngineMemory  = "memory"
)

// Config holds the settings used to select and construct a backend.
type Config struct {
	// DatabaseName is the name of the indexed database.
	// Default: "ngStorage"
	DatabaseName string `env:"LOCALSTORE_DATABASE_NAME"`

	// StoreName is the object store inside the indexed database.
	// Default: "localStorage"
	StoreName string `env:"LOCALSTORE_STORE_NAME"`

	// SchemaVersion is the requested version of the indexed database.
	// Raising it runs the upgrade that creates the object store.
	// Default: 1
	SchemaVersion uint64 `env:"LOCALSTORE_SCHEMA_VERSION"`

	// LegacyWrap reads and writes indexed values wrapped as {"value": v}.
	LegacyWrap bool `env:"LOCALSTORE_LEGACY_WRAP"`

	// KeyPrefix namespaces keys in the synchronous area.
	KeyPrefix string `env:"LOCALSTORE_KEY_PREFIX"`

	// DataDir is where a native Platform keeps its files. Empty keeps
	// everything in memory.
	DataDir string `env:"LOCALSTORE_DATA_DIR"`

	// AreaEngine selects the synchronous area implementation of a native
	// Platform: "leveldb", "sqlite" or "memory".
	// Default: "leveldb"
	AreaEngine string `env:"LOCALSTORE_AREA_ENGINE"`

	// AreaQuota caps an in-memory area, in UTF-16 code units of keys and
	// values. 0 means unlimited.
	// Default: 5 MiB
	AreaQuota int `env:"LOCALSTORE_AREA_QUOTA"`

	// Server marks a non-browser context: selection yields the memory
	// backend.
	Server bool `env:"LOCALSTORE_SERVER"`

	// DisableIndexedDB hides the indexed database from the selector.
	DisableIndexedDB bool `env:"LOCALSTORE_DISABLE_INDEXEDDB"`

	// DisableLocalStorage hides the synchronous area from the selector.
	DisableLocalStorage bool `env:"LOCALSTORE_DISABLE_LOCALSTORAGE"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithDatabaseName sets the indexed database name.
func WithDatabaseName(name string) ConfigOption {
	return func(c *Config) {
		c.DatabaseName = name
	}
}

// WithStoreName sets the object store name.
func WithStoreName(name string) ConfigOption {
	return func(c *Config) {
		c.StoreName = name
	}
}

// WithSchemaVersion sets the requested schema version.
func WithSchemaVersion(version uint64) ConfigOption {
	return func(c *Config) {
		c.SchemaVersion = version
	}
}

// WithLegacyWrap toggles legacy value wrapping.
func WithLegacyWrap(enabled bool) ConfigOption {
	return func(c *Config) {
		c.LegacyWrap = enabled
	}
}

// WithKeyPrefix sets the synchronous area key prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithDataDir sets the data directory of a native Platform.
func WithDataDir(dir string) ConfigOption {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithAreaEngine sets the synchronous area engine.
func WithAreaEngine(engine string) ConfigOption {
	return func(c *Config) {
		c.AreaEngine = engine
	}
}

// WithServer marks the process as a non-browser context.
func WithServer(server bool) ConfigOption {
	return func(c *Config) {
		c.Server = server
	}
}

// DefaultConfig returns a Config with the defaults the browser library
// shipped with.
func DefaultConfig() *Config {
	return &Config{
		DatabaseName:  indexeddb.DefaultDatabaseName,
		StoreName:     indexeddb.DefaultStoreName,
		SchemaVersion: indexeddb.DefaultSchemaVersion,
		AreaEngine:    AreaEngineLevelDB,
		AreaQuota:     area.DefaultQuota,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadConfig reads LOCALSTORE_* environment variables over the defaults,
// then applies opts and validates the result.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.DatabaseName == "" {
		return errors.New("localstore config: DatabaseName is required")
	}
	if c.StoreName == "" {
		return errors.New("localstore config: StoreName is required")
	}
	if c.SchemaVersion == 0 {
		return errors.New("localstore config: SchemaVersion must be greater than zero")
	}
	switch c.AreaEngine {
	case AreaEngineLevelDB, AreaEngineSQLite, AreaEngineMemory:
	default:
		return fmt.Errorf("localstore config: unknown AreaEngine %q", c.AreaEngine)
	}
	if c.AreaQuota < 0 {
		return errors.New("localstore config: AreaQuota must not be negative")
	}
	return nil
}
