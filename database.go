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
	"log/slog"

	"github.com/poiesic/localstore/storage"
	"github.com/poiesic/localstore/storage/traced"
	"go.opentelemetry.io/otel/trace"
)

// Database owns a native Platform and the store selected on it.
type Database struct {
	platform *Platform
	store    storage.Store
	backend  string
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger   *slog.Logger
	provider trace.TracerProvider
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider sets the provider store spans are created from.
// Default is the global provider.
func WithTracerProvider(provider trace.TracerProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// NewDatabase opens the platform described by cfg and selects a store on it.
func NewDatabase(cfg *Config, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Open platform
	platform, err := OpenPlatform(cfg, WithPlatformLogger(options.logger))
	if err != nil {
		return nil, err
	}

	// Select backend
	selected := selectStore(platform, cfg, options.logger)
	backend := storage.BackendName(selected)

	var tracedOpts []traced.Option
	if options.provider != nil {
		tracedOpts = append(tracedOpts, traced.WithTracerProvider(options.provider))
	}

	return &Database{
		platform: platform,
		store:    traced.New(selected, tracedOpts...),
		backend:  backend,
		logger:   options.logger,
	}, nil
}

// Store returns the selected store.
func (db *Database) Store() storage.Store {
	return db.store
}

// Backend returns the name of the selected backend.
func (db *Database) Backend() string {
	return db.backend
}

func (db *Database) Close() error {
	// Close store first
	storeErr := db.store.Close()
	if storeErr != nil {
		db.logger.Error("error closing store", "backend", db.backend, "err", storeErr)
	}

	// Close platform
	platformErr := db.platform.Close()
	if platformErr != nil {
		db.logger.Error("error closing platform", "err", platformErr)
	}
	return errors.Join(storeErr, platformErr)
}
