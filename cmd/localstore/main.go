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


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/localstore"
	"github.com/poiesic/localstore/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "localstore",
		Usage:  "Inspect and edit a local key/value store",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load LOCALSTORE_* settings from a .env file",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory holding the store files; empty keeps everything in memory",
			},
			&cli.StringFlag{
				Name:  "area-engine",
				Usage: "Synchronous area engine (leveldb, sqlite, memory)",
			},
			&cli.StringFlag{
				Name:  "database-name",
				Usage: "Indexed database name",
			},
			&cli.StringFlag{
				Name:  "store-name",
				Usage: "Object store name",
			},
			&cli.Uint64Flag{
				Name:  "schema-version",
				Usage: "Indexed database schema version",
			},
			&cli.BoolFlag{
				Name:  "legacy-wrap",
				Usage: "Read and write values wrapped as {\"value\": ...}",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "Key prefix for the synchronous area",
			},
			&cli.BoolFlag{
				Name:  "server",
				Usage: "Run as a non-browser context (memory backend)",
			},
			&cli.BoolFlag{
				Name:  "disable-indexeddb",
				Usage: "Hide the indexed database from backend selection",
			},
			&cli.BoolFlag{
				Name:  "disable-localstorage",
				Usage: "Hide the synchronous area from backend selection",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnvFile(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print the JSON value stored under a key",
				ArgsUsage: "KEY",
				Action:    getCommand,
			},
			{
				Name:      "set",
				Usage:     "Store a JSON value under a key; null deletes the key",
				ArgsUsage: "KEY JSON",
				Action:    setCommand,
			},
			{
				Name:      "delete",
				Usage:     "Remove a key",
				ArgsUsage: "KEY",
				Action:    deleteCommand,
			},
			{
				Name:   "clear",
				Usage:  "Remove every key",
				Action: clearCommand,
			},
			{
				Name:   "keys",
				Usage:  "List keys, one per line",
				Action: keysCommand,
			},
			{
				Name:      "has",
				Usage:     "Report whether a key exists",
				ArgsUsage: "KEY",
				Action:    hasCommand,
			},
			{
				Name:   "size",
				Usage:  "Print the number of keys",
				Action: sizeCommand,
			},
			{
				Name:   "backend",
				Usage:  "Print the name of the selected backend",
				Action: backendCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadEnvFile loads --env-file, or ./.env when present.
func loadEnvFile(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// loadConfig reads the environment, then applies the flags that were set.
func loadConfig(c *cli.Context) (*localstore.Config, error) {
	var opts []localstore.ConfigOption
	if c.IsSet("data-dir") {
		opts = append(opts, localstore.WithDataDir(c.String("data-dir")))
	}
	if c.IsSet("area-engine") {
		opts = append(opts, localstore.WithAreaEngine(c.String("area-engine")))
	}
	if c.IsSet("database-name") {
		opts = append(opts, localstore.WithDatabaseName(c.String("database-name")))
	}
	if c.IsSet("store-name") {
		opts = append(opts, localstore.WithStoreName(c.String("store-name")))
	}
	if c.IsSet("schema-version") {
		opts = append(opts, localstore.WithSchemaVersion(c.Uint64("schema-version")))
	}
	if c.IsSet("legacy-wrap") {
		opts = append(opts, localstore.WithLegacyWrap(c.Bool("legacy-wrap")))
	}
	if c.IsSet("prefix") {
		opts = append(opts, localstore.WithKeyPrefix(c.String("prefix")))
	}
	if c.IsSet("server") {
		opts = append(opts, localstore.WithServer(c.Bool("server")))
	}
	if c.IsSet("disable-indexeddb") {
		disabled := c.Bool("disable-indexeddb")
		opts = append(opts, func(cfg *localstore.Config) { cfg.DisableIndexedDB = disabled })
	}
	if c.IsSet("disable-localstorage") {
		disabled := c.Bool("disable-localstorage")
		opts = append(opts, func(cfg *localstore.Config) { cfg.DisableLocalStorage = disabled })
	}
	return localstore.LoadConfig(opts...)
}

// withStore opens the database, runs fn against its store and closes it.
func withStore(c *cli.Context, fn func(ctx context.Context, db *localstore.Database) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := localstore.NewDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return fn(c.Context, db)
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return nil
}

func getCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		value, err := db.Store().Get(ctx, c.Args().Get(0))
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding value: %w", err)
		}
		fmt.Fprintln(c.App.Writer, string(encoded))
		return nil
	})
}

func setCommand(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal([]byte(c.Args().Get(1)), &value); err != nil {
		return fmt.Errorf("invalid JSON value: %w", err)
	}
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		return db.Store().Set(ctx, c.Args().Get(0), value)
	})
}

func deleteCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		return db.Store().Delete(ctx, c.Args().Get(0))
	})
}

func clearCommand(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		return db.Store().Clear(ctx)
	})
}

func keysCommand(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		for key, err := range db.Store().Keys(ctx) {
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, key)
		}
		return nil
	})
}

func hasCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		ok, err := db.Store().Has(ctx, c.Args().Get(0))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, ok)
		return nil
	})
}

func sizeCommand(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		n, err := db.Store().Size(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, n)
		return nil
	})
}

func backendCommand(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, db *localstore.Database) error {
		fmt.Fprintln(c.App.Writer, storage.BackendName(db.Store()))
		return nil
	})
}
