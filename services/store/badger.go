// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for a Badger-backed Backend.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent databases. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns sensible defaults for production use.
//
// Description:
//
//	Returns a BadgerConfig with SyncWrites enabled for durability.
//	Path must still be set by the caller.
//
// Outputs:
//
//	BadgerConfig - Ready-to-use production configuration
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns configuration optimized for testing.
//
// Description:
//
//	Returns a BadgerConfig with InMemory mode enabled (no disk I/O)
//	and SyncWrites disabled (faster tests).
//
// Outputs:
//
//	BadgerConfig - Ready-to-use test configuration
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerBackend is a Backend over an embedded BadgerDB database.
//
// It stands in for the hosted key-value service in local deployments
// and in tests. Keys and values are stored as raw bytes of the string
// forms; no interpretation happens at this layer.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger creates and opens a Badger-backed Backend.
//
// Description:
//
//	Opens a BadgerDB database at the configured path, or in memory if
//	InMemory is true. Creates the directory if it doesn't exist.
//
// Inputs:
//
//	cfg - Backend configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*BadgerBackend - The opened backend. Caller must call Close() when done.
//	error - Non-nil if path is invalid or database cannot be opened.
//
// Thread Safety: The returned backend is safe for concurrent use.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil) // Disable BadgerDB's internal logging
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &BadgerBackend{db: db}, nil
}

// OpenBadgerInMemory is a convenience function for opening an in-memory backend.
//
// Description:
//
//	Opens an in-memory backend for testing. Data is lost when closed.
//
// Outputs:
//
//	*BadgerBackend - The opened backend. Caller must call Close() when done.
//	error - Non-nil if the database cannot be opened (unlikely for in-memory).
func OpenBadgerInMemory() (*BadgerBackend, error) {
	return OpenBadger(InMemoryBadgerConfig())
}

// Get returns the value stored under key.
//
// Description:
//
//	Reads the value in a read-only transaction. A missing key is
//	reported as found=false with a nil error.
//
// Inputs:
//
//	ctx - Context for cancellation (checked before the read).
//	key - The key to read.
//
// Outputs:
//
//	string - The stored value, or "" if not found.
//	bool - Whether the key was present.
//	error - Non-nil if the read failed.
func (b *BadgerBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (b *BadgerBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// GetAll returns every key and value in the database.
//
// Description:
//
//	Iterates all keys in a single read-only transaction. Intended for
//	small stores (tens of keys); the hosted service this mirrors has
//	the same full-scan contract.
func (b *BadgerBackend) GetAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				out[key] = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan all keys: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

var _ Backend = (*BadgerBackend)(nil)
