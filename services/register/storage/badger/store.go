// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/esoadamo/http-db/services/register/storage"
)

// Store implements storage.Store on top of BadgerDB.
//
// Keys are namespaced as "<table>\x00<key>" so the two logical tables share
// one database without colliding. Table names never contain the NUL
// separator, so the mapping is unambiguous for arbitrary item names.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// per-key atomicity.
type Store struct {
	db       *badger.DB
	gc       *gcRunner
	path     string
	inMemory bool
}

var _ storage.Store = (*Store)(nil)

// Open opens a BadgerDB-backed store with the given configuration and
// starts the GC runner when GCInterval is configured.
//
// Outputs:
//
//	*Store - The opened store. Caller must call Close() when done.
//	error - Non-nil if the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:       db,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.start()
	}

	return s, nil
}

// OpenWithPath opens a persistent store with production defaults at path.
func OpenWithPath(path string, logger *slog.Logger) (*Store, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.Logger = logger
	return Open(cfg)
}

// OpenInMemory opens an in-memory store for testing. Data is lost on Close.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

func storeKey(table storage.Table, key string) []byte {
	b := make([]byte, 0, len(table)+1+len(key))
	b = append(b, table...)
	b = append(b, 0)
	b = append(b, key...)
	return b
}

// Get returns the value for key in table.
func (s *Store) Get(ctx context.Context, table storage.Table, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(table, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return value, found, nil
}

// Set stores value under key in table.
func (s *Store) Set(ctx context.Context, table storage.Table, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(table, key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", table, key, err)
	}
	return nil
}

// Delete removes key from table. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, table storage.Table, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(table, key))
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, key, err)
	}
	return nil
}

// Has reports whether key is present in table.
func (s *Store) Has(ctx context.Context, table storage.Table, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(storeKey(table, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("has %s/%s: %w", table, key, err)
	}
	return found, nil
}

// Sync flushes pending writes to disk. No-op for in-memory stores.
func (s *Store) Sync() error {
	if s.inMemory {
		return nil
	}
	return s.db.Sync()
}

// Close stops the GC runner and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Path returns the database path, or empty string for in-memory stores.
func (s *Store) Path() string {
	return s.path
}
