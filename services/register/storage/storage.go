// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage defines the durable key-value tables backing the register
// service. Item values and item secrets live in two independent tables so
// that clearing a value never touches the secret binding.
package storage

import "context"

// Table identifies one of the independent key→string tables.
type Table string

const (
	// TableValues holds item values, keyed by item name.
	TableValues Table = "values"

	// TableSecrets holds bound item secrets, keyed by item name.
	// A present row with an empty string means "claimed, no secret required",
	// which is distinct from an absent row (unclaimed).
	TableSecrets Table = "secrets"
)

// Store is a durable mapping from string key to string value with atomic
// per-key operations. Implementations must be safe for concurrent use.
//
// The register core never performs multi-key transactions; cross-key
// consistency is the caller's responsibility.
type Store interface {
	// Get returns the value for key in table. ok is false when the key
	// is absent. An empty value with ok=true is a valid stored value.
	Get(ctx context.Context, table Table, key string) (value string, ok bool, err error)

	// Set stores value under key in table, replacing any previous value.
	Set(ctx context.Context, table Table, key string, value string) error

	// Delete removes key from table. Deleting an absent key is not an error.
	Delete(ctx context.Context, table Table, key string) error

	// Has reports whether key is present in table.
	Has(ctx context.Context, table Table, key string) (bool, error)

	// Close releases the underlying database. The store must not be used
	// after Close returns.
	Close() error
}
