// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoadamo/http-db/services/register/storage"
)

// TestOpenInMemory verifies in-memory store creation works.
func TestOpenInMemory(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, storage.TableValues, "key", "value"))

	got, ok, err := s.Get(ctx, storage.TableValues, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", got)
}

// TestOpenWithPath verifies data survives a close/reopen cycle.
func TestOpenWithPath(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenWithPath(dir, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, storage.TableValues, "persistent-key", "persistent-value"))
	require.NoError(t, s.Close())

	s2, err := OpenWithPath(dir, nil)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get(ctx, storage.TableValues, "persistent-key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persistent-value", got)
}

// TestTablesAreIndependent verifies the values and secrets tables never
// observe each other's rows, even for the same item name.
func TestTablesAreIndependent(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, storage.TableValues, "item", "the value"))
	require.NoError(t, s.Set(ctx, storage.TableSecrets, "item", "the secret"))

	v, ok, err := s.Get(ctx, storage.TableValues, "item")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "the value", v)

	sec, ok, err := s.Get(ctx, storage.TableSecrets, "item")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "the secret", sec)

	// Deleting the value leaves the secret behind.
	require.NoError(t, s.Delete(ctx, storage.TableValues, "item"))

	_, ok, err = s.Get(ctx, storage.TableValues, "item")
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := s.Has(ctx, storage.TableSecrets, "item")
	require.NoError(t, err)
	assert.True(t, has)
}

// TestEmptyValueIsPresent verifies an empty stored string is distinct from
// an absent key. The secret table relies on this to encode "claimed with
// no secret required".
func TestEmptyValueIsPresent(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	has, err := s.Has(ctx, storage.TableSecrets, "item")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Set(ctx, storage.TableSecrets, "item", ""))

	got, ok, err := s.Get(ctx, storage.TableSecrets, "item")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", got)
}

// TestDeleteAbsentKey verifies deleting a key that was never set succeeds.
func TestDeleteAbsentKey(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Delete(context.Background(), storage.TableValues, "nope"))
}

// TestContextCancellation verifies store calls respect a cancelled context.
func TestContextCancellation(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = s.Get(ctx, storage.TableValues, "key")
	assert.Error(t, err)

	assert.Error(t, s.Set(ctx, storage.TableValues, "key", "value"))
}
