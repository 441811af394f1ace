// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"context"
	"fmt"

	"github.com/esoadamo/http-db/services/register/storage"
)

// SecretGate decides whether an access to an item is authorized, claiming
// the item for the supplied secret when it was previously unclaimed.
//
// Claim on first use: the first caller to present any secret for an item
// binds that secret, including the empty "no secret required" value. Every
// later access must present exactly the bound secret. Secrets are never
// unbound, not even by CLEAR.
//
// Thread Safety: the unclaimed→claimed step is atomic per item; concurrent
// first claims on one item cannot both bind.
type SecretGate struct {
	store storage.Store
	locks *keyedMutex
}

// NewSecretGate creates a gate over the given store. The keyed mutex is
// shared with the Operation Engine so claim and mutate serialize on the
// same per-item locks.
func NewSecretGate(store storage.Store, locks *keyedMutex) *SecretGate {
	return &SecretGate{store: store, locks: locks}
}

// Authorize reports whether an access to item with the supplied secret is
// allowed, binding the secret first if the item is unclaimed.
func (g *SecretGate) Authorize(ctx context.Context, item, secret string) (bool, error) {
	unlock := g.locks.Lock(item)
	defer unlock()
	return g.authorizeLocked(ctx, item, secret)
}

// authorizeLocked is Authorize for callers that already hold the item's
// lock. The check-then-bind sequence is only atomic under that lock.
func (g *SecretGate) authorizeLocked(ctx context.Context, item, secret string) (bool, error) {
	bound, claimed, err := g.store.Get(ctx, storage.TableSecrets, item)
	if err != nil {
		return false, fmt.Errorf("load secret: %w", err)
	}

	if !claimed {
		// First caller wins. An empty secret binds "no secret required".
		if err := g.store.Set(ctx, storage.TableSecrets, item, secret); err != nil {
			return false, fmt.Errorf("bind secret: %w", err)
		}
		return true, nil
	}

	return secret == bound, nil
}
