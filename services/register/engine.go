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
	"log/slog"

	"github.com/esoadamo/http-db/services/register/storage"
)

// Perform executes one item operation after Secret Gate authorization.
//
// Description:
//
//	Runs READ / WRITE / APPEND / CLEAR against the item store. Mutations
//	commit to the store first and then fan out a change notification to
//	the item's watchers; both steps happen under the item's lock so
//	notifications for one item are always delivered in commit order.
//
// Inputs:
//
//	ctx - Context for store access.
//	item - Item name. Must be non-empty.
//	op - One of OpRead, OpWrite, OpAppend, OpClear.
//	secret - Caller-supplied secret; claims the item when unclaimed.
//	value - WRITE/APPEND payload; ignored for READ/CLEAR.
//
// Outputs:
//
//	Result - Status plus the resulting content. CLEAR reports the value
//	         that was removed.
//	error - Non-nil only for store failures, never for protocol outcomes
//	        (those are carried in Result.Status).
func (s *Service) Perform(ctx context.Context, item string, op Operation, secret string, value string) (Result, error) {
	if item == "" {
		return Result{}, ErrMissingItem
	}

	unlock := s.locks.Lock(item)
	defer unlock()

	allowed, err := s.gate.authorizeLocked(ctx, item, secret)
	if err != nil {
		return Result{}, err
	}
	if !allowed {
		operationsTotal.WithLabelValues(op.String(), StatusUnauthorized.String()).Inc()
		return Result{Status: StatusUnauthorized}, nil
	}

	res, err := s.performLocked(ctx, item, op, value)
	if err != nil {
		return Result{}, err
	}

	operationsTotal.WithLabelValues(op.String(), res.Status.String()).Inc()
	return res, nil
}

func (s *Service) performLocked(ctx context.Context, item string, op Operation, value string) (Result, error) {
	switch op {
	case OpRead, OpClear:
		current, ok, err := s.store.Get(ctx, storage.TableValues, item)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Status: StatusNotFound}, nil
		}
		if op == OpClear {
			// The value goes away; the secret binding stays.
			if err := s.store.Delete(ctx, storage.TableValues, item); err != nil {
				return Result{}, err
			}
			s.registry.Notify(item, nil, false)
			slog.Debug("item cleared", "item", item)
		}
		return Result{Status: StatusOK, Content: current, Exists: true}, nil

	case OpWrite, OpAppend:
		newValue := value
		if op == OpAppend {
			current, _, err := s.store.Get(ctx, storage.TableValues, item)
			if err != nil {
				return Result{}, err
			}
			// Appending to a never-written item behaves as a plain write.
			newValue = current + value
		}
		if err := s.store.Set(ctx, storage.TableValues, item, newValue); err != nil {
			return Result{}, err
		}
		// Notify after commit so watchers see the stored value.
		s.registry.Notify(item, &newValue, true)
		return Result{Status: StatusOK, Content: newValue, Exists: true}, nil

	default:
		return Result{}, fmt.Errorf("unsupported operation %d", op)
	}
}

// Snapshot returns the current value/existence of item without running the
// Secret Gate. Callers must have authorized the access already (a session
// holds items only after a successful open).
func (s *Service) Snapshot(ctx context.Context, item string) (ItemState, error) {
	value, ok, err := s.store.Get(ctx, storage.TableValues, item)
	if err != nil {
		return ItemState{}, err
	}
	state := ItemState{Item: item, Exists: ok}
	if ok {
		state.Content = &value
	}
	return state, nil
}
