// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Session is the per-connection protocol state machine for the streaming
// channel.
//
// A session starts with no opened items. Each successful "open" records the
// item and the secret it was opened with and registers the connection as a
// watcher; every later command on that item reuses the recorded secret.
// Close deregisters the connection exactly once, on every termination path.
//
// Thread Safety: HandleMessage is driven by the single connection read loop
// and is not safe for concurrent calls; Close may race with it safely.
type Session struct {
	svc  *Service
	conn Subscriber

	mu     sync.Mutex
	opened map[string]string // item → secret recorded at open

	closeOnce sync.Once
}

// NewSession creates a session bound to one streaming connection.
func NewSession(svc *Service, conn Subscriber) *Session {
	return &Session{
		svc:    svc,
		conn:   conn,
		opened: make(map[string]string),
	}
}

// HandleMessage processes one inbound message. Malformed input is reported
// to the peer and never terminates the session; subsequent messages keep
// being processed.
func (s *Session) HandleMessage(ctx context.Context, raw []byte) {
	var req wsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.conn.Send(wsError{Error: "invalid JSON"})
		return
	}
	if err := wsValidate.Struct(&req); err != nil {
		s.conn.Send(wsError{Error: "missing command or item"})
		return
	}

	switch req.Command {
	case "ping":
		s.conn.Send(wsEvent{Event: "pong", Data: time.Now().UnixMilli()})
	case "open":
		s.handleOpen(ctx, req.Item, req.Data.Secret)
	case "get":
		s.handleGet(ctx, req.Item)
	case "set":
		s.handleMutate(ctx, req.Item, OpWrite, req.Data.Value)
	case "append":
		s.handleMutate(ctx, req.Item, OpAppend, req.Data.Value)
	case "clear":
		s.handleClear(ctx, req.Item)
	default:
		s.conn.Send(wsError{Error: ErrUnknownCommand.Error()})
	}
}

func (s *Session) handleOpen(ctx context.Context, item string, secret *string) {
	supplied := ""
	if secret != nil {
		supplied = *secret
	}

	allowed, err := s.svc.gate.Authorize(ctx, item, supplied)
	if err != nil {
		slog.Error("open failed", "item", item, "subscriber", s.conn.ID(), "error", err)
		s.conn.Send(wsError{Error: "internal error"})
		return
	}
	if !allowed {
		s.conn.Send(wsError{Error: ErrUnauthorized.Error()})
		return
	}

	s.svc.registry.Register(item, s.conn)
	s.mu.Lock()
	s.opened[item] = supplied
	s.mu.Unlock()

	s.sendSnapshot(ctx, item)
}

func (s *Session) handleGet(ctx context.Context, item string) {
	if _, ok := s.openedSecret(item); !ok {
		s.conn.Send(wsError{Error: ErrUnauthorized.Error()})
		return
	}
	s.sendSnapshot(ctx, item)
}

func (s *Session) handleMutate(ctx context.Context, item string, op Operation, value *string) {
	secret, ok := s.openedSecret(item)
	if !ok {
		s.conn.Send(wsError{Error: ErrUnauthorized.Error()})
		return
	}
	if value == nil {
		s.conn.Send(wsError{Error: ErrNoValue.Error()})
		return
	}

	res, err := s.svc.Perform(ctx, item, op, secret, *value)
	if err != nil {
		slog.Error("mutation failed", "item", item, "operation", op.String(), "error", err)
		s.conn.Send(wsError{Error: "internal error"})
		return
	}
	// Success needs no direct reply: this connection watches the item, so
	// it receives the change through the fanout like every other watcher.
	if res.Status == StatusUnauthorized {
		s.conn.Send(wsError{Error: ErrUnauthorized.Error()})
	}
}

func (s *Session) handleClear(ctx context.Context, item string) {
	secret, ok := s.openedSecret(item)
	if !ok {
		s.conn.Send(wsError{Error: ErrUnauthorized.Error()})
		return
	}

	res, err := s.svc.Perform(ctx, item, OpClear, secret, "")
	if err != nil {
		slog.Error("clear failed", "item", item, "error", err)
		s.conn.Send(wsError{Error: "internal error"})
		return
	}
	switch res.Status {
	case StatusUnauthorized:
		s.conn.Send(wsError{Error: ErrUnauthorized.Error()})
	case StatusNotFound:
		s.conn.Send(wsError{Error: ErrNotFound.Error()})
	}
}

func (s *Session) openedSecret(item string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.opened[item]
	return secret, ok
}

// Opened reports whether this session has successfully opened item.
func (s *Session) Opened(item string) bool {
	_, ok := s.openedSecret(item)
	return ok
}

func (s *Session) sendSnapshot(ctx context.Context, item string) {
	state, err := s.svc.Snapshot(ctx, item)
	if err != nil {
		slog.Error("snapshot failed", "item", item, "error", err)
		s.conn.Send(wsError{Error: "internal error"})
		return
	}
	s.conn.Send(state)
}

// Close tears the session down: the connection is removed from every watch
// set. Safe to call from any termination path; only the first call acts.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.svc.registry.Deregister(s.conn)
		s.mu.Lock()
		s.opened = make(map[string]string)
		s.mu.Unlock()
	})
}
