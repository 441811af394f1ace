// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package register implements the shared realtime key-value register:
// per-item secrets claimed on first use, the four item operations
// (read, write, append, clear), and change-notification fanout to
// streaming subscribers.
//
// The package exposes:
//   - SecretGate: claim-on-first-use secret binding and verification
//   - Service.Perform: the operation engine
//   - Registry: watch registration and best-effort fanout
//   - Session: the per-connection streaming state machine
//   - Handlers + RegisterRoutes: the HTTP and WebSocket surface
package register

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/esoadamo/http-db/services/register/storage"
)

// ServiceConfig configures the register service.
type ServiceConfig struct {
	// SendBuffer is the per-connection outbound message queue length.
	// A connection whose queue is full drops the message and is evicted
	// from the watch registry. Default: 64.
	SendBuffer int

	// WriteTimeout is the per-message WebSocket write deadline.
	// Default: 10s.
	WriteTimeout time.Duration

	// PingInterval is how often the server pings streaming connections.
	// A connection that misses pongs for ~2 intervals is considered dead.
	// Default: 25s (matching the original wire behavior).
	PingInterval time.Duration

	// MessageRate caps inbound streaming messages per connection per
	// second. Over-limit messages get an error reply; the connection
	// stays open. Default: 100.
	MessageRate rate.Limit

	// MessageBurst is the rate limiter burst size. Default: 200.
	MessageBurst int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SendBuffer:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 25 * time.Second,
		MessageRate:  100,
		MessageBurst: 200,
	}
}

// Service wires the Secret Gate, the Operation Engine and the Watch
// Registry over one item store.
//
// Thread Safety: safe for concurrent use; any number of goroutines may call
// Perform, Snapshot and the registry methods simultaneously.
type Service struct {
	config   ServiceConfig
	store    storage.Store
	locks    *keyedMutex
	gate     *SecretGate
	registry *Registry
}

// NewService creates a register service over the given store.
func NewService(store storage.Store, cfg ServiceConfig) *Service {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = 100
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 200
	}

	locks := newKeyedMutex()
	return &Service{
		config:   cfg,
		store:    store,
		locks:    locks,
		gate:     NewSecretGate(store, locks),
		registry: NewRegistry(),
	}
}

// Gate returns the service's secret gate.
func (s *Service) Gate() *SecretGate {
	return s.gate
}

// Registry returns the service's watch registry.
func (s *Service) Registry() *Registry {
	return s.registry
}
