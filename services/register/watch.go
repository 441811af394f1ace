// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"log/slog"
	"sync"
)

// Subscriber is a live streaming connection handle that can accept outbound
// messages without blocking.
//
// Send must never block: it queues v for delivery and returns false when the
// connection is dead or its outbound queue is full. A false return tells the
// registry to evict the subscriber.
type Subscriber interface {
	// ID returns a process-unique connection identifier.
	ID() string

	// Send queues an outbound JSON-serializable message.
	Send(v any) bool
}

// Registry is the process-wide mapping from item name to the set of live
// subscribers watching it.
//
// Thread Safety: safe for concurrent use. Notify iterates a snapshot of the
// watch set, so registrations and deregistrations may proceed concurrently.
type Registry struct {
	mu sync.Mutex

	// watches maps item name → subscriber ID → subscriber.
	watches map[string]map[string]Subscriber

	// items is the reverse index: subscriber ID → watched item names.
	// Keeps Deregister O(items watched) instead of O(all items).
	items map[string]map[string]struct{}
}

// NewRegistry creates an empty watch registry.
func NewRegistry() *Registry {
	return &Registry{
		watches: make(map[string]map[string]Subscriber),
		items:   make(map[string]map[string]struct{}),
	}
}

// Register adds sub to the watch set for item. Idempotent: registering an
// already-watching subscriber is a no-op.
func (r *Registry) Register(item string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.watches[item]
	if !ok {
		set = make(map[string]Subscriber)
		r.watches[item] = set
	}
	if _, exists := set[sub.ID()]; exists {
		return
	}
	set[sub.ID()] = sub

	rev, ok := r.items[sub.ID()]
	if !ok {
		rev = make(map[string]struct{})
		r.items[sub.ID()] = rev
	}
	rev[item] = struct{}{}

	watchersGauge.Inc()
}

// Deregister removes sub from every watch set it belongs to. Called on every
// connection-termination path; safe to call for a subscriber that was never
// registered.
func (r *Registry) Deregister(sub Subscriber) {
	r.deregisterID(sub.ID())
}

func (r *Registry) deregisterID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, ok := r.items[id]
	if !ok {
		return
	}
	for item := range rev {
		set := r.watches[item]
		delete(set, id)
		if len(set) == 0 {
			delete(r.watches, item)
		}
		watchersGauge.Dec()
	}
	delete(r.items, id)
}

// Notify delivers {item, content, exists} to every subscriber currently
// watching item. Best-effort: a failed delivery never affects the others and
// never surfaces to the caller; the failing subscriber is evicted
// asynchronously.
func (r *Registry) Notify(item string, content *string, exists bool) {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.watches[item]))
	for _, sub := range r.watches[item] {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	state := ItemState{Item: item, Content: content, Exists: exists}
	for _, sub := range subs {
		if sub.Send(state) {
			notificationsTotal.WithLabelValues("delivered").Inc()
			continue
		}
		notificationsTotal.WithLabelValues("dropped").Inc()
		slog.Debug("evicting unresponsive watcher", "item", item, "subscriber", sub.ID())
		go r.deregisterID(sub.ID())
	}
}

// WatcherCount returns the number of subscribers currently watching item.
func (r *Registry) WatcherCount(item string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watches[item])
}
