// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"hash/fnv"
	"sync"
)

const keyLockShards = 64

// keyedMutex serializes work per item key using a fixed pool of sharded
// mutexes. Two different keys may share a shard; that only costs contention,
// never correctness. Memory stays bounded regardless of how many item keys
// the process ever touches.
//
// This is the consistency-critical primitive for the secret claim and the
// mutate-then-notify sequence: both must hold the item's lock end to end.
type keyedMutex struct {
	shards [keyLockShards]sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{}
}

// Lock acquires the mutex for key and returns its unlock function.
func (m *keyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &m.shards[h.Sum32()%keyLockShards]
	mu.Lock()
	return mu.Unlock
}
