// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"strings"
	"sync"
	"time"
)

// MessageLog is the plain append-only text log served next to the register.
// It shares no state with the item store: in-memory only, scoped to the
// process lifetime, emptied by Clear.
//
// Thread Safety: safe for concurrent use.
type MessageLog struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	at  time.Time
	msg string
}

// NewMessageLog creates an empty message log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Append records msg with the current timestamp.
func (l *MessageLog) Append(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{at: time.Now(), msg: msg})
}

// Clear empties the log.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Dump renders the log as one "timestamp: message" line per entry.
func (l *MessageLog) Dump() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := make([]string, len(l.entries))
	for i, e := range l.entries {
		lines[i] = e.at.Format("2006-01-02 15:04:05.000000") + ": " + e.msg
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of logged messages.
func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
