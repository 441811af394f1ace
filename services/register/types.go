// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"github.com/go-playground/validator/v10"
)

// Operation is one of the four item operations.
type Operation int

const (
	OpRead Operation = iota + 1
	OpWrite
	OpAppend
	OpClear
)

// String returns the lowercase operation name, used in logs and metrics.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpAppend:
		return "append"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Status is the outcome of an item operation.
type Status int

const (
	StatusOK Status = iota + 1
	StatusUnauthorized
	StatusNotFound
)

// String returns the lowercase status name, used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Result is the outcome of an Operation Engine call.
//
// For READ, Content is the current value. For CLEAR, Content is the value
// that was removed (documented policy choice: clears report the prior
// value). For WRITE/APPEND, Content is the committed value.
type Result struct {
	Status  Status
	Content string
	Exists  bool
}

// ItemState is the outbound snapshot/notification message on the streaming
// channel: the item's current value and whether it exists. Content is null
// when Exists is false.
type ItemState struct {
	Item    string  `json:"item"`
	Content *string `json:"content"`
	Exists  bool    `json:"exists"`
}

// wsRequest is an inbound streaming message.
type wsRequest struct {
	Command string `json:"command" validate:"required"`
	Item    string `json:"item" validate:"required"`
	Data    wsData `json:"data"`
}

// wsData carries the optional command payload: the secret on open, the
// value on set/append. Pointers distinguish absent from empty.
type wsData struct {
	Secret *string `json:"secret"`
	Value  *string `json:"value"`
}

// wsError is an outbound error message.
type wsError struct {
	Error string `json:"error"`
}

// wsEvent is an outbound event message (currently only "pong").
type wsEvent struct {
	Event string `json:"event"`
	Data  int64  `json:"data"`
}

// wsValidate validates inbound streaming messages.
var wsValidate *validator.Validate

func init() {
	wsValidate = validator.New()
}
