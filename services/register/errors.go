// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import "errors"

// Sentinel errors for the register service.
var (
	// ErrUnauthorized indicates a secret mismatch, or a streaming command
	// targeting an item the connection never opened.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates a read or clear on an item with no value.
	ErrNotFound = errors.New("not found")

	// ErrNoValue indicates a set/append command without an accompanying value.
	ErrNoValue = errors.New("no value")

	// ErrUnknownCommand indicates an unrecognized streaming command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingItem indicates a request that names no item.
	ErrMissingItem = errors.New("missing item")
)
