// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleHook serves the webhook variant at /hook/:secret.
//
// The caller-chosen path segment keys item "hook/<secret>" and doubles as
// the item's secret, so claim-on-first-write applies to hook items exactly
// like to regular ones. GET performs READ, DELETE performs CLEAR, any other
// method performs WRITE of the whole inbound payload augmented with a
// server "$timestamp" (unix millis). Responses are JSON-shaped.
func (h *Handlers) HandleHook(c *gin.Context) {
	secret := c.Param("secret")
	if secret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing secret"})
		return
	}
	item := "hook/" + secret

	var op Operation
	value := ""
	switch c.Request.Method {
	case http.MethodGet:
		op = OpRead
	case http.MethodDelete:
		op = OpClear
	default:
		op = OpWrite
		value = hookPayload(c)
	}

	res, err := h.svc.Perform(c.Request.Context(), item, op, secret, value)
	if err != nil {
		slog.Error("hook operation failed", "item", item, "operation", op.String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch res.Status {
	case StatusUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"$fired": false})
	default:
		if op == OpRead {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(res.Content))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// hookPayload builds the stored value: the inbound JSON object (or the raw
// body wrapped as {"payload": ...} when it isn't one) plus "$timestamp".
func hookPayload(c *gin.Context) string {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		body = nil
	}

	payload := make(map[string]any)
	if len(body) > 0 {
		if json.Unmarshal(body, &payload) != nil || payload == nil {
			payload = map[string]any{"payload": string(body)}
		}
	}
	payload["$timestamp"] = time.Now().UnixMilli()

	out, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(out)
}
