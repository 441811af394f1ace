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
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handlers contains the HTTP handlers for the register service.
type Handlers struct {
	svc    *Service
	msgLog *MessageLog
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc:    svc,
		msgLog: NewMessageLog(),
	}
}

// MessageLog returns the handlers' message log.
func (h *Handlers) MessageLog() *MessageLog {
	return h.msgLog
}

// requestFields merges request parameters from the query string, an
// urlencoded form body and a JSON body into one string map. Later sources
// win, so a JSON field overrides the same query parameter.
func requestFields(c *gin.Context) map[string]string {
	fields := make(map[string]string)

	for k, vs := range c.Request.URL.Query() {
		v := ""
		if len(vs) > 0 {
			v = vs[0]
		}
		fields[k] = v
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		return fields
	}

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if form, err := url.ParseQuery(string(body)); err == nil {
			for k, vs := range form {
				v := ""
				if len(vs) > 0 {
					v = vs[0]
				}
				fields[k] = v
			}
		}
	}

	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		for k, v := range m {
			fields[k] = fieldString(v)
		}
	}

	return fields
}

// fieldString renders a decoded JSON value as the opaque string the store
// keeps. Values are opaque strings end to end; structured JSON is stored in
// its serialized form.
func fieldString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// HandleDB serves /db/ and /db/:item.
//
// READ by default; WRITE when a "value" field is present (APPEND when an
// "append" flag accompanies it); DELETE performs CLEAR. The optional
// "password" field carries the secret. Replies are plain text:
// the value for READ, the removed value for CLEAR, "ok" for WRITE/APPEND.
func (h *Handlers) HandleDB(c *gin.Context) {
	fields := requestFields(c)

	item := c.Param("item")
	if item == "" {
		item = fields["item"]
	}
	if item == "" {
		c.String(http.StatusBadRequest, "missing item")
		return
	}

	secret := fields["password"]

	op := OpRead
	value := ""
	if c.Request.Method == http.MethodDelete {
		op = OpClear
	} else if v, ok := fields["value"]; ok {
		op = OpWrite
		value = v
		if _, ok := fields["append"]; ok {
			op = OpAppend
		}
	}

	res, err := h.svc.Perform(c.Request.Context(), item, op, secret, value)
	if err != nil {
		slog.Error("db operation failed", "item", item, "operation", op.String(), "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	switch res.Status {
	case StatusUnauthorized:
		c.String(http.StatusUnauthorized, "unauthorized")
	case StatusNotFound:
		c.String(http.StatusNotFound, "")
	default:
		switch op {
		case OpRead, OpClear:
			c.String(http.StatusOK, res.Content)
		default:
			c.String(http.StatusOK, "ok")
		}
	}
}

// HandleRoot serves the message log: GET lists it, POST appends the "msg"
// field first.
func (h *Handlers) HandleRoot(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		msg, ok := requestFields(c)["msg"]
		if !ok {
			c.String(http.StatusBadRequest, "missing msg")
			return
		}
		h.msgLog.Append(msg)
	}
	c.String(http.StatusOK, h.msgLog.Dump())
}

// HandleLogMessage serves /log/:msg, appending the path segment to the log.
func (h *Handlers) HandleLogMessage(c *gin.Context) {
	h.msgLog.Append(c.Param("msg"))
	c.String(http.StatusOK, "ok")
}

// HandleLogClear serves /clear, emptying the message log.
func (h *Handlers) HandleLogClear(c *gin.Context) {
	h.msgLog.Clear()
	c.String(http.StatusOK, "ok")
}
