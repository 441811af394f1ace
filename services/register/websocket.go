// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsConn adapts one gorilla websocket connection to the Subscriber
// interface. All writes go through a single pump goroutine; Send only
// queues, so fanout never blocks on a slow peer.
type wsConn struct {
	id        string
	ws        *websocket.Conn
	sendCh    chan any
	closeCh   chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, sendBuffer int) *wsConn {
	return &wsConn{
		id:      uuid.New().String(),
		ws:      ws,
		sendCh:  make(chan any, sendBuffer),
		closeCh: make(chan struct{}),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

// Send queues v for the write pump. Returns false when the connection is
// closed or the queue is full; the caller treats that as a dead subscriber.
func (c *wsConn) Send(v any) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}
	select {
	case c.sendCh <- v:
		return true
	default:
		return false
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.ws.Close()
	})
}

// writePump is the single writer for the connection: outbound messages,
// periodic pings, and write deadlines all live here.
func (c *wsConn) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.closeCh:
			return
		case v := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(v); err != nil {
				slog.Debug("websocket write failed", "subscriber", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleInstantDB returns the gin handler for the streaming channel at
// /instant/db/: it upgrades the connection, runs the session state machine
// over inbound messages, and guarantees deregistration on every exit path
// (peer close, read error, liveness timeout, server shutdown).
func HandleInstantDB(svc *Service) gin.HandlerFunc {
	cfg := svc.config

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}

		conn := newWSConn(ws, cfg.SendBuffer)
		session := NewSession(svc, conn)
		connectionsGauge.Inc()
		slog.Info("streaming client connected", "subscriber", conn.ID())

		defer func() {
			session.Close()
			conn.close()
			connectionsGauge.Dec()
			slog.Info("streaming client disconnected", "subscriber", conn.ID())
		}()

		go conn.writePump(cfg.PingInterval, cfg.WriteTimeout)

		// Liveness: a peer that stops answering pings times the read out.
		readTimeout := 2*cfg.PingInterval + cfg.WriteTimeout
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		ws.SetPongHandler(func(string) error {
			ws.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		limiter := rate.NewLimiter(cfg.MessageRate, cfg.MessageBurst)
		ctx := c.Request.Context()

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				slog.Debug("streaming read ended", "subscriber", conn.ID(), "error", err)
				return
			}
			ws.SetReadDeadline(time.Now().Add(readTimeout))

			if !limiter.Allow() {
				conn.Send(wsError{Error: "rate limited"})
				continue
			}

			session.HandleMessage(ctx, raw)
		}
	}
}
