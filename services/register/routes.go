// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all register service routes with the router.
//
// Description:
//
//	Registers the item, webhook, message log, streaming and metrics
//	endpoints. Paths match the original wire surface, so existing clients
//	keep working unchanged.
//
// Inputs:
//
//	r - Gin engine
//	handlers - The handlers instance
//
// Item Endpoints:
//
//	GET/POST/PUT  /db/  - item operation, item named in request fields
//	GET/POST/PUT  /db/:item - READ, or WRITE/APPEND when a value is given
//	DELETE        /db/:item - CLEAR
//
// Webhook Endpoints:
//
//	ANY  /hook/:secret - READ on GET, CLEAR on DELETE, WRITE otherwise
//
// Message Log Endpoints:
//
//	GET  / - list logged messages
//	POST / - append the "msg" field, then list
//	GET  /log/:msg - append the path segment
//	GET  /clear - empty the log
//
// Streaming Endpoint:
//
//	GET  /instant/db/ - WebSocket streaming channel
//
// Observability:
//
//	GET  /metrics - Prometheus metrics
func RegisterRoutes(r *gin.Engine, handlers *Handlers) {
	r.GET("/", handlers.HandleRoot)
	r.POST("/", handlers.HandleRoot)
	r.GET("/clear", handlers.HandleLogClear)
	r.GET("/log/:msg", handlers.HandleLogMessage)

	db := []string{"GET", "POST", "PUT", "DELETE"}
	for _, method := range db {
		r.Handle(method, "/db/", handlers.HandleDB)
		r.Handle(method, "/db/:item", handlers.HandleDB)
	}

	r.Any("/hook/:secret", handlers.HandleHook)

	r.GET("/instant/db/", HandleInstantDB(handlers.svc))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
