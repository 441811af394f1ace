// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts item operations by operation and outcome.
	// Labels: operation (read, write, append, clear), status (ok,
	// unauthorized, not_found)
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "httpdb",
		Subsystem: "register",
		Name:      "operations_total",
		Help:      "Total item operations by operation and status",
	}, []string{"operation", "status"})

	// notificationsTotal counts fanout deliveries.
	// Labels: result (delivered, dropped)
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "httpdb",
		Subsystem: "register",
		Name:      "notifications_total",
		Help:      "Total change notifications by delivery result",
	}, []string{"result"})

	// watchersGauge tracks live (item, subscriber) watch registrations.
	watchersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "httpdb",
		Subsystem: "register",
		Name:      "watchers",
		Help:      "Current number of live watch registrations",
	})

	// connectionsGauge tracks live streaming connections.
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "httpdb",
		Subsystem: "register",
		Name:      "connections",
		Help:      "Current number of live streaming connections",
	})
)
