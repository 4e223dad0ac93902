package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sparkchat_ws_connections",
		Help: "Live websocket connections.",
	})
	eventsInCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparkchat_ws_events_in_total",
		Help: "Inbound websocket events by type.",
	}, []string{"event"})
	eventsOutCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparkchat_ws_events_out_total",
		Help: "Outbound websocket events by type.",
	}, []string{"event"})
	droppedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkchat_ws_dropped_total",
		Help: "Outbound events dropped because a client send buffer was full.",
	})
)
