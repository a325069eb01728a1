package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_connections_total",
		Help: "Accepted WebSocket connections by server role.",
	}, []string{"role"})

	metricActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxy_active_connections",
		Help: "Currently spliced WebSocket connections.",
	})

	metricFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_frames_total",
		Help: "Binary frames of lobby and game connections passed to the hook, by role and direction.",
	}, []string{"role", "direction"})

	metricFramesRewritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_frames_rewritten_total",
		Help: "Frames re-encoded after a lobby rewrite policy ran on them.",
	}, []string{"role"})

	metricFramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_frames_dropped_total",
		Help: "Frames dropped by hook policy.",
	}, []string{"role"})

	metricParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_parse_failures_total",
		Help: "Frames that failed to decode or dispatch; still forwarded verbatim.",
	}, []string{"role"})

	metricHandshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_handshake_failures_total",
		Help: "Inbound or upstream WebSocket handshakes that failed.",
	})
)
