package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qrpay_sessions_active",
		Help: "Payment sessions started and not yet stopped",
	})

	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrpay_session_reconnect_attempts_total",
		Help: "Scheduled reconnections after abnormal closures",
	})

	Outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrpay_session_outcomes_total",
		Help: "Terminal payment outcomes, labeled by outcome and source",
	}, []string{"outcome", "source"})

	InboundFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrpay_session_inbound_frames_total",
		Help: "Decoded inbound frames by type",
	}, []string{"type"})

	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrpay_session_malformed_frames_total",
		Help: "Inbound frames that failed to decode",
	})

	PingsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrpay_session_pings_sent_total",
		Help: "Keepalive pings written to the socket",
	})

	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrpay_http_requests_total",
		Help: "HTTP requests processed, labeled by route and status code",
	}, []string{"method", "route", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qrpay_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})
)
