package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Requests rejected by the per-user rate limiter",
		},
	)

	// Cache-aside, label cache = roster | member | chat
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_hits_total",
			Help: "Cache-aside hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_misses_total",
			Help: "Cache-aside misses served from the repository",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_errors_total",
			Help: "Cache operations that failed open",
		},
		[]string{"op"},
	)

	// Fanout
	FanoutEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_enqueued_total",
			Help: "Envelopes accepted by the broadcast gateway",
		},
		[]string{"event"},
	)

	FanoutDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_dropped_total",
			Help: "Envelopes dropped because a shard queue was full or closed",
		},
		[]string{"event"},
	)

	FanoutFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_failed_total",
			Help: "Envelopes the broker failed to publish",
		},
		[]string{"event"},
	)

	FramesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_frames_delivered_total",
			Help: "Frames written to local connection buffers",
		},
	)

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections_active",
			Help: "Open websocket connections on this node",
		},
	)

	// Business
	MessagesInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_inserted_total",
			Help: "Messages persisted",
		},
		[]string{"type"}, // normal | notification
	)

	ChatsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_chats_created_total",
			Help: "Chats created",
		},
		[]string{"type"}, // p2p | group
	)
)
