package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uconnect",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "uconnect",
		Name:      "sessions_expired_total",
		Help:      "Session rows removed after expiry.",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "uconnect",
		Name:      "chat_messages_sent_total",
		Help:      "Chat messages persisted.",
	})

	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uconnect",
		Name:      "chat_notifications_total",
		Help:      "Chat notification deliveries by result.",
	}, []string{"result"})

	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "uconnect",
		Name:      "websocket_connections",
		Help:      "Open chat websocket connections.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uconnect",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status class.",
	}, []string{"method", "status"})
)
