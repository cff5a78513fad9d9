package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "siteauth"

var (
	// AuthEvents counts OAuth flow transitions: login, success, provider_error,
	// missing_code, auth_failed, logout.
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_events_total", Help: "OAuth flow events by outcome."},
		[]string{"event"},
	)
	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "sessions_created_total", Help: "Sessions persisted for the first time."},
	)
	SessionStoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "session_store_errors_total", Help: "Session store failures by operation."},
		[]string{"op"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AuthEvents, SessionsCreated, SessionStoreErrors, RateLimitAllowed, RateLimitRejected)
}
