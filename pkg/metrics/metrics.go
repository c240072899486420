package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	AuditRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saraban_audit_records_total",
			Help: "Audit log writes by outcome",
		},
		[]string{"action", "outcome"}, // outcome: ok, failed
	)

	CodeAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saraban_code_allocations_total",
			Help: "Project code allocations by type tag and outcome",
		},
		[]string{"type", "outcome"}, // outcome: ok, conflict, exhausted
	)

	NotificationCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saraban_notification_cache_total",
			Help: "Notification feed cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)

	RelayDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saraban_relay_deliveries_total",
			Help: "Audit events forwarded to the webhook",
		},
		[]string{"outcome"}, // delivered, duplicate, retry, dead_letter, skipped
	)

	RelayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "saraban_relay_latency_ms",
			Help:    "Webhook call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
	)

	RelayBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "saraban_relay_breaker_state",
			Help: "Webhook circuit breaker state (0 closed, 1 open, 2 half open)",
		},
	)

	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"statement"},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~25s
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementAuditRecord(action, outcome string) {
	AuditRecords.WithLabelValues(action, outcome).Inc()
}

func IncrementCodeAllocation(typeTag, outcome string) {
	CodeAllocations.WithLabelValues(typeTag, outcome).Inc()
}

func IncrementNotificationCache(result string) {
	NotificationCache.WithLabelValues(result).Inc()
}

func IncrementRelayDelivery(outcome string) {
	RelayDeliveries.WithLabelValues(outcome).Inc()
}

func RecordRelayLatency(duration time.Duration) {
	RelayLatency.Observe(float64(duration.Milliseconds()))
}

func SetRelayBreakerState(state int) {
	RelayBreakerState.Set(float64(state))
}

// IncrementSlowQuery counts a slow statement. Only the leading keyword is
// used as a label to keep cardinality bounded.
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueries.WithLabelValues(statementKind(sql)).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
