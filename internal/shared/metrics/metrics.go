package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	applicationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrm_applications_created_total",
			Help: "Applications submitted, by application type",
		},
		[]string{"type"},
	)

	stageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrm_stage_transitions_total",
			Help: "Stage actions by action and outcome (ok, conflict, error)",
		},
		[]string{"action", "outcome"},
	)

	ledgerPostingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrm_leave_ledger_postings_total",
			Help: "Leave ledger entries appended, by entry type",
		},
		[]string{"type"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrm_notifications_total",
			Help: "Notification jobs by outcome (sent, failed, dropped)",
		},
		[]string{"event", "outcome"},
	)

	notificationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hrm_notification_queue_depth",
			Help: "Jobs waiting in the notification queue",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		applicationsCreatedTotal,
		stageTransitionsTotal,
		ledgerPostingsTotal,
		notificationsTotal,
		notificationQueueDepth,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func RecordApplicationCreated(applicationType string) {
	applicationsCreatedTotal.WithLabelValues(applicationType).Inc()
}

func RecordStageTransition(action, outcome string) {
	stageTransitionsTotal.WithLabelValues(action, outcome).Inc()
}

func RecordLedgerPosting(entryType string) {
	ledgerPostingsTotal.WithLabelValues(entryType).Inc()
}

func RecordNotification(event, outcome string) {
	notificationsTotal.WithLabelValues(event, outcome).Inc()
}

func SetNotificationQueueDepth(n int) {
	notificationQueueDepth.Set(float64(n))
}
