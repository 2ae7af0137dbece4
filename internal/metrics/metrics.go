package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for announcement selection and administration.
type Metrics struct {
	CurrentQueryDuration *prometheus.HistogramVec
	CurrentResultSize    prometheus.Histogram
	AnnouncementsCreated prometheus.Counter
	Dismissals           *prometheus.CounterVec
	NotificationsSent    prometheus.Counter
	HTTPRequests         *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CurrentQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "announcements_current_query_duration_seconds",
			Help:    "Duration of current-announcement selection by viewer kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"viewer"}),
		CurrentResultSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "announcements_current_result_size",
			Help:    "Number of announcements returned by a current-announcement query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		}),
		AnnouncementsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "announcements_created_total",
			Help: "Total number of announcements created",
		}),
		Dismissals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "announcements_dismissals_total",
			Help: "Total number of dismissals by viewer kind",
		}, []string{"viewer"}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "announcements_notifications_sent_total",
			Help: "Total number of announcement emails handed to the mailer",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "announcements_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "announcements_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveCurrent records the duration and size of a current-announcement query.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCurrent(viewer string, start time.Time, results int) {
	m.CurrentQueryDuration.WithLabelValues(viewer).Observe(time.Since(start).Seconds())
	m.CurrentResultSize.Observe(float64(results))
}

// IncrementCreated records a successful announcement creation.
func (m *Metrics) IncrementCreated() {
	m.AnnouncementsCreated.Inc()
}

// IncrementDismissals records a dismissal by the given viewer kind.
func (m *Metrics) IncrementDismissals(viewer string) {
	m.Dismissals.WithLabelValues(viewer).Inc()
}

// AddNotificationsSent records n announcement emails sent.
func (m *Metrics) AddNotificationsSent(n int) {
	m.NotificationsSent.Add(float64(n))
}

// ObserveRequest records a served HTTP request. route should be the matched pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
