// Package metrics exposes the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealtrack_records_created_total",
		Help: "Records created by meal type",
	}, []string{"meal"})

	invalidRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mealtrack_invalid_records_total",
		Help: "Records created with a negative calorie amount",
	})

	createFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealtrack_record_create_failures_total",
		Help: "Rejected record submissions by reason",
	}, []string{"reason"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealtrack_events_published_total",
		Help: "Record events handed to the broker by outcome",
	}, []string{"outcome"})

	viewCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealtrack_view_cache_lookups_total",
		Help: "View cache lookups by view and result",
	}, []string{"view", "result"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealtrack_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mealtrack_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"route"})
)

// Failure reasons for RecordCreateFailed.
const (
	ReasonValidation = "validation"
	ReasonDate       = "invalid_date"
	ReasonBody       = "bad_body"
)

// RecordCreated counts a stored record.
func RecordCreated(meal string, invalid bool) {
	recordsCreated.WithLabelValues(meal).Inc()
	if invalid {
		invalidRecords.Inc()
	}
}

// RecordCreateFailed counts a rejected submission.
func RecordCreateFailed(reason string) {
	createFailures.WithLabelValues(reason).Inc()
}

// EventPublished counts a publish attempt.
func EventPublished(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventsPublished.WithLabelValues(outcome).Inc()
}

// CacheLookup counts a view cache hit or miss.
func CacheLookup(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	viewCacheLookups.WithLabelValues(view, result).Inc()
}

// HTTPRequest records one served request.
func HTTPRequest(route, method string, code int, d time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
