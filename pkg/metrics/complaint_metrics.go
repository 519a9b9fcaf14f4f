// Package metrics exposes prometheus collectors for complaint intake.
package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classifier names used as label values
const (
	ClassifierSentiment = "sentiment"
	ClassifierCategory  = "category"
)

// Classifier outcomes
const (
	OutcomeOK          = "ok"
	OutcomeFallback    = "fallback"     // upstream answered but the label was unusable
	OutcomeError       = "error"        // transport error or non-2xx
	OutcomeTimeout     = "timeout"
	OutcomeCircuitOpen = "circuit_open"
)

var (
	ClassifierRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_classifier_requests_total",
		Help: "Classifier calls by classifier and outcome",
	}, []string{"classifier", "outcome"})

	ClassifierDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "complaint_classifier_duration_seconds",
		Help:    "Classifier call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"classifier"})

	ComplaintsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_created_total",
		Help: "Complaints created by sentiment and category",
	}, []string{"sentiment", "category"})

	ComplaintsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "complaint_closed_total",
		Help: "Complaints closed",
	})

	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_event_publish_failures_total",
		Help: "Lifecycle events that could not be published",
	}, []string{"type"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_events_consumed_total",
		Help: "Lifecycle events processed by the audit consumer",
	}, []string{"type"})
)

// ObserveClassifier records one classifier call.
func ObserveClassifier(classifier, outcome string, d time.Duration) {
	ClassifierRequests.WithLabelValues(classifier, outcome).Inc()
	ClassifierDuration.WithLabelValues(classifier).Observe(d.Seconds())
}

// RegisterDBPool exports database/sql pool statistics under the given name.
// Registering the same name twice is a no-op.
func RegisterDBPool(name string, db *sql.DB) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
