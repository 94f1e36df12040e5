package telemetry

import (
	"time"

	"github.com/medcoding/api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes recorded by ObservePrediction.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCached  = "cached"
)

// Metrics holds the Prometheus collectors for the prediction pipeline.
type Metrics struct {
	predictions    *prometheus.CounterVec
	duration       prometheus.Histogram
	predictedCodes *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcoding",
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medcoding",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent producing predictions.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		predictedCodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcoding",
			Name:      "predicted_codes_total",
			Help:      "Codes returned to clients by code type.",
		}, []string{"code_type"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcoding",
			Name:      "cache_lookups_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
	}
}

// ObservePrediction records one finished prediction request.
func (m *Metrics) ObservePrediction(outcome string, elapsed time.Duration, predictions []models.CodePrediction) {
	m.predictions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	for _, p := range predictions {
		m.predictedCodes.WithLabelValues(string(p.CodeType)).Inc()
	}
}

// ObserveCacheLookup records a cache hit, miss or error.
func (m *Metrics) ObserveCacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}
