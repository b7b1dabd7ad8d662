package metrics

import (
	"Infinity/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsGenerated *prometheus.CounterVec
	feedbackTotal    *prometheus.CounterVec
	quotaRejected    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		signalsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinity_signals_generated_total",
				Help: "Total number of generated signals",
			},
			[]string{"asset", "direction"},
		),
		feedbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinity_signal_feedback_total",
				Help: "Total number of judged signals by outcome",
			},
			[]string{"asset", "outcome"},
		),
		quotaRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinity_quota_rejections_total",
				Help: "Cycle starts blocked by the tier quota",
			},
			[]string{"tier"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinity_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "infinity_last_price",
				Help: "Last simulated price for an asset",
			},
			[]string{"asset"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infinity_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignalGenerated(assetID string, direction models.Direction) {
	r.signalsGenerated.WithLabelValues(assetID, string(direction)).Inc()
}

func (r *Recorder) RecordFeedback(assetID string, outcome models.SignalStatus) {
	r.feedbackTotal.WithLabelValues(assetID, string(outcome)).Inc()
}

func (r *Recorder) RecordQuotaRejected(status models.UserStatus) {
	r.quotaRejected.WithLabelValues(string(status)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(assetID string, price float64) {
	r.lastPrice.WithLabelValues(assetID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordSignalGenerated(string, models.Direction) {}
func (Nop) RecordFeedback(string, models.SignalStatus)     {}
func (Nop) RecordQuotaRejected(models.UserStatus)          {}
func (Nop) RecordError(string)                             {}
func (Nop) RecordLastPrice(string, float64)                {}
func (Nop) RecordLatency(string, float64)                  {}
