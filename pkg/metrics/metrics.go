// Package metrics provides Prometheus metrics for the clover service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesIngested tracks processed messages by outcome
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "messages_total",
			Help:      "Total number of ingested messages by outcome",
		},
		[]string{"outcome"},
	)

	// ExtractionConfidence tracks the confidence distribution of extractions
	ExtractionConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "extract",
			Name:      "confidence",
			Help:      "Confidence score distribution of message extractions",
			Buckets:   []float64{0.1, 0.2, 0.4, 0.6, 0.8, 1.0},
		},
	)

	// RecordsFinalized tracks finalized records by trigger
	RecordsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "records_finalized_total",
			Help:      "Total number of records finalized by trigger",
		},
		[]string{"trigger"},
	)

	// ExportFailures tracks failed sink deliveries
	ExportFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "export",
			Name:      "failures_total",
			Help:      "Total number of failed export deliveries",
		},
	)

	// RecordsExpired tracks records evicted without finalizing
	RecordsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "store",
			Name:      "records_expired_total",
			Help:      "Total number of pending records evicted as stale",
		},
	)

	// StoreOperationDuration tracks store operation duration
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"operation"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordMessage records one processed message outcome
func RecordMessage(outcome string, confidence float64) {
	MessagesIngested.WithLabelValues(outcome).Inc()
	ExtractionConfidence.Observe(confidence)
}

// RecordFinalize records one finalized record
func RecordFinalize(trigger string) {
	RecordsFinalized.WithLabelValues(trigger).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// ObserveStoreOperation records the elapsed time of a store operation.
// Intended for use with defer:
//
//	defer metrics.ObserveStoreOperation("get", time.Now())
func ObserveStoreOperation(operation string, start time.Time) {
	StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
