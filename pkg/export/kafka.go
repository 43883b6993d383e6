// Package export ships finalized customer details downstream. The Kafka
// sink publishes export events keyed by record id so consumers can upsert
// idempotently; the log sink backs local development.
package export

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// CustomerEvent is the export wire format.
type CustomerEvent struct {
	EventType  string                  `json:"event_type"`
	RecordID   string                  `json:"record_id"`
	CustomerID string                  `json:"customer_id"`
	Customer   *models.CustomerDetails `json:"customer"`
	Timestamp  time.Time               `json:"timestamp"`
}

// EventTypeFinalized marks a finalized customer export.
const EventTypeFinalized = "customer.finalized"

// KafkaSinkConfig holds Kafka producer configuration for the export sink.
type KafkaSinkConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// KafkaSink publishes finalized records to a Kafka topic.
type KafkaSink struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewKafkaSink creates the export producer.
func NewKafkaSink(cfg KafkaSinkConfig, logger ectologger.Logger) *KafkaSink {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &KafkaSink{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// Upsert publishes the customer details keyed by record id. Repeated
// exports of the same record id land on the same partition in order, so
// downstream upserts converge.
func (s *KafkaSink) Upsert(ctx context.Context, details *models.CustomerDetails) error {
	ctx, span := tracing.StartSpan(ctx, "export.KafkaSink.Upsert")
	defer span.End()

	event := CustomerEvent{
		EventType:  EventTypeFinalized,
		RecordID:   details.RecordID,
		CustomerID: details.CustomerID,
		Customer:   details,
		Timestamp:  time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(details.RecordID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "customer_id", Value: []byte(details.CustomerID)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordKafkaPublish(s.topic, "error")
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_id": details.RecordID,
		}).Error("Failed to publish customer export event")
		return err
	}

	metrics.RecordKafkaPublish(s.topic, "success")
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":   details.RecordID,
		"customer_id": details.CustomerID,
	}).Debug("Published customer export event")

	return nil
}
