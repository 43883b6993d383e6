// Package pipeline ties extraction, aggregation, storage, and export
// together. One Pipeline instance serves every ingest path (Kafka, HTTP,
// sweep).
package pipeline

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/extract"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Sink receives finalized customer details. Upsert must tolerate repeated
// deliveries of the same record id.
type Sink interface {
	Upsert(ctx context.Context, details *models.CustomerDetails) error
}

// Config holds the pipeline thresholds.
type Config struct {
	// Cooldown finalizes any record untouched for this long.
	Cooldown time.Duration
	// FinalizeAfterBoth finalizes a complete record whose fields have been
	// quiet for this long.
	FinalizeAfterBoth time.Duration
	// CompleteIdle finalizes a complete record with no traffic at all for
	// this long.
	CompleteIdle time.Duration
	// MinConfidence is the floor below which a message is dropped without
	// touching the store.
	MinConfidence float64
	// ImmediateConfidence short-circuits the quiet periods: a message at or
	// above it finalizes a complete record on the spot.
	ImmediateConfidence float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Cooldown:            90 * time.Second,
		FinalizeAfterBoth:   20 * time.Second,
		CompleteIdle:        30 * time.Second,
		MinConfidence:       0.1,
		ImmediateConfidence: 0.8,
	}
}

// Pipeline processes chat messages into finalized customer exports.
type Pipeline struct {
	extractor *extract.Extractor
	store     store.Store
	sink      Sink
	config    Config
	logger    ectologger.Logger
	now       func() time.Time
}

// New creates a Pipeline. Zero thresholds in cfg fall back to the
// defaults.
func New(extractor *extract.Extractor, recordStore store.Store, sink Sink, cfg Config, logger ectologger.Logger) *Pipeline {
	defaults := DefaultConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.FinalizeAfterBoth <= 0 {
		cfg.FinalizeAfterBoth = defaults.FinalizeAfterBoth
	}
	if cfg.CompleteIdle <= 0 {
		cfg.CompleteIdle = defaults.CompleteIdle
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaults.MinConfidence
	}
	if cfg.ImmediateConfidence <= 0 {
		cfg.ImmediateConfidence = defaults.ImmediateConfidence
	}

	return &Pipeline{
		extractor: extractor,
		store:     recordStore,
		sink:      sink,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Pipeline) policy() models.FinalizePolicy {
	return models.FinalizePolicy{
		Cooldown:          p.config.Cooldown,
		FinalizeAfterBoth: p.config.FinalizeAfterBoth,
		CompleteIdle:      p.config.CompleteIdle,
	}
}

// ProcessMessage ingests one chat message for the customer, stamped with
// the current time.
func (p *Pipeline) ProcessMessage(ctx context.Context, customerID, text string) error {
	return p.ProcessMessageAt(ctx, customerID, text, p.now())
}

// ProcessMessageAt ingests one chat message with an explicit timestamp.
// Extraction cannot fail; a message below the confidence floor is
// dropped. Store errors propagate to the caller so transports can decide
// whether to redeliver.
func (p *Pipeline) ProcessMessageAt(ctx context.Context, customerID, text string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.ProcessMessage")
	defer span.End()

	parsed := p.extractor.Extract(text)

	if parsed.Confidence < p.config.MinConfidence {
		metrics.RecordMessage("skipped", parsed.Confidence)
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"confidence":  parsed.Confidence,
		}).Debug("Message below confidence floor, skipping")
		return nil
	}

	record, err := p.store.Get(ctx, customerID)
	if err != nil {
		metrics.RecordMessage("store_error", parsed.Confidence)
		return err
	}

	isNew := record == nil
	if isNew {
		record = models.NewAggregationRecord(customerID, at)
	}

	changed := record.Merge(parsed, at)

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id":   customerID,
		"is_new":        isNew,
		"field_changed": changed,
		"confidence":    parsed.Confidence,
	}).Debug("Merged message into aggregation record")

	if record.HasMinimumData() && parsed.Confidence >= p.config.ImmediateConfidence {
		metrics.RecordMessage("finalized", parsed.Confidence)
		return p.finalize(ctx, record, at, "immediate")
	}

	if record.ShouldFinalize(p.policy(), at) {
		metrics.RecordMessage("finalized", parsed.Confidence)
		return p.finalize(ctx, record, at, "timing")
	}

	if err := p.store.Set(ctx, customerID, record); err != nil {
		metrics.RecordMessage("store_error", parsed.Confidence)
		return err
	}

	metrics.RecordMessage("merged", parsed.Confidence)
	return nil
}

// ForceFinalize exports whatever is pending for the customer regardless
// of timing rules. Returns false when nothing is pending.
func (p *Pipeline) ForceFinalize(ctx context.Context, customerID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.ForceFinalize")
	defer span.End()

	record, err := p.store.Get(ctx, customerID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	if err := p.finalize(ctx, record, p.now(), "forced"); err != nil {
		return false, err
	}
	return true, nil
}

// Sweep revisits every pending record, finalizes the ones whose timing
// rules pass, and evicts stale leftovers. Per-record failures are logged
// and skipped so one bad record cannot stall the rest.
func (p *Pipeline) Sweep(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Sweep")
	defer span.End()

	now := p.now()

	if lister, ok := p.store.(store.Lister); ok {
		customerIDs, err := lister.Keys(ctx)
		if err != nil {
			return err
		}

		for _, customerID := range customerIDs {
			record, err := p.store.Get(ctx, customerID)
			if err != nil {
				p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"customer_id": customerID,
				}).Warn("Sweep failed to load record")
				continue
			}
			if record == nil || !record.ShouldFinalize(p.policy(), now) {
				continue
			}
			if err := p.finalize(ctx, record, now, "sweep"); err != nil {
				p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"customer_id": customerID,
				}).Warn("Sweep failed to finalize record")
			}
		}
	}

	expired, err := p.store.CleanupStale(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		metrics.RecordsExpired.Add(float64(expired))
		p.logger.WithContext(ctx).WithFields(map[string]any{"expired": expired}).Info("Evicted stale aggregation records")
	}
	return nil
}

// finalize exports the record and deletes it from the store. On sink
// failure the record is written back so the export can be retried; the
// deterministic record id keeps the retry idempotent.
func (p *Pipeline) finalize(ctx context.Context, record *models.AggregationRecord, at time.Time, trigger string) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.finalize")
	defer span.End()

	details := record.ToCustomerDetails(at)

	if err := p.sink.Upsert(ctx, details); err != nil {
		metrics.ExportFailures.Inc()
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": record.CustomerID,
			"record_id":   details.RecordID,
		}).Error("Export failed, retaining record for retry")

		if setErr := p.store.Set(ctx, record.CustomerID, record); setErr != nil {
			p.logger.WithContext(ctx).WithError(setErr).WithFields(map[string]any{
				"customer_id": record.CustomerID,
			}).Error("Failed to retain record after export failure")
			return setErr
		}
		return err
	}

	if err := p.store.Delete(ctx, record.CustomerID); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": record.CustomerID,
		}).Warn("Failed to delete record after export")
		return err
	}

	metrics.RecordFinalize(trigger)
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": record.CustomerID,
		"record_id":   details.RecordID,
		"trigger":     trigger,
	}).Info("Customer record exported")
	return nil
}
