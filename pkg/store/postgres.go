package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Postgres is the durable backend, layered on the pendingrecord
// repository. Expiry is lazy: CleanupStale issues a ranged delete.
type Postgres struct {
	repo   *pendingrecord.Repository
	ttl    time.Duration
	logger ectologger.Logger
	now    func() time.Time
}

// NewPostgres returns a Postgres-backed store evicting records untouched
// for ttl.
func NewPostgres(repo *pendingrecord.Repository, ttl time.Duration, logger ectologger.Logger) *Postgres {
	return &Postgres{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Postgres) Get(ctx context.Context, customerID string) (*models.AggregationRecord, error) {
	defer metrics.ObserveStoreOperation("get", time.Now())

	payload, err := p.repo.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var record models.AggregationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
		}).Warn("Discarding corrupt aggregation record payload")
		return nil, nil
	}
	return &record, nil
}

func (p *Postgres) Set(ctx context.Context, customerID string, record *models.AggregationRecord) error {
	defer metrics.ObserveStoreOperation("set", time.Now())

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.repo.Upsert(ctx, customerID, payload, record.LastUpdate)
}

func (p *Postgres) Delete(ctx context.Context, customerID string) error {
	defer metrics.ObserveStoreOperation("delete", time.Now())

	return p.repo.Delete(ctx, customerID)
}

func (p *Postgres) CleanupStale(ctx context.Context) (int, error) {
	deleted, err := p.repo.DeleteStale(ctx, p.now().Add(-p.ttl))
	return int(deleted), err
}

func (p *Postgres) Keys(ctx context.Context) ([]string, error) {
	return p.repo.Keys(ctx)
}
