// Package pendingrecord persists in-flight aggregation records to
// Postgres. The record itself travels as an opaque JSON payload; only the
// columns the store queries on are broken out.
package pendingrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Row is one persisted pending record.
type Row struct {
	CustomerID string          `db:"customer_id"`
	Record     json.RawMessage `db:"record"`
	LastUpdate time.Time       `db:"last_update"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// Repository handles pending record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pending record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the record payload for the customer, replacing any
// existing row.
func (r *Repository) Upsert(ctx context.Context, customerID string, record json.RawMessage, lastUpdate time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "pendingrecord.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("pending_records")
	sb.Cols("customer_id", "record", "last_update", "created_at", "updated_at")
	sb.Values(customerID, record, lastUpdate.UTC(), now, now)

	query, args := sb.Build()
	query += " ON CONFLICT (customer_id) DO UPDATE SET record = EXCLUDED.record, last_update = EXCLUDED.last_update, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": customerID}).Error("Failed to upsert pending record")
		return err
	}

	return nil
}

// Get loads the record payload for the customer. Returns (nil, nil) when
// no row exists.
func (r *Repository) Get(ctx context.Context, customerID string) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingrecord.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("customer_id", "record", "last_update", "created_at", "updated_at")
	sb.From("pending_records")
	sb.Where(sb.Equal("customer_id", customerID))

	query, args := sb.Build()
	var row Row
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": customerID}).Error("Failed to get pending record")
		return nil, err
	}

	return row.Record, nil
}

// Delete removes the pending record for the customer.
func (r *Repository) Delete(ctx context.Context, customerID string) error {
	ctx, span := tracing.StartSpan(ctx, "pendingrecord.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("pending_records")
	sb.Where(sb.Equal("customer_id", customerID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": customerID}).Error("Failed to delete pending record")
		return err
	}

	return nil
}

// DeleteStale removes rows whose last update is older than the cutoff and
// returns the count.
func (r *Repository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingrecord.Repository.DeleteStale")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("pending_records")
	sb.Where(sb.LessThan("last_update", cutoff.UTC()))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete stale pending records")
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return deleted, nil
}

// Keys lists every customer id with a pending record.
func (r *Repository) Keys(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingrecord.Repository.Keys")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("customer_id")
	sb.From("pending_records")
	sb.OrderBy("last_update").Asc()

	query, args := sb.Build()
	var customerIDs []string
	if err := r.db.SelectContext(ctx, &customerIDs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending record keys")
		return nil, err
	}

	return customerIDs, nil
}
