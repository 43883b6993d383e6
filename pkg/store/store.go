// Package store holds in-flight aggregation records keyed by customer id.
// Backends are pluggable: an in-process map, Redis with native TTL, or
// Postgres with lazy expiry.
package store

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Store is the contract the ingest pipeline depends on. Get returns
// (nil, nil) when no record is pending for the customer. Implementations
// must persist records losslessly; a write either fully succeeds or
// leaves the stored record untouched.
type Store interface {
	Get(ctx context.Context, customerID string) (*models.AggregationRecord, error)
	Set(ctx context.Context, customerID string, record *models.AggregationRecord) error
	Delete(ctx context.Context, customerID string) error

	// CleanupStale evicts records past their time-to-live and returns the
	// eviction count. Backends with native expiry report zero.
	CleanupStale(ctx context.Context) (int, error)
}

// Lister is implemented by backends that can enumerate pending customer
// ids, which lets the sweep revisit records no new message will touch.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}
