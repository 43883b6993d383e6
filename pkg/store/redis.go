package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// Redis is the external TTL backend. Every write resets the key's
// expiry, so Redis itself evicts abandoned records and CleanupStale has
// nothing to do.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    ectologger.Logger
}

// NewRedis returns a Redis-backed store writing under keyPrefix with the
// given time-to-live.
func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration, logger ectologger.Logger) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (r *Redis) key(customerID string) string {
	return r.keyPrefix + customerID
}

// Get loads and decodes the pending record. A corrupt payload is logged
// and treated as no record rather than poisoning the customer.
func (r *Redis) Get(ctx context.Context, customerID string) (*models.AggregationRecord, error) {
	defer metrics.ObserveStoreOperation("get", time.Now())

	payload, err := r.client.Get(ctx, r.key(customerID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}

	var record models.AggregationRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
		}).Warn("Discarding corrupt aggregation record payload")
		return nil, nil
	}
	return &record, nil
}

func (r *Redis) Set(ctx context.Context, customerID string, record *models.AggregationRecord) error {
	defer metrics.ObserveStoreOperation("set", time.Now())

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(customerID), payload, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, customerID string) error {
	defer metrics.ObserveStoreOperation("delete", time.Now())

	return r.client.Del(ctx, r.key(customerID))
}

// CleanupStale is a no-op; key expiry is Redis's job.
func (r *Redis) CleanupStale(_ context.Context) (int, error) {
	return 0, nil
}

// Keys scans the key prefix and returns the pending customer ids.
func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.client.ScanKeys(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, err
	}

	customerIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		customerIDs = append(customerIDs, strings.TrimPrefix(key, r.keyPrefix))
	}
	return customerIDs, nil
}
