package store

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Memory is the in-process backend. Records are cloned on the way in and
// out so callers never share the stored state.
type Memory struct {
	mu      sync.Mutex
	records map[string]*models.AggregationRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory returns a map-backed store evicting records untouched for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		records: make(map[string]*models.AggregationRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, customerID string) (*models.AggregationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[customerID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

func (m *Memory) Set(_ context.Context, customerID string, record *models.AggregationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[customerID] = record.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, customerID)
	return nil
}

// CleanupStale drops records whose last update is older than the ttl.
func (m *Memory) CleanupStale(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	evicted := 0
	for customerID, record := range m.records {
		if record.LastUpdate.Before(cutoff) {
			delete(m.records, customerID)
			evicted++
		}
	}
	return evicted, nil
}

// Keys lists the customer ids with a pending record.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.records))
	for customerID := range m.records {
		keys = append(keys, customerID)
	}
	return keys, nil
}
