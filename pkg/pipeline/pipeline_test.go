package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/extract"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/phone"
	"github.com/Ramsey-B/clover/pkg/store"
)

type fakeSink struct {
	upserts  []*models.CustomerDetails
	failures int
}

func (s *fakeSink) Upsert(_ context.Context, details *models.CustomerDetails) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.upserts = append(s.upserts, details)
	return nil
}

type testHarness struct {
	pipeline *Pipeline
	store    *store.Memory
	sink     *fakeSink
	now      time.Time
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		store: store.NewMemory(3 * time.Minute),
		sink:  &fakeSink{},
		now:   time.Now().UTC().Truncate(time.Second),
	}

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	extractor := extract.NewExtractor(phone.NewNormalizer("373"))
	h.pipeline = New(extractor, h.store, h.sink, DefaultConfig(), logger)
	h.pipeline.now = func() time.Time { return h.now }
	return h
}

func (h *testHarness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *testHarness) process(t *testing.T, customerID, text string) {
	t.Helper()
	require.NoError(t, h.pipeline.ProcessMessageAt(context.Background(), customerID, text, h.now))
}

func TestSingleRichMessageFinalizesImmediately(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Rufa Irina\nSat Giurgiulești\n5318\n068977378")

	require.Len(t, h.sink.upserts, 1)
	details := h.sink.upserts[0]
	assert.Equal(t, "Rufa Irina", details.FullName)
	assert.Equal(t, "+37368977378", details.ContactNumber)
	assert.Equal(t, "Sat Giurgiulești", details.Location)
	assert.Equal(t, "5318", details.PostalCode)

	record, err := h.store.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Nil(t, record, "finalized record must leave the store")
}

func TestSequentialPartialsFinalizeAfterQuietPeriod(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Ina")
	assert.Empty(t, h.sink.upserts)

	h.advance(5 * time.Second)
	h.process(t, "cust-1", "068977378")
	assert.Empty(t, h.sink.upserts, "low confidence messages never finalize on the spot")

	// A quiet period with no field changes elapses; the next message
	// (a duplicate, changing nothing) trips the finalize check.
	h.advance(20 * time.Second)
	h.process(t, "cust-1", "Ina")

	require.Len(t, h.sink.upserts, 1)
	details := h.sink.upserts[0]
	assert.Equal(t, "Ina", details.FullName)
	assert.Equal(t, "+37368977378", details.ContactNumber)
}

func TestDuplicateMessagesKeptOnce(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Ina")
	h.advance(time.Second)
	h.process(t, "cust-1", "Ina")
	h.advance(time.Second)
	h.process(t, "cust-1", "068977378")

	finalized, err := h.pipeline.ForceFinalize(context.Background(), "cust-1")
	require.NoError(t, err)
	require.True(t, finalized)

	require.Len(t, h.sink.upserts, 1)
	assert.Equal(t, "Ina\n068977378", h.sink.upserts[0].RawMessage)
}

func TestNoiseBelowConfidenceFloorLeavesNoRecord(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Hello, how are you?")

	record, err := h.store.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, h.sink.upserts)
}

func TestForceFinalizeExportsPartialRecord(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Ina Josu")

	finalized, err := h.pipeline.ForceFinalize(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, finalized)

	require.Len(t, h.sink.upserts, 1)
	details := h.sink.upserts[0]
	assert.Equal(t, "Ina Josu", details.FullName)
	assert.Empty(t, details.ContactNumber)
	assert.NotEmpty(t, details.RecordID)

	// Nothing left to finalize.
	finalized, err = h.pipeline.ForceFinalize(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.False(t, finalized)
}

func TestSinkFailureRetainsRecordAndRetryIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.sink.failures = 1

	err := h.pipeline.ProcessMessageAt(context.Background(), "cust-1", "Rufa Irina\n068977378", h.now)
	require.Error(t, err)

	record, err := h.store.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, record, "record must survive a failed export")
	assert.Equal(t, "Rufa Irina", record.FullName)

	// Retry within the same day produces the same record id.
	finalized, err := h.pipeline.ForceFinalize(context.Background(), "cust-1")
	require.NoError(t, err)
	require.True(t, finalized)
	require.Len(t, h.sink.upserts, 1)

	expected := record.ToCustomerDetails(h.now).RecordID
	assert.Equal(t, expected, h.sink.upserts[0].RecordID)
}

func TestStoreErrorsPropagate(t *testing.T) {
	h := newHarness(t)

	failing := &failingStore{err: errors.New("backend down")}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	extractor := extract.NewExtractor(phone.NewNormalizer("373"))
	p := New(extractor, failing, h.sink, DefaultConfig(), logger)

	err := p.ProcessMessage(context.Background(), "cust-1", "Ina")
	assert.ErrorContains(t, err, "backend down")
}

type failingStore struct {
	err error
}

func (s *failingStore) Get(context.Context, string) (*models.AggregationRecord, error) {
	return nil, s.err
}

func (s *failingStore) Set(context.Context, string, *models.AggregationRecord) error {
	return s.err
}

func (s *failingStore) Delete(context.Context, string) error {
	return s.err
}

func (s *failingStore) CleanupStale(context.Context) (int, error) {
	return 0, s.err
}

func TestSweepFinalizesQuietRecords(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Ina")
	h.advance(time.Second)
	h.process(t, "cust-1", "068977378")

	// Not yet quiet for long enough.
	require.NoError(t, h.pipeline.Sweep(context.Background()))
	assert.Empty(t, h.sink.upserts)

	h.advance(30 * time.Second)
	require.NoError(t, h.pipeline.Sweep(context.Background()))

	require.Len(t, h.sink.upserts, 1)
	assert.Equal(t, "+37368977378", h.sink.upserts[0].ContactNumber)

	record, err := h.store.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSweepLeavesIncompleteRecordsUntilCooldown(t *testing.T) {
	h := newHarness(t)

	h.process(t, "cust-1", "Ina")

	h.advance(60 * time.Second)
	require.NoError(t, h.pipeline.Sweep(context.Background()))
	assert.Empty(t, h.sink.upserts, "incomplete record under cooldown stays pending")

	h.advance(30 * time.Second)
	require.NoError(t, h.pipeline.Sweep(context.Background()))
	require.Len(t, h.sink.upserts, 1, "cooldown flushes whatever is present")
	assert.Equal(t, "Ina", h.sink.upserts[0].FullName)
}
