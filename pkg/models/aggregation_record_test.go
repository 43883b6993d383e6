package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func parsedWith(confidence float64, mutate func(*ParsedMessage)) ParsedMessage {
	p := ParsedMessage{Confidence: confidence}
	if mutate != nil {
		mutate(&p)
	}
	return p
}

func TestMergeNameRules(t *testing.T) {
	tests := []struct {
		name       string
		existing   string
		incoming   string
		confidence float64
		expected   string
		changed    bool
	}{
		{
			name:     "adopts first name",
			incoming: "Ina",
			expected: "Ina",
			changed:  true,
		},
		{
			name:     "longer name wins",
			existing: "Ina",
			incoming: "Ina Josu",
			expected: "Ina Josu",
			changed:  true,
		},
		{
			name:       "equal tokens low confidence keeps existing",
			existing:   "Ina Josu",
			incoming:   "Ana Popescu",
			confidence: 0.5,
			expected:   "Ina Josu",
			changed:    false,
		},
		{
			name:       "equal tokens high confidence replaces",
			existing:   "Ina Josu",
			incoming:   "Ana Popescu",
			confidence: 0.9,
			expected:   "Ana Popescu",
			changed:    true,
		},
		{
			name:       "shorter name never replaces",
			existing:   "Ina Josu",
			incoming:   "Ina",
			confidence: 0.9,
			expected:   "Ina Josu",
			changed:    false,
		},
		{
			name:       "identical name is not a change",
			existing:   "Ina Josu",
			incoming:   "Ina Josu",
			confidence: 0.9,
			expected:   "Ina Josu",
			changed:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := NewAggregationRecord("cust-1", baseTime)
			record.FullName = tt.existing

			changed := record.Merge(parsedWith(tt.confidence, func(p *ParsedMessage) {
				p.FullName = tt.incoming
			}), baseTime.Add(time.Second))

			assert.Equal(t, tt.expected, record.FullName)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestMergePhoneRules(t *testing.T) {
	record := NewAggregationRecord("cust-1", baseTime)

	changed := record.Merge(parsedWith(0.4, func(p *ParsedMessage) {
		p.ContactNumber = "+37368977378"
	}), baseTime)
	assert.True(t, changed)
	assert.Equal(t, "+37368977378", record.ContactNumber)

	// Low confidence never replaces an existing phone.
	changed = record.Merge(parsedWith(0.4, func(p *ParsedMessage) {
		p.ContactNumber = "+37369000000"
	}), baseTime)
	assert.False(t, changed)
	assert.Equal(t, "+37368977378", record.ContactNumber)

	// High confidence does.
	changed = record.Merge(parsedWith(0.9, func(p *ParsedMessage) {
		p.ContactNumber = "+37369000000"
	}), baseTime)
	assert.True(t, changed)
	assert.Equal(t, "+37369000000", record.ContactNumber)
}

func TestMergeAddressRules(t *testing.T) {
	record := NewAggregationRecord("cust-1", baseTime)

	record.Merge(parsedWith(0.2, func(p *ParsedMessage) {
		p.Address = AddressBlock{StreetAddress: "str. Stefan 5", Location: "or. Chisinau", PostalCode: "2001"}
	}), baseTime)

	// Strictly longer street replaces, shorter or equal does not.
	changed := record.Merge(parsedWith(0.2, func(p *ParsedMessage) {
		p.Address.StreetAddress = "str. Stefan cel Mare 5"
	}), baseTime)
	assert.True(t, changed)
	assert.Equal(t, "str. Stefan cel Mare 5", record.StreetAddress)

	changed = record.Merge(parsedWith(0.9, func(p *ParsedMessage) {
		p.Address.StreetAddress = "str. X 1"
	}), baseTime)
	assert.False(t, changed)
	assert.Equal(t, "str. Stefan cel Mare 5", record.StreetAddress)

	// Different postal code always replaces.
	changed = record.Merge(parsedWith(0.2, func(p *ParsedMessage) {
		p.Address.PostalCode = "5318"
	}), baseTime)
	assert.True(t, changed)
	assert.Equal(t, "5318", record.PostalCode)

	// Same postal code is not a change.
	changed = record.Merge(parsedWith(0.2, func(p *ParsedMessage) {
		p.Address.PostalCode = "5318"
	}), baseTime)
	assert.False(t, changed)
}

func TestMergeRawMessageDedup(t *testing.T) {
	record := NewAggregationRecord("cust-1", baseTime)

	record.Merge(parsedWith(0.4, func(p *ParsedMessage) {
		p.FullName = "Ina"
		p.RawMessage = "Ina"
	}), baseTime)
	changed := record.Merge(parsedWith(0.4, func(p *ParsedMessage) {
		p.FullName = "Ina"
		p.RawMessage = "Ina"
	}), baseTime.Add(time.Second))

	assert.False(t, changed)
	assert.Equal(t, []string{"Ina"}, record.RawMessages)
}

func TestMergeTimestamps(t *testing.T) {
	record := NewAggregationRecord("cust-1", baseTime)

	// A field change advances both timestamps.
	first := baseTime.Add(10 * time.Second)
	record.Merge(parsedWith(0.4, func(p *ParsedMessage) {
		p.FullName = "Ina"
	}), first)
	assert.Equal(t, first, record.LastUpdate)
	assert.Equal(t, first, record.LastFieldUpdate)

	// A no-change merge only advances LastUpdate.
	second := baseTime.Add(20 * time.Second)
	record.Merge(parsedWith(0.4, func(p *ParsedMessage) {
		p.RawMessage = "hello again"
	}), second)
	assert.Equal(t, second, record.LastUpdate)
	assert.Equal(t, first, record.LastFieldUpdate)
}

func TestShouldFinalize(t *testing.T) {
	policy := DefaultFinalizePolicy()

	tests := []struct {
		name            string
		fullName        string
		contactNumber   string
		sinceUpdate     time.Duration
		sinceFieldTouch time.Duration
		expected        bool
	}{
		{
			name:        "cooldown applies to incomplete records",
			fullName:    "Ina",
			sinceUpdate: 90 * time.Second,
			expected:    true,
		},
		{
			name:        "incomplete record under cooldown waits",
			fullName:    "Ina",
			sinceUpdate: 89 * time.Second,
			expected:    false,
		},
		{
			name:            "complete record after quiet fields",
			fullName:        "Ina",
			contactNumber:   "+37368977378",
			sinceUpdate:     5 * time.Second,
			sinceFieldTouch: 20 * time.Second,
			expected:        true,
		},
		{
			name:            "complete record with recent field change waits",
			fullName:        "Ina",
			contactNumber:   "+37368977378",
			sinceUpdate:     5 * time.Second,
			sinceFieldTouch: 19 * time.Second,
			expected:        false,
		},
		{
			name:            "complete record idle thirty seconds",
			fullName:        "Ina",
			contactNumber:   "+37368977378",
			sinceUpdate:     30 * time.Second,
			sinceFieldTouch: 10 * time.Second,
			expected:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := baseTime.Add(10 * time.Minute)
			record := &AggregationRecord{
				CustomerID:      "cust-1",
				FullName:        tt.fullName,
				ContactNumber:   tt.contactNumber,
				CreatedAt:       baseTime,
				LastUpdate:      now.Add(-tt.sinceUpdate),
				LastFieldUpdate: now.Add(-tt.sinceFieldTouch),
			}

			assert.Equal(t, tt.expected, record.ShouldFinalize(policy, now))
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	record := &AggregationRecord{
		CustomerID:      "cust-1",
		FullName:        "Rufa Irina",
		ContactNumber:   "+37368977378",
		StreetAddress:   "str. Stefan cel Mare 124",
		Location:        "Sat Giurgiulești",
		PostalCode:      "5318",
		RawMessages:     []string{"Rufa Irina", "068977378"},
		CreatedAt:       baseTime,
		LastUpdate:      baseTime.Add(42 * time.Second),
		LastFieldUpdate: baseTime.Add(40 * time.Second),
	}

	payload, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded AggregationRecord
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, record.CustomerID, decoded.CustomerID)
	assert.Equal(t, record.FullName, decoded.FullName)
	assert.Equal(t, record.ContactNumber, decoded.ContactNumber)
	assert.Equal(t, record.StreetAddress, decoded.StreetAddress)
	assert.Equal(t, record.Location, decoded.Location)
	assert.Equal(t, record.PostalCode, decoded.PostalCode)
	assert.Equal(t, record.RawMessages, decoded.RawMessages)
	assert.Equal(t, record.CreatedAt, decoded.CreatedAt)
	assert.WithinDuration(t, record.LastUpdate, decoded.LastUpdate, time.Microsecond)
	assert.WithinDuration(t, record.LastFieldUpdate, decoded.LastFieldUpdate, time.Microsecond)
}

func TestJSONWireLayout(t *testing.T) {
	record := NewAggregationRecord("cust-1", baseTime)
	record.FullName = "Ina"

	payload, err := json.Marshal(record)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(payload, &wire))

	assert.Equal(t, "cust-1", wire["customer_id"])
	assert.Equal(t, "Ina", wire["full_name"])
	assert.Equal(t, baseTime.Format(time.RFC3339Nano), wire["created_at"])
	assert.IsType(t, float64(0), wire["last_update"])
	assert.IsType(t, float64(0), wire["last_field_update"])
	assert.Equal(t, []any{}, wire["raw_messages"])
}

func TestToCustomerDetails(t *testing.T) {
	record := &AggregationRecord{
		CustomerID:    "cust-1",
		FullName:      "Rufa Irina",
		ContactNumber: "+37368977378",
		RawMessages:   []string{"first", "second"},
		CreatedAt:     baseTime,
	}

	finalizedAt := baseTime.Add(time.Minute)
	details := record.ToCustomerDetails(finalizedAt)

	assert.NotEmpty(t, details.RecordID)
	assert.Equal(t, "cust-1", details.CustomerID)
	assert.Equal(t, "Rufa Irina", details.FullName)
	assert.Equal(t, "first\nsecond", details.RawMessage)
	assert.Equal(t, finalizedAt, details.FinalizedAt)

	// Same inputs on the same day give the same record id.
	again := record.ToCustomerDetails(finalizedAt.Add(time.Hour))
	assert.Equal(t, details.RecordID, again.RecordID)
}

func TestClone(t *testing.T) {
	record := NewAggregationRecord("cust-1", baseTime)
	record.RawMessages = []string{"one"}

	clone := record.Clone()
	clone.RawMessages = append(clone.RawMessages, "two")
	clone.FullName = "Changed"

	assert.Equal(t, []string{"one"}, record.RawMessages)
	assert.Empty(t, record.FullName)
}
