package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
)

// FinalizePolicy holds the timing thresholds that decide when a pending
// record is ready to export.
type FinalizePolicy struct {
	// Cooldown finalizes any record untouched for this long.
	Cooldown time.Duration
	// FinalizeAfterBoth finalizes a record holding name and phone once no
	// field has changed for this long.
	FinalizeAfterBoth time.Duration
	// CompleteIdle finalizes a record holding name and phone once no
	// message at all has arrived for this long.
	CompleteIdle time.Duration
}

// DefaultFinalizePolicy mirrors the production defaults.
func DefaultFinalizePolicy() FinalizePolicy {
	return FinalizePolicy{
		Cooldown:          90 * time.Second,
		FinalizeAfterBoth: 20 * time.Second,
		CompleteIdle:      30 * time.Second,
	}
}

// AggregationRecord accumulates extracted fields for one customer across
// messages until the record is finalized and exported.
type AggregationRecord struct {
	CustomerID      string
	FullName        string
	ContactNumber   string
	StreetAddress   string
	Location        string
	PostalCode      string
	RawMessages     []string
	CreatedAt       time.Time
	LastUpdate      time.Time
	LastFieldUpdate time.Time
}

// NewAggregationRecord returns an empty record for the customer with all
// timestamps set to now.
func NewAggregationRecord(customerID string, now time.Time) *AggregationRecord {
	return &AggregationRecord{
		CustomerID:      customerID,
		CreatedAt:       now.UTC(),
		LastUpdate:      now.UTC(),
		LastFieldUpdate: now.UTC(),
	}
}

// Merge folds a parsed message into the record and reports whether any
// structured field actually changed. LastUpdate always advances;
// LastFieldUpdate advances only on a field change. Raw message text is
// kept once per exact duplicate and does not count as a field change.
//
// Field rules: a name wins when it has more tokens, or the same token
// count with high confidence. A phone is replaced only on high
// confidence. Street and location are replaced by strictly longer values.
// A postal code is replaced whenever it differs.
func (r *AggregationRecord) Merge(parsed ParsedMessage, now time.Time) bool {
	changed := false

	if parsed.RawMessage != "" && !r.hasRawMessage(parsed.RawMessage) {
		r.RawMessages = append(r.RawMessages, parsed.RawMessage)
	}

	if parsed.FullName != "" && parsed.FullName != r.FullName {
		incoming := tokenCount(parsed.FullName)
		current := tokenCount(r.FullName)
		if r.FullName == "" || incoming > current || (incoming == current && parsed.Confidence > 0.8) {
			r.FullName = parsed.FullName
			changed = true
		}
	}

	if parsed.ContactNumber != "" && parsed.ContactNumber != r.ContactNumber {
		if r.ContactNumber == "" || parsed.Confidence > 0.8 {
			r.ContactNumber = parsed.ContactNumber
			changed = true
		}
	}

	if s := parsed.Address.StreetAddress; s != "" && len(s) > len(r.StreetAddress) {
		r.StreetAddress = s
		changed = true
	}

	if l := parsed.Address.Location; l != "" && len(l) > len(r.Location) {
		r.Location = l
		changed = true
	}

	if p := parsed.Address.PostalCode; p != "" && p != r.PostalCode {
		r.PostalCode = p
		changed = true
	}

	r.LastUpdate = now.UTC()
	if changed {
		r.LastFieldUpdate = now.UTC()
	}

	return changed
}

func (r *AggregationRecord) hasRawMessage(text string) bool {
	for _, existing := range r.RawMessages {
		if existing == text {
			return true
		}
	}
	return false
}

func tokenCount(value string) int {
	return len(strings.Fields(value))
}

// HasMinimumData reports whether the record holds both a name and a
// phone, the minimum for a useful export.
func (r *AggregationRecord) HasMinimumData() bool {
	return r.FullName != "" && r.ContactNumber != ""
}

// ShouldFinalize applies the timing rules: the hard cooldown applies to
// every record, the two shorter windows only once name and phone are
// present.
func (r *AggregationRecord) ShouldFinalize(policy FinalizePolicy, now time.Time) bool {
	if now.Sub(r.LastUpdate) >= policy.Cooldown {
		return true
	}
	if !r.HasMinimumData() {
		return false
	}
	if now.Sub(r.LastFieldUpdate) >= policy.FinalizeAfterBoth {
		return true
	}
	return now.Sub(r.LastUpdate) >= policy.CompleteIdle
}

// ToCustomerDetails builds the export view, joining raw messages with
// newlines and deriving the deterministic record id.
func (r *AggregationRecord) ToCustomerDetails(finalizedAt time.Time) *CustomerDetails {
	return &CustomerDetails{
		RecordID:      fingerprint.RecordID(r.CustomerID, r.ContactNumber, finalizedAt),
		CustomerID:    r.CustomerID,
		FullName:      r.FullName,
		ContactNumber: r.ContactNumber,
		StreetAddress: r.StreetAddress,
		Location:      r.Location,
		PostalCode:    r.PostalCode,
		RawMessage:    strings.Join(r.RawMessages, "\n"),
		CreatedAt:     r.CreatedAt,
		FinalizedAt:   finalizedAt.UTC(),
	}
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing the raw message slice.
func (r *AggregationRecord) Clone() *AggregationRecord {
	clone := *r
	clone.RawMessages = append([]string(nil), r.RawMessages...)
	return &clone
}

// aggregationRecordJSON is the wire layout used by external store
// backends. CreatedAt travels as RFC3339, the update timestamps as
// epoch-second floats.
type aggregationRecordJSON struct {
	CustomerID      string   `json:"customer_id"`
	FullName        string   `json:"full_name,omitempty"`
	ContactNumber   string   `json:"contact_number,omitempty"`
	StreetAddress   string   `json:"street_address,omitempty"`
	Location        string   `json:"location,omitempty"`
	PostalCode      string   `json:"postal_code,omitempty"`
	RawMessages     []string `json:"raw_messages"`
	CreatedAt       string   `json:"created_at"`
	LastUpdate      float64  `json:"last_update"`
	LastFieldUpdate float64  `json:"last_field_update"`
}

// MarshalJSON renders the flat wire layout.
func (r *AggregationRecord) MarshalJSON() ([]byte, error) {
	raw := r.RawMessages
	if raw == nil {
		raw = []string{}
	}
	return json.Marshal(aggregationRecordJSON{
		CustomerID:      r.CustomerID,
		FullName:        r.FullName,
		ContactNumber:   r.ContactNumber,
		StreetAddress:   r.StreetAddress,
		Location:        r.Location,
		PostalCode:      r.PostalCode,
		RawMessages:     raw,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastUpdate:      epochSeconds(r.LastUpdate),
		LastFieldUpdate: epochSeconds(r.LastFieldUpdate),
	})
}

// UnmarshalJSON parses the flat wire layout back into a record.
func (r *AggregationRecord) UnmarshalJSON(data []byte) error {
	var wire aggregationRecordJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
	if err != nil {
		return err
	}

	r.CustomerID = wire.CustomerID
	r.FullName = wire.FullName
	r.ContactNumber = wire.ContactNumber
	r.StreetAddress = wire.StreetAddress
	r.Location = wire.Location
	r.PostalCode = wire.PostalCode
	r.RawMessages = wire.RawMessages
	r.CreatedAt = createdAt.UTC()
	r.LastUpdate = fromEpochSeconds(wire.LastUpdate)
	r.LastFieldUpdate = fromEpochSeconds(wire.LastFieldUpdate)
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpochSeconds(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second))).UTC()
}
