package models

import "time"

// CustomerDetails is the finalized, exportable view of an aggregation
// record. RecordID is deterministic for a given customer, phone, and UTC
// day, so sinks can upsert repeated exports safely.
type CustomerDetails struct {
	RecordID      string    `json:"record_id"`
	CustomerID    string    `json:"customer_id"`
	FullName      string    `json:"full_name,omitempty"`
	ContactNumber string    `json:"contact_number,omitempty"`
	StreetAddress string    `json:"street_address,omitempty"`
	Location      string    `json:"location,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	RawMessage    string    `json:"raw_message"`
	CreatedAt     time.Time `json:"created_at"`
	FinalizedAt   time.Time `json:"finalized_at"`
}
