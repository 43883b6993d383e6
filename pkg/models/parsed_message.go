package models

// AddressBlock groups the location fields extracted from a message.
type AddressBlock struct {
	StreetAddress string `json:"street_address,omitempty"`
	Location      string `json:"location,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
}

// IsEmpty reports whether no address component was found.
func (a AddressBlock) IsEmpty() bool {
	return a.StreetAddress == "" && a.Location == "" && a.PostalCode == ""
}

// ParsedMessage is the immutable result of extracting a single chat
// message. Confidence is in [0, 1] and reflects which fields were found.
type ParsedMessage struct {
	FullName      string       `json:"full_name,omitempty"`
	ContactNumber string       `json:"contact_number,omitempty"`
	Address       AddressBlock `json:"address"`
	RawMessage    string       `json:"raw_message"`
	Confidence    float64      `json:"confidence"`
}

// HasFields reports whether any structured field was extracted.
func (p ParsedMessage) HasFields() bool {
	return p.FullName != "" || p.ContactNumber != "" || !p.Address.IsEmpty()
}
