// Package fingerprint produces deterministic record ids for finalized
// customer exports. The same customer, phone, and UTC calendar day always
// hash to the same id, so repeated exports overwrite instead of duplicating.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NoPhoneSentinel stands in for the phone component when a record is
// finalized without a contact number.
const NoPhoneSentinel = "NO_PHONE"

// RecordID returns the hex encoded SHA-256 of
// "<customerID>|<contactNumber>|<UTC date>". An empty contact number is
// replaced with NoPhoneSentinel before hashing.
func RecordID(customerID, contactNumber string, finalizedAt time.Time) string {
	phone := contactNumber
	if phone == "" {
		phone = NoPhoneSentinel
	}

	canonical := strings.Join([]string{
		customerID,
		phone,
		finalizedAt.UTC().Format("2006-01-02"),
	}, "|")

	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}
