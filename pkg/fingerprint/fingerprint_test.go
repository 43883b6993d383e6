package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordIDDeterministic(t *testing.T) {
	at := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	first := RecordID("cust-1", "+37368977378", at)
	second := RecordID("cust-1", "+37368977378", at.Add(5*time.Hour))

	assert.Equal(t, first, second, "same customer, phone, and day must hash identically")
	assert.Len(t, first, 64)
}

func TestRecordIDChangesWithInputs(t *testing.T) {
	at := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	base := RecordID("cust-1", "+37368977378", at)

	assert.NotEqual(t, base, RecordID("cust-2", "+37368977378", at))
	assert.NotEqual(t, base, RecordID("cust-1", "+37368977379", at))
	assert.NotEqual(t, base, RecordID("cust-1", "+37368977378", at.AddDate(0, 0, 1)))
}

func TestRecordIDNoPhoneSentinel(t *testing.T) {
	at := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	withSentinel := RecordID("cust-1", NoPhoneSentinel, at)
	withEmpty := RecordID("cust-1", "", at)

	assert.Equal(t, withSentinel, withEmpty)
}

func TestRecordIDUsesUTCDate(t *testing.T) {
	// 23:30 in UTC+3 is 20:30 UTC the same day; 01:30 in UTC+3 is 22:30
	// UTC the previous day.
	chisinau := time.FixedZone("UTC+3", 3*60*60)
	lateLocal := time.Date(2025, 6, 16, 1, 30, 0, 0, chisinau)
	utcPrevDay := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t,
		RecordID("cust-1", "+37368977378", utcPrevDay),
		RecordID("cust-1", "+37368977378", lateLocal),
	)
}
