package export

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
)

// LogSink writes finalized records to the log. Used when no export topic
// is configured.
type LogSink struct {
	logger ectologger.Logger
}

// NewLogSink returns a sink that only logs.
func NewLogSink(logger ectologger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Upsert(ctx context.Context, details *models.CustomerDetails) error {
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":      details.RecordID,
		"customer_id":    details.CustomerID,
		"full_name":      details.FullName,
		"contact_number": details.ContactNumber,
		"street_address": details.StreetAddress,
		"location":       details.Location,
		"postal_code":    details.PostalCode,
	}).Info("Finalized customer record")
	return nil
}
