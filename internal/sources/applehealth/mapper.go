package applehealth

import (
	"fmt"
	"time"

	"github.com/healthmon/importer/internal/models"
)

// MapRecord converts a Record element to a HealthRecord. Start and end
// dates are required; a creation date that is absent or unparsable is
// left as the zero time. Non-numeric values coerce to the categorical
// default rather than failing the record.
func MapRecord(elem recordElement) (*models.HealthRecord, error) {
	startDate, err := models.ParseExportTime(elem.StartDate)
	if err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}

	endDate, err := models.ParseExportTime(elem.EndDate)
	if err != nil {
		return nil, fmt.Errorf("endDate: %w", err)
	}

	var creationDate time.Time
	if elem.CreationDate != "" {
		if t, err := models.ParseExportTime(elem.CreationDate); err == nil {
			creationDate = t
		}
	}

	return &models.HealthRecord{
		Type:          models.StripTypePrefix(elem.Type),
		SourceName:    elem.SourceName,
		SourceVersion: elem.SourceVersion,
		Device:        elem.Device,
		Unit:          elem.Unit,
		CreationDate:  creationDate,
		StartDate:     startDate,
		EndDate:       endDate,
		Value:         models.CoerceValue(elem.Value),
	}, nil
}
