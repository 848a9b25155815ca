// Package csvfile reads legacy CSV exports with the same column set as
// the XML export. It feeds the destructive migration path: unlike the
// XML importer, CSV ingestion replaces the records table wholesale.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/healthmon/importer/internal/models"
)

// Columns recognized in the header row. Order in the file is free;
// unknown columns are ignored.
const (
	colType          = "type"
	colSourceName    = "sourceName"
	colSourceVersion = "sourceVersion"
	colDevice        = "device"
	colUnit          = "unit"
	colCreationDate  = "creationDate"
	colStartDate     = "startDate"
	colEndDate       = "endDate"
	colValue         = "value"
)

// ReadFile parses a CSV export into health records.
func ReadFile(path string) ([]*models.HealthRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return Read(f)
}

// Read parses CSV rows using the header to locate columns. The date
// and value coercion rules match the XML mapper.
func Read(r io.Reader) ([]*models.HealthRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colType, colSourceName, colStartDate, colEndDate} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	records := make([]*models.HealthRecord, 0)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		line++

		startDate, err := models.ParseExportTime(field(row, colStartDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: startDate: %w", line, err)
		}
		endDate, err := models.ParseExportTime(field(row, colEndDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: endDate: %w", line, err)
		}

		var creationDate time.Time
		if raw := field(row, colCreationDate); raw != "" {
			if t, err := models.ParseExportTime(raw); err == nil {
				creationDate = t
			}
		}

		records = append(records, &models.HealthRecord{
			Type:          models.StripTypePrefix(field(row, colType)),
			SourceName:    field(row, colSourceName),
			SourceVersion: field(row, colSourceVersion),
			Device:        field(row, colDevice),
			Unit:          field(row, colUnit),
			CreationDate:  creationDate,
			StartDate:     startDate,
			EndDate:       endDate,
			Value:         models.CoerceValue(field(row, colValue)),
		})
	}

	return records, nil
}
