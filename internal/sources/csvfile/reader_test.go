package csvfile

import (
	"strings"
	"testing"

	"github.com/healthmon/importer/internal/models"
)

func TestReadValidCSV(t *testing.T) {
	data := `type,sourceName,sourceVersion,device,unit,creationDate,startDate,endDate,value
HKQuantityTypeIdentifierStepCount,iPhone,17.2,iPhone14,count,2024-01-15 08:05:00 +0000,2024-01-15 08:00:00 +0000,2024-01-15 09:00:00 +0000,512
HKCategoryTypeIdentifierSleepAnalysis,Apple Watch,,,,,2024-01-15 22:00:00 +0000,2024-01-16 06:00:00 +0000,InBed
`
	records, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Type != models.MetricStepCount {
		t.Fatalf("expected prefix stripped, got %q", records[0].Type)
	}
	if records[1].Value != models.DefaultValue {
		t.Fatalf("expected categorical value coerced, got %v", records[1].Value)
	}
}

func TestReadMissingColumn(t *testing.T) {
	data := "type,sourceName,startDate\nStepCount,iPhone,2024-01-15\n"
	if _, err := Read(strings.NewReader(data)); err == nil {
		t.Fatalf("expected error for missing endDate column")
	}
}

func TestReadBadDate(t *testing.T) {
	data := `type,sourceName,startDate,endDate,value
StepCount,iPhone,garbage,2024-01-15 09:00:00 +0000,10
`
	if _, err := Read(strings.NewReader(data)); err == nil {
		t.Fatalf("expected error for unparsable startDate")
	}
}
