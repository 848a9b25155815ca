package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Metadata keys written after a successful import. Each key holds the
// value for the most recent import only; they are overwritten, never
// appended.
const (
	MetaImportDate  = "import_date"
	MetaRecordCount = "record_count"
	MetaSourceFile  = "source_file"
)

// MetadataEntry is one key-value pair describing the latest import.
type MetadataEntry struct {
	bun.BaseModel `bun:"table:metadata,alias:md"`

	Key   string `bun:"key,pk" json:"key"`
	Value string `bun:"value,notnull" json:"value"`
}

// ImportRun records one import invocation and its outcome.
type ImportRun struct {
	bun.BaseModel `bun:"table:import_runs,alias:ir"`

	ID              int64        `bun:"id,pk,autoincrement" json:"id"`
	RunID           string       `bun:"run_id,unique,notnull" json:"run_id"`
	SourceFile      string       `bun:"source_file,notnull" json:"source_file"`
	Format          ImportFormat `bun:"format,notnull" json:"format"`
	Status          RunStatus    `bun:"status,notnull" json:"status"`
	StartedAt       time.Time    `bun:"started_at,notnull" json:"started_at"`
	FinishedAt      *time.Time   `bun:"finished_at" json:"finished_at,omitempty"`
	RecordsParsed   int          `bun:"records_parsed,default:0" json:"records_parsed"`
	RecordsInserted int          `bun:"records_inserted,default:0" json:"records_inserted"`
	RecordsSkipped  int          `bun:"records_skipped,default:0" json:"records_skipped"`
	ErrorLog        *string      `bun:"error_log" json:"error_log,omitempty"`
	CreatedAt       time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
