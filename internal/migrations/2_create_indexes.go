package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, idx := range RecordIndexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_records_start_date",
			"DROP INDEX IF EXISTS idx_records_type",
			"DROP INDEX IF EXISTS idx_records_type_date",
			"DROP INDEX IF EXISTS idx_records_source",
			"DROP INDEX IF EXISTS idx_records_source_type",
			"DROP INDEX IF EXISTS idx_runs_started",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}
