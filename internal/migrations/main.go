package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the registered schema migrations. Each migration
// lives in its own <number>_<name>.go file; the migrator derives the
// migration name from the registering file.
var Migrations = migrate.NewMigrations()

// RecordIndexes are the supporting indexes for the read-side query
// shapes: by date, by type, by type+date, by source, by source+type.
// The importer re-applies them after each commit so ad hoc stores built
// by the basic path stay queryable.
var RecordIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_records_start_date ON health_records(start_date)",
	"CREATE INDEX IF NOT EXISTS idx_records_type ON health_records(type)",
	"CREATE INDEX IF NOT EXISTS idx_records_type_date ON health_records(type, start_date)",
	"CREATE INDEX IF NOT EXISTS idx_records_source ON health_records(source_name)",
	"CREATE INDEX IF NOT EXISTS idx_records_source_type ON health_records(source_name, type)",
	"CREATE INDEX IF NOT EXISTS idx_runs_started ON import_runs(started_at)",
}

// RunMigrations runs all pending migrations.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		fmt.Println("No new migrations to run")
		return nil
	}

	fmt.Printf("Migrated to %s\n", group)
	return nil
}
