package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/healthmon/importer/internal/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.HealthRecord)(nil),
			(*models.MetadataEntry)(nil),
			(*models.ImportRun)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.ImportRun)(nil),
			(*models.MetadataEntry)(nil),
			(*models.HealthRecord)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
