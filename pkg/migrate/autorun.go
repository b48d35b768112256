package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/db"
	"github.com/angelmondragon/grocerycart/pkg/logger"
)

// MaybeAutoMigrate applies pending migrations when the durable credential
// store is enabled with auto-migration.
func MaybeAutoMigrate(ctx context.Context, cfg config.DBConfig, logg *logger.Logger, client *db.Client) error {
	if !cfg.AutoMigrate || client == nil {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	if logg == nil {
		logg = logger.Nop()
	}
	ctx = logg.WithFields(ctx, map[string]any{"driver": client.Driver(), "dir": Dir})
	logg.Debug(ctx, "applying credential store migrations")

	if err := Run(ctx, sqlDB, client.GooseDialect(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	return nil
}
