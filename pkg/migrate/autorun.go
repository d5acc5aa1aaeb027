package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/cartwatch-backend/pkg/config"
	"github.com/angelmondragon/cartwatch-backend/pkg/db"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot when CARTWATCH_AUTO_MIGRATE
// is set outside production. Postgres goes through the embedded goose files;
// SQLite gets GORM's AutoMigrate of the cart tables.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || client == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite {
		if logg != nil {
			logg.Info(logg.WithField(ctx, "dialect", "sqlite"), "auto-migrating cart tables")
		}
		if err := client.AutoMigrate(); err != nil {
			return fmt.Errorf("auto-migrating sqlite: %w", err)
		}
		return nil
	}

	if err := ValidateEmbedded(); err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if _, err := prepare(DefaultDir); err != nil {
		return err
	}

	from, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("reading db version: %w", err)
	}
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}
	to, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("reading db version: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"env":          cfg.App.Env,
			"from_version": from,
			"to_version":   to,
		}), "goose migrations applied")
	}
	return nil
}
