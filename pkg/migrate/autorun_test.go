package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartwatch-backend/pkg/config"
	"github.com/angelmondragon/cartwatch-backend/pkg/db"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
)

func sqliteClient(t *testing.T) *db.Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	return db.NewFromConn(conn)
}

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	client := sqliteClient(t)
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.FeatureFlags.UseSQLite = true
	cfg.FeatureFlags.AutoMigrate = true

	require.NoError(t, MaybeRunDev(context.Background(), cfg, nil, client))
	assert.True(t, client.DB().Migrator().HasTable(&models.CartRecord{}))
	assert.True(t, client.DB().Migrator().HasTable(&models.ArchivedCartRecord{}))
}

func TestMaybeRunDevSkipsWhenDisabled(t *testing.T) {
	client := sqliteClient(t)
	cfg := &config.Config{}
	cfg.App.Env = "prod"
	cfg.FeatureFlags.UseSQLite = true
	cfg.FeatureFlags.AutoMigrate = true

	require.NoError(t, MaybeRunDev(context.Background(), cfg, nil, client))
	assert.False(t, client.DB().Migrator().HasTable(&models.CartRecord{}))
}
