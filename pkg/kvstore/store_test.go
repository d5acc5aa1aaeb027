package kvstore

import (
	"context"
	"testing"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:kvstore_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Option{}))
	return NewGormStore(conn)
}

func TestGormStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newGormStore(t)

	_, err := store.Get(ctx, "export_schedules")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "export_schedules", `{"a":1}`))
	require.NoError(t, store.Set(ctx, "export_schedules", `{"a":2}`))

	got, err := store.Get(ctx, "export_schedules")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, got)

	require.NoError(t, store.Delete(ctx, "export_schedules"))
	_, err = store.Get(ctx, "export_schedules")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	var store Store = NewMemory()

	require.NoError(t, store.Set(ctx, "k", "v"))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
