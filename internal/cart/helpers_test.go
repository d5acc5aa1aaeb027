package cart

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/cache"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:cart_"+name+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CartRecord{}, &models.ArchivedCartRecord{}))
	return conn
}

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	repo.now = func() time.Time { return baseNow }
	return repo, conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
}

func items(prices ...string) types.CartItems {
	out := make(types.CartItems, 0, len(prices))
	for i, price := range prices {
		out = append(out, types.CartItem{
			ProductID: int64(100 + i),
			Name:      "Product",
			Quantity:  1,
			UnitPrice: decimal.RequireFromString(price),
		})
	}
	return out
}

func setLastUpdated(t *testing.T, conn *gorm.DB, id uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, conn.Model(&models.CartRecord{}).Where("id = ?", id).Update("last_updated", at.UTC()).Error)
}

func loadRecord(t *testing.T, conn *gorm.DB, id uuid.UUID) models.CartRecord {
	t.Helper()
	var record models.CartRecord
	require.NoError(t, conn.Where("id = ?", id).First(&record).Error)
	return record
}

func allRecords(t *testing.T, conn *gorm.DB) []models.CartRecord {
	t.Helper()
	var rows []models.CartRecord
	require.NoError(t, conn.Order("created_at").Find(&rows).Error)
	return rows
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context, *int) error {
	f.calls++
	return nil
}

func newTestTracker(t *testing.T) (*Tracker, *Store, *gorm.DB, *fakeInvalidator) {
	t.Helper()
	repo, conn := newTestRepo(t)
	store := NewStore(repo, cache.NewMemory(), time.Minute, testLogger())
	inv := &fakeInvalidator{}
	tracker, err := NewTracker(TrackerParams{
		Store:     store,
		Analytics: inv,
		Logger:    testLogger(),
		Now:       func() time.Time { return baseNow },
	})
	require.NoError(t, err)
	return tracker, store, conn, inv
}
