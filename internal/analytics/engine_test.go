package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/cache"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var now = time.Date(2026, 4, 20, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:analytics_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CartRecord{}))
	return conn
}

func seed(t *testing.T, conn *gorm.DB, status enums.CartStatus, customerID int64, age time.Duration, total string) {
	t.Helper()
	rec := models.CartRecord{
		SessionKey:  fmt.Sprintf("s-%d-%s-%s", customerID, status, age),
		CustomerID:  customerID,
		Items:       types.CartItems{{ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString(total)}},
		Total:       decimal.RequireFromString(total),
		LastUpdated: now.Add(-age),
		IsActive:    status.IsActive(),
		Status:      status,
	}
	require.NoError(t, conn.Create(&rec).Error)
}

func newEngine(t *testing.T, source aggregator, kv cache.Store) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineParams{
		Source: source,
		Cache:  kv,
		Logger: logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return engine
}

func TestComputeConversionRate(t *testing.T) {
	conn := newTestDB(t)
	for i := 0; i < 3; i++ {
		seed(t, conn, enums.CartStatusConverted, int64(i+1), time.Duration(i+1)*24*time.Hour, "50.00")
	}
	for i := 0; i < 7; i++ {
		seed(t, conn, enums.CartStatusDeleted, 0, time.Duration(i+1)*time.Hour, "5.00")
	}
	seed(t, conn, enums.CartStatusConverted, 99, 45*24*time.Hour, "500.00")

	engine := newEngine(t, cart.NewRepository(conn), nil)
	snap, err := engine.Compute(context.Background(), LastDays(30))
	require.NoError(t, err)

	assert.EqualValues(t, 10, snap.TotalCarts)
	assert.EqualValues(t, 3, snap.ConvertedCarts)
	assert.EqualValues(t, 7, snap.DeletedCarts)
	assert.Equal(t, 30.00, snap.ConversionRate)
	assert.Equal(t, 100.00, snap.RegisteredConversionRate)
	assert.Equal(t, 0.0, snap.GuestConversionRate)
	assert.Equal(t, "50.00", snap.AverageConvertedValue.StringFixed(2))
	assert.Equal(t, 30, snap.WindowDays)
}

func TestComputeEmptyStoreYieldsZeroRates(t *testing.T) {
	engine := newEngine(t, cart.NewRepository(newTestDB(t)), nil)
	snap, err := engine.Compute(context.Background(), LastDays(7))
	require.NoError(t, err)

	assert.Zero(t, snap.TotalCarts)
	assert.Zero(t, snap.ConversionRate)
	assert.Zero(t, snap.AbandonmentRate)
	assert.True(t, snap.AverageActiveValue.IsZero())
}

func TestComputeRevenueBuckets(t *testing.T) {
	conn := newTestDB(t)
	seed(t, conn, enums.CartStatusActive, 0, time.Hour, "10.00")
	seed(t, conn, enums.CartStatusActive, 1, 24*time.Hour, "15.00")
	seed(t, conn, enums.CartStatusActive, 0, 3*24*time.Hour, "5.00")
	seed(t, conn, enums.CartStatusActive, 0, 10*24*time.Hour, "40.00")
	seed(t, conn, enums.CartStatusRecoverable, 0, 2*24*time.Hour, "70.00")

	engine := newEngine(t, cart.NewRepository(conn), nil)
	snap, err := engine.Compute(context.Background(), LastDays(7))
	require.NoError(t, err)

	assert.EqualValues(t, 4, snap.ActiveCarts, "active carts counted regardless of window")
	assert.EqualValues(t, 1, snap.RecentCarts)
	assert.Equal(t, "10.00", snap.ActiveCartPotential.StringFixed(2))
	assert.EqualValues(t, 2, snap.AtRiskCarts)
	assert.Equal(t, "20.00", snap.AbandonedCartPotential.StringFixed(2))
	assert.EqualValues(t, 1, snap.StaleCarts)
	assert.Equal(t, "40.00", snap.StaleCartValue.StringFixed(2))
	assert.Equal(t, "30.00", snap.OverallPotential.StringFixed(2), "stale carts excluded")
	assert.Equal(t, "17.50", snap.AverageActiveValue.StringFixed(2))

	assert.EqualValues(t, 4, snap.TotalCarts, "10 day old cart is outside the 7 day window")
	assert.EqualValues(t, 3, snap.AbandonedCarts)
	assert.Equal(t, 75.00, snap.AbandonmentRate)
}

func TestComputeRangeWindow(t *testing.T) {
	conn := newTestDB(t)
	seed(t, conn, enums.CartStatusConverted, 0, 3*24*time.Hour, "10.00")
	seed(t, conn, enums.CartStatusCleared, 0, 15*24*time.Hour, "10.00")

	engine := newEngine(t, cart.NewRepository(conn), nil)
	w, err := ParseRange("2026-04-01", "2026-04-17")
	require.NoError(t, err)
	snap, err := engine.Compute(context.Background(), w)
	require.NoError(t, err)

	assert.EqualValues(t, 2, snap.TotalCarts)
	assert.EqualValues(t, 0, snap.AbandonedCarts, "cleared carts are not abandoned")
	assert.Equal(t, "2026-04-01", snap.From)
	assert.Equal(t, "2026-04-17", snap.To)
}

func TestComputeCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{}
	kv := cache.NewMemory()
	engine := newEngine(t, source, kv)

	_, err := engine.Compute(ctx, LastDays(30))
	require.NoError(t, err)
	_, err = engine.Compute(ctx, LastDays(30))
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	rng := Range(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	_, err = engine.Compute(ctx, rng)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)

	days := 7
	require.NoError(t, engine.Invalidate(ctx, &days))
	_, err = engine.Compute(ctx, LastDays(30))
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls, "invalidating another window keeps this one")

	require.NoError(t, engine.Invalidate(ctx, nil))
	assert.Equal(t, 0, kv.Len())
	_, err = engine.Compute(ctx, rng)
	require.NoError(t, err)
	assert.Equal(t, 3, source.calls)
}

func TestComputeFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{err: errors.New("connection refused")}
	kv := cache.NewMemory()
	engine := newEngine(t, source, kv)

	_, err := engine.Compute(ctx, LastDays(30))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAnalytics))
	assert.Equal(t, 0, kv.Len())
}

func TestWindowValidation(t *testing.T) {
	assert.Error(t, LastDays(0).Validate())
	assert.NoError(t, LastDays(90).Validate())
	_, err := ParseRange("2026-02-10", "2026-02-01")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseRange("yesterday", "2026-02-01")
	assert.Error(t, err)

	assert.Equal(t, "cw:cart_analytics:window:30", LastDays(30).CacheKey())
	w, err := ParseRange("2026-02-01", "2026-02-10")
	require.NoError(t, err)
	assert.Equal(t, "cw:cart_analytics:range:2026-02-01:2026-02-10", w.CacheKey())
	start, end := w.Bounds(now)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), end)
}

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Aggregate(context.Context, cart.AggregateBounds) (cart.AggregateRow, error) {
	c.calls++
	if c.err != nil {
		return cart.AggregateRow{}, c.err
	}
	return cart.AggregateRow{TotalCarts: 4, ConvertedCarts: 1}, nil
}
