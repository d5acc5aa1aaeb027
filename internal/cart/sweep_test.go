package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepActiveBoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	tracker, _, conn, inv := newTestTracker(t)

	exact, err := tracker.OnCartActivity(ctx, Identity{SessionKey: "exact"}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	setLastUpdated(t, conn, exact.ID, baseNow.Add(-24*time.Hour))

	fresh, err := tracker.OnCartActivity(ctx, Identity{SessionKey: "fresh"}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	setLastUpdated(t, conn, fresh.ID, baseNow.Add(-24*time.Hour+time.Second))

	result, err := tracker.Sweep(ctx, baseNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Recoverable)

	assert.Equal(t, enums.CartStatusRecoverable, loadRecord(t, conn, exact.ID).Status)
	assert.False(t, loadRecord(t, conn, exact.ID).IsActive)
	assert.Equal(t, enums.CartStatusActive, loadRecord(t, conn, fresh.ID).Status)
	assert.Equal(t, 1, inv.calls)
}

func TestSweepNeverTouchesConvertedOrDeleted(t *testing.T) {
	ctx := context.Background()
	tracker, _, conn, inv := newTestTracker(t)

	conv, err := tracker.OnCartActivity(ctx, Identity{CustomerID: 1}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	_, err = tracker.OnOrderCompleted(ctx, Identity{CustomerID: 1})
	require.NoError(t, err)
	del, err := tracker.OnCartActivity(ctx, Identity{SessionKey: "d"}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	_, err = tracker.OnCartEmptied(ctx, Identity{SessionKey: "d"})
	require.NoError(t, err)

	for _, age := range []time.Duration{25 * time.Hour, 8 * 24 * time.Hour, 30 * 24 * time.Hour} {
		setLastUpdated(t, conn, conv.ID, baseNow.Add(-age))
		setLastUpdated(t, conn, del.ID, baseNow.Add(-age))
		result, err := tracker.Sweep(ctx, baseNow)
		require.NoError(t, err)
		assert.Zero(t, result.Total())
	}

	assert.Equal(t, enums.CartStatusConverted, loadRecord(t, conn, conv.ID).Status)
	assert.Equal(t, enums.CartStatusDeleted, loadRecord(t, conn, del.ID).Status)
	assert.Zero(t, inv.calls, "nothing moved, analytics stay cached")
}

func TestSweepAdvancesEachWindow(t *testing.T) {
	ctx := context.Background()
	tracker, _, conn, _ := newTestTracker(t)

	rec, err := tracker.OnCartActivity(ctx, Identity{SessionKey: "ages"}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	setLastUpdated(t, conn, rec.ID, baseNow.Add(-2*24*time.Hour))

	steps := []struct {
		now  time.Time
		want enums.CartStatus
	}{
		{baseNow, enums.CartStatusRecoverable},
		{baseNow.AddDate(0, 0, 6), enums.CartStatusAbandoned},
		{baseNow.AddDate(0, 0, 14), enums.CartStatusCleared},
		{baseNow.AddDate(0, 0, 60), enums.CartStatusCleared},
	}
	for _, step := range steps {
		_, err := tracker.Sweep(ctx, step.now)
		require.NoError(t, err)
		assert.Equal(t, step.want, loadRecord(t, conn, rec.ID).Status, "sweep at %s", step.now)
	}
}

// A cart that skipped windows between sweeps is not fast-forwarded: an active
// cart last touched 10 days ago stays active, and a recoverable cart last
// touched 20 days ago stays recoverable.
func TestSweepWindowsLagForSkippedCarts(t *testing.T) {
	ctx := context.Background()
	tracker, _, conn, _ := newTestTracker(t)

	stale, err := tracker.OnCartActivity(ctx, Identity{SessionKey: "stale"}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	setLastUpdated(t, conn, stale.ID, baseNow.AddDate(0, 0, -10))

	lagging, err := tracker.OnCartActivity(ctx, Identity{SessionKey: "lagging"}, items("1.00"), CustomerInfo{})
	require.NoError(t, err)
	_, err = tracker.Sweep(ctx, baseNow.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Equal(t, enums.CartStatusRecoverable, loadRecord(t, conn, lagging.ID).Status)

	for i := 0; i < 2; i++ {
		_, err = tracker.Sweep(ctx, baseNow.AddDate(0, 0, 20))
		require.NoError(t, err)
	}

	assert.Equal(t, enums.CartStatusActive, loadRecord(t, conn, stale.ID).Status)
	assert.True(t, loadRecord(t, conn, stale.ID).IsActive)
	assert.Equal(t, enums.CartStatusRecoverable, loadRecord(t, conn, lagging.ID).Status)
}
