package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	first, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "sess-1", Items: items("10.00")})
	require.NoError(t, err)

	repo.now = func() time.Time { return baseNow.Add(time.Minute) }
	second, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "sess-1", Items: items("10.00", "5.50"), CustomerEmail: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	rows := allRecords(t, conn)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Total.Equal(items("15.50").Total()))
	assert.Len(t, rows[0].Items, 2)
	assert.Equal(t, "a@example.com", rows[0].CustomerEmail)
	assert.True(t, rows[0].LastUpdated.Equal(baseNow.Add(time.Minute)))
}

func TestRepositoryFindCurrentPrefersCustomer(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	guest, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "sess-1", Items: items("3.00")})
	require.NoError(t, err)

	found, err := repo.FindCurrent(ctx, Identity{SessionKey: "sess-1", CustomerID: 7})
	require.NoError(t, err)
	require.NotNil(t, found, "customer without a cart adopts the session cart")
	assert.Equal(t, guest.ID, found.ID)

	adopted, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "sess-1", CustomerID: 7, Items: items("3.00")})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, adopted.ID)
	assert.EqualValues(t, 7, adopted.CustomerID)

	other, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "sess-2", CustomerID: 7, Items: items("1.00")})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, other.ID, "customer id wins over a different session key")

	none, err := repo.FindCurrent(ctx, Identity{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepositorySetStatusNoopWithoutActiveCart(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	updated, err := repo.SetStatus(ctx, Identity{SessionKey: "missing"}, enums.CartStatusDeleted)
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestRepositoryBatchSetStatusSkipsTerminal(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	open, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "a", Items: items("1.00")})
	require.NoError(t, err)
	converted, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "b", Items: items("1.00")})
	require.NoError(t, err)
	_, err = repo.SetStatus(ctx, Identity{SessionKey: "b"}, enums.CartStatusConverted)
	require.NoError(t, err)

	moved, err := repo.BatchSetStatus(ctx, []uuid.UUID{open.ID, converted.ID}, enums.CartStatusRecoverable, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, moved)

	assert.Equal(t, enums.CartStatusRecoverable, loadRecord(t, conn, open.ID).Status)
	assert.False(t, loadRecord(t, conn, open.ID).IsActive)
	assert.Equal(t, enums.CartStatusConverted, loadRecord(t, conn, converted.ID).Status)
}

func TestRepositoryListHistoryFilters(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	seed := map[string]enums.CartStatus{
		"s-active":      enums.CartStatusActive,
		"s-recoverable": enums.CartStatusRecoverable,
		"s-abandoned":   enums.CartStatusAbandoned,
		"s-converted":   enums.CartStatusConverted,
		"s-deleted":     enums.CartStatusDeleted,
	}
	for session, status := range seed {
		rec, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: session, Items: items("2.00")})
		require.NoError(t, err)
		if status != enums.CartStatusActive {
			require.NoError(t, conn.Model(&models.CartRecord{}).Where("id = ?", rec.ID).
				Updates(map[string]any{"status": status, "is_active": false}).Error)
		}
	}
	since := baseNow.Add(-24 * time.Hour)

	cases := map[enums.HistoryFilter]int{
		enums.HistoryFilterAll:       5,
		enums.HistoryFilterConverted: 1,
		enums.HistoryFilterDeleted:   1,
		enums.HistoryFilterAbandoned: 2,
		enums.HistoryFilterInactive:  4,
	}
	for filter, want := range cases {
		rows, err := repo.ListHistory(ctx, since, filter)
		require.NoError(t, err)
		assert.Len(t, rows, want, "filter %s", filter)
	}

	active, err := repo.ListActiveSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s-active", active[0].SessionKey)
}

func TestRepositoryArchiveRestorePurge(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	old, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "old", Items: items("4.00")})
	require.NoError(t, err)
	_, err = repo.SetStatus(ctx, Identity{SessionKey: "old"}, enums.CartStatusConverted)
	require.NoError(t, err)
	setLastUpdated(t, conn, old.ID, baseNow.AddDate(0, 0, -100))

	live, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "live", Items: items("4.00")})
	require.NoError(t, err)
	setLastUpdated(t, conn, live.ID, baseNow.AddDate(0, 0, -100))

	moved, err := repo.ArchiveOlderThan(ctx, baseNow.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 1, moved, "active carts are never archived")

	var archived []models.ArchivedCartRecord
	require.NoError(t, conn.Find(&archived).Error)
	require.Len(t, archived, 1)
	assert.Equal(t, old.ID, archived[0].ID)
	assert.True(t, archived[0].ArchivedAt.Equal(baseNow))

	restored, err := repo.RestoreArchivedSince(ctx, baseNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, restored)
	back := loadRecord(t, conn, old.ID)
	assert.Equal(t, enums.CartStatusConverted, back.Status)

	again, err := repo.RestoreArchivedSince(ctx, baseNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, again)

	_, err = repo.ArchiveOlderThan(ctx, baseNow.AddDate(0, 0, -90))
	require.NoError(t, err)
	purged, err := repo.PurgeArchiveOlderThan(ctx, baseNow.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

func TestRepositoryRestoreKeepsTerminalCartsInactive(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	rec, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "buyer", Items: items("9.00")})
	require.NoError(t, err)
	_, err = repo.SetStatus(ctx, Identity{SessionKey: "buyer"}, enums.CartStatusConverted)
	require.NoError(t, err)
	setLastUpdated(t, conn, rec.ID, baseNow.AddDate(0, 0, -100))

	_, err = repo.ArchiveOlderThan(ctx, baseNow.AddDate(0, 0, -90))
	require.NoError(t, err)
	restored, err := repo.RestoreArchivedSince(ctx, baseNow.Add(-time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, restored)

	back := loadRecord(t, conn, rec.ID)
	assert.Equal(t, enums.CartStatusConverted, back.Status)
	assert.False(t, back.IsActive)

	current, err := repo.FindCurrent(ctx, Identity{SessionKey: "buyer"})
	require.NoError(t, err)
	assert.Nil(t, current, "a restored converted cart is not the current cart")

	next, err := repo.Upsert(ctx, &models.CartRecord{SessionKey: "buyer", Items: items("1.00")})
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, next.ID)
	assert.Equal(t, enums.CartStatusConverted, loadRecord(t, conn, rec.ID).Status)
}

func TestRepositoryCompletedOrdersCountsLiveAndArchive(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	for i, status := range []enums.CartStatus{enums.CartStatusConverted, enums.CartStatusConverted, enums.CartStatusDeleted} {
		rec := models.CartRecord{
			SessionKey:  "s",
			CustomerID:  11,
			Items:       items("1.00"),
			LastUpdated: baseNow.Add(-time.Duration(i) * time.Hour),
			Status:      status,
		}
		require.NoError(t, conn.Create(&rec).Error)
	}
	require.NoError(t, conn.Create(&models.ArchivedCartRecord{
		ID:          uuid.New(),
		CustomerID:  11,
		Items:       items("2.00"),
		LastUpdated: baseNow.AddDate(-1, 0, 0),
		Status:      enums.CartStatusConverted,
		ArchivedAt:  baseNow,
	}).Error)

	count, err := repo.CompletedOrders(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.CompletedOrders(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
}
