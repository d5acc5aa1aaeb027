package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const archiveBatchSize = 500

// Repository persists cart snapshots and their archive.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, now: r.now}
}

// FindCurrent returns the most recently updated active record for the
// identity, or nil when none exists. A customer without a cart of their own
// falls back to the guest cart of the same session.
func (r *Repository) FindCurrent(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	if !identity.Usable() {
		return nil, nil
	}
	record, err := r.findActive(ctx, identity)
	if err != nil || record != nil {
		return record, err
	}
	if guest, ok := identity.sessionOnly(); ok {
		return r.findActive(ctx, guest)
	}
	return nil, nil
}

func (r *Repository) findActive(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if identity.CustomerID > 0 {
		q = q.Where("customer_id = ?", identity.CustomerID)
	} else {
		q = q.Where("customer_id = 0 AND session_key = ?", strings.TrimSpace(identity.SessionKey))
	}
	var record models.CartRecord
	err := q.Order("last_updated DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert refreshes the current active record for the identity in place, or
// inserts a new active record when none exists. Total and lastUpdated are
// always recomputed.
func (r *Repository) Upsert(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	identity := Identity{SessionKey: record.SessionKey, CustomerID: record.CustomerID}
	existing, err := r.FindCurrent(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	record.Total = record.Items.Total()
	record.LastUpdated = now
	record.IsActive = true
	record.Status = enums.CartStatusActive

	if existing == nil {
		record.ID = uuid.Nil
		if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
			return nil, err
		}
		return record, nil
	}

	existing.Items = record.Items
	existing.Total = record.Total
	existing.LastUpdated = now
	existing.IsActive = true
	existing.Status = enums.CartStatusActive
	existing.PastPurchaseCount = record.PastPurchaseCount
	if record.CustomerID > 0 {
		existing.CustomerID = record.CustomerID
	}
	if record.SessionKey != "" {
		existing.SessionKey = record.SessionKey
	}
	if record.CustomerEmail != "" {
		existing.CustomerEmail = record.CustomerEmail
	}
	if record.CustomerName != "" {
		existing.CustomerName = record.CustomerName
	}
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// SetStatus deactivates the current record for the identity with the given
// status. It returns nil when the identity has no active record.
func (r *Repository) SetStatus(ctx context.Context, identity Identity, status enums.CartStatus) (*models.CartRecord, error) {
	existing, err := r.FindCurrent(ctx, identity)
	if err != nil || existing == nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ? AND is_active = ?", existing.ID, true).
		Updates(map[string]any{
			"status":    status,
			"is_active": status.IsActive(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	existing.Status = status
	existing.IsActive = status.IsActive()
	return existing, nil
}

// UpdateContact copies billing contact details onto the active record.
func (r *Repository) UpdateContact(ctx context.Context, identity Identity, email, name string) (*models.CartRecord, error) {
	existing, err := r.FindCurrent(ctx, identity)
	if err != nil || existing == nil {
		return nil, err
	}
	updates := map[string]any{}
	if email = strings.TrimSpace(email); email != "" {
		updates["customer_email"] = email
		existing.CustomerEmail = email
	}
	if name = strings.TrimSpace(name); name != "" {
		updates["customer_name"] = name
		existing.CustomerName = name
	}
	if len(updates) == 0 {
		return existing, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.CartRecord{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// BatchSetStatus moves ids into status in one statement. Converted and deleted
// rows never move. A non-empty from narrows the update to rows still in that
// status.
func (r *Repository) BatchSetStatus(ctx context.Context, ids []uuid.UUID, status enums.CartStatus, from enums.CartStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id IN ?", ids).
		Where("status NOT IN ?", enums.TerminalCartStatuses)
	if from != "" {
		q = q.Where("status = ?", from)
	}
	res := q.Updates(map[string]any{
		"status":    status,
		"is_active": status.IsActive(),
	})
	return res.RowsAffected, res.Error
}

// ListInWindow returns id and identity columns of records in status whose
// lastUpdated is at or before olderOrEqual and, when newerThan is non-zero,
// strictly after newerThan.
func (r *Repository) ListInWindow(ctx context.Context, status enums.CartStatus, olderOrEqual, newerThan time.Time) ([]models.CartRecord, error) {
	q := r.db.WithContext(ctx).
		Select("id", "session_key", "customer_id").
		Where("status = ? AND last_updated <= ?", status, olderOrEqual.UTC())
	if !newerThan.IsZero() {
		q = q.Where("last_updated > ?", newerThan.UTC())
	}
	var rows []models.CartRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IdentitiesByID loads the identity columns for ids.
func (r *Repository) IdentitiesByID(ctx context.Context, ids []uuid.UUID) ([]Identity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.CartRecord
	if err := r.db.WithContext(ctx).Select("session_key", "customer_id").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Identity, 0, len(rows))
	for _, row := range rows {
		out = append(out, Identity{SessionKey: row.SessionKey, CustomerID: row.CustomerID})
	}
	return out, nil
}

// Get loads one record by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListActiveSince returns active records updated at or after since, newest first.
func (r *Repository) ListActiveSince(ctx context.Context, since time.Time) ([]models.CartRecord, error) {
	var rows []models.CartRecord
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND last_updated >= ?", true, since.UTC()).
		Order("last_updated DESC").
		Find(&rows).Error
	return rows, err
}

// ListHistory returns every record updated at or after since matching filter,
// newest first.
func (r *Repository) ListHistory(ctx context.Context, since time.Time, filter enums.HistoryFilter) ([]models.CartRecord, error) {
	q := r.db.WithContext(ctx).Where("last_updated >= ?", since.UTC())
	switch filter {
	case enums.HistoryFilterConverted:
		q = q.Where("status = ?", enums.CartStatusConverted)
	case enums.HistoryFilterDeleted:
		q = q.Where("status = ?", enums.CartStatusDeleted)
	case enums.HistoryFilterAbandoned:
		q = q.Where("status IN ?", []enums.CartStatus{enums.CartStatusRecoverable, enums.CartStatusAbandoned})
	case enums.HistoryFilterInactive:
		q = q.Where("is_active = ?", false)
	}
	var rows []models.CartRecord
	err := q.Order("last_updated DESC").Find(&rows).Error
	return rows, err
}

// CompletedOrders counts converted carts of the customer, live and archived.
// It serves as the purchase counter when the storefront cannot be queried.
func (r *Repository) CompletedOrders(ctx context.Context, customerID int64) (int, error) {
	if customerID <= 0 {
		return 0, nil
	}
	var live, archived int64
	if err := r.db.WithContext(ctx).Model(&models.CartRecord{}).
		Where("customer_id = ? AND status = ?", customerID, enums.CartStatusConverted).
		Count(&live).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.ArchivedCartRecord{}).
		Where("customer_id = ? AND status = ?", customerID, enums.CartStatusConverted).
		Count(&archived).Error; err != nil {
		return 0, err
	}
	return int(live + archived), nil
}

// ArchiveOlderThan moves inactive records last updated before cutoff into the
// archive table.
func (r *Repository) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.CartRecord
		if err := tx.Where("is_active = ? AND last_updated < ?", false, cutoff.UTC()).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		archivedAt := r.now().UTC()
		archived := make([]models.ArchivedCartRecord, 0, len(rows))
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			archived = append(archived, toArchived(row, archivedAt))
			ids = append(ids, row.ID)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&archived, archiveBatchSize).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.CartRecord{})
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected
		return nil
	})
	return moved, err
}

// PurgeArchiveOlderThan deletes archive rows archived before cutoff.
func (r *Repository) PurgeArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("archived_at < ?", cutoff.UTC()).Delete(&models.ArchivedCartRecord{})
	return res.RowsAffected, res.Error
}

// RestoreArchivedSince moves archive rows archived at or after cutoff back into
// the live table. Rows whose id already exists live are skipped, which makes
// repeated restores harmless.
func (r *Repository) RestoreArchivedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var restored int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.ArchivedCartRecord
		if err := tx.Where("archived_at >= ?", cutoff.UTC()).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		live := make([]models.CartRecord, 0, len(rows))
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			live = append(live, fromArchived(row))
			ids = append(ids, row.ID)
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&live, archiveBatchSize)
		if res.Error != nil {
			return res.Error
		}
		restored = res.RowsAffected
		return tx.Where("id IN ?", ids).Delete(&models.ArchivedCartRecord{}).Error
	})
	return restored, err
}

func toArchived(row models.CartRecord, archivedAt time.Time) models.ArchivedCartRecord {
	return models.ArchivedCartRecord{
		ID:                row.ID,
		SessionKey:        row.SessionKey,
		CustomerID:        row.CustomerID,
		Items:             row.Items,
		Total:             row.Total,
		CustomerEmail:     row.CustomerEmail,
		CustomerName:      row.CustomerName,
		PastPurchaseCount: row.PastPurchaseCount,
		LastUpdated:       row.LastUpdated,
		IsActive:          row.IsActive,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
		ArchivedAt:        archivedAt,
	}
}

func fromArchived(row models.ArchivedCartRecord) models.CartRecord {
	return models.CartRecord{
		ID:                row.ID,
		SessionKey:        row.SessionKey,
		CustomerID:        row.CustomerID,
		Items:             row.Items,
		Total:             row.Total,
		CustomerEmail:     row.CustomerEmail,
		CustomerName:      row.CustomerName,
		PastPurchaseCount: row.PastPurchaseCount,
		LastUpdated:       row.LastUpdated,
		IsActive:          row.IsActive,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
	}
}
