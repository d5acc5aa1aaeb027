package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateBounds are the cut points for one analytics pass. Rows inside
// [Start, End) are window scoped; active rows are always read.
type AggregateBounds struct {
	Start        time.Time
	End          time.Time
	ActiveCutoff time.Time
	StaleCutoff  time.Time
}

// AggregateRow holds every conditional sum of one analytics pass.
type AggregateRow struct {
	TotalCarts          int64           `gorm:"column:total_carts"`
	ConvertedCarts      int64           `gorm:"column:converted_carts"`
	DeletedCarts        int64           `gorm:"column:deleted_carts"`
	AbandonedCarts      int64           `gorm:"column:abandoned_carts"`
	RegisteredCarts     int64           `gorm:"column:registered_carts"`
	RegisteredConverted int64           `gorm:"column:registered_converted"`
	GuestCarts          int64           `gorm:"column:guest_carts"`
	GuestConverted      int64           `gorm:"column:guest_converted"`
	ConvertedValue      decimal.Decimal `gorm:"column:converted_value"`
	ActiveCarts         int64           `gorm:"column:active_carts"`
	ActiveValue         decimal.Decimal `gorm:"column:active_value"`
	RecentCarts         int64           `gorm:"column:recent_carts"`
	RecentValue         decimal.Decimal `gorm:"column:recent_value"`
	AtRiskCarts         int64           `gorm:"column:at_risk_carts"`
	AtRiskValue         decimal.Decimal `gorm:"column:at_risk_value"`
	StaleCarts          int64           `gorm:"column:stale_carts"`
	StaleValue          decimal.Decimal `gorm:"column:stale_value"`
}

const aggregateSQL = `
SELECT
  COALESCE(SUM(in_window), 0) AS total_carts,
  COALESCE(SUM(CASE WHEN in_window = 1 AND status = 'converted' THEN 1 ELSE 0 END), 0) AS converted_carts,
  COALESCE(SUM(CASE WHEN in_window = 1 AND status = 'deleted' THEN 1 ELSE 0 END), 0) AS deleted_carts,
  COALESCE(SUM(CASE WHEN in_window = 1 AND status IN ('active', 'recoverable', 'abandoned') AND last_updated <= @active_cutoff THEN 1 ELSE 0 END), 0) AS abandoned_carts,
  COALESCE(SUM(CASE WHEN in_window = 1 AND customer_id > 0 THEN 1 ELSE 0 END), 0) AS registered_carts,
  COALESCE(SUM(CASE WHEN in_window = 1 AND customer_id > 0 AND status = 'converted' THEN 1 ELSE 0 END), 0) AS registered_converted,
  COALESCE(SUM(CASE WHEN in_window = 1 AND customer_id <= 0 THEN 1 ELSE 0 END), 0) AS guest_carts,
  COALESCE(SUM(CASE WHEN in_window = 1 AND customer_id <= 0 AND status = 'converted' THEN 1 ELSE 0 END), 0) AS guest_converted,
  COALESCE(SUM(CASE WHEN in_window = 1 AND status = 'converted' THEN total ELSE 0 END), 0) AS converted_value,
  COALESCE(SUM(CASE WHEN is_active = @active THEN 1 ELSE 0 END), 0) AS active_carts,
  COALESCE(SUM(CASE WHEN is_active = @active THEN total ELSE 0 END), 0) AS active_value,
  COALESCE(SUM(CASE WHEN is_active = @active AND last_updated > @active_cutoff THEN 1 ELSE 0 END), 0) AS recent_carts,
  COALESCE(SUM(CASE WHEN is_active = @active AND last_updated > @active_cutoff THEN total ELSE 0 END), 0) AS recent_value,
  COALESCE(SUM(CASE WHEN is_active = @active AND last_updated <= @active_cutoff AND last_updated > @stale_cutoff THEN 1 ELSE 0 END), 0) AS at_risk_carts,
  COALESCE(SUM(CASE WHEN is_active = @active AND last_updated <= @active_cutoff AND last_updated > @stale_cutoff THEN total ELSE 0 END), 0) AS at_risk_value,
  COALESCE(SUM(CASE WHEN is_active = @active AND last_updated <= @stale_cutoff THEN 1 ELSE 0 END), 0) AS stale_carts,
  COALESCE(SUM(CASE WHEN is_active = @active AND last_updated <= @stale_cutoff THEN total ELSE 0 END), 0) AS stale_value
FROM (
  SELECT
    status, is_active, customer_id, total, last_updated,
    CASE WHEN last_updated >= @start AND last_updated < @end THEN 1 ELSE 0 END AS in_window
  FROM cart_records
  WHERE (last_updated >= @start AND last_updated < @end) OR is_active = @active
) scoped
`

// Aggregate runs the single analytics pass over the live table.
func (r *Repository) Aggregate(ctx context.Context, bounds AggregateBounds) (AggregateRow, error) {
	var row AggregateRow
	err := r.db.WithContext(ctx).Raw(aggregateSQL, map[string]any{
		"start":         bounds.Start.UTC(),
		"end":           bounds.End.UTC(),
		"active_cutoff": bounds.ActiveCutoff.UTC(),
		"stale_cutoff":  bounds.StaleCutoff.UTC(),
		"active":        true,
	}).Scan(&row).Error
	return row, err
}
