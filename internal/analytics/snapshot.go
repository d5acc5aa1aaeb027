package analytics

import (
	"math"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/shopspring/decimal"
)

// Snapshot is the computed rollup for one window. Window-scoped counts cover
// records updated inside the window; active counts and revenue potential
// cover every active cart.
type Snapshot struct {
	WindowDays  int       `json:"window_days,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalCarts      int64   `json:"total_carts"`
	ConvertedCarts  int64   `json:"converted_carts"`
	DeletedCarts    int64   `json:"deleted_carts"`
	AbandonedCarts  int64   `json:"abandoned_carts"`
	ConversionRate  float64 `json:"conversion_rate"`
	AbandonmentRate float64 `json:"abandonment_rate"`

	RegisteredCarts          int64   `json:"registered_carts"`
	RegisteredConverted      int64   `json:"registered_converted"`
	RegisteredConversionRate float64 `json:"registered_conversion_rate"`
	GuestCarts               int64   `json:"guest_carts"`
	GuestConverted           int64   `json:"guest_converted"`
	GuestConversionRate      float64 `json:"guest_conversion_rate"`

	ActiveCarts           int64           `json:"active_carts"`
	AverageActiveValue    decimal.Decimal `json:"average_active_value"`
	AverageConvertedValue decimal.Decimal `json:"average_converted_value"`

	RecentCarts            int64           `json:"recent_carts"`
	ActiveCartPotential    decimal.Decimal `json:"active_cart_potential"`
	AtRiskCarts            int64           `json:"at_risk_carts"`
	AbandonedCartPotential decimal.Decimal `json:"abandoned_cart_potential"`
	OverallPotential       decimal.Decimal `json:"overall_potential"`
	StaleCarts             int64           `json:"stale_carts"`
	StaleCartValue         decimal.Decimal `json:"stale_cart_value"`
}

func newSnapshot(row cart.AggregateRow) *Snapshot {
	s := &Snapshot{
		TotalCarts:          row.TotalCarts,
		ConvertedCarts:      row.ConvertedCarts,
		DeletedCarts:        row.DeletedCarts,
		AbandonedCarts:      row.AbandonedCarts,
		RegisteredCarts:     row.RegisteredCarts,
		RegisteredConverted: row.RegisteredConverted,
		GuestCarts:          row.GuestCarts,
		GuestConverted:      row.GuestConverted,
		ActiveCarts:         row.ActiveCarts,
		RecentCarts:         row.RecentCarts,
		AtRiskCarts:         row.AtRiskCarts,
		StaleCarts:          row.StaleCarts,

		ConversionRate:           percent(row.ConvertedCarts, row.TotalCarts),
		AbandonmentRate:          percent(row.AbandonedCarts, row.TotalCarts),
		RegisteredConversionRate: percent(row.RegisteredConverted, row.RegisteredCarts),
		GuestConversionRate:      percent(row.GuestConverted, row.GuestCarts),

		AverageActiveValue:     average(row.ActiveValue, row.ActiveCarts),
		AverageConvertedValue:  average(row.ConvertedValue, row.ConvertedCarts),
		ActiveCartPotential:    row.RecentValue.Round(2),
		AbandonedCartPotential: row.AtRiskValue.Round(2),
		StaleCartValue:         row.StaleValue.Round(2),
	}
	s.OverallPotential = s.ActiveCartPotential.Add(s.AbandonedCartPotential)
	return s
}

// percent returns part/whole*100 rounded to two places, or 0 for an empty whole.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

func average(sum decimal.Decimal, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(count)).Round(2)
}
