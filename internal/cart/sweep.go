package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/google/uuid"
)

// SweepResult counts the records each rule moved.
type SweepResult struct {
	Recoverable int64 `json:"recoverable"`
	Abandoned   int64 `json:"abandoned"`
	Cleared     int64 `json:"cleared"`
}

// Total is the number of records moved in the pass.
func (r SweepResult) Total() int64 {
	return r.Recoverable + r.Abandoned + r.Cleared
}

type sweepRule struct {
	from         enums.CartStatus
	to           enums.CartStatus
	olderOrEqual time.Duration
	newerThan    time.Duration
}

// Rules run in ascending severity. Each rule only sees its own age window, so
// a cart that skipped windows between sweeps stays one status behind until a
// later pass catches it. Active carts older than AbandonedAfter therefore
// remain active and surface as stale in analytics.
var sweepRules = []sweepRule{
	{from: enums.CartStatusActive, to: enums.CartStatusRecoverable, olderOrEqual: RecoverableAfter, newerThan: AbandonedAfter},
	{from: enums.CartStatusRecoverable, to: enums.CartStatusAbandoned, olderOrEqual: AbandonedAfter, newerThan: ClearedAfter},
	{from: enums.CartStatusAbandoned, to: enums.CartStatusCleared, olderOrEqual: ClearedAfter},
}

// Sweep re-derives time based statuses as of now. Converted and deleted carts
// are never selected. Cached analytics are dropped when anything moved.
func (t *Tracker) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	for _, rule := range sweepRules {
		var newerThan time.Time
		if rule.newerThan > 0 {
			newerThan = now.Add(-rule.newerThan)
		}
		rows, err := t.store.ListInWindow(ctx, rule.from, now.Add(-rule.olderOrEqual), newerThan)
		if err != nil {
			return result, err
		}
		if len(rows) == 0 {
			continue
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		moved, err := t.store.BatchSetStatus(ctx, ids, rule.to, rule.from)
		if err != nil {
			return result, err
		}
		switch rule.to {
		case enums.CartStatusRecoverable:
			result.Recoverable = moved
		case enums.CartStatusAbandoned:
			result.Abandoned = moved
		case enums.CartStatusCleared:
			result.Cleared = moved
		}
		t.metrics.AddTransitions(string(rule.to), "sweep", moved)
	}

	if result.Total() > 0 && t.analytics != nil {
		if err := t.analytics.Invalidate(ctx, nil); err != nil {
			t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "cart.sweep.analytics_invalidate_failed")
		}
	}
	t.logg.Info(t.logg.WithFields(ctx, map[string]any{
		"recoverable": result.Recoverable,
		"abandoned":   result.Abandoned,
		"cleared":     result.Cleared,
	}), "cart.sweep.completed")
	return result, nil
}
