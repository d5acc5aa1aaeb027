package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/metrics"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
	"github.com/google/uuid"
)

// Lifecycle thresholds, measured from lastUpdated.
const (
	RecoverableAfter = 24 * time.Hour
	AbandonedAfter   = 7 * 24 * time.Hour
	ClearedAfter     = 15 * 24 * time.Hour
)

// recordStore is the persistence surface the tracker mutates.
type recordStore interface {
	FindCurrent(ctx context.Context, identity Identity) (*models.CartRecord, error)
	Upsert(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	SetStatus(ctx context.Context, identity Identity, status enums.CartStatus) (*models.CartRecord, error)
	UpdateContact(ctx context.Context, identity Identity, email, name string) (*models.CartRecord, error)
	BatchSetStatus(ctx context.Context, ids []uuid.UUID, status enums.CartStatus, from enums.CartStatus) (int64, error)
	ListInWindow(ctx context.Context, status enums.CartStatus, olderOrEqual, newerThan time.Time) ([]models.CartRecord, error)
}

// PurchaseCounter answers how many completed orders a customer has placed.
type PurchaseCounter interface {
	CompletedOrders(ctx context.Context, customerID int64) (int, error)
}

// AnalyticsInvalidator drops cached analytics; nil days clears every window.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, days *int) error
}

// CustomerInfo is the denormalized shopper data copied onto a cart.
type CustomerInfo struct {
	Email             string
	Name              string
	PastPurchaseCount int
}

// TrackerParams groups the tracker dependencies.
type TrackerParams struct {
	Store     recordStore
	Purchases PurchaseCounter
	Analytics AnalyticsInvalidator
	Metrics   *metrics.CartMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

// Tracker is the cart state machine. Storefront events and the periodic sweep
// both go through it.
type Tracker struct {
	store     recordStore
	purchases PurchaseCounter
	analytics AnalyticsInvalidator
	metrics   *metrics.CartMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewTracker validates the dependencies and builds a Tracker.
func NewTracker(params TrackerParams) (*Tracker, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		store:     params.Store,
		purchases: params.Purchases,
		analytics: params.Analytics,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// OnCartActivity records the current cart contents. Empty contents mark the
// cart deleted instead of writing an empty snapshot.
func (t *Tracker) OnCartActivity(ctx context.Context, identity Identity, items types.CartItems, customer CustomerInfo) (*models.CartRecord, error) {
	if !identity.Usable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart identity requires a customer id or session key")
	}
	if len(items) == 0 {
		return t.OnCartEmptied(ctx, identity)
	}

	record := &models.CartRecord{
		SessionKey:        identity.SessionKey,
		CustomerID:        identity.CustomerID,
		Items:             items,
		CustomerEmail:     customer.Email,
		CustomerName:      customer.Name,
		PastPurchaseCount: t.pastPurchases(ctx, identity, customer.PastPurchaseCount),
	}
	saved, err := t.store.Upsert(ctx, record)
	if err != nil {
		return nil, err
	}
	t.metrics.AddTransitions(string(enums.CartStatusActive), "activity", 1)
	return saved, nil
}

// OnOrderCompleted converts the identity's active cart no matter how old it is.
func (t *Tracker) OnOrderCompleted(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	return t.transition(ctx, identity, enums.CartStatusConverted, "order")
}

// OnCartEmptied marks the identity's active cart deleted.
func (t *Tracker) OnCartEmptied(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	return t.transition(ctx, identity, enums.CartStatusDeleted, "emptied")
}

// OnBillingCaptured copies checkout billing details onto the active cart.
func (t *Tracker) OnBillingCaptured(ctx context.Context, identity Identity, email, name string) (*models.CartRecord, error) {
	if !identity.Usable() {
		return nil, nil
	}
	return t.store.UpdateContact(ctx, identity, email, name)
}

func (t *Tracker) transition(ctx context.Context, identity Identity, status enums.CartStatus, trigger string) (*models.CartRecord, error) {
	if !identity.Usable() {
		return nil, nil
	}
	updated, err := t.store.SetStatus(ctx, identity, status)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		t.metrics.AddTransitions(string(status), trigger, 1)
	}
	return updated, nil
}

func (t *Tracker) pastPurchases(ctx context.Context, identity Identity, supplied int) int {
	if t.purchases == nil || identity.CustomerID <= 0 {
		return supplied
	}
	count, err := t.purchases.CompletedOrders(ctx, identity.CustomerID)
	if err != nil {
		t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "cart.purchase_count.lookup_failed")
		return supplied
	}
	return count
}
