package cart

import (
	"context"

	"github.com/angelmondragon/cartwatch-backend/pkg/types"
)

// CartEvent is a storefront cart change: the full current contents plus who
// the cart belongs to.
type CartEvent struct {
	Identity Identity
	Items    types.CartItems
	Customer CustomerInfo
}

// OrderEvent is a storefront order milestone.
type OrderEvent struct {
	OrderID      string
	Identity     Identity
	BillingEmail string
	BillingName  string
}

// Storefront entry points. They never return errors: tracking must not break
// the shopper's flow, so failures are logged and counted instead.

func (t *Tracker) ItemAdded(ctx context.Context, ev CartEvent) {
	t.track(ctx, "item_added", ev.Identity, "", func(ctx context.Context) error {
		_, err := t.OnCartActivity(ctx, ev.Identity, ev.Items, ev.Customer)
		return err
	})
}

func (t *Tracker) ItemRemoved(ctx context.Context, ev CartEvent) {
	t.track(ctx, "item_removed", ev.Identity, "", func(ctx context.Context) error {
		_, err := t.OnCartActivity(ctx, ev.Identity, ev.Items, ev.Customer)
		return err
	})
}

func (t *Tracker) QuantityChanged(ctx context.Context, ev CartEvent) {
	t.track(ctx, "quantity_changed", ev.Identity, "", func(ctx context.Context) error {
		_, err := t.OnCartActivity(ctx, ev.Identity, ev.Items, ev.Customer)
		return err
	})
}

func (t *Tracker) CartEmptied(ctx context.Context, ev CartEvent) {
	t.track(ctx, "cart_emptied", ev.Identity, "", func(ctx context.Context) error {
		_, err := t.OnCartEmptied(ctx, ev.Identity)
		return err
	})
}

func (t *Tracker) ThankYouViewed(ctx context.Context, ev OrderEvent) {
	t.track(ctx, "thank_you_viewed", ev.Identity, ev.OrderID, func(ctx context.Context) error {
		_, err := t.OnOrderCompleted(ctx, ev.Identity)
		return err
	})
}

func (t *Tracker) OrderStatusCompleted(ctx context.Context, ev OrderEvent) {
	t.track(ctx, "order_status_completed", ev.Identity, ev.OrderID, func(ctx context.Context) error {
		_, err := t.OnOrderCompleted(ctx, ev.Identity)
		return err
	})
}

func (t *Tracker) BillingCaptured(ctx context.Context, ev OrderEvent) {
	t.track(ctx, "billing_captured", ev.Identity, ev.OrderID, func(ctx context.Context) error {
		_, err := t.OnBillingCaptured(ctx, ev.Identity, ev.BillingEmail, ev.BillingName)
		return err
	})
}

func (t *Tracker) track(ctx context.Context, event string, identity Identity, orderID string, fn func(context.Context) error) {
	ctx = t.logg.WithCartIdentity(ctx, identity.CustomerID, identity.SessionKey)
	ctx = t.logg.WithField(ctx, "event", event)
	if orderID != "" {
		ctx = t.logg.WithField(ctx, "order_id", orderID)
	}
	if err := fn(ctx); err != nil {
		t.metrics.IncTrackingFailure(event)
		t.logg.Error(ctx, "cart.tracking.failed", err)
		return
	}
	t.logg.Debug(ctx, "cart.tracking.recorded")
}
