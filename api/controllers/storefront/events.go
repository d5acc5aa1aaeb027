package storefront

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/goccy/go-json"
)

const maxEventBody = 1 << 20

// EventTracker receives storefront cart and order events.
type EventTracker interface {
	ItemAdded(ctx context.Context, ev cart.CartEvent)
	ItemRemoved(ctx context.Context, ev cart.CartEvent)
	QuantityChanged(ctx context.Context, ev cart.CartEvent)
	CartEmptied(ctx context.Context, ev cart.CartEvent)
	ThankYouViewed(ctx context.Context, ev cart.OrderEvent)
	OrderStatusCompleted(ctx context.Context, ev cart.OrderEvent)
	BillingCaptured(ctx context.Context, ev cart.OrderEvent)
}

// CartEventHandler returns the handler for one of the cart event kinds:
// item-added, item-removed, quantity-changed or cart-emptied. The storefront
// is always answered with 202; unreadable payloads are logged and dropped.
func CartEventHandler(kind string, tracker EventTracker, logg *logger.Logger) http.HandlerFunc {
	dispatch := map[string]func(context.Context, cart.CartEvent){
		"item-added":       tracker.ItemAdded,
		"item-removed":     tracker.ItemRemoved,
		"quantity-changed": tracker.QuantityChanged,
		"cart-emptied":     tracker.CartEmptied,
	}[kind]

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithField(r.Context(), "event", kind)
		var req cartEventRequest
		if err := decodeEvent(r, &req); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "storefront.event.unreadable")
			responses.WriteAccepted(w)
			return
		}
		if dispatch != nil {
			dispatch(ctx, req.toEvent())
		}
		responses.WriteAccepted(w)
	}
}

// OrderEventHandler is the order milestone counterpart of CartEventHandler:
// thank-you-viewed, status-completed or billing-captured.
func OrderEventHandler(kind string, tracker EventTracker, logg *logger.Logger) http.HandlerFunc {
	dispatch := map[string]func(context.Context, cart.OrderEvent){
		"thank-you-viewed": tracker.ThankYouViewed,
		"status-completed": tracker.OrderStatusCompleted,
		"billing-captured": tracker.BillingCaptured,
	}[kind]

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithField(r.Context(), "event", kind)
		var req orderEventRequest
		if err := decodeEvent(r, &req); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "storefront.event.unreadable")
			responses.WriteAccepted(w)
			return
		}
		if dispatch != nil {
			dispatch(ctx, req.toEvent())
		}
		responses.WriteAccepted(w)
	}
}

// CartEventKinds and OrderEventKinds list the routable event names.
var (
	CartEventKinds  = []string{"item-added", "item-removed", "quantity-changed", "cart-emptied"}
	OrderEventKinds = []string{"thank-you-viewed", "status-completed", "billing-captured"}
)

func decodeEvent(r *http.Request, dest any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}
