package storefront

import (
	"strings"

	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
)

type cartEventRequest struct {
	SessionKey        string          `json:"session_key"`
	CustomerID        int64           `json:"customer_id"`
	CustomerEmail     string          `json:"customer_email"`
	CustomerName      string          `json:"customer_name"`
	PastPurchaseCount int             `json:"past_purchase_count"`
	Items             types.CartItems `json:"items"`
}

func (r cartEventRequest) toEvent() cart.CartEvent {
	return cart.CartEvent{
		Identity: cart.Identity{SessionKey: strings.TrimSpace(r.SessionKey), CustomerID: r.CustomerID},
		Items:    r.Items,
		Customer: cart.CustomerInfo{
			Email:             strings.TrimSpace(r.CustomerEmail),
			Name:              strings.TrimSpace(r.CustomerName),
			PastPurchaseCount: r.PastPurchaseCount,
		},
	}
}

type orderEventRequest struct {
	OrderID      string `json:"order_id"`
	SessionKey   string `json:"session_key"`
	CustomerID   int64  `json:"customer_id"`
	BillingEmail string `json:"billing_email"`
	BillingName  string `json:"billing_name"`
}

func (r orderEventRequest) toEvent() cart.OrderEvent {
	return cart.OrderEvent{
		OrderID:      strings.TrimSpace(r.OrderID),
		Identity:     cart.Identity{SessionKey: strings.TrimSpace(r.SessionKey), CustomerID: r.CustomerID},
		BillingEmail: strings.TrimSpace(r.BillingEmail),
		BillingName:  strings.TrimSpace(r.BillingName),
	}
}
