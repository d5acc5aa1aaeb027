package cart

import (
	"strconv"
	"strings"
)

// Identity names the shopper a cart belongs to. A positive CustomerID wins
// over the session key.
type Identity struct {
	SessionKey string `json:"session_key"`
	CustomerID int64  `json:"customer_id"`
}

// Usable reports whether either identifier can locate a cart.
func (i Identity) Usable() bool {
	return i.CustomerID > 0 || strings.TrimSpace(i.SessionKey) != ""
}

// IsGuest reports whether the shopper is anonymous.
func (i Identity) IsGuest() bool {
	return i.CustomerID <= 0
}

// Key is the stable string form used for cache entries.
func (i Identity) Key() string {
	if i.CustomerID > 0 {
		return "customer:" + strconv.FormatInt(i.CustomerID, 10)
	}
	return "session:" + strings.TrimSpace(i.SessionKey)
}

// sessionOnly returns the guest form of the identity, used when a customer
// adopts the cart they built before logging in.
func (i Identity) sessionOnly() (Identity, bool) {
	key := strings.TrimSpace(i.SessionKey)
	if i.CustomerID <= 0 || key == "" {
		return Identity{}, false
	}
	return Identity{SessionKey: key}, true
}
