package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a tracked cart snapshot.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	VariantID int64           `json:"variant_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Total returns the line total, falling back to quantity * unit price when the
// storefront did not supply one.
func (c CartItem) Total() decimal.Decimal {
	if !c.LineTotal.IsZero() {
		return c.LineTotal
	}
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// CartItems is stored as a JSON document and replaced wholesale on every save.
type CartItems []CartItem

// Total sums the line totals of every item.
func (c CartItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Total())
	}
	return total
}

// Quantity sums the item quantities.
func (c CartItems) Quantity() int {
	qty := 0
	for _, item := range c {
		qty += item.Quantity
	}
	return qty
}

// Value serializes the items to JSON.
func (c CartItems) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan decodes the JSON column into the item slice.
func (c *CartItems) Scan(value interface{}) error {
	if value == nil {
		*c = CartItems{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*c = CartItems{}
		return nil
	}
	var items CartItems
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode cart items: %w", err)
	}
	*c = items
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported cart items column type %T", value)
	}
}
