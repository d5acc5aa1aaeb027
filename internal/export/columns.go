package export

import (
	"fmt"

	"github.com/angelmondragon/cartwatch-backend/internal/sanitize"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
)

// Column is one selectable export field.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var registry = []Column{
	{Key: sanitize.FieldID, Label: "Cart ID"},
	{Key: sanitize.FieldDate, Label: "Date"},
	{Key: sanitize.FieldStatus, Label: "Status"},
	{Key: sanitize.FieldCustomerName, Label: "Customer Name"},
	{Key: sanitize.FieldCustomerEmail, Label: "Customer Email"},
	{Key: sanitize.FieldUserID, Label: "User ID"},
	{Key: sanitize.FieldSessionID, Label: "Session ID"},
	{Key: sanitize.FieldPastPurchases, Label: "Past Purchases"},
	{Key: sanitize.FieldCartTotal, Label: "Cart Total"},
	{Key: sanitize.FieldItemCount, Label: "Item Count"},
	{Key: sanitize.FieldItems, Label: "Items"},
	{Key: sanitize.FieldItemsSummary, Label: "Items Summary"},
	{Key: sanitize.FieldIsActive, Label: "Is Active"},
	{Key: sanitize.FieldAgeDays, Label: "Age (Days)"},
	{Key: sanitize.FieldAgeHours, Label: "Age (Hours)"},
}

var columnsByKey = func() map[string]Column {
	out := make(map[string]Column, len(registry))
	for _, c := range registry {
		out[c.Key] = c
	}
	return out
}()

// DefaultColumns is the selection a one-off export gets when the caller
// names no columns, and the default offered by the columns endpoint.
var DefaultColumns = []string{
	sanitize.FieldID,
	sanitize.FieldDate,
	sanitize.FieldStatus,
	sanitize.FieldCustomerName,
	sanitize.FieldCustomerEmail,
	sanitize.FieldCartTotal,
	sanitize.FieldItemsSummary,
}

// Columns lists the registry in display order.
func Columns() []Column {
	out := make([]Column, len(registry))
	copy(out, registry)
	return out
}

// LookupColumn returns the registry entry for key.
func LookupColumn(key string) (Column, bool) {
	c, ok := columnsByKey[key]
	return c, ok
}

// ValidateColumns requires at least one column and rejects unknown keys.
func ValidateColumns(keys []string) error {
	if len(keys) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one column is required")
	}
	var unknown []string
	for _, key := range keys {
		if _, ok := columnsByKey[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown columns: %v", unknown)).
			WithDetails(map[string]any{"unknown_columns": unknown})
	}
	return nil
}
