package sanitize

import (
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
)

// Projected field names. Export columns select from these.
const (
	FieldID            = "id"
	FieldDate          = "date"
	FieldStatus        = "status"
	FieldCustomerName  = "customer_name"
	FieldCustomerEmail = "customer_email"
	FieldUserID        = "user_id"
	FieldSessionID     = "session_id"
	FieldPastPurchases = "past_purchases"
	FieldCartTotal     = "cart_total"
	FieldItemCount     = "item_count"
	FieldItems         = "items"
	FieldItemsSummary  = "items_summary"
	FieldIsActive      = "is_active"
	FieldAgeDays       = "age_days"
	FieldAgeHours      = "age_hours"
)

// ProjectRecordForExport flattens a record into sanitized scalar strings keyed
// by field name. Ages are measured against now.
func ProjectRecordForExport(record models.CartRecord, now time.Time) map[string]string {
	age := now.Sub(record.LastUpdated)
	if age < 0 {
		age = 0
	}
	userID := ""
	if record.CustomerID > 0 {
		userID = strconv.FormatInt(record.CustomerID, 10)
	}
	active := "No"
	if record.IsActive {
		active = "Yes"
	}

	return map[string]string{
		FieldID:            record.ID.String(),
		FieldDate:          FormatDate(record.LastUpdated),
		FieldStatus:        ClassifyForDisplay(record.Status, record.IsActive, record.LastUpdated, now),
		FieldCustomerName:  StripMarkup(record.CustomerName),
		FieldCustomerEmail: StripMarkup(record.CustomerEmail),
		FieldUserID:        userID,
		FieldSessionID:     StripMarkup(record.SessionKey),
		FieldPastPurchases: strconv.Itoa(record.PastPurchaseCount),
		FieldCartTotal:     NormalizeMoney(record.Total),
		FieldItemCount:     strconv.Itoa(record.Items.Quantity()),
		FieldItems:         SummarizeCartItems(record.Items),
		FieldItemsSummary:  shortSummary(record),
		FieldIsActive:      active,
		FieldAgeDays:       strconv.Itoa(int(age / (24 * time.Hour))),
		FieldAgeHours:      strconv.Itoa(int(age / time.Hour)),
	}
}

func shortSummary(record models.CartRecord) string {
	products := len(record.Items)
	if products == 0 {
		return ""
	}
	noun := "products"
	if products == 1 {
		noun = "product"
	}
	return fmt.Sprintf("%d %s, %d units", products, noun, record.Items.Quantity())
}
