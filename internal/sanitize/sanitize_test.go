package sanitize

import (
	"math"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeMoney(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"", "0.00"},
		{"12,50", "12.50"},
		{"1,234", "1234.00"},
		{"$ 99.9", "99.90"},
		{"€1.234.567", "1234567.00"},
		{"-3,50", "-3.50"},
		{"abc", "0.00"},
		{",", "0.00"},
		{nil, "0.00"},
		{42, "42.00"},
		{19.999, "20.00"},
		{decimal.RequireFromString("7.1"), "7.10"},
		{math.NaN(), "0.00"},
		{math.Inf(1), "0.00"},
		{math.Inf(-1), "0.00"},
		{float32(math.Inf(1)), "0.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeMoney(tc.in), "input %#v", tc.in)
	}
}

func TestEscapeForSpreadsheet(t *testing.T) {
	assert.Equal(t, "'=SUM(A1)", EscapeForSpreadsheet("=SUM(A1)"))
	assert.Equal(t, "plain", EscapeForSpreadsheet("plain"))
	for _, in := range []string{"+1", "-2", "@cmd", "\tx", "\rx"} {
		assert.Equal(t, "'"+in, EscapeForSpreadsheet(in))
	}
	assert.Equal(t, "", EscapeForSpreadsheet(""))
	assert.Equal(t, "'=x", EscapeForSpreadsheet(EscapeForSpreadsheet("=x")), "escaping twice is stable")
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", StripMarkup("<b>Tom</b> &amp; Jerry"))
	assert.Equal(t, "Line one Line two", StripMarkup("Line one\n<br/>Line\x07 two  "))
	assert.Equal(t, "", StripMarkup("<script>alert(1)</script>"))
	assert.Equal(t, "", StripMarkup(""))
}

func TestSummarizeItems(t *testing.T) {
	blob := `[{"product_id":1,"name":"<i>Blue</i> Mug","quantity":2,"unit_price":"4.50","line_total":"9"},{"product_id":7,"quantity":1,"unit_price":"1.5"}]`
	got := SummarizeItems(blob)
	assert.Equal(t, "Blue Mug (Qty: 2, Total: 9.00) | Product #7 (Qty: 1, Total: 1.50)", got)
	assert.Equal(t, "", SummarizeItems(""))
	assert.Equal(t, "", SummarizeItems("{not json"))
}

func TestClassifyForDisplay(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Active", ClassifyForDisplay(enums.CartStatusActive, true, now.Add(-23*time.Hour), now))
	assert.Equal(t, "Abandoned", ClassifyForDisplay(enums.CartStatusActive, true, now.Add(-24*time.Hour), now))
	assert.Equal(t, "Recoverable", ClassifyForDisplay(enums.CartStatusRecoverable, false, now.Add(-48*time.Hour), now))
	assert.Equal(t, "Converted", ClassifyForDisplay(enums.CartStatusConverted, false, now, now))
	assert.Equal(t, "Deleted", ClassifyForDisplay(enums.CartStatusDeleted, false, now, now))
}

func TestProjectRecordForExport(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	record := models.CartRecord{
		ID:                id,
		SessionKey:        "sess-9",
		CustomerID:        12,
		CustomerName:      "<b>Ana</b>",
		CustomerEmail:     "ana@example.com",
		PastPurchaseCount: 4,
		Items: types.CartItems{
			{ProductID: 1, Name: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("5")},
			{ProductID: 2, Name: "Tea", Quantity: 1, UnitPrice: decimal.RequireFromString("3.25")},
		},
		Total:       decimal.RequireFromString("13.25"),
		LastUpdated: now.Add(-50 * time.Hour),
		IsActive:    true,
		Status:      enums.CartStatusActive,
	}

	got := ProjectRecordForExport(record, now)
	assert.Equal(t, id.String(), got[FieldID])
	assert.Equal(t, "2026-04-29 10:00:00", got[FieldDate])
	assert.Equal(t, "Abandoned", got[FieldStatus])
	assert.Equal(t, "Ana", got[FieldCustomerName])
	assert.Equal(t, "12", got[FieldUserID])
	assert.Equal(t, "13.25", got[FieldCartTotal])
	assert.Equal(t, "3", got[FieldItemCount])
	assert.Equal(t, "2 products, 3 units", got[FieldItemsSummary])
	assert.Equal(t, "Mug (Qty: 2, Total: 10.00) | Tea (Qty: 1, Total: 3.25)", got[FieldItems])
	assert.Equal(t, "Yes", got[FieldIsActive])
	assert.Equal(t, "2", got[FieldAgeDays])
	assert.Equal(t, "50", got[FieldAgeHours])
	assert.Len(t, got, 15)
}
