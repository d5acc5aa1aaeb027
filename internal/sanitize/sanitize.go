// Package sanitize turns raw cart values into export-safe strings. Every
// function is pure.
package sanitize

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

const (
	DateLayout = "2006-01-02 15:04:05"
	zeroMoney  = "0.00"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// StripMarkup removes tags, decodes entities, drops control characters and
// collapses whitespace.
func StripMarkup(text string) string {
	if text == "" {
		return ""
	}
	cleaned := html.UnescapeString(policy().Sanitize(text))
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// NormalizeMoney renders a number or formatted currency string as a
// two-place decimal with a period separator. When both separators appear the
// later one is the decimal point; a lone comma is decimal only when exactly two
// digits follow it. Anything unparseable yields "0.00".
func NormalizeMoney(raw any) string {
	switch v := raw.(type) {
	case nil:
		return zeroMoney
	case decimal.Decimal:
		return v.StringFixed(2)
	case *decimal.Decimal:
		if v == nil {
			return zeroMoney
		}
		return v.StringFixed(2)
	case int:
		return decimal.NewFromInt(int64(v)).StringFixed(2)
	case int64:
		return decimal.NewFromInt(v).StringFixed(2)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return zeroMoney
		}
		return decimal.NewFromFloat(v).StringFixed(2)
	case float32:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return zeroMoney
		}
		return decimal.NewFromFloat32(v).StringFixed(2)
	case string:
		return normalizeMoneyString(v)
	default:
		return normalizeMoneyString(fmt.Sprint(v))
	}
}

func normalizeMoneyString(raw string) string {
	var b strings.Builder
	negative := false
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}
	digits := b.String()
	if digits == "" {
		return zeroMoney
	}

	lastComma := strings.LastIndex(digits, ",")
	lastPeriod := strings.LastIndex(digits, ".")
	switch {
	case lastComma >= 0 && lastPeriod >= 0:
		if lastComma > lastPeriod {
			digits = strings.ReplaceAll(digits, ".", "")
			digits = strings.Replace(digits, ",", ".", 1)
		} else {
			digits = strings.ReplaceAll(digits, ",", "")
		}
	case lastComma >= 0:
		if len(digits)-lastComma-1 == 2 {
			digits = strings.ReplaceAll(digits[:lastComma], ",", "") + "." + digits[lastComma+1:]
		} else {
			digits = strings.ReplaceAll(digits, ",", "")
		}
	case strings.Count(digits, ".") > 1:
		if len(digits)-lastPeriod-1 == 3 {
			digits = strings.ReplaceAll(digits, ".", "")
		} else {
			digits = strings.ReplaceAll(digits[:lastPeriod], ".", "") + digits[lastPeriod:]
		}
	}

	value, err := decimal.NewFromString(digits)
	if err != nil {
		return zeroMoney
	}
	if negative {
		value = value.Neg()
	}
	return value.StringFixed(2)
}

// SummarizeItems renders a JSON items blob as "name (Qty: n, Total: t) | ...".
// An empty or invalid blob yields "".
func SummarizeItems(blob string) string {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return ""
	}
	var items types.CartItems
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return ""
	}
	return SummarizeCartItems(items)
}

// SummarizeCartItems is SummarizeItems for already decoded items.
func SummarizeCartItems(items types.CartItems) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := StripMarkup(item.Name)
		if name == "" {
			name = fmt.Sprintf("Product #%d", item.ProductID)
		}
		parts = append(parts, fmt.Sprintf("%s (Qty: %d, Total: %s)", name, item.Quantity, NormalizeMoney(item.Total())))
	}
	return strings.Join(parts, " | ")
}

// ClassifyForDisplay maps a status to its label. Active carts idle for 24h or
// more display as Abandoned without changing the stored status.
func ClassifyForDisplay(status enums.CartStatus, isActive bool, lastUpdated, now time.Time) string {
	switch status {
	case enums.CartStatusActive:
		if isActive && now.Sub(lastUpdated) >= 24*time.Hour {
			return "Abandoned"
		}
		return "Active"
	case enums.CartStatusRecoverable:
		return "Recoverable"
	case enums.CartStatusAbandoned:
		return "Abandoned"
	case enums.CartStatusCleared:
		return "Cleared"
	case enums.CartStatusConverted:
		return "Converted"
	case enums.CartStatusDeleted:
		return "Deleted"
	default:
		return StripMarkup(string(status))
	}
}

// EscapeForSpreadsheet defuses formula injection by prefixing a quote to
// values a spreadsheet would evaluate.
func EscapeForSpreadsheet(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}

// FormatDate renders t in UTC, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
