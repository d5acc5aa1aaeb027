package analytics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/cache"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
)

const (
	DateLayout    = "2006-01-02"
	DefaultDays   = 30
	MaxWindowDays = 3650
)

// StandardWindows are the presets cleared by a full invalidation.
var StandardWindows = []int{7, 30, 60, 90}

// Window is either a trailing number of days or an inclusive calendar range.
type Window struct {
	Days int
	From time.Time
	To   time.Time
}

// LastDays builds a trailing window.
func LastDays(days int) Window {
	return Window{Days: days}
}

// Range builds an inclusive calendar range.
func Range(from, to time.Time) Window {
	return Window{From: from, To: to}
}

// ParseRange parses YYYY-MM-DD bounds.
func ParseRange(from, to string) (Window, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return Window{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "from must be YYYY-MM-DD")
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return Window{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "to must be YYYY-MM-DD")
	}
	w := Range(start, end)
	return w, w.Validate()
}

// IsRange reports whether the window is a calendar range.
func (w Window) IsRange() bool {
	return !w.From.IsZero() || !w.To.IsZero()
}

func (w Window) Validate() error {
	if w.IsRange() {
		if w.From.IsZero() || w.To.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "range requires both from and to")
		}
		if w.To.Before(w.From) {
			return pkgerrors.New(pkgerrors.CodeValidation, "range end precedes start")
		}
		return nil
	}
	if w.Days < 1 || w.Days > MaxWindowDays {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxWindowDays))
	}
	return nil
}

// Bounds returns the half-open [start, end) interval the window covers.
func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	if w.IsRange() {
		from := dateOnly(w.From)
		return from, dateOnly(w.To).AddDate(0, 0, 1)
	}
	now = now.UTC()
	return now.Add(-time.Duration(w.Days) * 24 * time.Hour), now
}

// CacheKey is the snapshot cache key for the window.
func (w Window) CacheKey() string {
	if w.IsRange() {
		return rangeKey(w.From.Format(DateLayout), w.To.Format(DateLayout))
	}
	return windowKey(w.Days)
}

func windowKey(days int) string {
	return cache.Key(cachePrefix, "window", strconv.Itoa(days))
}

func rangeKey(from, to string) string {
	return cache.Key(cachePrefix, "range", from, to)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
