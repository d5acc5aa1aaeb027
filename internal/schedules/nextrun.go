package schedules

import (
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
)

const anchorHour = 2

// NextRun returns the first anchor strictly after now: 02:00 daily, Monday
// 02:00 weekly, or the 1st at 02:00 monthly, in now's location.
func NextRun(freq enums.ExportFrequency, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), anchorHour, 0, 0, 0, now.Location())
	switch freq {
	case enums.ExportFrequencyWeekly:
		offset := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		next := today.AddDate(0, 0, offset)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	case enums.ExportFrequencyMonthly:
		next := time.Date(now.Year(), now.Month(), 1, anchorHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 1, 0)
		}
		return next
	default:
		if !today.After(now) {
			return today.AddDate(0, 0, 1)
		}
		return today
	}
}
