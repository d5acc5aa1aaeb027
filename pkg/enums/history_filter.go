package enums

import "fmt"

// HistoryFilter narrows the cart_history export by status.
type HistoryFilter string

const (
	HistoryFilterAll       HistoryFilter = "all"
	HistoryFilterConverted HistoryFilter = "converted"
	HistoryFilterDeleted   HistoryFilter = "deleted"
	HistoryFilterAbandoned HistoryFilter = "abandoned"
	HistoryFilterInactive  HistoryFilter = "inactive"
)

var validHistoryFilters = []HistoryFilter{
	HistoryFilterAll,
	HistoryFilterConverted,
	HistoryFilterDeleted,
	HistoryFilterAbandoned,
	HistoryFilterInactive,
}

// String implements fmt.Stringer.
func (h HistoryFilter) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HistoryFilter.
func (h HistoryFilter) IsValid() bool {
	for _, candidate := range validHistoryFilters {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHistoryFilter converts raw input into a HistoryFilter; empty means all.
func ParseHistoryFilter(value string) (HistoryFilter, error) {
	if value == "" {
		return HistoryFilterAll, nil
	}
	for _, candidate := range validHistoryFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history filter %q", value)
}
