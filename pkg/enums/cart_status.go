package enums

import "fmt"

// CartStatus is the lifecycle state of a tracked cart.
type CartStatus string

const (
	CartStatusActive      CartStatus = "active"
	CartStatusRecoverable CartStatus = "recoverable"
	CartStatusAbandoned   CartStatus = "abandoned"
	CartStatusCleared     CartStatus = "cleared"
	CartStatusConverted   CartStatus = "converted"
	CartStatusDeleted     CartStatus = "deleted"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusRecoverable,
	CartStatusAbandoned,
	CartStatusCleared,
	CartStatusConverted,
	CartStatusDeleted,
}

// TerminalCartStatuses are never rewritten by the time sweep.
var TerminalCartStatuses = []CartStatus{
	CartStatusConverted,
	CartStatusDeleted,
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is sticky (converted or deleted).
func (c CartStatus) IsTerminal() bool {
	for _, candidate := range TerminalCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsActive mirrors the is_active column: only active carts are live.
func (c CartStatus) IsActive() bool {
	return c == CartStatusActive
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
