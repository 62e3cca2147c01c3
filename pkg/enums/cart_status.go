package enums

import "fmt"

// CartStatus tracks the cart lifecycle from first interaction to conversion.
type CartStatus string

const (
	CartStatusActive     CartStatus = "active"
	CartStatusProcessing CartStatus = "processing"
	CartStatusCompleted  CartStatus = "completed"
	CartStatusCleared    CartStatus = "cleared"
	CartStatusExpired    CartStatus = "expired"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusProcessing,
	CartStatusCompleted,
	CartStatusCleared,
	CartStatusExpired,
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

// IsTerminal reports whether the cart can still be mutated.
func (c CartStatus) IsTerminal() bool {
	return c == CartStatusCompleted || c == CartStatusExpired
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
