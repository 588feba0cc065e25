package enums

import "fmt"

// OrderConfirmationStatus gates whether an order can still be edited.
type OrderConfirmationStatus string

const (
	OrderConfirmationStatusPending   OrderConfirmationStatus = "pending"
	OrderConfirmationStatusConfirmed OrderConfirmationStatus = "confirmed"
	OrderConfirmationStatusCancelled OrderConfirmationStatus = "cancelled"
)

var validOrderConfirmationStatuses = []OrderConfirmationStatus{
	OrderConfirmationStatusPending,
	OrderConfirmationStatusConfirmed,
	OrderConfirmationStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderConfirmationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderConfirmationStatus.
func (s OrderConfirmationStatus) IsValid() bool {
	for _, candidate := range validOrderConfirmationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderConfirmationStatus converts raw input into an OrderConfirmationStatus.
func ParseOrderConfirmationStatus(value string) (OrderConfirmationStatus, error) {
	for _, candidate := range validOrderConfirmationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order confirmation status %q", value)
}
