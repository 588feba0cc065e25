package enums

import "fmt"

// OrderState is the aggregate fulfillment state an order derives from its sub-orders.
type OrderState string

const (
	OrderStatePending            OrderState = "pending"
	OrderStateInProgress         OrderState = "in_progress"
	OrderStatePartiallyDelivered OrderState = "partially_delivered"
	OrderStateDelivered          OrderState = "delivered"
	OrderStatePartiallyCancelled OrderState = "partially_cancelled"
	OrderStateCancelled          OrderState = "cancelled"
)

var validOrderStates = []OrderState{
	OrderStatePending,
	OrderStateInProgress,
	OrderStatePartiallyDelivered,
	OrderStateDelivered,
	OrderStatePartiallyCancelled,
	OrderStateCancelled,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
