package enums

import (
	"fmt"
	"strings"
)

// DeliveryStatus tracks the fulfillment lifecycle of a single sub-order.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusShipped    DeliveryStatus = "shipped"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusReturned   DeliveryStatus = "returned"
	DeliveryStatusCancelled  DeliveryStatus = "cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusProcessing,
	DeliveryStatusShipped,
	DeliveryStatusDelivered,
	DeliveryStatusReturned,
	DeliveryStatusCancelled,
}

// deliveryStatusAliases maps legacy free-text labels still emitted by older
// carrier integrations onto the canonical vocabulary.
var deliveryStatusAliases = map[string]DeliveryStatus{
	"en attente":     DeliveryStatusPending,
	"en cours":       DeliveryStatusProcessing,
	"en préparation": DeliveryStatusProcessing,
	"expédié":        DeliveryStatusShipped,
	"expedie":        DeliveryStatusShipped,
	"livré":          DeliveryStatusDelivered,
	"livre":          DeliveryStatusDelivered,
	"colis retourné": DeliveryStatusReturned,
	"colis_retourné": DeliveryStatusReturned,
	"colis retourne": DeliveryStatusReturned,
	"annulé":         DeliveryStatusCancelled,
	"annule":         DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s DeliveryStatus) IsTerminal() bool {
	switch s {
	case DeliveryStatusDelivered, DeliveryStatusReturned, DeliveryStatusCancelled:
		return true
	default:
		return false
	}
}

// HoldsReservation reports whether a sub-order in this status still holds
// reserved stock. Terminal statuses have either consumed or released it.
func (s DeliveryStatus) HoldsReservation() bool {
	return !s.IsTerminal()
}

// ParseDeliveryStatus normalizes raw status labels into the canonical enum.
// Unknown labels are an error, never a silent no-op.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if alias, ok := deliveryStatusAliases[normalized]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
