package orders

import "github.com/souqline/souqline-backend/pkg/enums"

// DeriveOrderState folds the delivery states of every sub-order into the
// aggregate order state. Precedence: uniform sets first, then any in-transit
// activity, then partial delivery, then partial cancellation. Returned
// sub-orders group with cancellations since their stock went back on shelf.
func DeriveOrderState(statuses []enums.DeliveryStatus) enums.OrderState {
	if len(statuses) == 0 {
		return enums.OrderStatePending
	}

	counts := map[enums.DeliveryStatus]int{}
	for _, s := range statuses {
		counts[s]++
	}
	total := len(statuses)

	switch {
	case counts[enums.DeliveryStatusPending] == total:
		return enums.OrderStatePending
	case counts[enums.DeliveryStatusDelivered] == total:
		return enums.OrderStateDelivered
	case counts[enums.DeliveryStatusCancelled] == total:
		return enums.OrderStateCancelled
	case counts[enums.DeliveryStatusProcessing] > 0 || counts[enums.DeliveryStatusShipped] > 0:
		return enums.OrderStateInProgress
	case counts[enums.DeliveryStatusDelivered] > 0:
		return enums.OrderStatePartiallyDelivered
	case counts[enums.DeliveryStatusCancelled] > 0 || counts[enums.DeliveryStatusReturned] > 0:
		return enums.OrderStatePartiallyCancelled
	default:
		return enums.OrderStatePending
	}
}
