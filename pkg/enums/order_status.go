package enums

import "fmt"

// OrderStatus tracks the lifecycle of a fulfillment order.
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "created"
	OrderStatusAwaitingHarvest OrderStatus = "awaiting_harvest"
	OrderStatusPartialHarvest  OrderStatus = "partial_harvest"
	OrderStatusHarvestDone     OrderStatus = "harvest_done"
	OrderStatusAwaitingPricing OrderStatus = "awaiting_pricing"
	OrderStatusPricingDone     OrderStatus = "pricing_done"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPartialPayment  OrderStatus = "partial_payment"
	OrderStatusFinalized       OrderStatus = "finalized"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// validOrderStatuses lists the forward lifecycle in rank order; cancelled sits outside it.
var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusAwaitingHarvest,
	OrderStatusPartialHarvest,
	OrderStatusHarvestDone,
	OrderStatusAwaitingPricing,
	OrderStatusPricingDone,
	OrderStatusAwaitingPayment,
	OrderStatusPartialPayment,
	OrderStatusFinalized,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// Rank returns the position of the status in the forward lifecycle.
// Cancelled and unknown values return -1.
func (s OrderStatus) Rank() int {
	if s == OrderStatusCancelled {
		return -1
	}
	for i, candidate := range validOrderStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFinalized || s == OrderStatusCancelled
}

// HarvestStarted reports whether at least one line has been harvested.
func (s OrderStatus) HarvestStarted() bool {
	return s.Rank() >= OrderStatusPartialHarvest.Rank()
}

// PricingStarted reports whether the order has been priced.
func (s OrderStatus) PricingStarted() bool {
	return s.Rank() >= OrderStatusPricingDone.Rank()
}

// InHarvestPhase reports whether harvest data may still be recorded.
func (s OrderStatus) InHarvestPhase() bool {
	switch s {
	case OrderStatusCreated, OrderStatusAwaitingHarvest, OrderStatusPartialHarvest:
		return true
	}
	return false
}

// InPaymentPhase reports whether payments may be recorded against the order.
func (s OrderStatus) InPaymentPhase() bool {
	switch s {
	case OrderStatusPricingDone, OrderStatusAwaitingPayment, OrderStatusPartialPayment:
		return true
	}
	return false
}

// Removable reports whether the order may be deleted outright.
func (s OrderStatus) Removable() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusCreated, OrderStatusAwaitingHarvest, OrderStatusPartialHarvest:
		return true
	}
	return false
}

// Advance returns derived when it does not move the order backwards, else current.
// Terminal statuses never change through derivation.
func Advance(current, derived OrderStatus) OrderStatus {
	if current.IsTerminal() || !derived.IsValid() || derived == OrderStatusCancelled {
		return current
	}
	if derived.Rank() < current.Rank() {
		return current
	}
	return derived
}
