package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Tolerance is the smallest monetary difference treated as real money.
var Tolerance = decimal.New(1, -2)

// Adjustments are the order-level amounts applied on top of line totals.
type Adjustments struct {
	Freight  decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Damage   decimal.Decimal
}

// AdjustmentsOf reads the adjustments currently stored on an order.
func AdjustmentsOf(order models.Order) Adjustments {
	return Adjustments{
		Freight:  order.Freight,
		Tax:      order.Tax,
		Discount: order.Discount,
		Damage:   order.Damage,
	}
}

// LineTotal returns qty × unitPrice rounded to cents.
func LineTotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Round(2)
}

// OrderTotal sums line totals and applies the adjustments, rounded to cents.
func OrderTotal(lineTotals []decimal.Decimal, adj Adjustments) decimal.Decimal {
	sum := decimal.Zero
	for _, total := range lineTotals {
		sum = sum.Add(total)
	}
	return sum.
		Add(adj.Freight).
		Add(adj.Tax).
		Sub(adj.Discount).
		Sub(adj.Damage).
		Round(2)
}

// LineTotals extracts the stored totals of persisted lines.
func LineTotals(lines []models.OrderLine) []decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		totals = append(totals, line.Total)
	}
	return totals
}

// IsSettled reports whether received covers final within the tolerance.
func IsSettled(received, final decimal.Decimal) bool {
	return final.Sub(received).LessThan(Tolerance)
}

// PaymentStatus derives the payment-phase status from received and final values.
func PaymentStatus(received, final decimal.Decimal) enums.OrderStatus {
	switch {
	case IsSettled(received, final):
		return enums.OrderStatusFinalized
	case received.IsPositive():
		return enums.OrderStatusPartialPayment
	default:
		return enums.OrderStatusAwaitingPayment
	}
}

// Excess returns how much received overshoots final, or zero.
func Excess(received, final decimal.Decimal) decimal.Decimal {
	if received.GreaterThan(final) {
		return received.Sub(final)
	}
	return decimal.Zero
}

// IsEffectivelyZero reports |v| < 0.01.
func IsEffectivelyZero(v decimal.Decimal) bool {
	return v.Abs().LessThan(Tolerance)
}

// SumPayments returns the total received across payment rows.
func SumPayments(payments []models.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, payment := range payments {
		sum = sum.Add(payment.Amount)
	}
	return sum
}
