package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// EffectivePricingUnit picks the unit a line is priced in: the requested unit, else the
// stored one, else the secondary unit when a positive secondary quantity was harvested,
// else the primary unit.
func EffectivePricingUnit(requested *enums.UnitOfMeasure, line models.OrderLine) enums.UnitOfMeasure {
	if requested != nil && *requested != "" {
		return *requested
	}
	if line.PricingUnit != nil && *line.PricingUnit != "" {
		return *line.PricingUnit
	}
	if line.SecondaryUnit != nil && line.ActualQtySecondary != nil && line.ActualQtySecondary.IsPositive() {
		return *line.SecondaryUnit
	}
	return line.PrimaryUnit
}

// PricedQuantity returns the override when given, else the harvested quantity recorded in
// unit. ok is false when the line has no quantity for that unit.
func PricedQuantity(unit enums.UnitOfMeasure, override *decimal.Decimal, line models.OrderLine) (qty decimal.Decimal, ok bool) {
	if override != nil {
		return *override, true
	}
	if unit == line.PrimaryUnit && line.ActualQtyPrimary != nil {
		return *line.ActualQtyPrimary, true
	}
	if line.SecondaryUnit != nil && unit == *line.SecondaryUnit && line.ActualQtySecondary != nil {
		return *line.ActualQtySecondary, true
	}
	return decimal.Zero, false
}
