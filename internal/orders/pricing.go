package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/pricing"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func (s *service) UpdatePricing(ctx context.Context, actor Actor, orderID uuid.UUID, input PricingInput) (*models.Order, error) {
	if err := authorize(actor, opPricing, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var from enums.OrderStatus
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if order.Status != enums.OrderStatusHarvestDone {
			return invalidState("pricing requires a fully harvested order", order.Status)
		}

		lines := make(map[uuid.UUID]*models.OrderLine, len(order.Lines))
		for i := range order.Lines {
			lines[order.Lines[i].ID] = &order.Lines[i]
		}
		for _, in := range input.Lines {
			line, ok := lines[in.LineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found").
					WithDetails(map[string]any{"line_id": in.LineID})
			}
			price := in.UnitPrice
			if err := priceLine(ctx, repo, line, normalizeUnitPtr(in.PricingUnit), in.PricedQty, &price); err != nil {
				return err
			}
		}

		var unpriced []uuid.UUID
		for _, line := range order.Lines {
			if line.UnitPrice == nil {
				unpriced = append(unpriced, line.ID)
			}
		}
		if len(unpriced) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "every line needs a unit price").
				WithDetails(map[string]any{"unpriced_lines": unpriced})
		}

		adj := mergeAdjustments(pricing.AdjustmentsOf(*order), AdjustmentInput{
			Freight: input.Freight, Tax: input.Tax, Discount: input.Discount, Damage: input.Damage,
		})
		final, err := recomputeFinal(ctx, repo, order.ID, adj)
		if err != nil {
			return err
		}
		if err := guardReceived(order.ReceivedValue, final); err != nil {
			return err
		}

		updates := adjustmentUpdates(adj)
		updates["final_value"] = final
		updates["status"] = enums.OrderStatusPricingDone
		updates["priced_at"] = s.now()
		return storeErr(repo.UpdateOrder(ctx, order.ID, updates), "update order pricing")
	})
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, actor, orderID, effect{
		action:  enums.AuditActionPricingUpdated,
		from:    from,
		payload: map[string]any{"lines": len(input.Lines)},
	})
}

func (s *service) AdjustPricing(ctx context.Context, actor Actor, orderID uuid.UUID, input AdjustmentInput) (*models.Order, error) {
	if err := authorize(actor, opAdjust, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one adjustment is required")
	}

	var from enums.OrderStatus
	var previous decimal.Decimal
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		previous = order.FinalValue
		if order.Status.IsTerminal() {
			return invalidState("pricing cannot be adjusted on a closed order", order.Status)
		}

		adj := mergeAdjustments(pricing.AdjustmentsOf(*order), input)
		final := pricing.OrderTotal(pricing.LineTotals(order.Lines), adj)
		if err := guardReceived(order.ReceivedValue, final); err != nil {
			return err
		}

		updates := adjustmentUpdates(adj)
		updates["final_value"] = final
		if order.Status.InPaymentPhase() {
			s.derivePaymentStatus(updates, order.ReceivedValue, final)
		}
		return storeErr(repo.UpdateOrder(ctx, order.ID, updates), "update order adjustments")
	})
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, actor, orderID, effect{
		action:  enums.AuditActionPricingAdjusted,
		from:    from,
		payload: map[string]any{"previous_final_value": previous},
	})
}

// priceLine derives the effective unit and priced quantity of a line and stores its
// total. A nil price keeps the stored one; lines without a price keep a zero total.
func priceLine(ctx context.Context, repo Repository, line *models.OrderLine, unitReq *enums.UnitOfMeasure, qtyOverride, price *decimal.Decimal) error {
	if price == nil {
		price = line.UnitPrice
	}
	if price == nil {
		return nil
	}
	unit := pricing.EffectivePricingUnit(unitReq, *line)
	qty, ok := pricing.PricedQuantity(unit, qtyOverride, *line)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "line has no harvested quantity in its pricing unit").
			WithDetails(map[string]any{"line_id": line.ID, "pricing_unit": unit})
	}
	p := *price
	total := pricing.LineTotal(qty, p)

	line.PricingUnit = &unit
	line.PricedQty = &qty
	line.UnitPrice = &p
	line.Total = total
	return storeErr(repo.UpdateLine(ctx, line.ID, map[string]any{
		"pricing_unit": unit,
		"priced_qty":   qty,
		"unit_price":   p,
		"total":        total,
	}), "update line pricing")
}

// recomputeFinal reads the persisted line totals back and applies adj.
func recomputeFinal(ctx context.Context, repo Repository, orderID uuid.UUID, adj pricing.Adjustments) (decimal.Decimal, error) {
	persisted, err := repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return decimal.Zero, storeErr(err, "reload order lines")
	}
	return pricing.OrderTotal(pricing.LineTotals(persisted.Lines), adj), nil
}

// guardReceived rejects a final value that would leave recorded payments above it.
func guardReceived(received, final decimal.Decimal) error {
	excess := pricing.Excess(received, final)
	if !excess.IsPositive() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "new total is below the amount already received").
		WithDetails(map[string]any{
			"required_reduction": excess.StringFixed(2),
			"received":           received.StringFixed(2),
			"new_final":          final.StringFixed(2),
		})
}

func (s *service) derivePaymentStatus(updates map[string]any, received, final decimal.Decimal) {
	status := pricing.PaymentStatus(received, final)
	updates["status"] = status
	if status == enums.OrderStatusFinalized {
		updates["finalized_at"] = s.now()
	}
}

func mergeAdjustments(current pricing.Adjustments, in AdjustmentInput) pricing.Adjustments {
	if in.Freight != nil {
		current.Freight = *in.Freight
	}
	if in.Tax != nil {
		current.Tax = *in.Tax
	}
	if in.Discount != nil {
		current.Discount = *in.Discount
	}
	if in.Damage != nil {
		current.Damage = *in.Damage
	}
	return current
}

func adjustmentUpdates(adj pricing.Adjustments) map[string]any {
	return map[string]any{
		"freight":  adj.Freight,
		"tax":      adj.Tax,
		"discount": adj.Discount,
		"damage":   adj.Damage,
	}
}
