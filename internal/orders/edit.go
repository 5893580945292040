package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/pricing"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/reservation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func (s *service) EditFull(ctx context.Context, actor Actor, orderID uuid.UUID, input EditInput) (*models.Order, error) {
	if err := authorize(actor, opEdit, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if err := s.precheckEdit(ctx, input); err != nil {
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
		if order.Status.IsTerminal() {
			return invalidState("closed orders cannot be edited", order.Status)
		}
		if err := authorize(actor, opEdit, order.Status); err != nil {
			return err
		}

		updates := map[string]any{}
		if input.ClientID != nil {
			updates["client_id"] = *input.ClientID
		}
		if input.ExpectedHarvestAt != nil {
			updates["expected_harvest_at"] = input.ExpectedHarvestAt.UTC()
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}

		if input.Lines != nil {
			if err := s.editLines(ctx, tx, repo, order, input.Lines); err != nil {
				return err
			}
		}

		adj := mergeAdjustments(pricing.AdjustmentsOf(*order), AdjustmentInput{
			Freight: input.Freight, Tax: input.Tax, Discount: input.Discount, Damage: input.Damage,
		})
		for k, v := range adjustmentUpdates(adj) {
			updates[k] = v
		}
		persisted, err := repo.FindOrderDetail(ctx, order.ID)
		if err != nil {
			return storeErr(err, "reload order")
		}
		final := pricing.OrderTotal(pricing.LineTotals(persisted.Lines), adj)
		if err := guardReceived(order.ReceivedValue, final); err != nil {
			return err
		}
		updates["final_value"] = final

		switch {
		case order.Status.InPaymentPhase():
			s.derivePaymentStatus(updates, order.ReceivedValue, final)
		case order.Status.InHarvestPhase() && input.Lines != nil:
			if derived := harvestStatus(persisted.Lines); derived != enums.OrderStatusAwaitingHarvest {
				updates["status"] = enums.Advance(order.Status, derived)
				if derived == enums.OrderStatusHarvestDone {
					updates["harvested_at"] = s.now()
				}
			}
		}
		return storeErr(repo.UpdateOrder(ctx, order.ID, updates), "update order")
	})
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, actor, orderID, effect{
		action:  enums.AuditActionOrderEdited,
		from:    from,
		payload: map[string]any{"line_edits": len(input.Lines)},
	})
}

// precheckEdit validates the edit variants and resolves every referenced entity
// before the transaction opens.
func (s *service) precheckEdit(ctx context.Context, input EditInput) error {
	if input.ClientID != nil {
		if _, err := s.registry.LookupClient(ctx, *input.ClientID); err != nil {
			return err
		}
	}
	for i, edit := range input.Lines {
		if edit == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line edit is empty").
				WithDetails(map[string]any{"index": i})
		}
		if err := validation.Struct(edit); err != nil {
			return err
		}
		switch e := edit.(type) {
		case CreateLine:
			if _, err := s.registry.LookupProduct(ctx, e.ProductID); err != nil {
				return err
			}
			if err := s.checkAreas(ctx, e.Areas, true); err != nil {
				return err
			}
			if err := s.checkTagTypes(ctx, e.Tags); err != nil {
				return err
			}
		case UpdateLine:
			if e.ProductID != nil {
				if _, err := s.registry.LookupProduct(ctx, *e.ProductID); err != nil {
					return err
				}
			}
			if err := s.checkAreas(ctx, e.Areas, true); err != nil {
				return err
			}
			if err := s.checkTagTypes(ctx, e.Tags); err != nil {
				return err
			}
		}
	}
	return nil
}

// editLines applies full-update semantics: lines not named by an UpdateLine are
// removed, named lines are updated and CreateLine entries are added.
func (s *service) editLines(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, edits []LineEdit) error {
	existing := make(map[uuid.UUID]*models.OrderLine, len(order.Lines))
	for i := range order.Lines {
		existing[order.Lines[i].ID] = &order.Lines[i]
	}

	updates := map[uuid.UUID]UpdateLine{}
	explicitRemovals := map[uuid.UUID]bool{}
	var creates []CreateLine
	for _, edit := range edits {
		switch e := edit.(type) {
		case UpdateLine:
			if _, ok := existing[e.LineID]; !ok {
				return lineNotFound(e.LineID)
			}
			if _, dup := updates[e.LineID]; dup || explicitRemovals[e.LineID] {
				return pkgerrors.New(pkgerrors.CodeValidation, "line is edited more than once").
					WithDetails(map[string]any{"line_id": e.LineID})
			}
			updates[e.LineID] = e
		case RemoveLine:
			if _, ok := existing[e.LineID]; !ok {
				return lineNotFound(e.LineID)
			}
			if _, dup := updates[e.LineID]; dup {
				return pkgerrors.New(pkgerrors.CodeValidation, "line is both updated and removed").
					WithDetails(map[string]any{"line_id": e.LineID})
			}
			explicitRemovals[e.LineID] = true
		case CreateLine:
			creates = append(creates, e)
		}
	}

	var productIDs []uuid.UUID
	var removed []*models.OrderLine
	for _, line := range order.Lines {
		upd, kept := updates[line.ID]
		if !kept {
			removed = append(removed, existing[line.ID])
			continue
		}
		if upd.ProductID != nil {
			productIDs = append(productIDs, *upd.ProductID)
		} else {
			productIDs = append(productIDs, line.ProductID)
		}
	}
	for _, c := range creates {
		productIDs = append(productIDs, c.ProductID)
	}
	if len(productIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	if err := validation.DuplicateProducts(productIDs); err != nil {
		return err
	}

	// Releases go first so freed tags are available to the rest of the edit.
	removedIDs := make([]uuid.UUID, 0, len(removed))
	for _, line := range removed {
		ref := reservation.LineRef{OrderID: order.ID, LineID: line.ID}
		if _, err := s.engine.Reconcile(ctx, tx, ref, line.Tags, nil); err != nil {
			return err
		}
		removedIDs = append(removedIDs, line.ID)
	}
	if err := repo.DeleteLines(ctx, removedIDs); err != nil {
		return storeErr(err, "delete order lines")
	}

	harvestStarted := order.Status.HarvestStarted()
	pricingStarted := order.Status.PricingStarted()
	now := s.now()

	var batches []lineTags
	for _, line := range order.Lines {
		upd, kept := updates[line.ID]
		if !kept {
			continue
		}
		target := existing[line.ID]
		if err := applyLineUpdate(ctx, repo, target, upd, !harvestStarted, now); err != nil {
			return err
		}
		if upd.Tags != nil {
			desired, err := desiredTags(ctx, repo, *target, upd.Tags)
			if err != nil {
				return err
			}
			batches = append(batches, lineTags{line: *target, desired: desired})
		}
	}

	for _, c := range creates {
		if err := newLineRequirements(c, harvestStarted, pricingStarted); err != nil {
			return err
		}
		line, err := createLine(ctx, repo, order.ID, c.LineInput)
		if err != nil {
			return err
		}
		if err := applyLineUpdate(ctx, repo, line, UpdateLine{
			LineID:             line.ID,
			ActualQtyPrimary:   c.ActualQtyPrimary,
			ActualQtySecondary: c.ActualQtySecondary,
			UnitPrice:          c.UnitPrice,
			PricingUnit:        c.PricingUnit,
			PricedQty:          c.PricedQty,
		}, !harvestStarted, now); err != nil {
			return err
		}
		desired, err := desiredTags(ctx, repo, *line, c.Tags)
		if err != nil {
			return err
		}
		if len(desired) > 0 {
			batches = append(batches, lineTags{line: *line, desired: desired})
		}
	}

	return s.reconcileTags(ctx, tx, order.ID, batches, validation.StockForEdit)
}

// newLineRequirements enforces the fields a line added mid-lifecycle needs for the
// phase the order has reached.
func newLineRequirements(c CreateLine, harvestStarted, pricingStarted bool) error {
	if err := validation.RequireAreas(areaRefs(c.Areas)); err != nil {
		return err
	}
	if err := validation.AreaExclusivity(areaRefs(c.Areas), !harvestStarted); err != nil {
		return err
	}
	missing := []string{}
	if harvestStarted {
		if c.ActualQtyPrimary == nil || !c.ActualQtyPrimary.IsPositive() {
			missing = append(missing, "actual_qty_primary")
		}
		if err := validation.RequireResolvedArea(areaRefs(c.Areas)); err != nil {
			return err
		}
	}
	if pricingStarted {
		if c.UnitPrice == nil {
			missing = append(missing, "unit_price")
		}
		if c.PricingUnit == nil {
			missing = append(missing, "pricing_unit")
		}
		if c.PricedQty == nil {
			missing = append(missing, "priced_qty")
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new line is missing fields required by the order phase").
			WithDetails(map[string]any{"product_id": c.ProductID, "missing": missing})
	}
	return nil
}

// applyLineUpdate writes the set fields of in onto line and re-prices it when it
// carries a unit price.
func applyLineUpdate(ctx context.Context, repo Repository, line *models.OrderLine, in UpdateLine, allowPlaceholder bool, now time.Time) error {
	updates := map[string]any{}
	if in.ProductID != nil {
		line.ProductID = *in.ProductID
		updates["product_id"] = *in.ProductID
	}
	if in.PredictedQty != nil {
		line.PredictedQty = *in.PredictedQty
		updates["predicted_qty"] = *in.PredictedQty
	}
	if in.PrimaryUnit != nil {
		line.PrimaryUnit = normalizeUnit(*in.PrimaryUnit)
		updates["primary_unit"] = line.PrimaryUnit
	}
	if in.SecondaryUnit != nil {
		line.SecondaryUnit = normalizeUnitPtr(in.SecondaryUnit)
		updates["secondary_unit"] = *line.SecondaryUnit
	}
	if in.ActualQtyPrimary != nil {
		qty := *in.ActualQtyPrimary
		line.ActualQtyPrimary = &qty
		updates["actual_qty_primary"] = qty
		switch {
		case !qty.IsPositive():
			line.HarvestedAt = nil
			updates["harvested_at"] = nil
		case line.HarvestedAt == nil:
			line.HarvestedAt = &now
			updates["harvested_at"] = now
		}
	}
	if in.ActualQtySecondary != nil {
		qty := *in.ActualQtySecondary
		line.ActualQtySecondary = &qty
		updates["actual_qty_secondary"] = qty
	}
	if in.Notes != nil {
		line.Notes = in.Notes
		updates["notes"] = *in.Notes
	}
	if err := repo.UpdateLine(ctx, line.ID, updates); err != nil {
		return storeErr(err, "update order line")
	}

	if in.Areas != nil {
		refs := areaRefs(in.Areas)
		if err := validation.RequireAreas(refs); err != nil {
			return err
		}
		if err := validation.AreaExclusivity(refs, allowPlaceholder); err != nil {
			return err
		}
		if err := replaceAreas(ctx, repo, line, in.Areas, in.Tags != nil); err != nil {
			return err
		}
	}
	if line.Harvested() {
		if err := validation.RequireResolvedArea(storedAreaRefs(line.Areas)); err != nil {
			return err
		}
	}

	return priceLine(ctx, repo, line, normalizeUnitPtr(in.PricingUnit), in.PricedQty, in.UnitPrice)
}

func lineNotFound(lineID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found").
		WithDetails(map[string]any{"line_id": lineID})
}
