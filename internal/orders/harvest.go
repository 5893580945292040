package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func (s *service) UpdateHarvest(ctx context.Context, actor Actor, orderID uuid.UUID, input HarvestInput) (*models.Order, error) {
	if err := authorize(actor, opHarvest, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	anyHarvested := false
	for _, in := range input.Lines {
		if in.ActualQtyPrimary != nil && in.ActualQtyPrimary.IsPositive() {
			anyHarvested = true
		}
		if err := s.checkAreas(ctx, in.Areas, false); err != nil {
			return nil, err
		}
		if err := s.checkTagTypes(ctx, in.Tags); err != nil {
			return nil, err
		}
		if err := s.checkCrews(ctx, in.Costs); err != nil {
			return nil, err
		}
	}
	if !anyHarvested {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line must report a positive actual quantity")
	}

	harvestedAt := s.now()
	if input.HarvestedAt != nil {
		harvestedAt = input.HarvestedAt.UTC()
	}

	var from enums.OrderStatus
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if !order.Status.InHarvestPhase() {
			return invalidState("harvest can only be recorded before harvest is done", order.Status)
		}

		lines := make(map[uuid.UUID]*models.OrderLine, len(order.Lines))
		for i := range order.Lines {
			lines[order.Lines[i].ID] = &order.Lines[i]
		}

		var batches []lineTags
		for _, in := range input.Lines {
			line, ok := lines[in.LineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found").
					WithDetails(map[string]any{"line_id": in.LineID})
			}
			if err := s.applyHarvest(ctx, repo, line, in, harvestedAt); err != nil {
				return err
			}
			if in.Tags != nil {
				desired, err := desiredTags(ctx, repo, *line, in.Tags)
				if err != nil {
					return err
				}
				batches = append(batches, lineTags{line: *line, desired: desired})
			}
		}
		if err := s.reconcileTags(ctx, tx, order.ID, batches, validation.StockForEdit); err != nil {
			return err
		}

		next := enums.Advance(order.Status, harvestStatus(order.Lines))
		updates := map[string]any{"status": next}
		if next == enums.OrderStatusHarvestDone {
			updates["harvested_at"] = harvestedAt
		}
		return storeErr(repo.UpdateOrder(ctx, order.ID, updates), "update order status")
	})
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, actor, orderID, effect{
		action:  enums.AuditActionHarvestUpdated,
		from:    from,
		payload: map[string]any{"lines": len(input.Lines)},
	})
}

// applyHarvest writes one line's harvest data. A line reported with a positive actual
// quantity must end up with at least one resolved area.
func (s *service) applyHarvest(ctx context.Context, repo Repository, line *models.OrderLine, in HarvestLineInput, at time.Time) error {
	updates := map[string]any{}
	if in.ActualQtyPrimary != nil {
		qty := *in.ActualQtyPrimary
		line.ActualQtyPrimary = &qty
		updates["actual_qty_primary"] = qty
		if qty.IsPositive() {
			line.HarvestedAt = &at
			updates["harvested_at"] = at
		} else {
			line.HarvestedAt = nil
			updates["harvested_at"] = nil
		}
	}
	if in.ActualQtySecondary != nil {
		qty := *in.ActualQtySecondary
		line.ActualQtySecondary = &qty
		updates["actual_qty_secondary"] = qty
	}
	if err := repo.UpdateLine(ctx, line.ID, updates); err != nil {
		return storeErr(err, "update order line")
	}

	if in.Areas != nil {
		if err := replaceAreas(ctx, repo, line, in.Areas, in.Tags != nil); err != nil {
			return err
		}
	}
	if line.Harvested() {
		if err := validation.RequireResolvedArea(storedAreaRefs(line.Areas)); err != nil {
			return err
		}
	}

	if in.Costs != nil {
		costs := make([]models.HarvestCost, 0, len(in.Costs))
		for _, c := range in.Costs {
			costs = append(costs, models.HarvestCost{
				LineID:   line.ID,
				CrewID:   c.CrewID,
				Quantity: c.Quantity,
				Amount:   c.Amount,
				Notes:    c.Notes,
			})
		}
		if err := repo.ReplaceCosts(ctx, line.ID, costs); err != nil {
			return storeErr(err, "replace harvest costs")
		}
		line.Costs = costs
	}
	return nil
}
