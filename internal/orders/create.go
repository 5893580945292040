package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/pricing"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// FormatOrderNumber renders PED-<yyyy>-<nnnn>.
func FormatOrderNumber(year, seq int) string {
	return fmt.Sprintf("PED-%04d-%04d", year, seq)
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error) {
	if err := authorize(actor, opCreate, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if _, err := s.registry.LookupClient(ctx, input.ClientID); err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	if err := validation.DuplicateProducts(productIDs); err != nil {
		return nil, err
	}
	for _, line := range input.Lines {
		if _, err := s.registry.LookupProduct(ctx, line.ProductID); err != nil {
			return nil, err
		}
		if err := validation.RequireAreas(areaRefs(line.Areas)); err != nil {
			return nil, err
		}
		if err := s.checkAreas(ctx, line.Areas, true); err != nil {
			return nil, err
		}
		if err := s.checkTagTypes(ctx, line.Tags); err != nil {
			return nil, err
		}
	}

	now := s.now()
	placedAt := now
	if input.PlacedAt != nil {
		placedAt = input.PlacedAt.UTC()
	}
	status := enums.OrderStatusCreated
	if input.ExpectedHarvestAt != nil {
		status = enums.OrderStatusAwaitingHarvest
	}
	adj := pricing.Adjustments{
		Freight:  valueOr(input.Freight),
		Tax:      valueOr(input.Tax),
		Discount: valueOr(input.Discount),
		Damage:   valueOr(input.Damage),
	}

	var orderID uuid.UUID
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		seq, err := repo.NextSequence(ctx, placedAt.Year())
		if err != nil {
			return storeErr(err, "issue order number")
		}
		order := &models.Order{
			OrderNumber:       FormatOrderNumber(placedAt.Year(), seq),
			ClientID:          input.ClientID,
			Status:            status,
			PlacedAt:          placedAt,
			ExpectedHarvestAt: input.ExpectedHarvestAt,
			Freight:           adj.Freight,
			Tax:               adj.Tax,
			Discount:          adj.Discount,
			Damage:            adj.Damage,
			FinalValue:        pricing.OrderTotal(nil, adj),
			ReceivedValue:     decimal.Zero,
			Notes:             input.Notes,
			CreatedBy:         actor.UserID,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return storeErr(err, "create order")
		}
		orderID = order.ID

		batches := make([]lineTags, 0, len(input.Lines))
		for _, in := range input.Lines {
			line, err := createLine(ctx, repo, order.ID, in)
			if err != nil {
				return err
			}
			desired, err := desiredTags(ctx, repo, *line, in.Tags)
			if err != nil {
				return err
			}
			if len(desired) > 0 {
				batches = append(batches, lineTags{line: *line, desired: desired})
			}
		}
		return s.reconcileTags(ctx, tx, order.ID, batches, validation.StockForCreate)
	})
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, actor, orderID, effect{
		action:       enums.AuditActionOrderCreated,
		notification: enums.NotificationTypeOrderCreated,
		payload:      map[string]any{"lines": len(input.Lines)},
	})
}

// createLine persists a line with its area assignments. Reservations are applied separately.
func createLine(ctx context.Context, repo Repository, orderID uuid.UUID, in LineInput) (*models.OrderLine, error) {
	line := &models.OrderLine{
		OrderID:       orderID,
		ProductID:     in.ProductID,
		PredictedQty:  in.PredictedQty,
		PrimaryUnit:   normalizeUnit(in.PrimaryUnit),
		SecondaryUnit: normalizeUnitPtr(in.SecondaryUnit),
		Total:         decimal.Zero,
		Notes:         in.Notes,
	}
	if err := repo.CreateLine(ctx, line); err != nil {
		return nil, storeErr(err, "create order line")
	}
	areas := newAreaRows(line.ID, in.Areas)
	if err := repo.CreateAreas(ctx, areas); err != nil {
		return nil, storeErr(err, "create area assignments")
	}
	line.Areas = areas
	return line, nil
}

func valueOr(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
