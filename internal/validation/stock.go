package validation

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

// StockMode selects whether an order's own reservations count as available.
type StockMode int

const (
	// StockForCreate treats every existing reservation as taken.
	StockForCreate StockMode = iota
	// StockForEdit adds back the reservations already held by the order being edited.
	StockForEdit
)

// StockRequest asks for tags of one type, either from a specific lot or from an area.
type StockRequest struct {
	TagTypeID uuid.UUID
	LotID     *uuid.UUID
	AreaID    *uuid.UUID
	Quantity  int
}

// StockChecker pre-checks tag availability before the reservation engine runs.
// It reads current totals only; the engine remains authoritative under row locks.
type StockChecker struct{}

func NewStockChecker() *StockChecker {
	return &StockChecker{}
}

type stockKey struct {
	tagTypeID uuid.UUID
	lotID     uuid.UUID
	areaID    uuid.UUID
}

// Check sums requested quantities per (tag type, lot or area) and compares each
// group with lot totals minus the quantities already reserved.
func (c *StockChecker) Check(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, requests []StockRequest, mode StockMode) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stock check requires a database handle")
	}
	requested := map[stockKey]int{}
	var order []stockKey
	for _, req := range requests {
		if req.Quantity <= 0 {
			continue
		}
		if req.TagTypeID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "tag type is required")
		}
		key := stockKey{tagTypeID: req.TagTypeID}
		switch {
		case req.LotID != nil:
			key.lotID = *req.LotID
		case req.AreaID != nil:
			key.areaID = *req.AreaID
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "tag request requires a lot or an area").
				WithDetails(map[string]any{"tag_type_id": req.TagTypeID})
		}
		if _, ok := requested[key]; !ok {
			order = append(order, key)
		}
		requested[key] += req.Quantity
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].tagTypeID.String() < order[j].tagTypeID.String()
	})

	for _, key := range order {
		lots, err := c.lotsFor(ctx, tx, key)
		if err != nil {
			return err
		}
		available, err := c.available(ctx, tx, lots, orderID, mode)
		if err != nil {
			return err
		}
		if requested[key] > available {
			details := map[string]any{
				"tag_type_id": key.tagTypeID,
				"available":   available,
				"requested":   requested[key],
			}
			if key.lotID != uuid.Nil {
				details["lot_id"] = key.lotID
				details["area_id"] = lots[0].AreaID
			} else {
				details["area_id"] = key.areaID
			}
			return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient tag stock").WithDetails(details)
		}
	}
	return nil
}

func (c *StockChecker) lotsFor(ctx context.Context, tx *gorm.DB, key stockKey) ([]models.TagLot, error) {
	var lots []models.TagLot
	q := tx.WithContext(ctx).Model(&models.TagLot{}).Where("tag_type_id = ?", key.tagTypeID)
	if key.lotID != uuid.Nil {
		var lot models.TagLot
		err := q.Where("id = ?", key.lotID).Take(&lot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tag lot not found").
				WithDetails(map[string]any{"lot_id": key.lotID, "tag_type_id": key.tagTypeID})
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tag lot")
		}
		return []models.TagLot{lot}, nil
	}
	if err := q.Where("area_id = ?", key.areaID).Find(&lots).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tag lots")
	}
	return lots, nil
}

func (c *StockChecker) available(ctx context.Context, tx *gorm.DB, lots []models.TagLot, orderID uuid.UUID, mode StockMode) (int, error) {
	if len(lots) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(lots))
	total := 0
	for _, lot := range lots {
		ids = append(ids, lot.ID)
		total += lot.TotalQty
	}

	var reserved int64
	if err := tx.WithContext(ctx).
		Model(&models.TagAssignment{}).
		Where("lot_id IN ?", ids).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&reserved).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum reserved tags")
	}

	var own int64
	if mode == StockForEdit && orderID != uuid.Nil {
		if err := tx.WithContext(ctx).
			Model(&models.TagAssignment{}).
			Where("lot_id IN ? AND order_id = ?", ids, orderID).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&own).Error; err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum order reservations")
		}
	}
	return total - int(reserved) + int(own), nil
}
