package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/reservation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func areaRefs(inputs []AreaInput) []validation.AreaRef {
	refs := make([]validation.AreaRef, 0, len(inputs))
	for _, in := range inputs {
		refs = append(refs, validation.AreaRef{OwnedAreaID: in.OwnedAreaID, SupplierAreaID: in.SupplierAreaID})
	}
	return refs
}

func storedAreaRefs(areas []models.AreaAssignment) []validation.AreaRef {
	refs := make([]validation.AreaRef, 0, len(areas))
	for _, a := range areas {
		refs = append(refs, validation.AreaRef{OwnedAreaID: a.OwnedAreaID, SupplierAreaID: a.SupplierAreaID})
	}
	return refs
}

// checkAreas enforces exclusivity and that every referenced area exists.
func (s *service) checkAreas(ctx context.Context, inputs []AreaInput, allowPlaceholder bool) error {
	if err := validation.AreaExclusivity(areaRefs(inputs), allowPlaceholder); err != nil {
		return err
	}
	for _, in := range inputs {
		if in.OwnedAreaID != nil {
			if _, err := s.registry.LookupOwnedArea(ctx, *in.OwnedAreaID); err != nil {
				return err
			}
		}
		if in.SupplierAreaID != nil {
			if _, err := s.registry.LookupSupplierArea(ctx, *in.SupplierAreaID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *service) checkTagTypes(ctx context.Context, tags []TagInput) error {
	seen := map[uuid.UUID]struct{}{}
	for _, tag := range tags {
		if _, ok := seen[tag.TagTypeID]; ok {
			continue
		}
		seen[tag.TagTypeID] = struct{}{}
		if _, err := s.registry.LookupTagType(ctx, tag.TagTypeID); err != nil {
			return err
		}
		if tag.LotID == nil && tag.AreaID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "tag requires a lot or an area").
				WithDetails(map[string]any{"tag_type_id": tag.TagTypeID})
		}
	}
	return nil
}

func (s *service) checkCrews(ctx context.Context, costs []HarvestCostInput) error {
	for _, cost := range costs {
		if _, err := s.registry.LookupCrew(ctx, cost.CrewID); err != nil {
			return err
		}
	}
	return nil
}

func newAreaRows(lineID uuid.UUID, inputs []AreaInput) []models.AreaAssignment {
	rows := make([]models.AreaAssignment, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.AreaAssignment{
			LineID:         lineID,
			OwnedAreaID:    in.OwnedAreaID,
			SupplierAreaID: in.SupplierAreaID,
			Quantity:       in.Quantity,
		})
	}
	return rows
}

func sameArea(a models.AreaAssignment, in AreaInput) bool {
	return sameRef(a.OwnedAreaID, in.OwnedAreaID) && sameRef(a.SupplierAreaID, in.SupplierAreaID)
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// replaceAreas moves a line's area assignments to the requested set. Rows naming the
// same area are kept so reservations stay linked to them. An area still backing held
// tags can only be dropped when tagsRestated is set, since the caller then reconciles
// the line's tags against the new areas.
func replaceAreas(ctx context.Context, repo Repository, line *models.OrderLine, inputs []AreaInput, tagsRestated bool) error {
	matches := make(map[int]models.AreaAssignment, len(inputs))
	used := map[uuid.UUID]bool{}
	for i, in := range inputs {
		for _, existing := range line.Areas {
			if used[existing.ID] || !sameArea(existing, in) {
				continue
			}
			used[existing.ID] = true
			matches[i] = existing
			break
		}
	}

	var stale []uuid.UUID
	for _, existing := range line.Areas {
		if !used[existing.ID] {
			stale = append(stale, existing.ID)
		}
	}
	if !tagsRestated {
		if err := heldOnDroppedArea(line, stale); err != nil {
			return err
		}
	}

	kept := make([]models.AreaAssignment, 0, len(inputs))
	var created []AreaInput
	for i, in := range inputs {
		existing, ok := matches[i]
		if !ok {
			created = append(created, in)
			continue
		}
		if err := repo.UpdateArea(ctx, existing.ID, in.Quantity); err != nil {
			return storeErr(err, "update area assignment")
		}
		existing.Quantity = in.Quantity
		kept = append(kept, existing)
	}

	if err := repo.DeleteAreas(ctx, stale); err != nil {
		return storeErr(err, "delete area assignments")
	}
	rows := newAreaRows(line.ID, created)
	if err := repo.CreateAreas(ctx, rows); err != nil {
		return storeErr(err, "create area assignments")
	}
	line.Areas = append(kept, rows...)
	return nil
}

func heldOnDroppedArea(line *models.OrderLine, stale []uuid.UUID) error {
	dropped := make(map[uuid.UUID]bool, len(stale))
	for _, id := range stale {
		dropped[id] = true
	}
	for _, tag := range line.Tags {
		if tag.Quantity == 0 || tag.AreaAssignmentID == nil || !dropped[*tag.AreaAssignmentID] {
			continue
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "area still backs reserved tags; restate or clear the line's tags").
			WithDetails(map[string]any{
				"line_id":            line.ID,
				"area_assignment_id": *tag.AreaAssignmentID,
				"lot_id":             tag.LotID,
			})
	}
	return nil
}

// desiredTags binds each tag request to the line's area assignment for its area.
func desiredTags(ctx context.Context, repo Repository, line models.OrderLine, tags []TagInput) ([]reservation.Desired, error) {
	desired := make([]reservation.Desired, 0, len(tags))
	for _, tag := range tags {
		if tag.Quantity == 0 {
			continue
		}
		var areaID uuid.UUID
		switch {
		case tag.AreaID != nil:
			areaID = *tag.AreaID
		case tag.LotID != nil:
			id, err := repo.LotArea(ctx, *tag.LotID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tag lot not found").
					WithDetails(map[string]any{"lot_id": *tag.LotID})
			}
			if err != nil {
				return nil, storeErr(err, "load tag lot")
			}
			areaID = id
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag requires a lot or an area").
				WithDetails(map[string]any{"tag_type_id": tag.TagTypeID})
		}

		var assignmentID *uuid.UUID
		for _, area := range line.Areas {
			if id := area.AreaID(); id != nil && *id == areaID {
				aid := area.ID
				assignmentID = &aid
				break
			}
		}
		if assignmentID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag area is not assigned to the line").
				WithDetails(map[string]any{"line_id": line.ID, "area_id": areaID, "tag_type_id": tag.TagTypeID})
		}

		area := areaID
		desired = append(desired, reservation.Desired{
			TagTypeID:        tag.TagTypeID,
			LotID:            tag.LotID,
			AreaID:           &area,
			AreaAssignmentID: assignmentID,
			Quantity:         tag.Quantity,
		})
	}
	return desired, nil
}

func stockRequests(desired []reservation.Desired) []validation.StockRequest {
	requests := make([]validation.StockRequest, 0, len(desired))
	for _, d := range desired {
		req := validation.StockRequest{TagTypeID: d.TagTypeID, Quantity: d.Quantity}
		if d.LotID != nil {
			req.LotID = d.LotID
		} else {
			req.AreaID = d.AreaID
		}
		requests = append(requests, req)
	}
	return requests
}

// lineTags pairs a line with the reservation set it should end up holding.
type lineTags struct {
	line    models.OrderLine
	desired []reservation.Desired
}

// reconcileTags pre-checks stock for the whole call, then moves every touched line to
// its desired reservations in one ledger batch. mode selects whether the order's own
// holdings count as free.
func (s *service) reconcileTags(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, batches []lineTags, mode validation.StockMode) error {
	var requests []validation.StockRequest
	for _, batch := range batches {
		requests = append(requests, stockRequests(batch.desired)...)
	}
	if len(requests) > 0 {
		if err := s.stock.Check(ctx, tx, orderID, requests, mode); err != nil {
			return err
		}
	}
	if len(batches) == 0 {
		return nil
	}
	changes := make([]reservation.LineChange, 0, len(batches))
	for _, batch := range batches {
		changes = append(changes, reservation.LineChange{
			Line:     reservation.LineRef{OrderID: orderID, LineID: batch.line.ID},
			Previous: batch.line.Tags,
			Desired:  batch.desired,
		})
	}
	_, err := s.engine.ReconcileLines(ctx, tx, changes)
	return err
}

func normalizeUnit(u enums.UnitOfMeasure) enums.UnitOfMeasure {
	if parsed, err := enums.ParseUnitOfMeasure(string(u)); err == nil {
		return parsed
	}
	return u
}

func normalizeUnitPtr(u *enums.UnitOfMeasure) *enums.UnitOfMeasure {
	if u == nil {
		return nil
	}
	n := normalizeUnit(*u)
	return &n
}

// harvestStatus derives the harvest-phase status from how many lines are harvested.
func harvestStatus(lines []models.OrderLine) enums.OrderStatus {
	harvested := 0
	for _, line := range lines {
		if line.Harvested() {
			harvested++
		}
	}
	switch {
	case harvested == 0:
		return enums.OrderStatusAwaitingHarvest
	case harvested < len(lines):
		return enums.OrderStatusPartialHarvest
	default:
		return enums.OrderStatusHarvestDone
	}
}
