package validation

import (
	"github.com/google/uuid"

	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

// AreaRef is the pair of mutually exclusive area references carried by an area assignment.
type AreaRef struct {
	OwnedAreaID    *uuid.UUID
	SupplierAreaID *uuid.UUID
}

func (a AreaRef) isPlaceholder() bool {
	return a.OwnedAreaID == nil && a.SupplierAreaID == nil
}

// DuplicateProducts rejects product ids that appear on more than one line.
func DuplicateProducts(productIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]int, len(productIDs))
	var duplicated []uuid.UUID
	for _, id := range productIDs {
		seen[id]++
		if seen[id] == 2 {
			duplicated = append(duplicated, id)
		}
	}
	if len(duplicated) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "product appears on more than one line").
		WithDetails(map[string]any{"duplicated_products": duplicated})
}

// AreaExclusivity checks that every assignment names at most one area. Placeholders
// (neither area) pass only when allowPlaceholder is set.
func AreaExclusivity(areas []AreaRef, allowPlaceholder bool) error {
	for i, area := range areas {
		if area.OwnedAreaID != nil && area.SupplierAreaID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "area assignment cannot reference both an owned and a supplier area").
				WithDetails(map[string]any{"index": i})
		}
		if area.isPlaceholder() && !allowPlaceholder {
			return pkgerrors.New(pkgerrors.CodeValidation, "area assignment must reference an owned or a supplier area").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

// RequireAreas checks that a line carries at least one area assignment.
func RequireAreas(areas []AreaRef) error {
	if len(areas) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "line requires at least one area assignment")
	}
	return nil
}

// RequireResolvedArea checks that at least one assignment names a real area.
func RequireResolvedArea(areas []AreaRef) error {
	for _, area := range areas {
		if !area.isPlaceholder() {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "harvested line requires at least one owned or supplier area")
}
