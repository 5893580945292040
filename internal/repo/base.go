package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// FindByID loads one row by primary key into dest. A nil id is a VALIDATION_ERROR,
// a missing row is NOT_FOUND and anything else is DEPENDENCY_ERROR.
func (b Base) FindByID(ctx context.Context, dest any, id uuid.UUID, entity string) error {
	if id == uuid.Nil {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s id is required", entity)
	}
	return MapLookup(b.DB(ctx).Where("id = ?", id).Take(dest).Error, entity, id)
}

// MapLookup translates a single-row query error into the coded taxonomy.
func MapLookup(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e := pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
		if id != uuid.Nil {
			e = e.WithDetails(map[string]any{"id": id})
		}
		return e
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
