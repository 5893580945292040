package registry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/repo"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

// AreaKind distinguishes the two area tables.
type AreaKind string

const (
	AreaOwned    AreaKind = "owned"
	AreaSupplier AreaKind = "supplier"
)

// Registry resolves the reference data orders point at.
type Registry interface {
	WithTx(tx *gorm.DB) Registry
	LookupClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	LookupProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LookupOwnedArea(ctx context.Context, id uuid.UUID) (*models.OwnedArea, error)
	LookupSupplierArea(ctx context.Context, id uuid.UUID) (*models.SupplierArea, error)
	LookupArea(ctx context.Context, id uuid.UUID) (AreaKind, error)
	LookupCrew(ctx context.Context, id uuid.UUID) (*models.LaborCrew, error)
	LookupTagType(ctx context.Context, id uuid.UUID) (*models.TagType, error)
	FirstAdmin(ctx context.Context) (*models.User, error)
}

type registry struct {
	repo.Base
}

// New returns a registry reading from the provided connection.
func New(conn *gorm.DB) Registry {
	return &registry{Base: repo.NewBase(conn)}
}

func (r *registry) WithTx(tx *gorm.DB) Registry {
	if tx == nil {
		return r
	}
	return New(tx)
}

func (r *registry) LookupClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.FindByID(ctx, &client, id, "client"); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *registry) LookupProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.FindByID(ctx, &product, id, "product"); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *registry) LookupOwnedArea(ctx context.Context, id uuid.UUID) (*models.OwnedArea, error) {
	var area models.OwnedArea
	if err := r.FindByID(ctx, &area, id, "owned area"); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *registry) LookupSupplierArea(ctx context.Context, id uuid.UUID) (*models.SupplierArea, error) {
	var area models.SupplierArea
	if err := r.FindByID(ctx, &area, id, "supplier area"); err != nil {
		return nil, err
	}
	return &area, nil
}

// LookupArea resolves an id against owned areas first, then supplier areas.
func (r *registry) LookupArea(ctx context.Context, id uuid.UUID) (AreaKind, error) {
	if _, err := r.LookupOwnedArea(ctx, id); err == nil {
		return AreaOwned, nil
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return "", err
	}
	if _, err := r.LookupSupplierArea(ctx, id); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return "", repo.MapLookup(gorm.ErrRecordNotFound, "area", id)
		}
		return "", err
	}
	return AreaSupplier, nil
}

func (r *registry) LookupCrew(ctx context.Context, id uuid.UUID) (*models.LaborCrew, error) {
	var crew models.LaborCrew
	if err := r.FindByID(ctx, &crew, id, "labor crew"); err != nil {
		return nil, err
	}
	return &crew, nil
}

func (r *registry) LookupTagType(ctx context.Context, id uuid.UUID) (*models.TagType, error) {
	var tagType models.TagType
	if err := r.FindByID(ctx, &tagType, id, "tag type"); err != nil {
		return nil, err
	}
	return &tagType, nil
}

// FirstAdmin returns the oldest admin user, used as the actor for unattended jobs.
func (r *registry) FirstAdmin(ctx context.Context) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).
		Where("role = ?", enums.ActorRoleAdmin).
		Order("created_at ASC").
		Take(&user).Error
	if err != nil {
		return nil, repo.MapLookup(err, "admin user", uuid.Nil)
	}
	return &user, nil
}
