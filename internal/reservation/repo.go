package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
)

// errLedgerGuard is returned when a lot update would leave reserved outside [0, total].
var errLedgerGuard = errors.New("lot reserved quantity out of bounds")

// Repository persists tag lots and the reservations drawn from them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LotIDsFor(ctx context.Context, tagTypeID, areaID uuid.UUID) ([]uuid.UUID, error)
	LockLots(ctx context.Context, ids []uuid.UUID) ([]models.TagLot, error)
	ApplyDelta(ctx context.Context, lotID uuid.UUID, delta int) error
	CreateAssignment(ctx context.Context, assignment *models.TagAssignment) error
	UpdateAssignment(ctx context.Context, id uuid.UUID, quantity int, areaAssignmentID *uuid.UUID) error
	DeleteAssignments(ctx context.Context, ids []uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TagAssignment, error)
	ListByLine(ctx context.Context, lineID uuid.UUID) ([]models.TagAssignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lot ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LotIDsFor(ctx context.Context, tagTypeID, areaID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TagLot{}).
		Where("tag_type_id = ? AND area_id = ?", tagTypeID, areaID).
		Pluck("id", &ids).Error
	return ids, err
}

// LockLots row-locks the given lots in id order so concurrent batches never deadlock.
func (r *repository) LockLots(ctx context.Context, ids []uuid.UUID) ([]models.TagLot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var lots []models.TagLot
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&lots).Error
	return lots, err
}

func (r *repository) ApplyDelta(ctx context.Context, lotID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.TagLot{}).
		Where("id = ?", lotID).
		Where("reserved_qty + ? >= 0 AND reserved_qty + ? <= total_qty", delta, delta).
		Updates(map[string]any{
			"reserved_qty": gorm.Expr("reserved_qty + ?", delta),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errLedgerGuard
	}
	return nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.TagAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, quantity int, areaAssignmentID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.TagAssignment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":           quantity,
			"area_assignment_id": areaAssignmentID,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (r *repository) DeleteAssignments(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.TagAssignment{}).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TagAssignment, error) {
	var assignments []models.TagAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("line_id ASC, lot_id ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *repository) ListByLine(ctx context.Context, lineID uuid.UUID) ([]models.TagAssignment, error) {
	var assignments []models.TagAssignment
	err := r.db.WithContext(ctx).
		Where("line_id = ?", lineID).
		Order("lot_id ASC").
		Find(&assignments).Error
	return assignments, err
}
