package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/pricing"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Repository defines persistence operations for orders and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context, year int) (int, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLine(ctx context.Context, line *models.OrderLine) error
	CreateAreas(ctx context.Context, areas []models.AreaAssignment) error
	DeleteAreas(ctx context.Context, ids []uuid.UUID) error
	UpdateArea(ctx context.Context, id uuid.UUID, quantity *decimal.Decimal) error
	ReplaceCosts(ctx context.Context, lineID uuid.UUID, costs []models.HarvestCost) error
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error
	DeleteLines(ctx context.Context, lineIDs []uuid.UUID) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	LotArea(ctx context.Context, lotID uuid.UUID) (uuid.UUID, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPayment(ctx context.Context, orderID, paymentID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	DeletePayment(ctx context.Context, paymentID uuid.UUID) error
	SumPayments(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	ListZeroValueCandidates(ctx context.Context, statuses []enums.OrderStatus, after *SweepCandidate, limit int) ([]SweepCandidate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextSequence issues the next order number for year. The counter row is created on
// first use and locked for the rest of the transaction, so concurrent creates queue.
func (r *repository) NextSequence(ctx context.Context, year int) (int, error) {
	conn := r.db.WithContext(ctx)
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.OrderSequence{Year: year}).Error; err != nil {
		return 0, err
	}
	var seq models.OrderSequence
	if err := db.ForUpdate(conn).Where("year = ?", year).Take(&seq).Error; err != nil {
		return 0, err
	}
	next := seq.LastValue + 1
	if err := conn.Model(&models.OrderSequence{}).
		Where("year = ?", year).
		Update("last_value", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateLine(ctx context.Context, line *models.OrderLine) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(line).Error
}

func (r *repository) CreateAreas(ctx context.Context, areas []models.AreaAssignment) error {
	if len(areas) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&areas).Error
}

func (r *repository) DeleteAreas(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	conn := r.db.WithContext(ctx)
	if err := conn.Model(&models.TagAssignment{}).
		Where("area_assignment_id IN ?", ids).
		Update("area_assignment_id", nil).Error; err != nil {
		return err
	}
	return conn.Where("id IN ?", ids).Delete(&models.AreaAssignment{}).Error
}

func (r *repository) UpdateArea(ctx context.Context, id uuid.UUID, quantity *decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.AreaAssignment{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *repository) ReplaceCosts(ctx context.Context, lineID uuid.UUID, costs []models.HarvestCost) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("line_id = ?", lineID).Delete(&models.HarvestCost{}).Error; err != nil {
		return err
	}
	if len(costs) == 0 {
		return nil
	}
	return conn.Create(&costs).Error
}

func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("Lines.Areas", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("Lines.Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("lot_id ASC") }).
		Preload("Lines.Costs", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("Payments", func(tx *gorm.DB) *gorm.DB { return tx.Order("paid_at ASC, id ASC") }).
		Where("id = ?", orderID).
		Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", lineID).
		Updates(updates).Error
}

// DeleteLines removes lines with their areas and costs. Reservations must already be released.
func (r *repository) DeleteLines(ctx context.Context, lineIDs []uuid.UUID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	conn := r.db.WithContext(ctx)
	if err := conn.Where("line_id IN ?", lineIDs).Delete(&models.HarvestCost{}).Error; err != nil {
		return err
	}
	if err := conn.Where("line_id IN ?", lineIDs).Delete(&models.AreaAssignment{}).Error; err != nil {
		return err
	}
	return conn.Where("id IN ?", lineIDs).Delete(&models.OrderLine{}).Error
}

// DeleteOrder removes the order and every child row. Reservations must already be released.
func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("order_id = ?", orderID).Delete(&models.Payment{}).Error; err != nil {
		return err
	}
	if err := conn.Where("order_id = ?", orderID).Delete(&models.TagAssignment{}).Error; err != nil {
		return err
	}
	var lineIDs []uuid.UUID
	if err := conn.Model(&models.OrderLine{}).Where("order_id = ?", orderID).Pluck("id", &lineIDs).Error; err != nil {
		return err
	}
	if err := r.DeleteLines(ctx, lineIDs); err != nil {
		return err
	}
	return conn.Where("id = ?", orderID).Delete(&models.Order{}).Error
}

func (r *repository) LotArea(ctx context.Context, lotID uuid.UUID) (uuid.UUID, error) {
	var lot models.TagLot
	if err := r.db.WithContext(ctx).Select("id", "area_id").Where("id = ?", lotID).Take(&lot).Error; err != nil {
		return uuid.Nil, err
	}
	return lot.AreaID, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, orderID, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", paymentID, orderID).
		Take(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

func (r *repository) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", paymentID).Delete(&models.Payment{}).Error
}

func (r *repository) SumPayments(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Select("id", "amount").
		Where("order_id = ?", orderID).
		Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	return pricing.SumPayments(payments), nil
}

// ListZeroValueCandidates returns orders in the given statuses whose final value is
// within a cent of zero, oldest first. A non-nil after resumes strictly past that
// candidate.
func (r *repository) ListZeroValueCandidates(ctx context.Context, statuses []enums.OrderStatus, after *SweepCandidate, limit int) ([]SweepCandidate, error) {
	var rows []models.Order
	q := r.db.WithContext(ctx).
		Select("id", "order_number", "status", "created_at").
		Where("status IN ?", statuses).
		Where("final_value > ? AND final_value < ?", -0.01, 0.01)
	if after != nil {
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	q = q.Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	candidates := make([]SweepCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, SweepCandidate{ID: row.ID, OrderNumber: row.OrderNumber, Status: row.Status, CreatedAt: row.CreatedAt})
	}
	return candidates, nil
}
