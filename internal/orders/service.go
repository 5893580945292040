package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/audit"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/notifications"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/registry"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/reservation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
)

const (
	orderNumberConstraint = "ux_orders_order_number"
	maxTxAttempts         = 3
)

// sweepStatuses are the pricing and payment phases the zero-value sweep scans.
var sweepStatuses = []enums.OrderStatus{
	enums.OrderStatusAwaitingPricing,
	enums.OrderStatusPricingDone,
	enums.OrderStatusAwaitingPayment,
	enums.OrderStatusPartialPayment,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order lifecycle state machine. Every mutating call runs in one
// transaction and returns the materialized order.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error)
	UpdateHarvest(ctx context.Context, actor Actor, orderID uuid.UUID, input HarvestInput) (*models.Order, error)
	UpdatePricing(ctx context.Context, actor Actor, orderID uuid.UUID, input PricingInput) (*models.Order, error)
	AdjustPricing(ctx context.Context, actor Actor, orderID uuid.UUID, input AdjustmentInput) (*models.Order, error)
	Finalize(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Remove(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	EditFull(ctx context.Context, actor Actor, orderID uuid.UUID, input EditInput) (*models.Order, error)
	AddPayment(ctx context.Context, actor Actor, orderID uuid.UUID, input PaymentInput) (*models.Order, error)
	EditPayment(ctx context.Context, actor Actor, orderID, paymentID uuid.UUID, input PaymentUpdate) (*models.Order, error)
	RemovePayment(ctx context.Context, actor Actor, orderID, paymentID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ZeroValueCandidates(ctx context.Context, after *SweepCandidate, limit int) ([]SweepCandidate, error)
	AutoFinalizeZeroValue(ctx context.Context, actor Actor, orderID uuid.UUID) (bool, error)
}

// ServiceParams carries the service collaborators. Audit, Notifier and Logger are optional.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Registry registry.Registry
	Engine   reservation.Engine
	Stock    *validation.StockChecker
	Audit    audit.Recorder
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	registry registry.Registry
	engine   reservation.Engine
	stock    *validation.StockChecker
	audit    audit.Recorder
	notifier notifications.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("reservation engine required")
	}
	stock := params.Stock
	if stock == nil {
		stock = validation.NewStockChecker()
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		registry: params.Registry,
		engine:   params.Engine,
		stock:    stock,
		audit:    params.Audit,
		notifier: notifier,
		logg:     params.Logger,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, "load order")
	}
	return order, nil
}

func (s *service) ZeroValueCandidates(ctx context.Context, after *SweepCandidate, limit int) ([]SweepCandidate, error) {
	candidates, err := s.repo.ListZeroValueCandidates(ctx, sweepStatuses, after, limit)
	if err != nil {
		return nil, storeErr(err, "list sweep candidates")
	}
	return candidates, nil
}

// inTx runs fn in one transaction, retrying the whole unit on serialization
// failures and deadlocks.
func (s *service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.tx.WithTx(ctx, fn)
		if err == nil || !db.IsRetryableTx(err) {
			return err
		}
		if s.logg != nil {
			retryCtx := s.logg.WithField(ctx, "attempt", attempt)
			s.logg.Warn(retryCtx, "transaction conflict; retrying")
		}
	}
	return storeErr(err, "transaction retries exhausted")
}

// lockOrder row-locks the order and returns it with every child loaded.
func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if _, err := repo.LockOrder(ctx, orderID); err != nil {
		return nil, storeErr(err, "lock order")
	}
	order, err := repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, "load order")
	}
	return order, nil
}

func invalidState(message string, status enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"status": status})
}

// storeErr maps persistence failures onto the error taxonomy. Typed errors pass through.
func storeErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	if db.IsUniqueViolation(err, orderNumberConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already issued")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

// effect describes the best-effort side effects of a committed change.
type effect struct {
	action       enums.AuditAction
	notification enums.NotificationType
	from         enums.OrderStatus
	payload      map[string]any
}

// finish reloads the committed order and runs audit and notification. Their
// failures are logged and never change the result.
func (s *service) finish(ctx context.Context, actor Actor, orderID uuid.UUID, eff effect) (*models.Order, error) {
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, "load order")
	}
	s.sideEffects(ctx, actor, order, eff)
	return order, nil
}

func (s *service) sideEffects(ctx context.Context, actor Actor, order *models.Order, eff effect) {
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
	}

	if s.audit != nil && eff.action != "" {
		payload := map[string]any{
			"order_number": order.OrderNumber,
			"status":       order.Status,
		}
		if eff.from != "" {
			payload["from_status"] = eff.from
		}
		for k, v := range eff.payload {
			payload[k] = v
		}
		if _, err := s.audit.Record(ctx, audit.RecordInput{
			OrderID: order.ID,
			ActorID: actor.UserID,
			Action:  eff.action,
			Payload: payload,
		}); err != nil && s.logg != nil {
			s.logg.Error(logCtx, "audit record failed", err)
		}
	}

	notification := eff.notification
	if notification == "" && eff.from != "" && eff.from != order.Status {
		notification = enums.NotificationTypeOrderStatusChanged
	}
	if notification == "" {
		return
	}
	event := notifications.Event{
		ID:          uuid.New(),
		Type:        notification,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ClientID:    order.ClientID,
		ActorID:     actor.UserID,
		FromStatus:  eff.from,
		Status:      order.Status,
		FinalValue:  order.FinalValue,
		Received:    order.ReceivedValue,
		OccurredAt:  s.now(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil && s.logg != nil {
		s.logg.Error(logCtx, "order notification failed", err)
	}
}
