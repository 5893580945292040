package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/pricing"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func (s *service) Finalize(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := authorize(actor, opFinalize, ""); err != nil {
		return nil, err
	}

	var from enums.OrderStatus
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if order.Status.IsTerminal() || !order.Status.PricingStarted() {
			return invalidState("order cannot be finalized in its current status", order.Status)
		}
		if !pricing.IsSettled(order.ReceivedValue, order.FinalValue) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "received value does not cover the final value").
				WithDetails(map[string]any{
					"final":     order.FinalValue.StringFixed(2),
					"received":  order.ReceivedValue.StringFixed(2),
					"remaining": order.FinalValue.Sub(order.ReceivedValue).StringFixed(2),
				})
		}
		return storeErr(repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusFinalized,
			"finalized_at": s.now(),
		}), "finalize order")
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, orderID, effect{action: enums.AuditActionOrderFinalized, from: from})
}

// Cancel closes the order. Reservations stay held until the order is removed.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := authorize(actor, opCancel, ""); err != nil {
		return nil, err
	}

	var from enums.OrderStatus
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if order.Status.IsTerminal() {
			return invalidState("order is already closed", order.Status)
		}
		return storeErr(repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": s.now(),
		}), "cancel order")
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, orderID, effect{action: enums.AuditActionOrderCancelled, from: from})
}

// Remove returns every reservation to its lot and deletes the order. The returned
// order is the state just before deletion.
func (s *service) Remove(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := authorize(actor, opRemove, ""); err != nil {
		return nil, err
	}

	var snapshot *models.Order
	released := 0
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Removable() {
			return invalidState("order can only be removed before harvest is done or after cancellation", order.Status)
		}
		snapshot = order

		plan, err := s.engine.ReleaseAll(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		released = plan.Released
		return storeErr(repo.DeleteOrder(ctx, order.ID), "delete order")
	})
	if err != nil {
		return nil, err
	}

	s.sideEffects(ctx, actor, snapshot, effect{
		action:       enums.AuditActionOrderRemoved,
		notification: enums.NotificationTypeOrderRemoved,
		payload:      map[string]any{"released_tags": released},
	})
	return snapshot, nil
}

// AutoFinalizeZeroValue finalizes an order whose final value is effectively zero.
// The status and value are re-read under lock, so a drifted order is skipped.
func (s *service) AutoFinalizeZeroValue(ctx context.Context, actor Actor, orderID uuid.UUID) (bool, error) {
	if err := authorize(actor, opAutoFinalize, ""); err != nil {
		return false, err
	}

	var from enums.OrderStatus
	finalized := false
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return storeErr(err, "lock order")
		}
		from = order.Status
		if !isSweepStatus(order.Status) || !pricing.IsEffectivelyZero(order.FinalValue) {
			return nil
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusFinalized,
			"finalized_at": s.now(),
		}); err != nil {
			return storeErr(err, "auto finalize order")
		}
		finalized = true
		return nil
	})
	if err != nil || !finalized {
		return false, err
	}
	if _, err := s.finish(ctx, actor, orderID, effect{action: enums.AuditActionOrderAutoFinalized, from: from}); err != nil {
		return true, err
	}
	return true, nil
}

func isSweepStatus(status enums.OrderStatus) bool {
	for _, candidate := range sweepStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}
