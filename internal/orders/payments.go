package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/pricing"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/validation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func (s *service) AddPayment(ctx context.Context, actor Actor, orderID uuid.UUID, input PaymentInput) (*models.Order, error) {
	if err := authorize(actor, opPayments, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	method, _ := enums.ParsePaymentMethod(string(input.Method))

	var from enums.OrderStatus
	var paymentID uuid.UUID
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockPaymentPhase(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status

		current, err := repo.SumPayments(ctx, order.ID)
		if err != nil {
			return storeErr(err, "sum payments")
		}
		if err := guardExcess(current.Add(input.Amount), order.FinalValue); err != nil {
			return err
		}

		paidAt := s.now()
		if input.PaidAt != nil {
			paidAt = input.PaidAt.UTC()
		}
		payment := &models.Payment{
			OrderID:   order.ID,
			Amount:    input.Amount,
			PaidAt:    paidAt,
			Method:    method,
			Reference: input.Reference,
			Notes:     input.Notes,
			CreatedBy: actor.UserID,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return storeErr(err, "create payment")
		}
		paymentID = payment.ID
		return s.settle(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, orderID, effect{
		action:       enums.AuditActionPaymentAdded,
		notification: enums.NotificationTypePaymentRecorded,
		from:         from,
		payload:      map[string]any{"payment_id": paymentID, "amount": input.Amount.StringFixed(2)},
	})
}

func (s *service) EditPayment(ctx context.Context, actor Actor, orderID, paymentID uuid.UUID, input PaymentUpdate) (*models.Order, error) {
	if err := authorize(actor, opPayments, ""); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var from enums.OrderStatus
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockPaymentPhase(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status

		payment, err := repo.FindPayment(ctx, order.ID, paymentID)
		if err != nil {
			return storeErr(err, "load payment")
		}

		updates := map[string]any{}
		if input.Amount != nil {
			current, err := repo.SumPayments(ctx, order.ID)
			if err != nil {
				return storeErr(err, "sum payments")
			}
			if err := guardExcess(current.Sub(payment.Amount).Add(*input.Amount), order.FinalValue); err != nil {
				return err
			}
			updates["amount"] = *input.Amount
		}
		if input.PaidAt != nil {
			updates["paid_at"] = input.PaidAt.UTC()
		}
		if input.Method != nil {
			method, _ := enums.ParsePaymentMethod(string(*input.Method))
			updates["method"] = method
		}
		if input.Reference != nil {
			updates["reference"] = *input.Reference
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return storeErr(err, "update payment")
		}
		return s.settle(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, orderID, effect{
		action:  enums.AuditActionPaymentEdited,
		from:    from,
		payload: map[string]any{"payment_id": paymentID},
	})
}

func (s *service) RemovePayment(ctx context.Context, actor Actor, orderID, paymentID uuid.UUID) (*models.Order, error) {
	if err := authorize(actor, opPayments, ""); err != nil {
		return nil, err
	}

	var from enums.OrderStatus
	var amount decimal.Decimal
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockPaymentPhase(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status

		payment, err := repo.FindPayment(ctx, order.ID, paymentID)
		if err != nil {
			return storeErr(err, "load payment")
		}
		amount = payment.Amount
		if err := repo.DeletePayment(ctx, payment.ID); err != nil {
			return storeErr(err, "delete payment")
		}
		return s.settle(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, orderID, effect{
		action:  enums.AuditActionPaymentRemoved,
		from:    from,
		payload: map[string]any{"payment_id": paymentID, "amount": amount.StringFixed(2)},
	})
}

func lockPaymentPhase(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, "lock order")
	}
	if !order.Status.InPaymentPhase() {
		return nil, invalidState("payments are only accepted after pricing and before finalization", order.Status)
	}
	return order, nil
}

// settle recomputes received from the payment rows and re-derives the payment status.
func (s *service) settle(ctx context.Context, repo Repository, order *models.Order) error {
	received, err := repo.SumPayments(ctx, order.ID)
	if err != nil {
		return storeErr(err, "sum payments")
	}
	updates := map[string]any{"received_value": received}
	s.derivePaymentStatus(updates, received, order.FinalValue)
	return storeErr(repo.UpdateOrder(ctx, order.ID, updates), "update received value")
}

func guardExcess(received, final decimal.Decimal) error {
	excess := pricing.Excess(received, final)
	if !excess.IsPositive() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds the remaining balance").
		WithDetails(map[string]any{"excess": excess.StringFixed(2)})
}
