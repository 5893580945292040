package orders

import (
	"github.com/google/uuid"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

// Actor is the user on whose behalf an operation runs. Unattended jobs pass an
// explicit system actor resolved by the caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

type operation string

const (
	opCreate       operation = "create"
	opHarvest      operation = "harvest"
	opPricing      operation = "pricing"
	opAdjust       operation = "adjust_pricing"
	opFinalize     operation = "finalize"
	opPayments     operation = "payments"
	opCancel       operation = "cancel"
	opRemove       operation = "remove"
	opEdit         operation = "edit"
	opAutoFinalize operation = "auto_finalize"
)

var allowedRoles = map[operation][]enums.ActorRole{
	opCreate:       {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleOperator},
	opHarvest:      {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleOperator},
	opPricing:      {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleFinance},
	opAdjust:       {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleFinance},
	opFinalize:     {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleFinance},
	opPayments:     {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleFinance},
	opCancel:       {enums.ActorRoleAdmin, enums.ActorRoleManager},
	opRemove:       {enums.ActorRoleAdmin, enums.ActorRoleManager},
	opEdit:         {enums.ActorRoleAdmin, enums.ActorRoleManager, enums.ActorRoleOperator},
	opAutoFinalize: {enums.ActorRoleSystem, enums.ActorRoleAdmin},
}

// authorize checks the actor's role for op. Operators may only run full edits
// while harvest has not started, so edit checks need the current status.
func authorize(actor Actor, op operation, status enums.OrderStatus) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	permitted := false
	for _, role := range allowedRoles[op] {
		if role == actor.Role {
			permitted = true
			break
		}
	}
	if !permitted {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this operation").
			WithDetails(map[string]any{"role": actor.Role, "operation": op})
	}
	if op == opEdit && actor.Role == enums.ActorRoleOperator && status.HarvestStarted() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "operators cannot edit orders after harvest started").
			WithDetails(map[string]any{"status": status})
	}
	return nil
}
