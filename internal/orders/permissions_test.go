package orders

import (
	"testing"

	"github.com/google/uuid"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	user := uuid.New()
	cases := []struct {
		name   string
		actor  Actor
		op     operation
		status enums.OrderStatus
		code   pkgerrors.Code
	}{
		{"missing user", Actor{Role: enums.ActorRoleAdmin}, opCreate, "", pkgerrors.CodeUnauthorized},
		{"operator creates", Actor{UserID: user, Role: enums.ActorRoleOperator}, opCreate, "", ""},
		{"finance creates", Actor{UserID: user, Role: enums.ActorRoleFinance}, opCreate, "", pkgerrors.CodeForbidden},
		{"finance prices", Actor{UserID: user, Role: enums.ActorRoleFinance}, opPricing, "", ""},
		{"operator prices", Actor{UserID: user, Role: enums.ActorRoleOperator}, opPricing, "", pkgerrors.CodeForbidden},
		{"manager removes", Actor{UserID: user, Role: enums.ActorRoleManager}, opRemove, "", ""},
		{"finance cancels", Actor{UserID: user, Role: enums.ActorRoleFinance}, opCancel, "", pkgerrors.CodeForbidden},
		{"operator edits early", Actor{UserID: user, Role: enums.ActorRoleOperator}, opEdit, enums.OrderStatusAwaitingHarvest, ""},
		{"operator edits after harvest", Actor{UserID: user, Role: enums.ActorRoleOperator}, opEdit, enums.OrderStatusPartialHarvest, pkgerrors.CodeForbidden},
		{"manager edits after harvest", Actor{UserID: user, Role: enums.ActorRoleManager}, opEdit, enums.OrderStatusPricingDone, ""},
		{"system sweeps", Actor{UserID: user, Role: enums.ActorRoleSystem}, opAutoFinalize, "", ""},
		{"manager sweeps", Actor{UserID: user, Role: enums.ActorRoleManager}, opAutoFinalize, "", pkgerrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authorize(tc.actor, tc.op, tc.status)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestFormatOrderNumber(t *testing.T) {
	if got := FormatOrderNumber(2024, 7); got != "PED-2024-0007" {
		t.Fatalf("unexpected order number %q", got)
	}
	if got := FormatOrderNumber(2025, 12345); got != "PED-2025-12345" {
		t.Fatalf("unexpected order number %q", got)
	}
}
