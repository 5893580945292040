package enums

import "fmt"

// AuditAction names the operation recorded in order_audit_entries.
type AuditAction string

const (
	AuditActionOrderCreated       AuditAction = "order_created"
	AuditActionHarvestUpdated     AuditAction = "harvest_updated"
	AuditActionPricingUpdated     AuditAction = "pricing_updated"
	AuditActionPricingAdjusted    AuditAction = "pricing_adjusted"
	AuditActionOrderFinalized     AuditAction = "order_finalized"
	AuditActionOrderAutoFinalized AuditAction = "order_auto_finalized"
	AuditActionOrderCancelled     AuditAction = "order_cancelled"
	AuditActionOrderRemoved       AuditAction = "order_removed"
	AuditActionOrderEdited        AuditAction = "order_edited"
	AuditActionPaymentAdded       AuditAction = "payment_added"
	AuditActionPaymentEdited      AuditAction = "payment_edited"
	AuditActionPaymentRemoved     AuditAction = "payment_removed"
)

var validAuditActions = []AuditAction{
	AuditActionOrderCreated,
	AuditActionHarvestUpdated,
	AuditActionPricingUpdated,
	AuditActionPricingAdjusted,
	AuditActionOrderFinalized,
	AuditActionOrderAutoFinalized,
	AuditActionOrderCancelled,
	AuditActionOrderRemoved,
	AuditActionOrderEdited,
	AuditActionPaymentAdded,
	AuditActionPaymentEdited,
	AuditActionPaymentRemoved,
}

// IsValid reports whether the value matches a known audit action.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
