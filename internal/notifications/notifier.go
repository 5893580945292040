package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Event is the value handed to the notifier after an order change commits.
type Event struct {
	ID          uuid.UUID              `json:"id"`
	Type        enums.NotificationType `json:"type"`
	OrderID     uuid.UUID              `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	ClientID    uuid.UUID              `json:"client_id"`
	ActorID     uuid.UUID              `json:"actor_id"`
	FromStatus  enums.OrderStatus      `json:"from_status,omitempty"`
	Status      enums.OrderStatus      `json:"status"`
	FinalValue  decimal.Decimal        `json:"final_value"`
	Received    decimal.Decimal        `json:"received_value"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Notifier delivers order events. Delivery is best-effort: callers log and
// continue when Notify fails.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
