package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// OrderAuditEntry records an immutable lifecycle event tied to an order.
type OrderAuditEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Action    enums.AuditAction `gorm:"column:action;type:text;not null"`
	Payload   json.RawMessage   `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
