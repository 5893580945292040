package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Payment is money received against an order.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	PaidAt    time.Time           `gorm:"column:paid_at;not null"`
	Method    enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Reference *string             `gorm:"column:reference"`
	Notes     *string             `gorm:"column:notes"`
	CreatedBy uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
