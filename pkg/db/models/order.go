package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Order is a fulfillment order moving product lines from harvest to payment.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string            `gorm:"column:order_number;type:text;not null;uniqueIndex:ux_orders_order_number"`
	ClientID          uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'created';index"`
	PlacedAt          time.Time         `gorm:"column:placed_at;not null"`
	ExpectedHarvestAt *time.Time        `gorm:"column:expected_harvest_at"`
	HarvestedAt       *time.Time        `gorm:"column:harvested_at"`
	PricedAt          *time.Time        `gorm:"column:priced_at"`
	FinalizedAt       *time.Time        `gorm:"column:finalized_at"`
	CancelledAt       *time.Time        `gorm:"column:cancelled_at"`
	Freight           decimal.Decimal   `gorm:"column:freight;type:numeric(14,2);not null;default:0"`
	Tax               decimal.Decimal   `gorm:"column:tax;type:numeric(14,2);not null;default:0"`
	Discount          decimal.Decimal   `gorm:"column:discount;type:numeric(14,2);not null;default:0"`
	Damage            decimal.Decimal   `gorm:"column:damage;type:numeric(14,2);not null;default:0"`
	FinalValue        decimal.Decimal   `gorm:"column:final_value;type:numeric(14,2);not null;default:0"`
	ReceivedValue     decimal.Decimal   `gorm:"column:received_value;type:numeric(14,2);not null;default:0"`
	Notes             *string           `gorm:"column:notes"`
	CreatedBy         uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	Lines             []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments          []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderSequence holds the last order number issued for a calendar year.
type OrderSequence struct {
	Year      int `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int `gorm:"column:last_value;not null;default:0"`
}
