package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// OrderLine is one product entry within an order.
type OrderLine struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	PredictedQty       decimal.Decimal      `gorm:"column:predicted_qty;type:numeric(14,3);not null"`
	PrimaryUnit        enums.UnitOfMeasure  `gorm:"column:primary_unit;type:text;not null"`
	SecondaryUnit      *enums.UnitOfMeasure `gorm:"column:secondary_unit;type:text"`
	ActualQtyPrimary   *decimal.Decimal     `gorm:"column:actual_qty_primary;type:numeric(14,3)"`
	ActualQtySecondary *decimal.Decimal     `gorm:"column:actual_qty_secondary;type:numeric(14,3)"`
	HarvestedAt        *time.Time           `gorm:"column:harvested_at"`
	PricingUnit        *enums.UnitOfMeasure `gorm:"column:pricing_unit;type:text"`
	PricedQty          *decimal.Decimal     `gorm:"column:priced_qty;type:numeric(14,3)"`
	UnitPrice          *decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,4)"`
	Total              decimal.Decimal      `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	Notes              *string              `gorm:"column:notes"`
	Areas              []AreaAssignment     `gorm:"foreignKey:LineID;constraint:OnDelete:CASCADE"`
	Tags               []TagAssignment      `gorm:"foreignKey:LineID;constraint:OnDelete:CASCADE"`
	Costs              []HarvestCost        `gorm:"foreignKey:LineID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Harvested reports whether a positive actual quantity has been recorded.
func (l OrderLine) Harvested() bool {
	return l.ActualQtyPrimary != nil && l.ActualQtyPrimary.IsPositive()
}

// AreaAssignment binds a line to an owned area, a supplier area, or neither (placeholder).
type AreaAssignment struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	LineID         uuid.UUID        `gorm:"column:line_id;type:uuid;not null;index"`
	OwnedAreaID    *uuid.UUID       `gorm:"column:owned_area_id;type:uuid"`
	SupplierAreaID *uuid.UUID       `gorm:"column:supplier_area_id;type:uuid"`
	Quantity       *decimal.Decimal `gorm:"column:quantity;type:numeric(14,3)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (AreaAssignment) TableName() string { return "line_areas" }

// IsPlaceholder reports whether neither area reference is set.
func (a AreaAssignment) IsPlaceholder() bool {
	return a.OwnedAreaID == nil && a.SupplierAreaID == nil
}

// AreaID returns whichever area reference is set.
func (a AreaAssignment) AreaID() *uuid.UUID {
	if a.OwnedAreaID != nil {
		return a.OwnedAreaID
	}
	return a.SupplierAreaID
}

// TagAssignment is a reservation of tags drawn from a lot for one line.
type TagAssignment struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	LineID           uuid.UUID  `gorm:"column:line_id;type:uuid;not null;index"`
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	TagTypeID        uuid.UUID  `gorm:"column:tag_type_id;type:uuid;not null"`
	LotID            uuid.UUID  `gorm:"column:lot_id;type:uuid;not null;index"`
	AreaID           uuid.UUID  `gorm:"column:area_id;type:uuid;not null"`
	AreaAssignmentID *uuid.UUID `gorm:"column:area_assignment_id;type:uuid"`
	Quantity         int        `gorm:"column:quantity;not null"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (TagAssignment) TableName() string { return "line_tags" }

// HarvestCost records labor spent by a crew on a harvested line.
type HarvestCost struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	LineID    uuid.UUID       `gorm:"column:line_id;type:uuid;not null;index"`
	CrewID    uuid.UUID       `gorm:"column:crew_id;type:uuid;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Notes     *string         `gorm:"column:notes"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (HarvestCost) TableName() string { return "line_harvest_costs" }
