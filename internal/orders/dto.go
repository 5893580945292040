package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// AreaInput assigns a line to an owned area, a supplier area, or neither (placeholder).
type AreaInput struct {
	OwnedAreaID    *uuid.UUID       `json:"owned_area_id"`
	SupplierAreaID *uuid.UUID       `json:"supplier_area_id"`
	Quantity       *decimal.Decimal `json:"quantity" validate:"omitempty,dec_gte0"`
}

// TagInput asks for tags of one type drawn from a lot, or from any lot of an area.
type TagInput struct {
	TagTypeID uuid.UUID  `json:"tag_type_id" validate:"required"`
	LotID     *uuid.UUID `json:"lot_id"`
	AreaID    *uuid.UUID `json:"area_id"`
	Quantity  int        `json:"quantity" validate:"min=0"`
}

// HarvestCostInput records crew labor spent on a harvested line.
type HarvestCostInput struct {
	CrewID   uuid.UUID       `json:"crew_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"dec_gte0"`
	Amount   decimal.Decimal `json:"amount" validate:"dec_gte0"`
	Notes    *string         `json:"notes"`
}

// LineInput describes a new line at creation time.
type LineInput struct {
	ProductID     uuid.UUID            `json:"product_id" validate:"required"`
	PredictedQty  decimal.Decimal      `json:"predicted_qty" validate:"dec_gt0"`
	PrimaryUnit   enums.UnitOfMeasure  `json:"primary_unit" validate:"uom"`
	SecondaryUnit *enums.UnitOfMeasure `json:"secondary_unit" validate:"omitempty,uom"`
	Notes         *string              `json:"notes"`
	Areas         []AreaInput          `json:"areas" validate:"dive"`
	Tags          []TagInput           `json:"tags" validate:"dive"`
}

// CreateOrderInput is the draft accepted by Create.
type CreateOrderInput struct {
	ClientID          uuid.UUID        `json:"client_id" validate:"required"`
	PlacedAt          *time.Time       `json:"placed_at"`
	ExpectedHarvestAt *time.Time       `json:"expected_harvest_at"`
	Freight           *decimal.Decimal `json:"freight" validate:"omitempty,dec_gte0"`
	Tax               *decimal.Decimal `json:"tax" validate:"omitempty,dec_gte0"`
	Discount          *decimal.Decimal `json:"discount" validate:"omitempty,dec_gte0"`
	Damage            *decimal.Decimal `json:"damage" validate:"omitempty,dec_gte0"`
	Notes             *string          `json:"notes"`
	Lines             []LineInput      `json:"lines" validate:"required,min=1,dive"`
}

// HarvestLineInput reports harvest results for one line. Nil Areas, Tags or Costs
// leave the stored set untouched; an empty slice clears it.
type HarvestLineInput struct {
	LineID             uuid.UUID          `json:"line_id" validate:"required"`
	ActualQtyPrimary   *decimal.Decimal   `json:"actual_qty_primary" validate:"omitempty,dec_gte0"`
	ActualQtySecondary *decimal.Decimal   `json:"actual_qty_secondary" validate:"omitempty,dec_gte0"`
	Areas              []AreaInput        `json:"areas" validate:"omitempty,dive"`
	Tags               []TagInput         `json:"tags" validate:"omitempty,dive"`
	Costs              []HarvestCostInput `json:"costs" validate:"omitempty,dive"`
}

type HarvestInput struct {
	HarvestedAt *time.Time         `json:"harvested_at"`
	Lines       []HarvestLineInput `json:"lines" validate:"required,min=1,dive"`
}

type PricingLineInput struct {
	LineID      uuid.UUID            `json:"line_id" validate:"required"`
	UnitPrice   decimal.Decimal      `json:"unit_price" validate:"dec_gte0"`
	PricingUnit *enums.UnitOfMeasure `json:"pricing_unit" validate:"omitempty,uom"`
	PricedQty   *decimal.Decimal     `json:"priced_qty" validate:"omitempty,dec_gte0"`
}

// PricingInput prices lines and optionally sets the order adjustments in one call.
type PricingInput struct {
	Lines    []PricingLineInput `json:"lines" validate:"required,min=1,dive"`
	Freight  *decimal.Decimal   `json:"freight" validate:"omitempty,dec_gte0"`
	Tax      *decimal.Decimal   `json:"tax" validate:"omitempty,dec_gte0"`
	Discount *decimal.Decimal   `json:"discount" validate:"omitempty,dec_gte0"`
	Damage   *decimal.Decimal   `json:"damage" validate:"omitempty,dec_gte0"`
}

// AdjustmentInput replaces the order adjustments that are set; nil fields keep the stored value.
type AdjustmentInput struct {
	Freight  *decimal.Decimal `json:"freight" validate:"omitempty,dec_gte0"`
	Tax      *decimal.Decimal `json:"tax" validate:"omitempty,dec_gte0"`
	Discount *decimal.Decimal `json:"discount" validate:"omitempty,dec_gte0"`
	Damage   *decimal.Decimal `json:"damage" validate:"omitempty,dec_gte0"`
}

func (a AdjustmentInput) empty() bool {
	return a.Freight == nil && a.Tax == nil && a.Discount == nil && a.Damage == nil
}

// LineEdit is one line operation inside EditFull: CreateLine, UpdateLine or RemoveLine.
type LineEdit interface {
	lineEdit()
}

// CreateLine adds a line mid-lifecycle. Harvest and pricing fields are required
// once the order has reached those phases.
type CreateLine struct {
	LineInput
	ActualQtyPrimary   *decimal.Decimal     `json:"actual_qty_primary" validate:"omitempty,dec_gte0"`
	ActualQtySecondary *decimal.Decimal     `json:"actual_qty_secondary" validate:"omitempty,dec_gte0"`
	UnitPrice          *decimal.Decimal     `json:"unit_price" validate:"omitempty,dec_gte0"`
	PricingUnit        *enums.UnitOfMeasure `json:"pricing_unit" validate:"omitempty,uom"`
	PricedQty          *decimal.Decimal     `json:"priced_qty" validate:"omitempty,dec_gte0"`
}

// UpdateLine changes an existing line; nil fields keep the stored value.
type UpdateLine struct {
	LineID             uuid.UUID            `json:"line_id" validate:"required"`
	ProductID          *uuid.UUID           `json:"product_id"`
	PredictedQty       *decimal.Decimal     `json:"predicted_qty" validate:"omitempty,dec_gt0"`
	PrimaryUnit        *enums.UnitOfMeasure `json:"primary_unit" validate:"omitempty,uom"`
	SecondaryUnit      *enums.UnitOfMeasure `json:"secondary_unit" validate:"omitempty,uom"`
	ActualQtyPrimary   *decimal.Decimal     `json:"actual_qty_primary" validate:"omitempty,dec_gte0"`
	ActualQtySecondary *decimal.Decimal     `json:"actual_qty_secondary" validate:"omitempty,dec_gte0"`
	UnitPrice          *decimal.Decimal     `json:"unit_price" validate:"omitempty,dec_gte0"`
	PricingUnit        *enums.UnitOfMeasure `json:"pricing_unit" validate:"omitempty,uom"`
	PricedQty          *decimal.Decimal     `json:"priced_qty" validate:"omitempty,dec_gte0"`
	Notes              *string              `json:"notes"`
	Areas              []AreaInput          `json:"areas" validate:"omitempty,dive"`
	Tags               []TagInput           `json:"tags" validate:"omitempty,dive"`
}

// RemoveLine deletes a line and releases its reservations.
type RemoveLine struct {
	LineID uuid.UUID `json:"line_id" validate:"required"`
}

func (CreateLine) lineEdit() {}
func (UpdateLine) lineEdit() {}
func (RemoveLine) lineEdit() {}

// EditInput is a full update. When Lines is nil the lines are left alone; otherwise
// existing lines not named by an UpdateLine are removed.
type EditInput struct {
	ClientID          *uuid.UUID       `json:"client_id"`
	ExpectedHarvestAt *time.Time       `json:"expected_harvest_at"`
	Notes             *string          `json:"notes"`
	Freight           *decimal.Decimal `json:"freight" validate:"omitempty,dec_gte0"`
	Tax               *decimal.Decimal `json:"tax" validate:"omitempty,dec_gte0"`
	Discount          *decimal.Decimal `json:"discount" validate:"omitempty,dec_gte0"`
	Damage            *decimal.Decimal `json:"damage" validate:"omitempty,dec_gte0"`
	Lines             []LineEdit       `json:"-"`
}

type PaymentInput struct {
	Amount    decimal.Decimal     `json:"amount" validate:"dec_gt0"`
	PaidAt    *time.Time          `json:"paid_at"`
	Method    enums.PaymentMethod `json:"method" validate:"paymethod"`
	Reference *string             `json:"reference"`
	Notes     *string             `json:"notes"`
}

// PaymentUpdate edits a stored payment; nil fields keep the stored value.
type PaymentUpdate struct {
	Amount    *decimal.Decimal     `json:"amount" validate:"omitempty,dec_gt0"`
	PaidAt    *time.Time           `json:"paid_at"`
	Method    *enums.PaymentMethod `json:"method" validate:"omitempty,paymethod"`
	Reference *string              `json:"reference"`
	Notes     *string              `json:"notes"`
}

// SweepCandidate is an order the zero-value sweep may finalize. CreatedAt and ID
// together form the paging cursor.
type SweepCandidate struct {
	ID          uuid.UUID
	OrderNumber string
	Status      enums.OrderStatus
	CreatedAt   time.Time
}
