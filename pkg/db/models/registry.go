package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Client is a buyer of fulfillment orders.
type Client struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Document  *string   `gorm:"column:document;type:text"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name        string              `gorm:"column:name;type:text;not null"`
	DefaultUnit enums.UnitOfMeasure `gorm:"column:default_unit;type:text;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// OwnedArea is a growing area operated by the company itself.
type OwnedArea struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SupplierArea is a growing area operated by a third-party supplier.
type SupplierArea struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SupplierName string    `gorm:"column:supplier_name;type:text;not null"`
	Name         string    `gorm:"column:name;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

type LaborCrew struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type TagType struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Color     *string   `gorm:"column:color;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;type:text;not null"`
	Role      enums.ActorRole `gorm:"column:role;type:text;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// All lists every model managed by this repository, in dependency order.
func All() []any {
	return []any{
		&Client{},
		&Product{},
		&OwnedArea{},
		&SupplierArea{},
		&LaborCrew{},
		&TagType{},
		&User{},
		&TagLot{},
		&OrderSequence{},
		&Order{},
		&OrderLine{},
		&AreaAssignment{},
		&TagAssignment{},
		&HarvestCost{},
		&Payment{},
		&OrderAuditEntry{},
	}
}
