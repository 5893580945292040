package models

import (
	"time"

	"github.com/google/uuid"
)

// TagLot is a countable stock of one tag type bound to one area.
type TagLot struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TagTypeID   uuid.UUID `gorm:"column:tag_type_id;type:uuid;not null;index:ix_tag_lots_type_area"`
	AreaID      uuid.UUID `gorm:"column:area_id;type:uuid;not null;index:ix_tag_lots_type_area"`
	TotalQty    int       `gorm:"column:total_qty;not null"`
	ReservedQty int       `gorm:"column:reserved_qty;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Available is the quantity not yet reserved by any line.
func (l TagLot) Available() int {
	return l.TotalQty - l.ReservedQty
}
