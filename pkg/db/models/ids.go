package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns ids client-side so inserts behave the same on postgres and sqlite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (a *AreaAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (t *TagAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (l *TagLot) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (c *HarvestCost) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (e *OrderAuditEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (a *OwnedArea) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (a *SupplierArea) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (c *LaborCrew) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (t *TagType) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
