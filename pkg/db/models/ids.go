package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are assigned in the application so the same migrations run on
// Postgres and SQLite.

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error      { assignID(&u.ID); return nil }
func (g *Genre) BeforeCreate(*gorm.DB) error     { assignID(&g.ID); return nil }
func (b *Book) BeforeCreate(*gorm.DB) error      { assignID(&b.ID); return nil }
func (r *Review) BeforeCreate(*gorm.DB) error    { assignID(&r.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error      { assignID(&c.ID); return nil }
func (i *CartItem) BeforeCreate(*gorm.DB) error  { assignID(&i.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error     { assignID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error { assignID(&i.ID); return nil }
