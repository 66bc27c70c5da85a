package models

import (
	"github.com/google/uuid"
)

// MasterProduct is a catalog entry used to pre-fill invoice line items.
type MasterProduct struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key"`
	Name string    `gorm:"not null"`
	Rate float64   `gorm:"type:decimal(10,2);not null"`
	GST  float64   `gorm:"type:decimal(5,2);default:0.0"` // percentage

	IsActive bool `gorm:"default:true"`
}
