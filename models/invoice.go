package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice-level payment statuses.
const (
	PaymentStatusPending       = "Pending"
	PaymentStatusPaid          = "Paid"
	PaymentStatusPartiallyPaid = "Partially Paid"
	PaymentStatusCancelled     = "Cancelled"
)

type Invoice struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index"`

	BillNo         string    `gorm:"uniqueIndex;not null"`
	CustomerName   string    `gorm:"not null"`
	Address        string
	CustomerPhone  string
	DateOfPurchase time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	DownPayment float64 `gorm:"type:decimal(10,2);default:0.0"`
	SubTotal    float64 `gorm:"type:decimal(10,2);not null"`
	GrandTotal  float64 `gorm:"type:decimal(10,2);not null"` // financed principal when EMI is enabled

	EmiEnabled    bool   `gorm:"default:false"`
	PaymentStatus string `gorm:"type:varchar(20);default:'Pending'"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`

	// At most one schedule per invoice; attached once by the EMI engine.
	Emi *EmiSchedule `gorm:"foreignKey:InvoiceID"`
}

type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`

	ProductID *uuid.UUID `gorm:"type:uuid;index"` // catalog entry the line was picked from, if any
	SNo       string
	Name      string  `gorm:"not null"`
	Rate      float64 `gorm:"type:decimal(10,2);not null"`
	ExtraAmt  float64 `gorm:"type:decimal(10,2);default:0.0"`
	Discount  float64 `gorm:"type:decimal(10,2);default:0.0"`
	GST       float64 `gorm:"type:decimal(5,2);default:0.0"`
	Total     float64 `gorm:"type:decimal(10,2);not null"` // (rate + extra - discount) * (1 + gst/100)
}
