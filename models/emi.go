package models

import (
	"time"

	"github.com/google/uuid"
)

// Installment statuses. Cancelled is a valid persisted state but no
// operation currently produces it; cancelled rows stay in the schedule
// as an audit trail and are excluded from completion checks.
const (
	InstallmentStatusPending   = "Pending"
	InstallmentStatusPaid      = "Paid"
	InstallmentStatusCancelled = "Cancelled"
)

// EmiSchedule is the installment plan attached to exactly one invoice.
// It is created once, mutated only through installment status toggles
// and deleted only together with its invoice.
type EmiSchedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	Tenure       int       `gorm:"not null"` // months, one of 8, 9, 10, 11
	InterestRate float64   `gorm:"type:decimal(5,2);not null"` // annual %, stored per schedule
	StartDate    time.Time `gorm:"not null"`

	// NOC (no-objection certificate) number, issued the first time every
	// non-cancelled installment is Paid. Never cleared afterwards.
	NocNumber string

	Installments []EmiInstallment `gorm:"foreignKey:EmiScheduleID"`
}

type EmiInstallment struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	EmiScheduleID uuid.UUID `gorm:"type:uuid;index;not null"`

	Sequence int     `gorm:"not null"` // 0-based position within the schedule
	Month    int     `gorm:"not null"` // 1-12
	Year     int     `gorm:"not null"`
	Amount   float64 `gorm:"type:decimal(10,2);not null"` // identical for every installment in a schedule
	Status   string  `gorm:"type:varchar(20);default:'Pending'"`
}

// AllNonCancelledPaid reports whether the schedule is fully paid: at
// least one non-cancelled installment exists and every one of them is
// Paid.
func (s *EmiSchedule) AllNonCancelledPaid() bool {
	nonCancelled := 0
	for _, inst := range s.Installments {
		if inst.Status == InstallmentStatusCancelled {
			continue
		}
		nonCancelled++
		if inst.Status != InstallmentStatusPaid {
			return false
		}
	}
	return nonCancelled > 0
}
