// services/emi_service.go
package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"emidesk-backend/models"
	"emidesk-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FixedAnnualInterestRate is the current financing policy rate. It is
// stored on every schedule so the policy can change without touching
// schedules already attached.
const FixedAnnualInterestRate = 12.5

// NocNumberLength is the number of digits in a completion certificate.
const NocNumberLength = 12

// Tenures offered by the product. A policy constraint, not a
// mathematical one.
var allowedTenures = map[int]bool{8: true, 9: true, 10: true, 11: true}

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrNotEligible         = errors.New("invoice is not marked for an EMI option")
	ErrAlreadyScheduled    = errors.New("invoice already has an EMI schedule processed")
	ErrInvalidTenure       = errors.New("tenure must be 8, 9, 10 or 11 months")
	ErrInvalidInput        = errors.New("invalid input")
	ErrScheduleNotFound    = errors.New("EMI schedule not found")
	ErrInstallmentNotFound = errors.New("installment not found")
)

// EmiService owns schedule attachment, installment status transitions
// and completion certificate issuance.
type EmiService struct {
	db *gorm.DB
}

func NewEmiService(db *gorm.DB) *EmiService {
	return &EmiService{db: db}
}

// ComputeMonthlyInstallment converts a principal, annual interest rate
// and tenure into one fixed monthly payment using the standard
// equal-installment amortization formula.
func ComputeMonthlyInstallment(principal, annualRatePercent float64, tenureMonths int) (float64, error) {
	if principal <= 0 {
		return 0, ErrInvalidInput
	}
	if annualRatePercent < 0 {
		return 0, ErrInvalidInput
	}
	if !allowedTenures[tenureMonths] {
		return 0, ErrInvalidTenure
	}

	monthlyRate := annualRatePercent / 12 / 100
	if monthlyRate == 0 {
		return principal / float64(tenureMonths), nil
	}

	growth := math.Pow(1+monthlyRate, float64(tenureMonths))
	numerator := principal * monthlyRate * growth
	denominator := growth - 1
	if denominator <= 0 {
		// Degenerate rate/tenure combination: straight-line fallback.
		return principal / float64(tenureMonths), nil
	}
	return numerator / denominator, nil
}

// GenerateInstallments materializes the dated installment sequence for
// a schedule. Each installment lands on startDate.month + i, normalized
// across year boundaries and pinned to the 1st of the month. All start
// out Pending with identical amounts.
func GenerateInstallments(monthlyAmount float64, startDate time.Time, tenureMonths int) ([]models.EmiInstallment, error) {
	if monthlyAmount <= 0 || startDate.IsZero() {
		return nil, ErrInvalidInput
	}
	if !allowedTenures[tenureMonths] {
		return nil, ErrInvalidTenure
	}

	installments := make([]models.EmiInstallment, 0, tenureMonths)
	for i := 0; i < tenureMonths; i++ {
		month, year := utils.InstallmentMonth(startDate, i)
		installments = append(installments, models.EmiInstallment{
			ID:       uuid.New(),
			Sequence: i,
			Month:    month,
			Year:     year,
			Amount:   monthlyAmount,
			Status:   models.InstallmentStatusPending,
		})
	}
	return installments, nil
}

// FindInvoiceByBillNo looks up an invoice by bill number,
// case-insensitively, with its items and schedule loaded.
func (s *EmiService) FindInvoiceByBillNo(billNo string) (*models.Invoice, error) {
	billNo = strings.TrimSpace(billNo)
	if billNo == "" {
		return nil, ErrInvalidInput
	}

	var invoice models.Invoice
	err := s.db.Preload("Items").
		Preload("Emi.Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Emi").
		Where("LOWER(bill_no) = LOWER(?)", billNo).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// AttachSchedule generates an EMI schedule for the invoice with the
// given bill number and attaches it. Preconditions are checked in
// order: the invoice must exist, must be marked EMI-eligible and must
// not already carry a schedule. The lookup and write run in one
// transaction; the unique index on the schedule's invoice id keeps the
// attach-once rule safe against concurrent callers.
func (s *EmiService) AttachSchedule(billNo string, tenure int, startDate time.Time) (*models.EmiSchedule, error) {
	invoice, err := s.FindInvoiceByBillNo(billNo)
	if err != nil {
		return nil, err
	}
	if !invoice.EmiEnabled {
		return nil, ErrNotEligible
	}
	if invoice.Emi != nil {
		return nil, ErrAlreadyScheduled
	}

	monthlyAmount, err := ComputeMonthlyInstallment(invoice.GrandTotal, FixedAnnualInterestRate, tenure)
	if err != nil {
		return nil, err
	}
	installments, err := GenerateInstallments(monthlyAmount, startDate, tenure)
	if err != nil {
		return nil, err
	}

	schedule := models.EmiSchedule{
		ID:           uuid.New(),
		InvoiceID:    invoice.ID,
		Tenure:       tenure,
		InterestRate: FixedAnnualInterestRate,
		StartDate:    startDate,
		Installments: installments,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.EmiSchedule{}).
			Where("invoice_id = ?", invoice.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyScheduled
		}
		return tx.Create(&schedule).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent attach.
			return nil, ErrAlreadyScheduled
		}
		return nil, err
	}

	invoice.Emi = &schedule
	return &schedule, nil
}

// ToggleInstallmentStatus flips an installment between Paid and
// Pending. Cancelled installments are left untouched without an error;
// the caller may iterate a schedule generically and must not trip on
// them. When the flip makes every non-cancelled installment Paid and no
// certificate has been issued yet, a NOC number is generated. The
// certificate is a one-way latch: un-paying an installment afterwards
// does not clear it.
func (s *EmiService) ToggleInstallmentStatus(scheduleID, installmentID uuid.UUID) (*models.EmiSchedule, error) {
	var schedule models.EmiSchedule
	err := s.db.Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).First(&schedule, "id = ?", scheduleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	target := -1
	for i := range schedule.Installments {
		if schedule.Installments[i].ID == installmentID {
			target = i
			break
		}
	}
	if target == -1 {
		return nil, ErrInstallmentNotFound
	}

	inst := &schedule.Installments[target]
	if inst.Status == models.InstallmentStatusCancelled {
		// Silent no-op; cancelled rows are terminal.
		return &schedule, nil
	}

	if inst.Status == models.InstallmentStatusPaid {
		inst.Status = models.InstallmentStatusPending
	} else {
		inst.Status = models.InstallmentStatusPaid
	}

	issueNoc := schedule.AllNonCancelledPaid() && schedule.NocNumber == ""
	if issueNoc {
		schedule.NocNumber = utils.GenerateNumericString(NocNumberLength)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.EmiInstallment{}).
			Where("id = ?", inst.ID).
			Update("status", inst.Status).Error; err != nil {
			return err
		}
		if issueNoc {
			return tx.Model(&models.EmiSchedule{}).
				Where("id = ?", schedule.ID).
				Update("noc_number", schedule.NocNumber).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// RemainingBalance derives the outstanding amount shown next to an
// invoice. It is never stored. With a partially paid schedule the
// balance is (non-cancelled count - paid count) * per-installment
// amount; all installments in a schedule share one amount, so the
// count-based form is exact. It would diverge silently if variable
// installment amounts were ever introduced.
func RemainingBalance(invoice *models.Invoice) float64 {
	switch invoice.PaymentStatus {
	case models.PaymentStatusCancelled:
		// Concept does not apply; callers display the original amount
		// struck through.
		return invoice.GrandTotal
	case models.PaymentStatusPaid:
		return 0
	}

	if invoice.EmiEnabled && invoice.Emi != nil {
		paid := 0
		nonCancelled := 0
		var amount float64
		for _, inst := range invoice.Emi.Installments {
			if inst.Status == models.InstallmentStatusCancelled {
				continue
			}
			nonCancelled++
			amount = inst.Amount
			if inst.Status == models.InstallmentStatusPaid {
				paid++
			}
		}
		if paid > 0 {
			return float64(nonCancelled-paid) * amount
		}
	}

	return invoice.GrandTotal
}
