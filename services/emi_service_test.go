package services

import (
	"testing"
	"time"

	"emidesk-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.EmiSchedule{},
		&models.EmiInstallment{},
	))
	return db
}

func seedInvoice(t *testing.T, db *gorm.DB, billNo string, grandTotal float64, emiEnabled bool) models.Invoice {
	t.Helper()
	invoice := models.Invoice{
		ID:             uuid.New(),
		BillNo:         billNo,
		CustomerName:   "Ravi Kumar",
		DateOfPurchase: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		SubTotal:       grandTotal,
		GrandTotal:     grandTotal,
		EmiEnabled:     emiEnabled,
		PaymentStatus:  models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&invoice).Error)
	return invoice
}

func TestComputeMonthlyInstallment(t *testing.T) {
	t.Run("standard amortization", func(t *testing.T) {
		monthly, err := ComputeMonthlyInstallment(10000, 12.5, 10)
		require.NoError(t, err)
		require.InDelta(t, 1058.18, monthly, 0.5)
		// Interest is non-negative, so total repayment never undercuts
		// the principal.
		require.GreaterOrEqual(t, monthly*10, 10000.0)
	})

	t.Run("positive for every allowed tenure", func(t *testing.T) {
		for _, tenure := range []int{8, 9, 10, 11} {
			monthly, err := ComputeMonthlyInstallment(25000, 12.5, tenure)
			require.NoError(t, err)
			require.Greater(t, monthly, 0.0)
			require.GreaterOrEqual(t, monthly*float64(tenure), 25000.0)
		}
	})

	t.Run("zero rate falls back to straight line", func(t *testing.T) {
		monthly, err := ComputeMonthlyInstallment(8000, 0, 8)
		require.NoError(t, err)
		require.Equal(t, 1000.0, monthly)
	})

	t.Run("rejects tenure outside policy set", func(t *testing.T) {
		for _, tenure := range []int{0, 1, 7, 12, -8} {
			_, err := ComputeMonthlyInstallment(10000, 12.5, tenure)
			require.ErrorIs(t, err, ErrInvalidTenure)
		}
	})

	t.Run("rejects non-positive principal", func(t *testing.T) {
		_, err := ComputeMonthlyInstallment(0, 12.5, 8)
		require.ErrorIs(t, err, ErrInvalidInput)
		_, err = ComputeMonthlyInstallment(-500, 12.5, 8)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestGenerateInstallments(t *testing.T) {
	t.Run("sequential months with year rollover", func(t *testing.T) {
		start := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
		installments, err := GenerateInstallments(500, start, 8)
		require.NoError(t, err)
		require.Len(t, installments, 8)

		expected := []struct{ month, year int }{
			{11, 2024}, {12, 2024}, {1, 2025}, {2, 2025},
			{3, 2025}, {4, 2025}, {5, 2025}, {6, 2025},
		}
		seen := map[uuid.UUID]bool{}
		for i, inst := range installments {
			require.Equal(t, expected[i].month, inst.Month)
			require.Equal(t, expected[i].year, inst.Year)
			require.Equal(t, 500.0, inst.Amount)
			require.Equal(t, models.InstallmentStatusPending, inst.Status)
			require.Equal(t, i, inst.Sequence)
			require.False(t, seen[inst.ID], "installment ids must be unique")
			seen[inst.ID] = true
		}
	})

	t.Run("start day does not shift the month", func(t *testing.T) {
		// The 15th of March pins to the 1st conceptually; the first
		// installment is still March 2024.
		start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		installments, err := GenerateInstallments(883.3, start, 8)
		require.NoError(t, err)
		require.Equal(t, 3, installments[0].Month)
		require.Equal(t, 2024, installments[0].Year)
	})

	t.Run("january start stays within the year", func(t *testing.T) {
		start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
		installments, err := GenerateInstallments(883.3, start, 10)
		require.NoError(t, err)
		require.Len(t, installments, 10)
		for i, inst := range installments {
			require.Equal(t, i+1, inst.Month) // Jan..Oct
			require.Equal(t, 2024, inst.Year)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := GenerateInstallments(0, time.Now(), 8)
		require.ErrorIs(t, err, ErrInvalidInput)
		_, err = GenerateInstallments(500, time.Time{}, 8)
		require.ErrorIs(t, err, ErrInvalidInput)
		_, err = GenerateInstallments(500, time.Now(), 6)
		require.ErrorIs(t, err, ErrInvalidTenure)
	})
}

func TestAttachSchedule(t *testing.T) {
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("attaches a schedule once", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		invoice := seedInvoice(t, db, "BAJ-1001", 10000, true)

		schedule, err := svc.AttachSchedule("BAJ-1001", 8, start)
		require.NoError(t, err)
		require.Equal(t, invoice.ID, schedule.InvoiceID)
		require.Equal(t, 8, schedule.Tenure)
		require.Equal(t, FixedAnnualInterestRate, schedule.InterestRate)
		require.Len(t, schedule.Installments, 8)
		require.Equal(t, 3, schedule.Installments[0].Month)
		require.Equal(t, 2024, schedule.Installments[0].Year)
		require.Empty(t, schedule.NocNumber)

		// Second attempt trips the idempotency guard; the stored
		// schedule is unchanged.
		_, err = svc.AttachSchedule("BAJ-1001", 9, start)
		require.ErrorIs(t, err, ErrAlreadyScheduled)

		stored, err := svc.FindInvoiceByBillNo("BAJ-1001")
		require.NoError(t, err)
		require.NotNil(t, stored.Emi)
		require.Equal(t, schedule.ID, stored.Emi.ID)
		require.Equal(t, 8, stored.Emi.Tenure)
	})

	t.Run("bill number lookup is case-insensitive", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		seedInvoice(t, db, "BAJ-MiXeD", 5000, true)

		_, err := svc.AttachSchedule("baj-mixed", 8, start)
		require.NoError(t, err)
	})

	t.Run("unknown bill number", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)

		_, err := svc.AttachSchedule("BAJ-NOPE", 8, start)
		require.ErrorIs(t, err, ErrInvoiceNotFound)
	})

	t.Run("ineligible invoice always fails", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		seedInvoice(t, db, "BAJ-CASH", 10000, false)

		_, err := svc.AttachSchedule("BAJ-CASH", 8, start)
		require.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("existence is checked before eligibility", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)

		_, err := svc.AttachSchedule("BAJ-MISSING", 99, start)
		require.ErrorIs(t, err, ErrInvoiceNotFound)
	})

	t.Run("rejects tenure outside policy set", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		seedInvoice(t, db, "BAJ-1002", 10000, true)

		_, err := svc.AttachSchedule("BAJ-1002", 12, start)
		require.ErrorIs(t, err, ErrInvalidTenure)
	})
}

func TestToggleInstallmentStatus(t *testing.T) {
	attach := func(t *testing.T, db *gorm.DB, svc *EmiService, billNo string) *models.EmiSchedule {
		t.Helper()
		seedInvoice(t, db, billNo, 8000, true)
		schedule, err := svc.AttachSchedule(billNo, 8, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		return schedule
	}

	t.Run("flips between pending and paid", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		schedule := attach(t, db, svc, "BAJ-2001")

		target := schedule.Installments[0].ID
		updated, err := svc.ToggleInstallmentStatus(schedule.ID, target)
		require.NoError(t, err)
		require.Equal(t, models.InstallmentStatusPaid, updated.Installments[0].Status)

		updated, err = svc.ToggleInstallmentStatus(schedule.ID, target)
		require.NoError(t, err)
		require.Equal(t, models.InstallmentStatusPending, updated.Installments[0].Status)
	})

	t.Run("cancelled installments are a silent no-op", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		schedule := attach(t, db, svc, "BAJ-2002")

		cancelled := schedule.Installments[2].ID
		require.NoError(t, db.Model(&models.EmiInstallment{}).
			Where("id = ?", cancelled).
			Update("status", models.InstallmentStatusCancelled).Error)

		updated, err := svc.ToggleInstallmentStatus(schedule.ID, cancelled)
		require.NoError(t, err)
		require.Equal(t, models.InstallmentStatusCancelled, updated.Installments[2].Status)

		var stored models.EmiInstallment
		require.NoError(t, db.First(&stored, "id = ?", cancelled).Error)
		require.Equal(t, models.InstallmentStatusCancelled, stored.Status)
	})

	t.Run("unknown installment", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		schedule := attach(t, db, svc, "BAJ-2003")

		_, err := svc.ToggleInstallmentStatus(schedule.ID, uuid.New())
		require.ErrorIs(t, err, ErrInstallmentNotFound)
	})

	t.Run("noc is issued once when everything is paid", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		schedule := attach(t, db, svc, "BAJ-2004")

		var updated *models.EmiSchedule
		var err error
		for i, inst := range schedule.Installments {
			updated, err = svc.ToggleInstallmentStatus(schedule.ID, inst.ID)
			require.NoError(t, err)
			if i < len(schedule.Installments)-1 {
				require.Empty(t, updated.NocNumber, "certificate must not appear before completion")
			}
		}

		require.NotEmpty(t, updated.NocNumber)
		require.GreaterOrEqual(t, len(updated.NocNumber), NocNumberLength)
		for _, r := range updated.NocNumber {
			require.True(t, r >= '0' && r <= '9', "noc number is numeric")
		}

		var stored models.EmiSchedule
		require.NoError(t, db.First(&stored, "id = ?", schedule.ID).Error)
		require.Equal(t, updated.NocNumber, stored.NocNumber)
	})

	t.Run("noc survives un-paying an installment", func(t *testing.T) {
		// Documented quirk: the certificate is a one-way latch. A
		// schedule can read as not fully paid while still carrying its
		// NOC number.
		db := newTestDB(t)
		svc := NewEmiService(db)
		schedule := attach(t, db, svc, "BAJ-2005")

		for _, inst := range schedule.Installments {
			_, err := svc.ToggleInstallmentStatus(schedule.ID, inst.ID)
			require.NoError(t, err)
		}

		var issued models.EmiSchedule
		require.NoError(t, db.First(&issued, "id = ?", schedule.ID).Error)
		require.NotEmpty(t, issued.NocNumber)

		// Un-pay one installment, then pay it again.
		back, err := svc.ToggleInstallmentStatus(schedule.ID, schedule.Installments[4].ID)
		require.NoError(t, err)
		require.Equal(t, issued.NocNumber, back.NocNumber)
		require.False(t, back.AllNonCancelledPaid())

		again, err := svc.ToggleInstallmentStatus(schedule.ID, schedule.Installments[4].ID)
		require.NoError(t, err)
		// Not regenerated either.
		require.Equal(t, issued.NocNumber, again.NocNumber)
	})

	t.Run("noc ignores cancelled installments", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewEmiService(db)
		schedule := attach(t, db, svc, "BAJ-2006")

		cancelled := schedule.Installments[7].ID
		require.NoError(t, db.Model(&models.EmiInstallment{}).
			Where("id = ?", cancelled).
			Update("status", models.InstallmentStatusCancelled).Error)

		var updated *models.EmiSchedule
		var err error
		for _, inst := range schedule.Installments[:7] {
			updated, err = svc.ToggleInstallmentStatus(schedule.ID, inst.ID)
			require.NoError(t, err)
		}
		require.NotEmpty(t, updated.NocNumber)
	})
}

func TestRemainingBalance(t *testing.T) {
	buildInvoice := func(status string, emiEnabled bool, paid, cancelled int) *models.Invoice {
		invoice := &models.Invoice{
			ID:            uuid.New(),
			GrandTotal:    8000,
			EmiEnabled:    emiEnabled,
			PaymentStatus: status,
		}
		if emiEnabled {
			schedule := &models.EmiSchedule{ID: uuid.New(), InvoiceID: invoice.ID, Tenure: 8}
			for i := 0; i < 8; i++ {
				st := models.InstallmentStatusPending
				if i < paid {
					st = models.InstallmentStatusPaid
				} else if i >= 8-cancelled {
					st = models.InstallmentStatusCancelled
				}
				schedule.Installments = append(schedule.Installments, models.EmiInstallment{
					ID: uuid.New(), Sequence: i, Amount: 1000, Status: st,
				})
			}
			invoice.Emi = schedule
		}
		return invoice
	}

	t.Run("count times amount for a partially paid schedule", func(t *testing.T) {
		invoice := buildInvoice(models.PaymentStatusPending, true, 2, 0)
		require.Equal(t, 6000.0, RemainingBalance(invoice))
	})

	t.Run("cancelled installments are excluded", func(t *testing.T) {
		invoice := buildInvoice(models.PaymentStatusPending, true, 2, 2)
		// 6 non-cancelled, 2 paid -> 4 * 1000
		require.Equal(t, 4000.0, RemainingBalance(invoice))
	})

	t.Run("paid invoice owes nothing regardless of schedule", func(t *testing.T) {
		invoice := buildInvoice(models.PaymentStatusPaid, true, 2, 0)
		require.Equal(t, 0.0, RemainingBalance(invoice))
	})

	t.Run("cancelled invoice reports the original amount", func(t *testing.T) {
		invoice := buildInvoice(models.PaymentStatusCancelled, true, 2, 0)
		require.Equal(t, 8000.0, RemainingBalance(invoice))
	})

	t.Run("no paid installments leaves the full total outstanding", func(t *testing.T) {
		invoice := buildInvoice(models.PaymentStatusPending, true, 0, 0)
		require.Equal(t, 8000.0, RemainingBalance(invoice))
	})

	t.Run("no schedule leaves the full total outstanding", func(t *testing.T) {
		invoice := buildInvoice(models.PaymentStatusPending, false, 0, 0)
		require.Equal(t, 8000.0, RemainingBalance(invoice))
	})
}
