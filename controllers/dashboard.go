// controllers/dashboard.go
package controllers

import (
	"net/http"
	"time"

	"emidesk-backend/config"
	"emidesk-backend/models"
	"emidesk-backend/services"
	"emidesk-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DueInstallment struct {
	BillNo       string  `json:"billNo"`
	CustomerName string  `json:"customerName"`
	Month        int     `json:"month"`
	Year         int     `json:"year"`
	Amount       float64 `json:"amount"`
}

// GetDashboardOverview returns the portfolio summary shown on the
// Employee and Partner dashboards.
func GetDashboardOverview(c *gin.Context) {
	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// Total invoices
	var totalInvoices int64
	config.DB.Model(&models.Invoice{}).Count(&totalInvoices)

	// This month's sales
	var monthlySales float64
	config.DB.Model(&models.Invoice{}).
		Where("date_of_purchase >= ?", firstOfMonth).
		Select("COALESCE(SUM(grand_total), 0)").Scan(&monthlySales)

	// EMI applications awaiting processing: flagged for EMI but no
	// schedule attached yet
	var pendingApplications int64
	config.DB.Model(&models.Invoice{}).
		Where("emi_enabled = ? AND id NOT IN (?)", true,
			config.DB.Model(&models.EmiSchedule{}).Select("invoice_id")).
		Count(&pendingApplications)

	var activeSchedules int64
	config.DB.Model(&models.EmiSchedule{}).Count(&activeSchedules)

	// Outstanding exposure over financed invoices
	var emiInvoices []models.Invoice
	if err := config.DB.Preload("Emi.Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).
		Preload("Emi").
		Where("emi_enabled = ?", true).
		Find(&emiInvoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load financed invoices")
		return
	}

	var outstanding float64
	dueThisMonth := []DueInstallment{}
	for _, inv := range emiInvoices {
		if inv.PaymentStatus == models.PaymentStatusCancelled {
			continue
		}
		outstanding += services.RemainingBalance(&inv)

		if inv.Emi == nil {
			continue
		}
		for _, inst := range inv.Emi.Installments {
			if inst.Status != models.InstallmentStatusPending {
				continue
			}
			if inst.Month == int(now.Month()) && inst.Year == now.Year() {
				dueThisMonth = append(dueThisMonth, DueInstallment{
					BillNo:       inv.BillNo,
					CustomerName: inv.CustomerName,
					Month:        inst.Month,
					Year:         inst.Year,
					Amount:       inst.Amount,
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"totalInvoices":       totalInvoices,
		"monthlySales":        monthlySales,
		"pendingApplications": pendingApplications,
		"activeSchedules":     activeSchedules,
		"outstandingExposure": outstanding,
		"dueThisMonth":        dueThisMonth,
	})
}
