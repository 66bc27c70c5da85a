// controllers/report.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"emidesk-backend/config"
	"emidesk-backend/models"
	"emidesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// ReportController handles all reporting functions
type ReportController struct{}

// SalesSummary represents the windowed sales report data
type SalesSummary struct {
	Period            string  `json:"period"`
	TotalInvoices     int     `json:"totalInvoices"`
	TotalSales        float64 `json:"totalSales"`
	TotalDownPayments float64 `json:"totalDownPayments"`
	TotalFinanced     float64 `json:"totalFinanced"`
	EmiInvoices       int     `json:"emiInvoices"`
	EmiShare          float64 `json:"emiShare"` // percentage of invoices financed
}

// GetSalesReport aggregates invoices over a month or year window.
// Query params: year (required), month (optional; omitted means the
// whole year).
func (rc *ReportController) GetSalesReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2200 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid or missing year")
		return
	}

	var start, end time.Time
	var period string
	if monthStr := c.Query("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil || month < 1 || month > 12 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid month")
			return
		}
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		period = start.Format("January 2006")
	} else {
		start = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
		period = strconv.Itoa(year)
	}

	summary, err := rc.buildSummary(start, end)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}
	summary.Period = period

	c.JSON(http.StatusOK, summary)
}

func (rc *ReportController) buildSummary(start, end time.Time) (SalesSummary, error) {
	var summary SalesSummary

	var totalInvoices int64
	if err := config.DB.Model(&models.Invoice{}).
		Where("date_of_purchase >= ? AND date_of_purchase < ?", start, end).
		Count(&totalInvoices).Error; err != nil {
		return summary, err
	}
	summary.TotalInvoices = int(totalInvoices)

	if err := config.DB.Model(&models.Invoice{}).
		Where("date_of_purchase >= ? AND date_of_purchase < ?", start, end).
		Select("COALESCE(SUM(grand_total), 0)").
		Scan(&summary.TotalSales).Error; err != nil {
		return summary, err
	}

	if err := config.DB.Model(&models.Invoice{}).
		Where("date_of_purchase >= ? AND date_of_purchase < ?", start, end).
		Select("COALESCE(SUM(down_payment), 0)").
		Scan(&summary.TotalDownPayments).Error; err != nil {
		return summary, err
	}

	if err := config.DB.Model(&models.Invoice{}).
		Where("date_of_purchase >= ? AND date_of_purchase < ? AND emi_enabled = ?", start, end, true).
		Select("COALESCE(SUM(grand_total), 0)").
		Scan(&summary.TotalFinanced).Error; err != nil {
		return summary, err
	}

	var emiInvoices int64
	if err := config.DB.Model(&models.Invoice{}).
		Where("date_of_purchase >= ? AND date_of_purchase < ? AND emi_enabled = ?", start, end, true).
		Count(&emiInvoices).Error; err != nil {
		return summary, err
	}
	summary.EmiInvoices = int(emiInvoices)

	if summary.TotalInvoices > 0 {
		summary.EmiShare = float64(summary.EmiInvoices) / float64(summary.TotalInvoices) * 100
	}

	return summary, nil
}
