package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"emidesk-backend/config"
	"emidesk-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type salesSummary struct {
	Period            string  `json:"period"`
	TotalInvoices     int     `json:"totalInvoices"`
	TotalSales        float64 `json:"totalSales"`
	TotalDownPayments float64 `json:"totalDownPayments"`
	TotalFinanced     float64 `json:"totalFinanced"`
	EmiInvoices       int     `json:"emiInvoices"`
	EmiShare          float64 `json:"emiShare"`
}

func seedDatedInvoice(t *testing.T, billNo string, day time.Time, grandTotal, downPayment float64, emiEnabled bool) {
	t.Helper()
	invoice := models.Invoice{
		ID:             uuid.New(),
		BillNo:         billNo,
		CustomerName:   "Report Customer",
		DateOfPurchase: day,
		SubTotal:       grandTotal + downPayment,
		DownPayment:    downPayment,
		GrandTotal:     grandTotal,
		EmiEnabled:     emiEnabled,
		PaymentStatus:  models.PaymentStatusPending,
	}
	require.NoError(t, config.DB.Create(&invoice).Error)
}

func TestGetSalesReport(t *testing.T) {
	r := setupRouter(t)
	token := tokenFor(t, models.RolePartner)

	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)

	seedDatedInvoice(t, "BAJ-9001", march, 10000, 2000, true)
	seedDatedInvoice(t, "BAJ-9002", march, 5000, 0, false)
	seedDatedInvoice(t, "BAJ-9003", april, 7000, 1000, true)
	seedDatedInvoice(t, "BAJ-9004", lastYear, 3000, 0, false)

	t.Run("monthly window", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/reports?year=2024&month=3", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var summary salesSummary
		decodeBody(t, w, &summary)
		require.Equal(t, "March 2024", summary.Period)
		require.Equal(t, 2, summary.TotalInvoices)
		require.InDelta(t, 15000, summary.TotalSales, 0.01)
		require.InDelta(t, 2000, summary.TotalDownPayments, 0.01)
		require.InDelta(t, 10000, summary.TotalFinanced, 0.01)
		require.Equal(t, 1, summary.EmiInvoices)
		require.InDelta(t, 50, summary.EmiShare, 0.01)
	})

	t.Run("yearly window spans all months", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/reports?year=2024", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var summary salesSummary
		decodeBody(t, w, &summary)
		require.Equal(t, "2024", summary.Period)
		require.Equal(t, 3, summary.TotalInvoices)
		require.InDelta(t, 22000, summary.TotalSales, 0.01)
		require.Equal(t, 2, summary.EmiInvoices)
	})

	t.Run("empty window reports zeroes", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/reports?year=2024&month=7", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var summary salesSummary
		decodeBody(t, w, &summary)
		require.Zero(t, summary.TotalInvoices)
		require.Zero(t, summary.TotalSales)
		require.Zero(t, summary.EmiShare)
	})

	t.Run("missing year is rejected", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/reports", token, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid month is rejected", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/reports?year=2024&month=13", token, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
