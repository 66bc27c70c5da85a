// controllers/invoice.go
package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"emidesk-backend/config"
	"emidesk-backend/models"
	"emidesk-backend/services"
	"emidesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceItemInput defines the structure for an invoice line item.
// When productId is set, name, rate and gst are copied from the
// catalog; sNo, extraAmt and discount stay caller-editable.
type InvoiceItemInput struct {
	ProductID *uuid.UUID `json:"productId"`
	SNo       string     `json:"sNo"`
	Name      string     `json:"name"`
	Rate      float64    `json:"rate" binding:"min=0"`
	ExtraAmt  float64    `json:"extraAmt"`
	Discount  float64    `json:"discount" binding:"min=0"`
	GST       float64    `json:"gst" binding:"min=0,max=100"`
}

// CreateInvoiceInput defines the expected JSON structure for creating an invoice
type CreateInvoiceInput struct {
	BillNo         string             `json:"billNo"`
	CustomerName   string             `json:"customerName" binding:"required"`
	Address        string             `json:"address"`
	CustomerPhone  string             `json:"customerPhone"`
	DateOfPurchase *time.Time         `json:"dateOfPurchase"`
	Items          []InvoiceItemInput `json:"items" binding:"required,min=1"`
	DownPayment    float64            `json:"downPayment" binding:"min=0"`
	EmiEnabled     bool               `json:"emiEnabled"`
	PaymentStatus  string             `json:"paymentStatus" binding:"omitempty,oneof='Pending' 'Paid' 'Partially Paid' 'Cancelled'"`
}

// UpdateInvoiceInput defines the expected JSON structure for updating an invoice
type UpdateInvoiceInput struct {
	CustomerName   *string             `json:"customerName"`
	Address        *string             `json:"address"`
	CustomerPhone  *string             `json:"customerPhone"`
	DateOfPurchase *time.Time          `json:"dateOfPurchase"`
	Items          *[]InvoiceItemInput `json:"items"`
	DownPayment    *float64            `json:"downPayment" binding:"omitempty,min=0"`
	EmiEnabled     *bool               `json:"emiEnabled"`
	PaymentStatus  *string             `json:"paymentStatus" binding:"omitempty,oneof='Pending' 'Paid' 'Partially Paid' 'Cancelled'"`
}

// InvoiceResponse carries the stored invoice plus the derived
// outstanding amount shown in invoice lists.
type InvoiceResponse struct {
	models.Invoice
	RemainingBalance float64 `json:"remainingBalance"`
}

func toInvoiceResponse(invoice models.Invoice) InvoiceResponse {
	return InvoiceResponse{
		Invoice:          invoice,
		RemainingBalance: services.RemainingBalance(&invoice),
	}
}

// buildItems resolves each input line against the catalog and computes
// line totals: (rate + extra - discount) * (1 + gst/100).
func buildItems(tx *gorm.DB, invoiceID uuid.UUID, inputs []InvoiceItemInput) ([]models.InvoiceItem, float64, error) {
	var subtotal float64
	var items []models.InvoiceItem

	for _, in := range inputs {
		item := models.InvoiceItem{
			ID:        uuid.New(),
			InvoiceID: invoiceID,
			SNo:       in.SNo,
			Name:      in.Name,
			Rate:      in.Rate,
			ExtraAmt:  in.ExtraAmt,
			Discount:  in.Discount,
			GST:       in.GST,
		}

		if in.ProductID != nil {
			var product models.MasterProduct
			if err := tx.First(&product, "id = ?", *in.ProductID).Error; err != nil {
				return nil, 0, err
			}
			item.ProductID = in.ProductID
			item.Name = product.Name
			item.Rate = product.Rate
			item.GST = product.GST
		}

		if item.Name == "" {
			return nil, 0, errors.New("item name required when no product is selected")
		}

		base := item.Rate + item.ExtraAmt - item.Discount
		item.Total = base * (1 + item.GST/100)
		subtotal += item.Total
		items = append(items, item)
	}

	return items, subtotal, nil
}

// derivePaymentStatus applies the original billing rules: fully covered
// by the down payment means Paid, any down payment means Partially
// Paid, otherwise Pending. A manual Cancelled is always respected.
func derivePaymentStatus(requested string, subTotal, grandTotal, downPayment float64) string {
	if requested == models.PaymentStatusCancelled {
		return models.PaymentStatusCancelled
	}
	if grandTotal <= 0 && subTotal > 0 {
		return models.PaymentStatusPaid
	}
	if downPayment > 0 {
		return models.PaymentStatusPartiallyPaid
	}
	if requested != "" {
		return requested
	}
	return models.PaymentStatusPending
}

// CreateInvoice creates a new invoice
func CreateInvoice(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	userUUID, err := uuid.Parse(userID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return
	}

	var input CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.CustomerPhone != "" && !utils.ValidatePhone(input.CustomerPhone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer phone number")
		return
	}

	// Set default invoice date to now if not provided
	dateOfPurchase := time.Now()
	if input.DateOfPurchase != nil {
		dateOfPurchase = *input.DateOfPurchase
	}

	billNo := strings.TrimSpace(input.BillNo)
	if billNo == "" {
		billNo = "BAJ-" + time.Now().Format("20060102") + "-" + utils.GenerateRandomString(6)
	}

	invoice := models.Invoice{
		ID:              uuid.New(),
		CreatedByUserID: userUUID,
		BillNo:          billNo,
		CustomerName:    input.CustomerName,
		Address:         input.Address,
		CustomerPhone:   input.CustomerPhone,
		DateOfPurchase:  dateOfPurchase,
		DownPayment:     input.DownPayment,
		EmiEnabled:      input.EmiEnabled,
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	items, subtotal, err := buildItems(tx, invoice.ID, input.Items)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Product not found")
		} else {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	invoice.Items = items
	invoice.SubTotal = subtotal
	invoice.GrandTotal = subtotal - input.DownPayment
	invoice.PaymentStatus = derivePaymentStatus(input.PaymentStatus, invoice.SubTotal, invoice.GrandTotal, invoice.DownPayment)

	if err := tx.Create(&invoice).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create invoice")
		return
	}

	tx.Commit()

	c.JSON(http.StatusCreated, toInvoiceResponse(invoice))
}

// GetInvoices retrieves all invoices, optionally filtered by a search
// term matched against bill number and customer name
func GetInvoices(c *gin.Context) {
	query := config.DB.Preload("Items").
		Preload("Emi.Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Emi")

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(bill_no) LIKE ? OR LOWER(customer_name) LIKE ?", pattern, pattern)
	}

	var invoices []models.Invoice
	if err := query.Order("date_of_purchase DESC").Find(&invoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve invoices")
		return
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		responses = append(responses, toInvoiceResponse(inv))
	}

	c.JSON(http.StatusOK, responses)
}

// GetInvoice retrieves a specific invoice by ID
func GetInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var invoice models.Invoice
	if err := config.DB.Preload("Items").
		Preload("Emi.Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Emi").
		First(&invoice, "id = ?", invoiceUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, toInvoiceResponse(invoice))
}

// UpdateInvoice updates an existing invoice
func UpdateInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var input UpdateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.CustomerPhone != nil && *input.CustomerPhone != "" && !utils.ValidatePhone(*input.CustomerPhone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer phone number")
		return
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var invoice models.Invoice
	if err := tx.Preload("Items").
		First(&invoice, "id = ?", invoiceUUID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.CustomerName != nil {
		invoice.CustomerName = *input.CustomerName
	}
	if input.Address != nil {
		invoice.Address = *input.Address
	}
	if input.CustomerPhone != nil {
		invoice.CustomerPhone = *input.CustomerPhone
	}
	if input.DateOfPurchase != nil {
		invoice.DateOfPurchase = *input.DateOfPurchase
	}
	if input.EmiEnabled != nil {
		invoice.EmiEnabled = *input.EmiEnabled
	}

	// If items are being updated, rebuild them and the subtotal
	if input.Items != nil {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			tx.Rollback()
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to clear existing items")
			return
		}

		items, subtotal, err := buildItems(tx, invoice.ID, *input.Items)
		if err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Product not found")
			} else {
				utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			}
			return
		}

		invoice.Items = items
		invoice.SubTotal = subtotal
	}

	if input.DownPayment != nil {
		invoice.DownPayment = *input.DownPayment
	}

	// Recalculate totals and derived status if needed
	if input.Items != nil || input.DownPayment != nil {
		invoice.GrandTotal = invoice.SubTotal - invoice.DownPayment
	}

	requested := invoice.PaymentStatus
	if input.PaymentStatus != nil {
		requested = *input.PaymentStatus
	}
	if input.Items != nil || input.DownPayment != nil || input.PaymentStatus != nil {
		invoice.PaymentStatus = derivePaymentStatus(requested, invoice.SubTotal, invoice.GrandTotal, invoice.DownPayment)
	}

	if err := tx.Save(&invoice).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update invoice")
		return
	}

	tx.Commit()

	c.JSON(http.StatusOK, toInvoiceResponse(invoice))
}

// DeleteInvoice removes an invoice together with its items and EMI
// schedule; the schedule's lifetime is bound to its invoice.
func DeleteInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var invoice models.Invoice
	if err := tx.Preload("Emi").First(&invoice, "id = ?", invoiceUUID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if invoice.Emi != nil {
		if err := tx.Where("emi_schedule_id = ?", invoice.Emi.ID).Delete(&models.EmiInstallment{}).Error; err != nil {
			tx.Rollback()
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete EMI installments")
			return
		}
		if err := tx.Delete(&models.EmiSchedule{}, "id = ?", invoice.Emi.ID).Error; err != nil {
			tx.Rollback()
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete EMI schedule")
			return
		}
	}

	if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete invoice items")
		return
	}

	if err := tx.Delete(&invoice).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete invoice")
		return
	}

	tx.Commit()

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}
