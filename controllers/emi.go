// controllers/emi.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"emidesk-backend/config"
	"emidesk-backend/models"
	"emidesk-backend/services"
	"emidesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EMI application processing statuses reported to the Principal.
const (
	ApplicationStatusNotEmi   = "Not An EMI Application"
	ApplicationStatusPending  = "Pending Processing"
	ApplicationStatusApproved = "Approved"
)

// AttachEmiInput defines the expected JSON structure for processing an EMI application
type AttachEmiInput struct {
	BillNo    string `json:"billNo" binding:"required"`
	Tenure    int    `json:"tenure" binding:"required"`
	StartDate string `json:"startDate" binding:"required"` // YYYY-MM-DD
}

func emiService() *services.EmiService {
	return services.NewEmiService(config.DB)
}

// AttachEmiSchedule processes an EMI application: computes the fixed
// monthly installment for the invoice's grand total at the policy rate
// and attaches the generated schedule to the invoice.
func AttachEmiSchedule(c *gin.Context) {
	var input AttachEmiInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	startDate, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
		return
	}

	schedule, err := emiService().AttachSchedule(input.BillNo, input.Tenure, startDate)
	if err != nil {
		respondEmiError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// GetEmiSchedule returns the schedule attached to an invoice, looked up
// by bill number
func GetEmiSchedule(c *gin.Context) {
	invoice, err := emiService().FindInvoiceByBillNo(c.Param("billNo"))
	if err != nil {
		respondEmiError(c, err)
		return
	}

	if invoice.Emi == nil {
		utils.RespondWithError(c, http.StatusNotFound, "No EMI schedule attached to this invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"billNo":           invoice.BillNo,
		"customerName":     invoice.CustomerName,
		"financedAmount":   invoice.GrandTotal,
		"schedule":         invoice.Emi,
		"fullyPaid":        invoice.Emi.AllNonCancelledPaid(),
		"remainingBalance": services.RemainingBalance(invoice),
	})
}

// GetEmiApplicationStatus reports where an application stands: not an
// EMI invoice, awaiting processing, or approved (schedule attached)
func GetEmiApplicationStatus(c *gin.Context) {
	invoice, err := emiService().FindInvoiceByBillNo(c.Param("billNo"))
	if err != nil {
		respondEmiError(c, err)
		return
	}

	status := ApplicationStatusNotEmi
	if invoice.EmiEnabled {
		if invoice.Emi != nil {
			status = ApplicationStatusApproved
		} else {
			status = ApplicationStatusPending
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"billNo": invoice.BillNo,
		"status": status,
	})
}

// ToggleInstallment flips one installment between Paid and Pending and
// returns the updated schedule. Toggling a cancelled installment leaves
// the schedule unchanged.
func ToggleInstallment(c *gin.Context) {
	installmentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid installment ID format")
		return
	}

	var installment models.EmiInstallment
	if err := config.DB.First(&installment, "id = ?", installmentUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Installment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	schedule, err := emiService().ToggleInstallmentStatus(installment.EmiScheduleID, installmentUUID)
	if err != nil {
		respondEmiError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// respondEmiError maps the EMI service's sentinel errors onto HTTP
// statuses.
func respondEmiError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrScheduleNotFound),
		errors.Is(err, services.ErrInstallmentNotFound):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotEligible):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrAlreadyScheduled):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidTenure), errors.Is(err, services.ErrInvalidInput):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}
