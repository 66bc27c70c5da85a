// services/reminder_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"emidesk-backend/models"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// ReminderService sends payment reminders for EMI installments falling
// due in the current month.
type ReminderService struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewReminderService(db *gorm.DB) *ReminderService {
	// Initialize Twilio client
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &ReminderService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (s *ReminderService) StartScheduler() {
	c := cron.New()

	// Run every day at 9 AM
	c.AddFunc("0 9 * * *", func() {
		s.SendDueReminders(time.Now())
	})

	c.Start()
	log.Println("EMI reminder scheduler started")
}

// SendDueReminders notifies every customer with a Pending installment
// due in the month of asOf. Cancelled invoices and installments are
// skipped; installments already reminded this month are not re-sent.
func (s *ReminderService) SendDueReminders(asOf time.Time) {
	log.Println("Starting due installment reminder processing...")

	month := int(asOf.Month())
	year := asOf.Year()

	var installments []models.EmiInstallment
	if err := s.db.Where("month = ? AND year = ? AND status = ?",
		month, year, models.InstallmentStatusPending).
		Find(&installments).Error; err != nil {
		log.Printf("Failed to fetch due installments: %v", err)
		return
	}

	for _, inst := range installments {
		s.processInstallment(inst, asOf)
	}

	log.Println("Due installment reminder processing completed")
}

func (s *ReminderService) processInstallment(inst models.EmiInstallment, asOf time.Time) {
	var schedule models.EmiSchedule
	if err := s.db.First(&schedule, "id = ?", inst.EmiScheduleID).Error; err != nil {
		log.Printf("Installment %s: failed to load schedule: %v", inst.ID, err)
		return
	}

	var invoice models.Invoice
	if err := s.db.First(&invoice, "id = ?", schedule.InvoiceID).Error; err != nil {
		log.Printf("Installment %s: failed to load invoice: %v", inst.ID, err)
		return
	}
	if invoice.PaymentStatus == models.PaymentStatusCancelled {
		return
	}
	if invoice.CustomerPhone == "" {
		return
	}

	// One reminder per installment per month
	firstOfMonth := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	var sentCount int64
	s.db.Model(&models.EmiReminderLog{}).
		Where("installment_id = ? AND status = ? AND sent_at >= ?", inst.ID, "sent", firstOfMonth).
		Count(&sentCount)
	if sentCount > 0 {
		return
	}

	message := fmt.Sprintf(
		"Dear %s, your EMI installment of Rs. %.2f for bill %s is due this month. Kindly pay at your earliest convenience.",
		invoice.CustomerName, inst.Amount, invoice.BillNo)

	s.sendReminder(invoice, inst, message)
}

func (s *ReminderService) sendReminder(invoice models.Invoice, inst models.EmiInstallment, message string) {
	// Determine channel (WhatsApp if available, else SMS)
	channel := "sms"
	var to string

	// Use WhatsApp if phone is in E.164 format and starts with '+'
	if strings.HasPrefix(invoice.CustomerPhone, "+") {
		to = "whatsapp:" + invoice.CustomerPhone
		channel = "whatsapp"
	} else {
		to = invoice.CustomerPhone
	}

	// Send message via Twilio
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(message)

	// Use WhatsApp sender if available
	if channel == "whatsapp" {
		params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
	} else {
		params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	}

	resp, err := s.client.Api.CreateMessage(params)
	status := "sent"
	errorMsg := ""

	if err != nil {
		log.Printf("Failed to send reminder to %s: %v", invoice.CustomerPhone, err)
		status = "failed"
		errorMsg = err.Error()
	} else if resp.Sid != nil {
		log.Printf("Reminder sent to %s, SID: %s", invoice.CustomerPhone, *resp.Sid)
	} else {
		log.Printf("Reminder sent to %s, but no SID returned", invoice.CustomerPhone)
	}

	// Log the reminder
	reminderLog := models.EmiReminderLog{
		InvoiceID:     invoice.ID,
		InstallmentID: inst.ID,
		Message:       message,
		Status:        status,
		ErrorMessage:  errorMsg,
		Channel:       channel,
		SentAt:        time.Now(),
	}

	if err := s.db.Create(&reminderLog).Error; err != nil {
		log.Printf("Failed to log reminder for invoice %s: %v", invoice.ID, err)
	}
}
