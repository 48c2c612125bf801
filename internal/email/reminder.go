package email

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var reminderFS embed.FS

var reminderTemplates = template.Must(template.ParseFS(reminderFS, "templates/*.tmpl"))

type reminderData struct {
	Customer    string
	InvoiceID   string
	Amount      string
	DaysOverdue int
}

// FormatAmount renders an invoice amount the way it appears in
// outbound mail and the activity log, e.g. "$2400" or "$949.50".
func FormatAmount(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', -1, 64)
}

// ReminderSubject is the subject line for payment reminders.
func ReminderSubject(invoiceID string) string {
	return fmt.Sprintf("Invoice %s - Payment Reminder", invoiceID)
}

// FriendlyReminderBody is the first-touch payment nudge.
func FriendlyReminderBody(customer, invoiceID string, amount float64, daysOverdue int) string {
	return renderReminder("friendly.tmpl", customer, invoiceID, amount, daysOverdue)
}

// FirmReminderBody is the follow-up for invoices that stayed unpaid
// after earlier nudges.
func FirmReminderBody(customer, invoiceID string, amount float64, daysOverdue int) string {
	return renderReminder("firm.tmpl", customer, invoiceID, amount, daysOverdue)
}

func renderReminder(name, customer, invoiceID string, amount float64, daysOverdue int) string {
	var buf bytes.Buffer
	// Templates are embedded and parsed at init; execution over a
	// plain struct cannot fail.
	_ = reminderTemplates.ExecuteTemplate(&buf, name, reminderData{
		Customer:    customer,
		InvoiceID:   invoiceID,
		Amount:      FormatAmount(amount),
		DaysOverdue: daysOverdue,
	})
	return strings.TrimRight(buf.String(), "\n")
}
