package engine

import (
	"testing"
)

func TestNextInvoiceAction(t *testing.T) {
	tests := []struct {
		name          string
		daysOverdue   int
		reminderCount int
		want          string
	}{
		{"long overdue with three reminders escalates", 15, 3, InvoiceActionEscalate},
		{"very old invoice with many reminders escalates", 30, 5, InvoiceActionEscalate},
		{"exactly 14 days with three reminders escalates", 14, 3, InvoiceActionEscalate},
		{"fourteen days with two reminders monitors", 14, 2, InvoiceActionMonitor},
		{"one day overdue monitors", 1, 0, InvoiceActionMonitor},
		{"seven days one reminder gets firm reminder", 7, 1, InvoiceActionFirmReminder},
		{"long overdue but few reminders gets firm reminder", 15, 1, InvoiceActionFirmReminder},
		{"week overdue no reminders gets firm reminder", 7, 0, InvoiceActionFirmReminder},
		{"week overdue one reminder gets firm reminder", 8, 1, InvoiceActionFirmReminder},
		{"week overdue two reminders monitors", 8, 2, InvoiceActionMonitor},
		{"three days no reminders gets friendly reminder", 3, 0, InvoiceActionFriendlyReminder},
		{"five days no reminders gets friendly reminder", 5, 0, InvoiceActionFriendlyReminder},
		{"three days one reminder monitors", 3, 1, InvoiceActionMonitor},
		{"not yet overdue monitors", 0, 0, InvoiceActionMonitor},
		{"two days overdue monitors", 2, 0, InvoiceActionMonitor},
		{"old invoice with two reminders monitors", 20, 2, InvoiceActionMonitor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextInvoiceAction(tt.daysOverdue, tt.reminderCount)
			if got.Code != tt.want {
				t.Errorf("got %q, want %q", got.Code, tt.want)
			}
			if got.Description == "" {
				t.Error("description should not be empty")
			}
		})
	}
}
