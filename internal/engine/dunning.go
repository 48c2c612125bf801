package engine

// Invoice action codes produced by the dunning rules.
const (
	InvoiceActionEscalate         = "escalate"
	InvoiceActionFirmReminder     = "send_firm_reminder"
	InvoiceActionFriendlyReminder = "send_friendly_reminder"
	InvoiceActionMonitor          = "monitor"
)

// InvoiceAction is a recommended next step for an overdue invoice.
type InvoiceAction struct {
	Code        string `json:"action"`
	Description string `json:"description"`
}

// NextInvoiceAction applies the dunning ladder to an invoice's age
// and reminder history. Rules are checked top down and the first
// match wins:
//
//	14+ days overdue and 3+ reminders sent  -> escalate to a human
//	7+ days overdue and fewer than 2 sent   -> firm reminder
//	3+ days overdue and none sent           -> friendly reminder
//	otherwise                               -> keep monitoring
func NextInvoiceAction(daysOverdue, reminderCount int) InvoiceAction {
	switch {
	case daysOverdue >= 14 && reminderCount >= 3:
		return InvoiceAction{
			Code:        InvoiceActionEscalate,
			Description: "Invoice escalated - requires manual follow-up",
		}
	case daysOverdue >= 7 && reminderCount < 2:
		return InvoiceAction{
			Code:        InvoiceActionFirmReminder,
			Description: "Sending firm payment reminder",
		}
	case daysOverdue >= 3 && reminderCount == 0:
		return InvoiceAction{
			Code:        InvoiceActionFriendlyReminder,
			Description: "Sending friendly payment reminder",
		}
	default:
		return InvoiceAction{
			Code:        InvoiceActionMonitor,
			Description: "Monitoring - next reminder scheduled",
		}
	}
}
