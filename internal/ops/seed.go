package ops

import (
	"time"

	"github.com/google/uuid"

	"github.com/pepper-ops/pepper/internal/store"
)

// Seed loads a realistic demo dataset so the dashboard has something
// to show on first run.
func Seed(st store.Store, now time.Time) error {
	minutesAgo := func(m int) time.Time { return now.Add(-time.Duration(m) * time.Minute) }
	hoursAgo := func(h int) time.Time { return now.Add(-time.Duration(h) * time.Hour) }
	daysAgo := func(d int) time.Time { return now.AddDate(0, 0, -d) }

	emails := []store.Email{
		{
			ID:                uuid.NewString(),
			Sender:            "Sarah Mitchell",
			SenderEmail:       "sarah@techstartup.com",
			Subject:           "Quick question about your pricing",
			Body:              "Hi, I saw your pricing page and had a question about the Pro plan. Does it include unlimited team members? We're a team of 8 looking to automate our operations.",
			Status:            store.EmailResponded,
			Classification:    "New Lead - Pricing Inquiry",
			Confidence:        0.94,
			SuggestedResponse: "Hi Sarah, great to hear from you! Thanks for reaching out about Pepper. Yes, the Pro plan includes unlimited team members - perfect for your team of 8. Would you like to schedule a quick demo to see how it works?",
			SentResponse:      "Hi Sarah, great to hear from you! Thanks for reaching out about Pepper. Yes, the Pro plan includes unlimited team members - perfect for your team of 8. Would you like to schedule a quick demo to see how it works?",
			Timestamp:         minutesAgo(45),
		},
		{
			ID:                uuid.NewString(),
			Sender:            "David Kim",
			SenderEmail:       "david@agency.io",
			Subject:           "Meeting reschedule request",
			Body:              "Hey, sorry but I need to reschedule our Thursday meeting. Would Friday at 2pm work instead?",
			Status:            store.EmailResponded,
			Classification:    "Existing Client - Scheduling",
			Confidence:        0.98,
			SuggestedResponse: "Hi David, no problem at all! I've rescheduled our meeting to Friday at 2pm. You should have a calendar invite now. Let me know if you need anything else.",
			SentResponse:      "Hi David, no problem at all! I've rescheduled our meeting to Friday at 2pm. You should have a calendar invite now. Let me know if you need anything else.",
			Timestamp:         hoursAgo(2),
		},
		{
			ID:                uuid.NewString(),
			Sender:            "Mike Johnson",
			SenderEmail:       "mike.j@enterprise.com",
			Subject:           "Invoice #892 - Payment delayed",
			Body:              "Hi, I'm writing to let you know that our payment for invoice #892 will be delayed by about a week due to some internal processing issues. We'll send it over as soon as possible.",
			Status:            store.EmailResponded,
			Classification:    "Payment Issue - Delay Notification",
			Confidence:        0.91,
			SuggestedResponse: "Hi Mike, thanks for the heads up. I've noted the delay and adjusted our records. We appreciate you letting us know. Please reach out if you need anything in the meantime.",
			SentResponse:      "Hi Mike, thanks for the heads up. I've noted the delay and adjusted our records. We appreciate you letting us know. Please reach out if you need anything in the meantime.",
			Timestamp:         hoursAgo(5),
		},
		{
			ID:                uuid.NewString(),
			Sender:            "Jennifer Wu",
			SenderEmail:       "jwu@design.co",
			Subject:           "Refund request for last order",
			Body:              "Hi, I'd like to request a refund for my order #4521. The product didn't meet my expectations and I'd like to return it. The order was for $450.",
			Status:            store.EmailEscalated,
			Classification:    "Customer Issue - Refund Request",
			Confidence:        0.72,
			SuggestedResponse: "Hi Jennifer, I'm sorry to hear that. I've escalated your refund request to our team. Someone will be in touch shortly to process this for you.",
			Timestamp:         minutesAgo(30),
		},
		{
			ID:             uuid.NewString(),
			Sender:         "Alex Rivera",
			SenderEmail:    "alex@consulting.net",
			Subject:        "Partnership opportunity",
			Body:           "Hi there, I'm Alex from Consulting.net. We're looking to partner with tools like Pepper for our clients. Would you be open to discussing a referral partnership?",
			Status:         store.EmailProcessing,
			Classification: "Business Development - Partnership",
			Confidence:     0.88,
			Timestamp:      minutesAgo(5),
		},
	}
	for i := range emails {
		if err := st.AddEmail(&emails[i]); err != nil {
			return err
		}
	}

	invoices := []store.Invoice{
		{ID: "INV-891", Customer: "TechStartup Inc", Amount: 2400, Status: store.InvoiceReminderSent,
			DaysOverdue: 7, ReminderCount: 1, LastReminder: daysAgo(1), DueDate: daysAgo(7).Format("2006-01-02"), CreatedAt: daysAgo(37)},
		{ID: "INV-889", Customer: "Agency.io", Amount: 1800, Status: store.InvoicePaid,
			DaysOverdue: 0, ReminderCount: 2, LastReminder: daysAgo(3), DueDate: daysAgo(10).Format("2006-01-02"), CreatedAt: daysAgo(30)},
		{ID: "INV-892", Customer: "Enterprise Corp", Amount: 4500, Status: store.InvoiceEscalated,
			DaysOverdue: 14, ReminderCount: 3, LastReminder: daysAgo(2), DueDate: daysAgo(14).Format("2006-01-02"), CreatedAt: daysAgo(44)},
		{ID: "INV-893", Customer: "Design Co", Amount: 950, Status: store.InvoicePending,
			DaysOverdue: 3, ReminderCount: 0, DueDate: daysAgo(3).Format("2006-01-02"), CreatedAt: daysAgo(33)},
		{ID: "INV-894", Customer: "Consulting.net", Amount: 3200, Status: store.InvoicePending,
			DaysOverdue: 1, ReminderCount: 0, DueDate: daysAgo(1).Format("2006-01-02"), CreatedAt: daysAgo(31)},
	}
	for i := range invoices {
		if err := st.AddInvoice(&invoices[i]); err != nil {
			return err
		}
	}

	activities := []store.Activity{
		{ID: uuid.NewString(), Type: store.ActivityEmailSent, Description: "Follow-up sent to Sarah M.",
			Details: "Response to pricing inquiry - 94% confidence", Timestamp: minutesAgo(45)},
		{ID: uuid.NewString(), Type: store.ActivityReminderSent, Description: "Invoice #891 reminder sent",
			Details: "Friendly reminder - 7 days overdue", Timestamp: hoursAgo(1)},
		{ID: uuid.NewString(), Type: store.ActivityMeetingBooked, Description: "Meeting confirmed with David K.",
			Details: "Rescheduled to Friday 2pm", Timestamp: hoursAgo(2)},
		{ID: uuid.NewString(), Type: store.ActivityLeadResponded, Description: "New lead response sent",
			Details: "Partnership inquiry from Alex R.", Timestamp: hoursAgo(3)},
		{ID: uuid.NewString(), Type: store.ActivityInvoiceChased, Description: "Invoice #892 escalated",
			Details: "14 days overdue - $4,500", Timestamp: hoursAgo(5)},
		{ID: uuid.NewString(), Type: store.ActivityReminderSent, Description: "Invoice #889 paid",
			Details: "$1,800 received after 2 reminders", Timestamp: daysAgo(1)},
	}
	for i := range activities {
		if err := st.AddActivity(&activities[i]); err != nil {
			return err
		}
	}

	policies := []store.Policy{
		{ID: uuid.NewString(), Rule: "Always respond to new leads within 15 minutes.", Active: true, CreatedAt: daysAgo(30)},
		{ID: uuid.NewString(), Rule: "Never offer a discount over 10% without my approval.", Active: true, CreatedAt: daysAgo(30)},
		{ID: uuid.NewString(), Rule: "Treat any customer who's spent over $1,000 as VIP.", Active: true, CreatedAt: daysAgo(30)},
		{ID: uuid.NewString(), Rule: "Send invoice reminders at 3, 7, and 14 days overdue.", Active: true, CreatedAt: daysAgo(30)},
		{ID: uuid.NewString(), Rule: "Escalate any refund request over $200.", Active: true, CreatedAt: daysAgo(15)},
	}
	for i := range policies {
		if err := st.AddPolicy(&policies[i]); err != nil {
			return err
		}
	}

	return nil
}
