// Package store persists emails, invoices, policies, and the
// activity log. Store is the interface the service layer programs
// against; SQLite is the durable implementation and Memory backs
// tests and demo mode.
package store

import "time"

// EmailStatus tracks where a message sits in its lifecycle.
type EmailStatus string

const (
	EmailProcessing EmailStatus = "processing"
	EmailResponded  EmailStatus = "responded"
	EmailEscalated  EmailStatus = "escalated"
)

// InvoiceStatus tracks where an invoice sits in collections.
type InvoiceStatus string

const (
	InvoicePending      InvoiceStatus = "pending"
	InvoiceReminderSent InvoiceStatus = "reminder_sent"
	InvoiceEscalated    InvoiceStatus = "escalated"
	InvoicePaid         InvoiceStatus = "paid"
)

// ActivityType categorizes entries in the activity log.
type ActivityType string

const (
	ActivityEmailSent     ActivityType = "email_sent"
	ActivityReminderSent  ActivityType = "reminder_sent"
	ActivityMeetingBooked ActivityType = "meeting_booked"
	ActivityLeadResponded ActivityType = "lead_responded"
	ActivityInvoiceChased ActivityType = "invoice_chased"
)

// Email is an incoming message together with the engine's analysis
// and any response that went out.
type Email struct {
	ID                string      `json:"id"`
	Sender            string      `json:"sender"`
	SenderEmail       string      `json:"senderEmail"`
	Subject           string      `json:"subject"`
	Body              string      `json:"body"`
	Status            EmailStatus `json:"status"`
	Classification    string      `json:"classification,omitempty"`
	Confidence        float64     `json:"confidence,omitempty"`
	SuggestedResponse string      `json:"suggestedResponse,omitempty"`
	SentResponse      string      `json:"sentResponse,omitempty"`
	Timestamp         time.Time   `json:"timestamp"`
}

// Invoice is a receivable being chased.
type Invoice struct {
	ID            string        `json:"id"`
	Customer      string        `json:"customer"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	Amount        float64       `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	DaysOverdue   int           `json:"daysOverdue"`
	ReminderCount int           `json:"reminderCount"`
	LastReminder  time.Time     `json:"lastReminder,omitzero"`
	DueDate       string        `json:"dueDate"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Activity is one entry in the append-only activity log.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Details     string       `json:"details,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Policy is a standing instruction. Policies are recorded and
// toggled but nothing in the decision paths consults them yet.
type Policy struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats is the dashboard snapshot.
type Stats struct {
	EmailsPending    int     `json:"emailsPending"`
	EmailsResponded  int     `json:"emailsResponded"`
	EmailsEscalated  int     `json:"emailsEscalated"`
	InvoicesPending  int     `json:"invoicesPending"`
	InvoicesOverdue  int     `json:"invoicesOverdue"`
	TotalOutstanding float64 `json:"totalOutstanding"`
	PoliciesActive   int     `json:"policiesActive"`
	ActivitiesToday  int     `json:"activitiesToday"`
}

// Store is the persistence boundary. Get methods return (nil, nil)
// when the row does not exist; callers decide whether that is an
// error.
type Store interface {
	AddEmail(email *Email) error
	GetEmail(id string) (*Email, error)
	ListEmails() ([]Email, error)
	UpdateEmail(email *Email) error

	AddInvoice(invoice *Invoice) error
	GetInvoice(id string) (*Invoice, error)
	ListInvoices() ([]Invoice, error)
	UpdateInvoice(invoice *Invoice) error

	AddPolicy(policy *Policy) error
	GetPolicy(id string) (*Policy, error)
	ListPolicies() ([]Policy, error)
	UpdatePolicy(policy *Policy) error
	DeletePolicy(id string) (bool, error)

	AddActivity(activity *Activity) error
	RecentActivities(limit int) ([]Activity, error)

	Stats(now time.Time) (Stats, error)
	Close() error
}
