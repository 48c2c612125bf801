// Package ops is the service layer: it ties the decision engine to
// the store and the outbound mailer, and owns the activity log.
package ops

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pepper-ops/pepper/internal/email"
	"github.com/pepper-ops/pepper/internal/engine"
	"github.com/pepper-ops/pepper/internal/store"
)

// Service executes every operation the API and CLI expose. All
// writes to a single email or invoice are serialized per ID.
type Service struct {
	store    store.Store
	analyzer *engine.Analyzer
	sender   email.Sender // nil disables outbound mail
	now      func() time.Time

	blockEscalateAfterRespond bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures optional Service behavior.
type Options struct {
	// Sender delivers outbound mail. Delivery is best effort: a
	// failed send is logged but never rolls back a state change.
	Sender email.Sender

	// Now overrides the clock, mainly for tests.
	Now func() time.Time

	// BlockEscalateAfterRespond rejects escalation of messages
	// that already had a response sent.
	BlockEscalateAfterRespond bool
}

func NewService(st store.Store, analyzer *engine.Analyzer, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:                     st,
		analyzer:                  analyzer,
		sender:                    opts.Sender,
		now:                       now,
		blockEscalateAfterRespond: opts.BlockEscalateAfterRespond,
		locks:                     make(map[string]*sync.Mutex),
	}
}

// lockID serializes operations on a single entity.
func (s *Service) lockID(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) record(typ store.ActivityType, description, details string) {
	activity := &store.Activity{
		ID:          uuid.NewString(),
		Type:        typ,
		Description: description,
		Details:     details,
		Timestamp:   s.now(),
	}
	if err := s.store.AddActivity(activity); err != nil {
		log.Printf("failed to record activity: %v", err)
	}
}

// ==================== Emails ====================

// IngestEmailInput is a new incoming message.
type IngestEmailInput struct {
	Sender      string `json:"sender"`
	SenderEmail string `json:"senderEmail"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// IngestEmail classifies an incoming message, stores it, and records
// the intake in the activity log. Messages the engine flags for a
// human land in escalated with no stored suggestion; everything else
// sits in processing with a response ready to send.
func (s *Service) IngestEmail(in IngestEmailInput) (*store.Email, engine.Analysis, error) {
	if in.Sender == "" || in.SenderEmail == "" || in.Subject == "" || in.Body == "" {
		return nil, engine.Analysis{}, Validation("sender, senderEmail, subject, and body are required")
	}

	analysis := s.analyzer.Analyze(in.Sender, in.Subject, in.Body)

	e := &store.Email{
		ID:             uuid.NewString(),
		Sender:         in.Sender,
		SenderEmail:    in.SenderEmail,
		Subject:        in.Subject,
		Body:           in.Body,
		Status:         store.EmailProcessing,
		Classification: analysis.Classification,
		Confidence:     analysis.Confidence,
		Timestamp:      s.now(),
	}
	if engine.ShouldEscalate(analysis.Classification, analysis.Confidence) {
		e.Status = store.EmailEscalated
	} else {
		e.SuggestedResponse = analysis.SuggestedResponse
	}

	if err := s.store.AddEmail(e); err != nil {
		return nil, engine.Analysis{}, err
	}

	s.record(store.ActivityLeadResponded,
		fmt.Sprintf("New email from %s", in.Sender),
		fmt.Sprintf("Classified as: %s", analysis.Classification))

	return e, analysis, nil
}

// RespondEmail sends a response for the message. The override, when
// non-blank, wins over the stored suggestion. Delivery failures do
// not undo the transition to responded.
func (s *Service) RespondEmail(ctx context.Context, id, override string) (*store.Email, error) {
	defer s.lockID(id)()

	e, err := s.store.GetEmail(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}

	response := strings.TrimSpace(override)
	if response == "" {
		response = e.SuggestedResponse
	}
	if response == "" {
		return nil, ErrNoResponse
	}

	e.SentResponse = response
	e.Status = store.EmailResponded
	if err := s.store.UpdateEmail(e); err != nil {
		return nil, err
	}

	s.deliver(ctx, e.SenderEmail, "Re: "+e.Subject, response)

	s.record(store.ActivityEmailSent,
		fmt.Sprintf("Response sent to %s", e.Sender),
		fmt.Sprintf("Re: %s", e.Subject))

	return e, nil
}

// EscalateEmail hands the message to a human.
func (s *Service) EscalateEmail(id string) (*store.Email, error) {
	defer s.lockID(id)()

	e, err := s.store.GetEmail(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if s.blockEscalateAfterRespond && e.Status == store.EmailResponded {
		return nil, ErrAlreadyResponded
	}

	e.Status = store.EmailEscalated
	if err := s.store.UpdateEmail(e); err != nil {
		return nil, err
	}

	s.record(store.ActivityEmailSent,
		fmt.Sprintf("Email from %s escalated", e.Sender),
		"Requires manual review")

	return e, nil
}

func (s *Service) GetEmail(id string) (*store.Email, error) {
	e, err := s.store.GetEmail(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *Service) ListEmails() ([]store.Email, error) { return s.store.ListEmails() }

// deliver sends mail best effort; errors are logged only.
func (s *Service) deliver(ctx context.Context, to, subject, body string) {
	if s.sender == nil || to == "" {
		return
	}
	result := s.sender.Send(ctx, email.Message{To: to, Subject: subject, Body: body})
	if !result.Success {
		log.Printf("outbound mail to %s failed: %v", to, result.Error)
	}
}

// ==================== Invoices ====================

// CreateInvoiceInput is a new receivable to track.
type CreateInvoiceInput struct {
	Customer      string  `json:"customer"`
	CustomerEmail string  `json:"customerEmail"`
	Amount        float64 `json:"amount"`
	DueDate       string  `json:"dueDate"`
	DaysOverdue   int     `json:"daysOverdue"`
}

func (s *Service) CreateInvoice(in CreateInvoiceInput) (*store.Invoice, error) {
	if in.Customer == "" || in.Amount == 0 || in.DueDate == "" {
		return nil, Validation("customer, amount, and dueDate are required")
	}
	if in.Amount < 0 {
		return nil, Validation("amount must be positive")
	}
	if in.DaysOverdue < 0 {
		return nil, Validation("daysOverdue cannot be negative")
	}

	inv := &store.Invoice{
		ID:            "INV-" + uuid.NewString()[:8],
		Customer:      in.Customer,
		CustomerEmail: in.CustomerEmail,
		Amount:        in.Amount,
		Status:        store.InvoicePending,
		DaysOverdue:   in.DaysOverdue,
		DueDate:       in.DueDate,
		CreatedAt:     s.now(),
	}
	if err := s.store.AddInvoice(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// RemindInvoice sends a payment reminder and records it on the
// invoice: the reminder count goes up, the last-reminder time is
// set, and the status moves to reminder_sent. Days overdue is left
// alone; only payment clears it.
func (s *Service) RemindInvoice(ctx context.Context, id string) (*store.Invoice, error) {
	defer s.lockID(id)()

	inv, err := s.store.GetInvoice(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}

	inv.ReminderCount++
	inv.LastReminder = s.now()
	inv.Status = store.InvoiceReminderSent
	if err := s.store.UpdateInvoice(inv); err != nil {
		return nil, err
	}

	body := email.FriendlyReminderBody(inv.Customer, inv.ID, inv.Amount, inv.DaysOverdue)
	if inv.ReminderCount > 1 {
		body = email.FirmReminderBody(inv.Customer, inv.ID, inv.Amount, inv.DaysOverdue)
	}
	s.deliver(ctx, inv.CustomerEmail, email.ReminderSubject(inv.ID), body)

	s.record(store.ActivityReminderSent,
		fmt.Sprintf("Reminder sent for %s", inv.ID),
		fmt.Sprintf("%s - %d days overdue", email.FormatAmount(inv.Amount), inv.DaysOverdue))

	return inv, nil
}

// MarkInvoicePaid settles the invoice and zeroes its overdue age.
func (s *Service) MarkInvoicePaid(id string) (*store.Invoice, error) {
	defer s.lockID(id)()

	inv, err := s.store.GetInvoice(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}

	inv.Status = store.InvoicePaid
	inv.DaysOverdue = 0
	if err := s.store.UpdateInvoice(inv); err != nil {
		return nil, err
	}

	s.record(store.ActivityReminderSent,
		fmt.Sprintf("Invoice %s marked as paid", inv.ID),
		fmt.Sprintf("%s received", email.FormatAmount(inv.Amount)))

	return inv, nil
}

// NextInvoiceAction returns the dunning recommendation for the
// invoice. Purely advisory: nothing is mutated and no reminder is
// sent.
func (s *Service) NextInvoiceAction(id string) (*store.Invoice, engine.InvoiceAction, error) {
	inv, err := s.store.GetInvoice(id)
	if err != nil {
		return nil, engine.InvoiceAction{}, err
	}
	if inv == nil {
		return nil, engine.InvoiceAction{}, ErrNotFound
	}
	return inv, engine.NextInvoiceAction(inv.DaysOverdue, inv.ReminderCount), nil
}

func (s *Service) GetInvoice(id string) (*store.Invoice, error) {
	inv, err := s.store.GetInvoice(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (s *Service) ListInvoices() ([]store.Invoice, error) { return s.store.ListInvoices() }

// ==================== Policies ====================

// CreatePolicy records a standing instruction. Policies are inert:
// they are stored and displayed but nothing consults them when
// making decisions.
func (s *Service) CreatePolicy(rule string) (*store.Policy, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, Validation("rule is required")
	}

	p := &store.Policy{
		ID:        uuid.NewString(),
		Rule:      rule,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.store.AddPolicy(p); err != nil {
		return nil, err
	}

	s.record(store.ActivityEmailSent, "New policy created", rule)
	return p, nil
}

func (s *Service) TogglePolicy(id string) (*store.Policy, error) {
	defer s.lockID(id)()

	p, err := s.store.GetPolicy(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	p.Active = !p.Active
	if err := s.store.UpdatePolicy(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePolicy(id string) error {
	deleted, err := s.store.DeletePolicy(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListPolicies() ([]store.Policy, error) { return s.store.ListPolicies() }

// ==================== Activities and stats ====================

func (s *Service) RecentActivities(limit int) ([]store.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.RecentActivities(limit)
}

func (s *Service) Stats() (store.Stats, error) {
	return s.store.Stats(s.now())
}
