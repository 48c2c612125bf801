package store

import (
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store. It backs demo mode and tests; data
// is lost when the process exits.
type Memory struct {
	mu         sync.RWMutex
	emails     map[string]Email
	invoices   map[string]Invoice
	policies   map[string]Policy
	activities []Activity
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		emails:   make(map[string]Email),
		invoices: make(map[string]Invoice),
		policies: make(map[string]Policy),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) AddEmail(email *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[email.ID] = *email
	return nil
}

func (m *Memory) GetEmail(id string) (*Email, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email, ok := m.emails[id]
	if !ok {
		return nil, nil
	}
	return &email, nil
}

func (m *Memory) ListEmails() ([]Email, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emails := make([]Email, 0, len(m.emails))
	for _, e := range m.emails {
		emails = append(emails, e)
	}
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].Timestamp.After(emails[j].Timestamp)
	})
	return emails, nil
}

func (m *Memory) UpdateEmail(email *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[email.ID] = *email
	return nil
}

func (m *Memory) AddInvoice(invoice *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[invoice.ID] = *invoice
	return nil
}

func (m *Memory) GetInvoice(id string) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	invoice, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	return &invoice, nil
}

func (m *Memory) ListInvoices() ([]Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	invoices := make([]Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		invoices = append(invoices, inv)
	}
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	return invoices, nil
}

func (m *Memory) UpdateInvoice(invoice *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[invoice.ID] = *invoice
	return nil
}

func (m *Memory) AddPolicy(policy *Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.ID] = *policy
	return nil
}

func (m *Memory) GetPolicy(id string) (*Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	policy, ok := m.policies[id]
	if !ok {
		return nil, nil
	}
	return &policy, nil
}

func (m *Memory) ListPolicies() ([]Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	policies := make([]Policy, 0, len(m.policies))
	for _, p := range m.policies {
		policies = append(policies, p)
	}
	sort.Slice(policies, func(i, j int) bool {
		return policies[i].CreatedAt.After(policies[j].CreatedAt)
	})
	return policies, nil
}

func (m *Memory) UpdatePolicy(policy *Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.ID] = *policy
	return nil
}

func (m *Memory) DeletePolicy(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[id]; !ok {
		return false, nil
	}
	delete(m.policies, id)
	return true, nil
}

func (m *Memory) AddActivity(activity *Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, *activity)
	return nil
}

func (m *Memory) RecentActivities(limit int) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	activities := make([]Activity, len(m.activities))
	copy(activities, m.activities)
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

func (m *Memory) Stats(now time.Time) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	for _, e := range m.emails {
		switch e.Status {
		case EmailProcessing:
			st.EmailsPending++
		case EmailResponded:
			st.EmailsResponded++
		case EmailEscalated:
			st.EmailsEscalated++
		}
	}
	for _, inv := range m.invoices {
		if inv.Status == InvoicePending {
			st.InvoicesPending++
		}
		if inv.Status != InvoicePaid {
			st.TotalOutstanding += inv.Amount
			if inv.DaysOverdue > 0 {
				st.InvoicesOverdue++
			}
		}
	}
	for _, p := range m.policies {
		if p.Active {
			st.PoliciesActive++
		}
	}
	y, mo, d := now.Date()
	for _, a := range m.activities {
		ay, am, ad := a.Timestamp.In(now.Location()).Date()
		if ay == y && am == mo && ad == d {
			st.ActivitiesToday++
		}
	}
	return st, nil
}
