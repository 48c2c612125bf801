package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the durable Store backed by a local sqlite database.
type SQLite struct {
	db *sql.DB
}

// DefaultDBPath returns the conventional database location.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pepper.db"
	}
	return filepath.Join(home, ".pepper", "pepper.db")
}

// OpenSQLite opens (creating if needed) the database at dbPath and
// runs migrations.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS emails (
		id TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		status TEXT NOT NULL,
		classification TEXT,
		confidence REAL,
		suggested_response TEXT,
		sent_response TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_emails_status ON emails(status);
	CREATE INDEX IF NOT EXISTS idx_emails_timestamp ON emails(timestamp);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		customer TEXT NOT NULL,
		customer_email TEXT,
		amount REAL NOT NULL,
		status TEXT NOT NULL,
		days_overdue INTEGER DEFAULT 0,
		reminder_count INTEGER DEFAULT 0,
		last_reminder DATETIME,
		due_date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp);

	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		rule TEXT NOT NULL,
		active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// ==================== Emails ====================

func (s *SQLite) AddEmail(email *Email) error {
	query := `
	INSERT INTO emails (id, sender, sender_email, subject, body, status,
		classification, confidence, suggested_response, sent_response, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		email.ID, email.Sender, email.SenderEmail, email.Subject, email.Body,
		string(email.Status), email.Classification, email.Confidence,
		email.SuggestedResponse, email.SentResponse, email.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email: %w", err)
	}
	return nil
}

const emailColumns = `id, sender, sender_email, subject, body, status,
	classification, confidence, suggested_response, sent_response, timestamp`

// scanEmail handles nullable columns when scanning a row
func scanEmail(scanner interface{ Scan(...any) error }) (*Email, error) {
	var e Email
	var status string
	var classification, suggested, sent sql.NullString
	var confidence sql.NullFloat64
	var timestamp sql.NullTime

	err := scanner.Scan(&e.ID, &e.Sender, &e.SenderEmail, &e.Subject, &e.Body,
		&status, &classification, &confidence, &suggested, &sent, &timestamp)
	if err != nil {
		return nil, err
	}

	e.Status = EmailStatus(status)
	e.Classification = classification.String
	e.Confidence = confidence.Float64
	e.SuggestedResponse = suggested.String
	e.SentResponse = sent.String
	e.Timestamp = timestamp.Time
	return &e, nil
}

func (s *SQLite) GetEmail(id string) (*Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id = ?`

	email, err := scanEmail(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email: %w", err)
	}
	return email, nil
}

func (s *SQLite) ListEmails() ([]Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails ORDER BY timestamp DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, *email)
	}
	return emails, rows.Err()
}

func (s *SQLite) UpdateEmail(email *Email) error {
	query := `UPDATE emails SET status = ?, classification = ?, confidence = ?,
		suggested_response = ?, sent_response = ? WHERE id = ?`

	_, err := s.db.Exec(query,
		string(email.Status), email.Classification, email.Confidence,
		email.SuggestedResponse, email.SentResponse, email.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	return nil
}

// ==================== Invoices ====================

func (s *SQLite) AddInvoice(invoice *Invoice) error {
	query := `
	INSERT INTO invoices (id, customer, customer_email, amount, status,
		days_overdue, reminder_count, last_reminder, due_date, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var lastReminder any
	if !invoice.LastReminder.IsZero() {
		lastReminder = invoice.LastReminder
	}

	_, err := s.db.Exec(query,
		invoice.ID, invoice.Customer, invoice.CustomerEmail, invoice.Amount,
		string(invoice.Status), invoice.DaysOverdue, invoice.ReminderCount,
		lastReminder, invoice.DueDate, invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

const invoiceColumns = `id, customer, customer_email, amount, status,
	days_overdue, reminder_count, last_reminder, due_date, created_at`

func scanInvoice(scanner interface{ Scan(...any) error }) (*Invoice, error) {
	var inv Invoice
	var status string
	var customerEmail sql.NullString
	var lastReminder, createdAt sql.NullTime

	err := scanner.Scan(&inv.ID, &inv.Customer, &customerEmail, &inv.Amount,
		&status, &inv.DaysOverdue, &inv.ReminderCount, &lastReminder,
		&inv.DueDate, &createdAt)
	if err != nil {
		return nil, err
	}

	inv.Status = InvoiceStatus(status)
	inv.CustomerEmail = customerEmail.String
	inv.LastReminder = lastReminder.Time
	inv.CreatedAt = createdAt.Time
	return &inv, nil
}

func (s *SQLite) GetInvoice(id string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	invoice, err := scanInvoice(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}
	return invoice, nil
}

func (s *SQLite) ListInvoices() ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, rows.Err()
}

func (s *SQLite) UpdateInvoice(invoice *Invoice) error {
	query := `UPDATE invoices SET status = ?, days_overdue = ?,
		reminder_count = ?, last_reminder = ? WHERE id = ?`

	var lastReminder any
	if !invoice.LastReminder.IsZero() {
		lastReminder = invoice.LastReminder
	}

	_, err := s.db.Exec(query,
		string(invoice.Status), invoice.DaysOverdue, invoice.ReminderCount,
		lastReminder, invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// ==================== Activities ====================

func (s *SQLite) AddActivity(activity *Activity) error {
	query := `INSERT INTO activities (id, type, description, details, timestamp)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		activity.ID, string(activity.Type), activity.Description,
		activity.Details, activity.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (s *SQLite) RecentActivities(limit int) ([]Activity, error) {
	query := `SELECT id, type, description, details, timestamp
		FROM activities ORDER BY timestamp DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var typ string
		var details sql.NullString
		var timestamp sql.NullTime

		if err := rows.Scan(&a.ID, &typ, &a.Description, &details, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = ActivityType(typ)
		a.Details = details.String
		a.Timestamp = timestamp.Time
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ==================== Policies ====================

func (s *SQLite) AddPolicy(policy *Policy) error {
	query := `INSERT INTO policies (id, rule, active, created_at) VALUES (?, ?, ?, ?)`

	active := 0
	if policy.Active {
		active = 1
	}

	_, err := s.db.Exec(query, policy.ID, policy.Rule, active, policy.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

func scanPolicy(scanner interface{ Scan(...any) error }) (*Policy, error) {
	var p Policy
	var active int
	var createdAt sql.NullTime

	if err := scanner.Scan(&p.ID, &p.Rule, &active, &createdAt); err != nil {
		return nil, err
	}
	p.Active = active == 1
	p.CreatedAt = createdAt.Time
	return &p, nil
}

func (s *SQLite) GetPolicy(id string) (*Policy, error) {
	query := `SELECT id, rule, active, created_at FROM policies WHERE id = ?`

	policy, err := scanPolicy(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query policy: %w", err)
	}
	return policy, nil
}

func (s *SQLite) ListPolicies() ([]Policy, error) {
	query := `SELECT id, rule, active, created_at FROM policies ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, *policy)
	}
	return policies, rows.Err()
}

func (s *SQLite) UpdatePolicy(policy *Policy) error {
	active := 0
	if policy.Active {
		active = 1
	}

	_, err := s.db.Exec(`UPDATE policies SET rule = ?, active = ? WHERE id = ?`,
		policy.Rule, active, policy.ID)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	return nil
}

func (s *SQLite) DeletePolicy(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete policy: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ==================== Stats ====================

func (s *SQLite) Stats(now time.Time) (Stats, error) {
	var st Stats

	emailQuery := `SELECT
		SUM(CASE WHEN status='processing' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='responded' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='escalated' THEN 1 ELSE 0 END)
		FROM emails`

	var pending, responded, escalated sql.NullInt64
	if err := s.db.QueryRow(emailQuery).Scan(&pending, &responded, &escalated); err != nil {
		return Stats{}, fmt.Errorf("failed to get email stats: %w", err)
	}
	st.EmailsPending = int(pending.Int64)
	st.EmailsResponded = int(responded.Int64)
	st.EmailsEscalated = int(escalated.Int64)

	invoiceQuery := `SELECT
		SUM(CASE WHEN status='pending' THEN 1 ELSE 0 END),
		SUM(CASE WHEN days_overdue > 0 AND status != 'paid' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status != 'paid' THEN amount ELSE 0 END)
		FROM invoices`

	var invPending, invOverdue sql.NullInt64
	var outstanding sql.NullFloat64
	if err := s.db.QueryRow(invoiceQuery).Scan(&invPending, &invOverdue, &outstanding); err != nil {
		return Stats{}, fmt.Errorf("failed to get invoice stats: %w", err)
	}
	st.InvoicesPending = int(invPending.Int64)
	st.InvoicesOverdue = int(invOverdue.Int64)
	st.TotalOutstanding = outstanding.Float64

	var active sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(CASE WHEN active=1 THEN 1 ELSE 0 END) FROM policies`).Scan(&active); err != nil {
		return Stats{}, fmt.Errorf("failed to get policy stats: %w", err)
	}
	st.PoliciesActive = int(active.Int64)

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	var today int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM activities WHERE timestamp >= ? AND timestamp < ?`,
		startOfDay, endOfDay).Scan(&today); err != nil {
		return Stats{}, fmt.Errorf("failed to get activity stats: %w", err)
	}
	st.ActivitiesToday = today

	return st, nil
}
