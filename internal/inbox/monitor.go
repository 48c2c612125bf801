// Package inbox pulls incoming mail from an IMAP mailbox and feeds
// it through the decision engine.
package inbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/pepper-ops/pepper/internal/config"
	"github.com/pepper-ops/pepper/internal/directory"
	"github.com/pepper-ops/pepper/internal/ops"
)

// Message is a parsed email pulled from the mailbox.
type Message struct {
	UID        uint32
	MessageID  string
	From       string
	FromName   string
	Subject    string
	Body       string
	HTMLBody   string
	ReceivedAt time.Time
}

// Monitor handles the IMAP connection and hands new mail to the
// service layer.
type Monitor struct {
	config    config.InboxConfig
	service   *ops.Service
	customers *directory.Directory
	client    *client.Client
	seen      map[string]bool // Message-IDs already ingested this session
}

func NewMonitor(cfg config.InboxConfig, service *ops.Service) *Monitor {
	return &Monitor{
		config:  cfg,
		service: service,
		seen:    make(map[string]bool),
	}
}

// SetDirectory attaches a customer directory. Senders found in it are
// recorded under their directory name instead of the envelope name.
func (m *Monitor) SetDirectory(d *directory.Directory) {
	m.customers = d
}

// Connect establishes the IMAP connection.
func (m *Monitor) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)

	log.Printf("Connecting to IMAP server %s...", addr)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(m.config.Email, m.config.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	m.client = c
	log.Printf("Logged in as %s", m.config.Email)
	return nil
}

// Disconnect closes the IMAP connection.
func (m *Monitor) Disconnect() error {
	if m.client != nil {
		return m.client.Logout()
	}
	return nil
}

// FetchRecent fetches messages received in the last N days.
func (m *Monitor) FetchRecent(ctx context.Context, days int) ([]Message, error) {
	if m.client == nil {
		return nil, fmt.Errorf("not connected to IMAP server")
	}

	mbox, err := m.client.Select(m.config.Folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.config.Folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	since := time.Now().AddDate(0, 0, -days)
	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	// Peek so fetching doesn't mark anything read.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var parsed []Message
	for msg := range messages {
		p, err := parseMessage(msg, section)
		if err != nil {
			log.Printf("Warning: failed to parse message: %v", err)
			continue
		}
		if p != nil {
			parsed = append(parsed, *p)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return parsed, nil
}

// parseMessage converts an IMAP message to a Message.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (*Message, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, nil
	}

	out := &Message{
		UID:        msg.Uid,
		MessageID:  msg.Envelope.MessageId,
		Subject:    msg.Envelope.Subject,
		ReceivedAt: msg.Envelope.Date,
	}

	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		out.From = from.Address()
		out.FromName = from.PersonalName
	}

	r := msg.GetBody(section)
	if r == nil {
		return out, nil
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return out, nil // keep envelope even when the body won't parse
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, _ := io.ReadAll(p.Body)

			if strings.HasPrefix(ct, "text/plain") && out.Body == "" {
				out.Body = string(body)
			} else if strings.HasPrefix(ct, "text/html") && out.HTMLBody == "" {
				out.HTMLBody = string(body)
			}
		}
	}

	return out, nil
}

// Poll fetches recent mail and ingests anything not seen yet.
// Returns the number of newly ingested messages.
func (m *Monitor) Poll(ctx context.Context) (int, error) {
	messages, err := m.FetchRecent(ctx, m.config.LookbackDays)
	if err != nil {
		return 0, err
	}

	ingested := 0
	for _, msg := range messages {
		key := msg.MessageID
		if key == "" {
			key = fmt.Sprintf("uid-%d", msg.UID)
		}
		if m.seen[key] {
			continue
		}
		m.seen[key] = true

		if msg.From == "" {
			continue // no usable sender address
		}

		body := msg.Body
		if body == "" {
			body = stripHTML(msg.HTMLBody)
		}
		if body == "" || msg.Subject == "" {
			log.Printf("Skipping message %q from %s: empty subject or body", msg.Subject, msg.From)
			continue
		}

		sender := m.resolveSender(msg)

		e, analysis, err := m.service.IngestEmail(ops.IngestEmailInput{
			Sender:      sender,
			SenderEmail: msg.From,
			Subject:     msg.Subject,
			Body:        body,
		})
		if err != nil {
			log.Printf("Failed to ingest message from %s: %v", msg.From, err)
			continue
		}
		log.Printf("Ingested %q from %s: %s (%.2f) -> %s",
			msg.Subject, sender, analysis.Classification, analysis.Confidence, e.Status)
		ingested++
	}
	return ingested, nil
}

// Run polls on an interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	interval := time.Duration(m.config.PollMinutes) * time.Minute

	if _, err := m.Poll(ctx); err != nil {
		log.Printf("Poll failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Poll(ctx); err != nil {
				log.Printf("Poll failed: %v", err)
			}
		}
	}
}

// resolveSender picks the best display name for a message: the
// customer directory entry first, then the envelope name, then the
// local part of the address.
func (m *Monitor) resolveSender(msg Message) string {
	if m.customers != nil {
		if c := m.customers.FindByEmail(msg.From); c != nil {
			return c.Name
		}
	}
	if msg.FromName != "" {
		return msg.FromName
	}
	return senderFromAddress(msg.From)
}

// senderFromAddress derives a display name from a bare address,
// e.g. "jane.doe@x.com" -> "jane.doe".
func senderFromAddress(addr string) string {
	if i := strings.Index(addr, "@"); i > 0 {
		return addr[:i]
	}
	return addr
}
