package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pepper-ops/pepper/internal/engine"
	"github.com/pepper-ops/pepper/internal/ops"
	"github.com/pepper-ops/pepper/internal/store"
)

// zeroSource pins rand.Float64 to 0.5 so confidence jitter is zero.
type zeroSource struct{}

func (zeroSource) Int63() int64    { return 1 << 62 }
func (zeroSource) Seed(seed int64) {}

func newTestServer(t *testing.T, opts ops.Options) (*Server, *ops.Service) {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	}
	service := ops.NewService(store.NewMemory(), engine.NewAnalyzer(zeroSource{}), opts)
	return NewServer(0, service, 20), service
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, ops.Options{})
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestIngestAndGetEmail(t *testing.T) {
	s, _ := newTestServer(t, ops.Options{})
	r := s.Router()

	rec := doJSON(t, r, http.MethodPost, "/api/emails", map[string]string{
		"sender":      "Sarah Mitchell",
		"senderEmail": "sarah@growthco.com",
		"subject":     "Pricing question",
		"body":        "What is your pricing for the premium plan?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	created := decode[struct {
		Email    store.Email     `json:"email"`
		Analysis engine.Analysis `json:"analysis"`
	}](t, rec)

	if created.Email.Status != store.EmailProcessing {
		t.Errorf("status = %s, want processing", created.Email.Status)
	}
	if created.Analysis.Classification != engine.CategoryPricing {
		t.Errorf("classification = %s", created.Analysis.Classification)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/emails/"+created.Email.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/emails/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing email status = %d, want 404", rec.Code)
	}
}

func TestIngestEmailValidation(t *testing.T) {
	s, _ := newTestServer(t, ops.Options{})
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/emails", map[string]string{
		"sender": "No Subject",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["error"] != "sender, senderEmail, subject, and body are required" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRespondEmail(t *testing.T) {
	s, service := newTestServer(t, ops.Options{})
	r := s.Router()

	e, _, err := service.IngestEmail(ops.IngestEmailInput{
		Sender:      "Sarah Mitchell",
		SenderEmail: "sarah@growthco.com",
		Subject:     "Pricing question",
		Body:        "What is your pricing for the premium plan?",
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/emails/%s/respond", e.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	updated := decode[store.Email](t, rec)
	if updated.Status != store.EmailResponded {
		t.Errorf("status = %s, want responded", updated.Status)
	}
	if updated.SentResponse == "" {
		t.Error("sent response is empty")
	}

	rec = doJSON(t, r, http.MethodPost, "/api/emails/nope/respond", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing email respond status = %d, want 404", rec.Code)
	}
}

func TestRespondEmailNoSuggestion(t *testing.T) {
	s, service := newTestServer(t, ops.Options{})

	e, _, err := service.IngestEmail(ops.IngestEmailInput{
		Sender:      "Jennifer Wu",
		SenderEmail: "jwu@example.com",
		Subject:     "Requesting refund",
		Body:        "I would like my money back please.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != store.EmailEscalated {
		t.Fatalf("setup: status = %s, want escalated", e.Status)
	}

	rec := doJSON(t, s.Router(), http.MethodPost, fmt.Sprintf("/api/emails/%s/respond", e.ID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["error"] != "No suggested response available" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRespondEmailOverride(t *testing.T) {
	s, service := newTestServer(t, ops.Options{})

	e, _, err := service.IngestEmail(ops.IngestEmailInput{
		Sender:      "Jennifer Wu",
		SenderEmail: "jwu@example.com",
		Subject:     "Requesting refund",
		Body:        "I would like my money back please.",
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s.Router(), http.MethodPost, fmt.Sprintf("/api/emails/%s/respond", e.ID),
		map[string]string{"response": "Refund approved, processing now."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	updated := decode[store.Email](t, rec)
	if updated.SentResponse != "Refund approved, processing now." {
		t.Errorf("sent response = %q", updated.SentResponse)
	}
}

func TestEscalateEmail(t *testing.T) {
	s, service := newTestServer(t, ops.Options{BlockEscalateAfterRespond: true})
	r := s.Router()

	e, _, err := service.IngestEmail(ops.IngestEmailInput{
		Sender:      "Sarah Mitchell",
		SenderEmail: "sarah@growthco.com",
		Subject:     "Pricing question",
		Body:        "What is your pricing for the premium plan?",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := service.RespondEmail(context.Background(), e.ID, ""); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/emails/%s/escalate", e.ID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("escalate after respond status = %d, want 409", rec.Code)
	}
}

func TestInvoiceEndpoints(t *testing.T) {
	s, _ := newTestServer(t, ops.Options{})
	r := s.Router()

	rec := doJSON(t, r, http.MethodPost, "/api/invoices", map[string]any{
		"customer":      "Design Co",
		"customerEmail": "finance@design.co",
		"amount":        950,
		"dueDate":       "2026-08-28",
		"daysOverdue":   3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	inv := decode[store.Invoice](t, rec)
	if !strings.HasPrefix(inv.ID, "INV-") {
		t.Errorf("id = %q", inv.ID)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/invoices/"+inv.ID+"/next-action", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("next-action status = %d", rec.Code)
	}
	advisory := decode[struct {
		Invoice store.Invoice        `json:"invoice"`
		Action  engine.InvoiceAction `json:"action"`
	}](t, rec)
	if advisory.Action.Code != engine.InvoiceActionFriendlyReminder {
		t.Errorf("action = %q, want %q", advisory.Action.Code, engine.InvoiceActionFriendlyReminder)
	}
	if advisory.Invoice.Status != store.InvoicePending {
		t.Errorf("next-action mutated status to %s", advisory.Invoice.Status)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/invoices/"+inv.ID+"/remind", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remind status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	reminded := decode[store.Invoice](t, rec)
	if reminded.Status != store.InvoiceReminderSent || reminded.ReminderCount != 1 {
		t.Errorf("after remind: status=%s count=%d", reminded.Status, reminded.ReminderCount)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/invoices/"+inv.ID+"/mark-paid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark-paid status = %d", rec.Code)
	}
	paid := decode[store.Invoice](t, rec)
	if paid.Status != store.InvoicePaid || paid.DaysOverdue != 0 {
		t.Errorf("after mark-paid: status=%s daysOverdue=%d", paid.Status, paid.DaysOverdue)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/invoices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decode[[]store.Invoice](t, rec)
	if len(list) != 1 {
		t.Errorf("list has %d invoices, want 1", len(list))
	}

	rec = doJSON(t, r, http.MethodPost, "/api/invoices", map[string]any{"customer": "No Amount"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid create status = %d, want 400", rec.Code)
	}
}

func TestActivitiesLimit(t *testing.T) {
	s, service := newTestServer(t, ops.Options{})
	r := s.Router()

	for i := 0; i < 3; i++ {
		_, _, err := service.IngestEmail(ops.IngestEmailInput{
			Sender:      "Sender",
			SenderEmail: "s@example.com",
			Subject:     fmt.Sprintf("Pricing question %d", i),
			Body:        "What does the plan cost?",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, r, http.MethodGet, "/api/activities?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	activities := decode[[]store.Activity](t, rec)
	if len(activities) != 2 {
		t.Errorf("got %d activities, want 2", len(activities))
	}

	rec = doJSON(t, r, http.MethodGet, "/api/activities?limit=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestPolicyEndpoints(t *testing.T) {
	s, _ := newTestServer(t, ops.Options{})
	r := s.Router()

	rec := doJSON(t, r, http.MethodPost, "/api/policies", map[string]string{
		"rule": "Always escalate refund requests over $500",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	policy := decode[store.Policy](t, rec)
	if !policy.Active {
		t.Error("new policy should be active")
	}

	rec = doJSON(t, r, http.MethodPost, "/api/policies", map[string]string{"rule": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank rule status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/policies/"+policy.ID+"/toggle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	toggled := decode[store.Policy](t, rec)
	if toggled.Active {
		t.Error("policy should be inactive after toggle")
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/policies/"+policy.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	result := decode[map[string]bool](t, rec)
	if !result["success"] {
		t.Errorf("delete body = %v", result)
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/policies/"+policy.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, service := newTestServer(t, ops.Options{})

	if _, err := service.CreateInvoice(ops.CreateInvoiceInput{
		Customer: "Design Co", Amount: 950, DueDate: "2026-08-28", DaysOverdue: 3,
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s.Router(), http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decode[store.Stats](t, rec)
	if stats.InvoicesPending != 1 || stats.TotalOutstanding != 950 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, ops.Options{})
	s.rateLimiter = NewRateLimiter(2, time.Minute)
	r := s.Router()

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, r, http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := doJSON(t, r, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}
