package engine

import (
	"math"
	"math/rand"
	"strings"
	"testing"
)

// zeroSource pins Float64 to 0.5, which cancels the jitter term.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 1 << 62 }
func (zeroSource) Seed(int64)   {}

func TestAnalyzeConfidence(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		wantCat  string
		wantConf float64
	}{
		{
			name:     "zero hits gives base confidence",
			subject:  "Hello",
			body:     "Just saying hi",
			wantCat:  CategoryGeneral,
			wantConf: 0.65,
		},
		{
			name:     "one hit",
			subject:  "",
			body:     "Need a refund",
			wantCat:  CategoryRefund,
			wantConf: 0.75,
		},
		{
			name:     "two hits",
			subject:  "Refund",
			body:     "I want my money back",
			wantCat:  CategoryRefund,
			wantConf: 0.85,
		},
		{
			name:     "many hits capped at 0.95",
			subject:  "Invoice payment delay",
			body:     "payment delayed, will pay the invoice late",
			wantCat:  CategoryPayment,
			wantConf: 0.95,
		},
	}

	a := NewAnalyzer(zeroSource{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze("Jane Doe", tt.subject, tt.body)
			if got.Classification != tt.wantCat {
				t.Errorf("classification: got %q, want %q", got.Classification, tt.wantCat)
			}
			if math.Abs(got.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("confidence: got %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestAnalyzeConfidenceBounds(t *testing.T) {
	// Across many random draws the confidence stays within the jitter
	// band around the deterministic value and never exceeds the cap.
	a := NewAnalyzer(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		got := a.Analyze("Bob", "refund", "please")
		if got.Confidence < 0.70 || got.Confidence > 0.80 {
			t.Fatalf("confidence %v outside expected band [0.70, 0.80]", got.Confidence)
		}
		// Two decimal places only.
		if r := math.Round(got.Confidence*100) / 100; r != got.Confidence {
			t.Fatalf("confidence %v not rounded to two decimals", got.Confidence)
		}
	}
}

func TestAnalyzeCap(t *testing.T) {
	a := NewAnalyzer(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		got := a.Analyze("Ann", "meeting schedule reschedule calendar", "what time works?")
		if got.Confidence > confidenceMax {
			t.Fatalf("confidence %v exceeds cap %v", got.Confidence, confidenceMax)
		}
	}
}

func TestAnalyzeSuggestedAction(t *testing.T) {
	a := NewAnalyzer(zeroSource{})

	high := a.Analyze("Sam", "pricing", "cost of the plan")
	if high.SuggestedAction != ActionRespondAutomatically {
		t.Errorf("high confidence action: got %q, want %q", high.SuggestedAction, ActionRespondAutomatically)
	}

	low := a.Analyze("Sam", "hello", "just checking in")
	if low.SuggestedAction != ActionEscalateForReview {
		t.Errorf("low confidence action: got %q, want %q", low.SuggestedAction, ActionEscalateForReview)
	}
}

func TestAnalyzeReasoning(t *testing.T) {
	a := NewAnalyzer(zeroSource{})

	got := a.Analyze("Sam", "pricing plan", "cost?")
	if !strings.HasPrefix(got.Reasoning, "Detected keywords related to new lead - pricing inquiry.") {
		t.Errorf("reasoning prefix wrong: %q", got.Reasoning)
	}
	if !strings.Contains(got.Reasoning, "High confidence") {
		t.Errorf("expected high confidence reasoning, got %q", got.Reasoning)
	}

	mid := a.Analyze("Sam", "", "need a refund")
	if !strings.Contains(mid.Reasoning, "Medium confidence") {
		t.Errorf("expected medium confidence reasoning, got %q", mid.Reasoning)
	}

	low := a.Analyze("Sam", "", "hello")
	if !strings.Contains(low.Reasoning, "Lower confidence") {
		t.Errorf("expected lower confidence reasoning, got %q", low.Reasoning)
	}
}

func TestShouldEscalate(t *testing.T) {
	tests := []struct {
		name           string
		classification string
		confidence     float64
		want           bool
	}{
		{"refund always escalates", CategoryRefund, 0.95, true},
		{"complaint always escalates", CategoryComplaint, 0.95, true},
		{"low confidence escalates", CategoryPricing, 0.74, true},
		{"at threshold does not escalate", CategoryPricing, 0.75, false},
		{"high confidence pricing stays", CategoryPricing, 0.90, false},
		{"high confidence general stays", CategoryGeneral, 0.80, false},
		{"low confidence general escalates", CategoryGeneral, 0.65, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldEscalate(tt.classification, tt.confidence); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
