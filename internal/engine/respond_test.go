package engine

import (
	"strings"
	"testing"
)

func TestSuggestResponse(t *testing.T) {
	tests := []struct {
		name     string
		category string
		sender   string
		contains string
	}{
		{"pricing uses first name", CategoryPricing, "Sarah Mitchell", "Hi Sarah,"},
		{"pricing mentions plan", CategoryPricing, "Sarah Mitchell", "$300/month"},
		{"demo offers times", CategoryDemo, "Tom Baker", "Tuesday at 2pm"},
		{"refund acknowledges escalation", CategoryRefund, "Jennifer Wu", "escalated your request"},
		{"complaint promises follow-up", CategoryComplaint, "Ann Lee", "within 24 hours"},
		{"empty sender falls back to there", CategoryGeneral, "", "Hi there,"},
		{"whitespace sender falls back to there", CategoryGeneral, "   ", "Hi there,"},
		{"unknown category falls back to general", "Some Future Category", "Bob", "thanks for your message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestResponse(tt.category, tt.sender)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("response %q does not contain %q", got, tt.contains)
			}
			if strings.Contains(got, "{name}") {
				t.Errorf("placeholder left unfilled: %q", got)
			}
		})
	}
}

func TestSuggestResponseCoversAllCategories(t *testing.T) {
	for _, cat := range Categories() {
		if _, ok := responseTemplates[cat]; !ok {
			t.Errorf("no response template for %q", cat)
		}
	}
}

func TestFirstName(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"Sarah Mitchell", "Sarah"},
		{"Sarah", "Sarah"},
		{"  Sarah   Mitchell  ", "Sarah"},
		{"", "there"},
		{"   ", "there"},
	}
	for _, tt := range tests {
		if got := FirstName(tt.sender); got != tt.want {
			t.Errorf("FirstName(%q) = %q, want %q", tt.sender, got, tt.want)
		}
	}
}
