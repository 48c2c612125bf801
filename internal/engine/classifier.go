package engine

import (
	"strings"
)

// Category names for incoming messages. Order matters: when two
// categories score equally, the earlier one wins.
const (
	CategoryPricing     = "New Lead - Pricing Inquiry"
	CategoryDemo        = "New Lead - Demo Request"
	CategoryScheduling  = "Existing Client - Scheduling"
	CategoryRefund      = "Customer Issue - Refund Request"
	CategoryComplaint   = "Customer Issue - Complaint"
	CategoryPayment     = "Payment Issue - Delay Notification"
	CategoryPartnership = "Business Development - Partnership"
	CategoryGeneral     = "General Inquiry"
)

// categoryKeywords maps each category to the keywords that signal it.
// General Inquiry has no keywords; it is the fallback when nothing
// else matches.
var categoryKeywords = []struct {
	Category string
	Keywords []string
}{
	{CategoryPricing, []string{"pricing", "cost", "price", "plan", "subscription"}},
	{CategoryDemo, []string{"demo", "trial", "test", "try"}},
	{CategoryScheduling, []string{"meeting", "schedule", "reschedule", "calendar", "time"}},
	{CategoryRefund, []string{"refund", "return", "money back"}},
	{CategoryComplaint, []string{"complaint", "unhappy", "disappointed", "issue"}},
	{CategoryPayment, []string{"payment", "delay", "invoice", "pay"}},
	{CategoryPartnership, []string{"partner", "partnership", "collaborate"}},
	{CategoryGeneral, nil},
}

// Categories returns all known category names in priority order.
func Categories() []string {
	out := make([]string, len(categoryKeywords))
	for i, c := range categoryKeywords {
		out[i] = c.Category
	}
	return out
}

// Classify scores the subject and body against every category's
// keyword list and returns the best category with its keyword hit
// count. A category only displaces the current best with a strictly
// greater score, so ties resolve to the earlier category and a
// no-hit message falls through to General Inquiry with score 0.
func Classify(subject, body string) (category string, score int) {
	content := strings.ToLower(subject + " " + body)

	category = CategoryGeneral
	score = 0
	for _, c := range categoryKeywords {
		hits := 0
		for _, kw := range c.Keywords {
			if strings.Contains(content, kw) {
				hits++
			}
		}
		if hits > score {
			score = hits
			category = c.Category
		}
	}
	return category, score
}
