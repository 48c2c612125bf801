package engine

import "strings"

// responseTemplates holds the canned reply for each category. The
// {name} placeholder is filled with the sender's first name.
var responseTemplates = map[string]string{
	CategoryPricing:     "Hi {name}, great to hear from you! Thanks for reaching out about Pepper. I'd be happy to answer your pricing questions. The Pro plan is $300/month and includes unlimited everything. Would you like to schedule a quick demo?",
	CategoryDemo:        "Hi {name}, thanks for your interest in Pepper! I'd love to show you how it works. I have availability this week - would Tuesday at 2pm or Wednesday at 10am work for you?",
	CategoryScheduling:  "Hi {name}, no problem at all! I've noted your scheduling request. Let me check availability and get back to you with some options shortly.",
	CategoryRefund:      "Hi {name}, I'm sorry to hear that. I've escalated your request to our team. Someone will be in touch shortly to help resolve this.",
	CategoryComplaint:   "Hi {name}, I'm truly sorry to hear about your experience. Your feedback is important to us. I've flagged this for immediate attention and someone will reach out within 24 hours.",
	CategoryPayment:     "Hi {name}, thanks for the heads up. I've noted the delay in our records. We appreciate you keeping us informed. Please let me know if there's anything else I can help with.",
	CategoryPartnership: "Hi {name}, thanks for reaching out! Partnership opportunities are always exciting. I'd love to learn more about what you have in mind. Could we schedule a call this week?",
	CategoryGeneral:     "Hi {name}, thanks for your message! I'll review this and get back to you shortly. Is there anything specific you'd like me to address?",
}

// SuggestResponse renders the template for the given category,
// addressing the sender by first name. Unknown categories fall back
// to the General Inquiry template.
func SuggestResponse(category, sender string) string {
	tmpl, ok := responseTemplates[category]
	if !ok {
		tmpl = responseTemplates[CategoryGeneral]
	}
	return strings.ReplaceAll(tmpl, "{name}", FirstName(sender))
}

// FirstName extracts the first word of a sender's display name,
// falling back to "there" when the name is empty.
func FirstName(sender string) string {
	name := strings.Fields(strings.TrimSpace(sender))
	if len(name) == 0 {
		return "there"
	}
	return name[0]
}
