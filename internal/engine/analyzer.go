package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
)

// Analysis is the full decision produced for an incoming message.
type Analysis struct {
	Classification    string  `json:"classification"`
	Confidence        float64 `json:"confidence"`
	SuggestedResponse string  `json:"suggestedResponse"`
	Reasoning         string  `json:"reasoning"`
	SuggestedAction   string  `json:"suggestedAction"`
}

// Suggested actions attached to an analysis.
const (
	ActionRespondAutomatically = "respond_automatically"
	ActionEscalateForReview    = "escalate_for_review"
)

// Confidence scoring constants. Confidence starts at the base, gains
// a step per keyword hit, picks up a small jitter, and is capped so
// the engine never claims certainty.
const (
	confidenceBase   = 0.65
	confidenceStep   = 0.10
	confidenceJitter = 0.05
	confidenceMax    = 0.95

	autoRespondThreshold = 0.85
	reviewThreshold      = 0.75
)

// Analyzer classifies messages and produces suggested responses.
// The random source is injected so tests can pin the jitter.
type Analyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAnalyzer creates an Analyzer backed by the given random source.
func NewAnalyzer(src rand.Source) *Analyzer {
	return &Analyzer{rng: rand.New(src)}
}

// Analyze classifies a message and assembles the complete analysis:
// category, confidence, suggested response, reasoning, and whether
// the message is safe to answer automatically.
func (a *Analyzer) Analyze(sender, subject, body string) Analysis {
	category, score := Classify(subject, body)

	a.mu.Lock()
	jitter := a.rng.Float64()*(2*confidenceJitter) - confidenceJitter
	a.mu.Unlock()

	confidence := confidenceBase + float64(score)*confidenceStep + jitter
	confidence = math.Min(confidenceMax, confidence)
	confidence = math.Round(confidence*100) / 100

	action := ActionEscalateForReview
	if confidence > autoRespondThreshold {
		action = ActionRespondAutomatically
	}

	return Analysis{
		Classification:    category,
		Confidence:        confidence,
		SuggestedResponse: SuggestResponse(category, sender),
		Reasoning:         reasoning(category, confidence),
		SuggestedAction:   action,
	}
}

// reasoning builds the human-readable explanation for a decision.
func reasoning(category string, confidence float64) string {
	base := fmt.Sprintf("Detected keywords related to %s. ", strings.ToLower(category))
	switch {
	case confidence > autoRespondThreshold:
		return base + "High confidence based on clear intent indicators."
	case confidence > 0.70:
		return base + "Medium confidence. May need human review for edge cases."
	default:
		return base + "Lower confidence. Recommend human review before responding."
	}
}

// ShouldEscalate reports whether a classified message must be routed
// to a human. Refunds and complaints always escalate regardless of
// confidence; everything else escalates when confidence drops below
// the review threshold.
func ShouldEscalate(classification string, confidence float64) bool {
	if strings.Contains(classification, "Refund Request") {
		return true
	}
	if strings.Contains(classification, "Complaint") {
		return true
	}
	return confidence < reviewThreshold
}
