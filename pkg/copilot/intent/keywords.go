package intent

import "strings"

// Keyword tables for the deterministic fallback classifier.
var (
	complaintKeywords = []string{
		"complaint", "problem", "issue", "bug", "error", "wrong",
		"failed", "broken", "frustrated", "disappointed", "charged",
		"overcharged", "unacceptable", "worst",
	}
	featureKeywords = []string{
		"feature", "enhancement", "improve", "add", "new", "dashboard",
	}
	serviceKeywords = []string{
		"request", "need", "want", "help", "support", "service",
		"assistance", "configure", "setup",
	}

	highUrgencyKeywords = []string{
		"urgent", "emergency", "critical", "immediately", "asap",
		"system down", "not working", "broken", "crisis", "blocking",
	}
	lowUrgencyKeywords = []string{
		"whenever", "no rush", "low priority", "eventually", "minor",
		"nice to have", "future", "suggestion", "improvement",
	}

	positiveWords = []string{
		"great", "excellent", "amazing", "love", "perfect", "wonderful",
		"fantastic", "awesome", "satisfied", "happy", "pleased", "good",
	}
	negativeWords = []string{
		"terrible", "awful", "hate", "worst", "horrible", "frustrated",
		"angry", "disappointed", "bad", "broken", "useless", "annoying",
	}
)

// KeywordClassify is the deterministic fallback used when the model output
// cannot be parsed. Confidence is pinned at 0.6, which is exactly the default
// escalation floor, so an unambiguous keyword match still qualifies for
// ticket creation while anything scored lower does not.
func KeywordClassify(query string) Result {
	lower := strings.ToLower(query)

	return Result{
		Intent:     classifyIntentKeywords(lower),
		Urgency:    classifyUrgencyKeywords(lower),
		Sentiment:  classifySentimentKeywords(lower),
		Confidence: 0.6,
	}
}

func classifyIntentKeywords(lower string) Intent {
	if containsAny(lower, complaintKeywords) {
		return IntentComplaint
	}
	if containsAny(lower, featureKeywords) {
		return IntentFeatureRequest
	}
	if containsAny(lower, serviceKeywords) {
		return IntentServiceRequest
	}
	return IntentQuery
}

func classifyUrgencyKeywords(lower string) string {
	if containsAny(lower, highUrgencyKeywords) {
		return UrgencyHigh
	}
	if containsAny(lower, lowUrgencyKeywords) {
		return UrgencyLow
	}
	if containsAny(lower, []string{"help", "issue", "problem", "error"}) {
		return UrgencyMedium
	}
	return UrgencyLow
}

func classifySentimentKeywords(lower string) string {
	positive := countMatches(lower, positiveWords)
	negative := countMatches(lower, negativeWords)

	switch {
	case negative > positive:
		return SentimentNegative
	case positive > negative:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func countMatches(s string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n
}
