// Package policy implements the responsible-AI gate: topic appropriateness
// checks before delegation and advisory response-quality review after.
package policy

import "strings"

// DefaultProhibitedTopics is the stock topic blocklist. Matching is
// case-insensitive substring containment; a query touching any entry is
// rejected before it reaches the executor.
var DefaultProhibitedTopics = []string{
	"violence",
	"hate speech",
	"discrimination",
	"illegal activities",
	"self-harm",
	"harassment",
	"misinformation",
	"private information",
}

// biasIndicators are absolutist terms worth flagging in generated output.
var biasIndicators = []string{"always", "never", "all", "none", "everyone", "no one"}

// uncertaintyWords acknowledge model limitations; long responses missing all
// of them get a recommendation.
var uncertaintyWords = []string{"might", "could", "possibly", "uncertain", "unclear"}

const (
	minResponseLength = 50
	maxResponseLength = 2000

	// uncertaintyCheckLength is the response size above which a missing
	// uncertainty acknowledgment is worth a recommendation.
	uncertaintyCheckLength = 100

	// TransparencyThreshold is the response size above which the Gatekeeper
	// appends the transparency notice.
	TransparencyThreshold = 200
)

// Analysis is the advisory output of a response-quality review. It is
// attached to audit records and never blocks delivery.
type Analysis struct {
	BiasIndicators  []string `json:"bias_indicators"`
	ConfidenceLevel string   `json:"confidence_level"`
	Recommendations []string `json:"recommendations"`
}

// Gate evaluates queries and responses against a fixed topic policy. Safe
// for concurrent use; the topic list is immutable after construction.
type Gate struct {
	prohibited []string
}

// New builds a Gate. An empty topic list falls back to the defaults; passing
// topics overrides the whole list.
func New(prohibitedTopics []string) *Gate {
	topics := prohibitedTopics
	if len(topics) == 0 {
		topics = DefaultProhibitedTopics
	}
	lowered := make([]string, len(topics))
	for i, t := range topics {
		lowered[i] = strings.ToLower(t)
	}
	return &Gate{prohibited: lowered}
}

// CheckAppropriateness rejects queries touching prohibited topics, with one
// warning per matched topic.
func (g *Gate) CheckAppropriateness(query string) (bool, []string) {
	var warnings []string
	lower := strings.ToLower(query)
	for _, topic := range g.prohibited {
		if strings.Contains(lower, topic) {
			warnings = append(warnings, "query contains prohibited topic: "+topic)
		}
	}
	return len(warnings) == 0, warnings
}

// ReviewResponseQuality flags absolutist language, length extremes, and
// missing uncertainty acknowledgment. Heuristic and non-blocking.
func (g *Gate) ReviewResponseQuality(response string) Analysis {
	analysis := Analysis{ConfidenceLevel: "medium"}
	lower := strings.ToLower(response)

	for _, indicator := range biasIndicators {
		if containsWord(lower, indicator) {
			analysis.BiasIndicators = append(analysis.BiasIndicators, indicator)
		}
	}

	switch {
	case len(response) < minResponseLength:
		analysis.Recommendations = append(analysis.Recommendations, "response might be too brief")
	case len(response) > maxResponseLength:
		analysis.Recommendations = append(analysis.Recommendations, "response might be too verbose")
	}

	if len(response) > uncertaintyCheckLength && !containsAny(lower, uncertaintyWords) {
		analysis.Recommendations = append(analysis.Recommendations, "consider acknowledging uncertainty")
	}

	return analysis
}

// TransparencyNotice returns the fixed disclosure appended to long responses.
func (g *Gate) TransparencyNotice() string {
	return strings.Join([]string{
		"AI Transparency Notice:",
		"- Responses are AI-generated from available data and may be incomplete.",
		"- Verify important information through official channels.",
		"- The assistant has limitations and potential biases; apply critical thinking.",
		"- Interactions may be logged for quality and security monitoring.",
	}, "\n")
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// containsWord matches a needle on word boundaries so "all" does not fire on
// "finally" or "allocation".
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
