package assistant

import (
	"regexp"
	"strconv"
	"strings"
)

// AnalysisResult is the structured form of a free-text model response.
// Confidence is bounded to [0.5, 0.95] regardless of what the raw text
// claims; Recommendations carries at most five lines.
type AnalysisResult struct {
	Analysis          string   `json:"analysis"`
	Confidence        float64  `json:"confidence"`
	Recommendations   []string `json:"recommendations"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// Confidence bounds and the fallback when the text gives no signal.
const (
	MinConfidence     = 0.5
	MaxConfidence     = 0.95
	DefaultConfidence = 0.8
)

const maxRecommendations = 5

var (
	turnMarkerRE   = regexp.MustCompile(`<start_of_turn>|<end_of_turn>`)
	confidenceRE   = regexp.MustCompile(`(?i)confidence[:\s]+([0-9]+)%?`)
	recommendWords = []string{"recommend", "suggest", "advise", "should", "consider"}
)

// confidencePhrases maps hedging language to a score, checked in order: the
// strongest phrasing wins, so "highly likely" is not shadowed by "likely".
var confidencePhrases = []struct {
	phrases []string
	score   float64
}{
	{[]string{"highly likely", "very confident"}, 0.9},
	{[]string{"likely", "probable"}, 0.8},
	{[]string{"possible", "may be"}, 0.7},
	{[]string{"unclear", "uncertain"}, 0.6},
}

var defaultRecommendations = []string{
	"Consult with a dermatologist for proper diagnosis",
	"Monitor the condition for any changes",
}

var defaultFollowUps = []string{
	"Would you like me to explain any specific aspect in more detail?",
	"Do you have any other images or documents to analyze?",
}

const closingFollowUp = "Would you like information about treatment options?"

// Parser extracts an AnalysisResult from raw model output using keyword and
// regex heuristics. It is pure and deterministic: the same input text always
// yields the same result, and the parser does not care whether the text came
// from the remote model or the offline fallback.
type Parser struct {
	// Default is the confidence assumed when the text carries neither an
	// explicit "confidence: N%" marker nor a recognized hedging phrase.
	// Values <= 0 fall back to DefaultConfidence.
	Default float64
}

// Parse structures rawText.
//
// Steps: strip turn-delimiter markers and trim; collect up to five
// recommendation-flavored lines (default pair when none); resolve confidence
// from the explicit marker, then the phrase ladder, then the default, and
// clamp to [MinConfidence, MaxConfidence]; derive up to three follow-up
// questions from topic cues, always ending with the treatment-options
// question.
func (p Parser) Parse(rawText string) AnalysisResult {
	clean := strings.TrimSpace(turnMarkerRE.ReplaceAllString(rawText, ""))
	lower := strings.ToLower(clean)

	return AnalysisResult{
		Analysis:          clean,
		Confidence:        clampConfidence(p.extractConfidence(clean, lower)),
		Recommendations:   extractRecommendations(clean),
		FollowUpQuestions: buildFollowUps(lower),
	}
}

func (p Parser) extractConfidence(clean, lower string) float64 {
	if m := confidenceRE.FindStringSubmatch(clean); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return float64(n) / 100
		}
	}
	for _, band := range confidencePhrases {
		for _, ph := range band.phrases {
			if strings.Contains(lower, ph) {
				return band.score
			}
		}
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultConfidence
}

func extractRecommendations(clean string) []string {
	var recs []string
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lowerLine := strings.ToLower(line)
		for _, kw := range recommendWords {
			if strings.Contains(lowerLine, kw) {
				recs = append(recs, line)
				break
			}
		}
		if len(recs) == maxRecommendations {
			break
		}
	}
	if len(recs) == 0 {
		return append([]string(nil), defaultRecommendations...)
	}
	return recs
}

func buildFollowUps(lower string) []string {
	var qs []string
	if strings.Contains(lower, "skin") || strings.Contains(lower, "dermat") {
		qs = append(qs,
			"What specific symptoms have you noticed?",
			"How long have you had this condition?")
	}
	if strings.Contains(lower, "treatment") || strings.Contains(lower, "medication") {
		qs = append(qs, "Have you tried any treatments before?")
	}
	if strings.Contains(lower, "doctor") || strings.Contains(lower, "professional") {
		qs = append(qs, "Would you like help finding a dermatologist?")
	}
	if len(qs) == 0 {
		qs = append(qs, defaultFollowUps...)
	}
	qs = append(qs, closingFollowUp)
	if len(qs) > 3 {
		qs = qs[:3]
	}
	return qs
}

func clampConfidence(v float64) float64 {
	if v < MinConfidence {
		return MinConfidence
	}
	if v > MaxConfidence {
		return MaxConfidence
	}
	return v
}
