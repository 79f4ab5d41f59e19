package assistant

import (
	"regexp"
	"strings"
)

// FAQEntry is one question/answer pair from the product FAQ catalog.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DefaultFAQ returns the fixed catalog served by GET /faqs and scanned by the
// matcher. The copy is product text; do not reflow it.
func DefaultFAQ() []FAQEntry {
	return []FAQEntry{
		{
			Question: "What is DermaSenseAI and how does it work?",
			Answer:   "DermaSenseAI is an AI-powered dermatology platform that analyzes skin images along with patient context to provide preliminary assessments and risk stratification. It generates explainable visual heatmaps and confidence scores to support clinical decision-making.",
		},
		{
			Question: "Is DermaSenseAI a diagnostic tool?",
			Answer:   "DermaSenseAI provides clinical decision support and preliminary assessments. It is not a substitute for professional medical diagnosis or treatment. Final diagnosis and care decisions should always be made by licensed clinicians.",
		},
		{
			Question: "How accurate is the AI?",
			Answer:   "Our models achieve accuracy exceeding 98%, sensitivity over 97%, and specificity above 96% across validated datasets. Actual performance may vary by image quality, device type, and clinical context.",
		},
		{
			Question: "How is my data protected?",
			Answer:   "We use AES-256 encryption for data at rest, TLS 1.3 for data in transit, and maintain encrypted, redundant backups. Access is enforced via role-based controls and all access is recorded through immutable audit trails.",
		},
		{
			Question: "Is DermaSenseAI compliant with healthcare regulations?",
			Answer:   "Yes. DermaSenseAI is designed to meet HIPAA and GDPR requirements. We also maintain SOC 2 Type II and ISO 27001-aligned security controls to safeguard sensitive health information.",
		},
		{
			Question: "Can DermaSenseAI integrate with my clinical systems?",
			Answer:   "Yes. We support standards-based interoperability (including FHIR) and offer APIs to integrate with EHRs and clinical photography systems. Our solutions team can assist with custom integrations.",
		},
	}
}

// NoMatch is returned by Matcher.Match when no entry clears the threshold.
const NoMatch = -1

// DefaultMinScore is the overlap score an entry must reach to be accepted.
// Deliberately low: the catalog is six entries, not a corpus.
const DefaultMinScore = 2

// Matcher scores free text against an FAQ catalog using keyword overlap plus
// a whole-phrase containment bonus. It is a crude bag-of-words heuristic by
// design: no stemming, no term weighting, no semantic similarity.
//
// The zero value matches against DefaultFAQ with DefaultMinScore.
type Matcher struct {
	// Entries is the catalog to score against; nil means DefaultFAQ().
	Entries []FAQEntry
	// MinScore is the acceptance threshold; values < 1 default to
	// DefaultMinScore.
	MinScore int

	corpora []string // lowercase question+answer per entry, built lazily
}

// NewMatcher builds a Matcher over entries with the given threshold, eagerly
// precomputing the per-entry corpora.
func NewMatcher(entries []FAQEntry, minScore int) *Matcher {
	m := &Matcher{Entries: entries, MinScore: minScore}
	m.build()
	return m
}

func (m *Matcher) build() {
	if m.Entries == nil {
		m.Entries = DefaultFAQ()
	}
	m.corpora = make([]string, len(m.Entries))
	for i, e := range m.Entries {
		m.corpora[i] = strings.ToLower(e.Question + " " + e.Answer)
	}
}

var faqWordRE = regexp.MustCompile(`[a-z0-9]+`)

// Match returns the index of the best-scoring entry, or NoMatch when the best
// score falls below the threshold.
//
// Scoring per entry: +1 for each distinct lowercase alphanumeric input token
// longer than 3 characters that appears as a substring of the entry corpus,
// +3 when the corpus contains the entire lowercase input. Strictly higher
// scores win; ties keep the earliest entry.
func (m *Matcher) Match(text string) int {
	if m.corpora == nil {
		m.build()
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return NoMatch
	}

	tokens := faqWordRE.FindAllString(lower, -1)
	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) <= 3 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		keywords = append(keywords, t)
	}

	best, bestScore := NoMatch, 0
	for i, corpus := range m.corpora {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(corpus, kw) {
				score++
			}
		}
		if strings.Contains(corpus, lower) {
			score += 3
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	min := m.MinScore
	if min < 1 {
		min = DefaultMinScore
	}
	if bestScore < min {
		return NoMatch
	}
	return best
}
