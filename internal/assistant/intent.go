// Package assistant implements the rule-based reply engine behind the
// DermaSenseAI chat endpoints: intent classification, FAQ matching, canned
// response composition, and parsing of free-form model output into structured
// analysis results.
//
// The package is intentionally small and dependency-free, with production
// ergonomics in mind:
//
//   - No logging in the library (callers decide how/what to log)
//   - Pure, deterministic functions over input text
//   - Tunable constants (FAQ threshold, default confidence) exposed as fields
//     rather than buried in code
//
// Classification is an ordered table of (pattern, Intent) pairs evaluated
// top to bottom; the first match wins. Adding a category is a table edit,
// not a new branch.
package assistant

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Intent is the category assigned to a user message. It drives which canned
// reply the composer selects.
type Intent int

const (
	// IntentUnresolved means no rule matched; the FAQ matcher gets a turn.
	IntentUnresolved Intent = iota
	IntentGreeting
	IntentClosing
	IntentPricing
	IntentSecurity
	IntentIntegration
	IntentAccuracy
	IntentBlockchain
	// IntentLongFreeform marks long rambling questions that are deferred to a
	// human follow-up rather than keyword-matched.
	IntentLongFreeform
)

// String returns a stable lowercase name, used in logs and tests.
func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentClosing:
		return "closing"
	case IntentPricing:
		return "pricing"
	case IntentSecurity:
		return "security"
	case IntentIntegration:
		return "integration"
	case IntentAccuracy:
		return "accuracy"
	case IntentBlockchain:
		return "blockchain"
	case IntentLongFreeform:
		return "long_freeform"
	default:
		return "unresolved"
	}
}

// Long-message thresholds. Messages beyond either bound are deferred instead
// of keyword-matched.
const (
	longFreeformRunes  = 160
	longFreeformTokens = 30
)

// intentRules is evaluated in order; earlier rows take precedence. Closing
// outranks Greeting so "no thanks, bye" ends the exchange instead of
// restarting it.
var intentRules = []struct {
	re     *regexp.Regexp
	intent Intent
}{
	{regexp.MustCompile(`(?i)(^\s*(no|nope)\b|\b(thanks|thank you|that'?s all|bye|goodbye|cheers|all good)\b)`), IntentClosing},
	{regexp.MustCompile(`(?i)\b(hi|hello|hey|good\s?(morning|afternoon|evening))\b`), IntentGreeting},
	{regexp.MustCompile(`(?i)\b(price|pricing|cost|plans)\b`), IntentPricing},
	{regexp.MustCompile(`(?i)\b(security|privacy|hipaa|gdpr|compliance|soc\s?2|iso)\b`), IntentSecurity},
	{regexp.MustCompile(`(?i)\b(integration|ehr|fhir|api)\b`), IntentIntegration},
	{regexp.MustCompile(`(?i)\b(accuracy|sensitivity|specificity|performance)\b`), IntentAccuracy},
	{regexp.MustCompile(`(?i)\b(blockchain|audit|verification)\b`), IntentBlockchain},
}

// Classify assigns an Intent to raw user text.
//
// The keyword table is consulted first; if nothing matches, messages longer
// than 160 runes or 30 whitespace-delimited tokens become IntentLongFreeform,
// and everything else is IntentUnresolved. The function is a pure function of
// its input.
func Classify(text string) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return IntentUnresolved
	}

	for _, r := range intentRules {
		if r.re.MatchString(trimmed) {
			return r.intent
		}
	}

	if utf8.RuneCountInString(trimmed) > longFreeformRunes || len(strings.Fields(trimmed)) > longFreeformTokens {
		return IntentLongFreeform
	}
	return IntentUnresolved
}
