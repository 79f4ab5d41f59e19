package assistant

import "context"

// Turn is one prior exchange entry handed to a provider for context. It is a
// transport-neutral projection of a stored message.
type Turn struct {
	Role    string
	Content string
}

// ReplyProvider produces the assistant turn for a user prompt. Two
// implementations exist: the remote inference client and the local Engine.
// The service layer selects one at startup and degrades to the Engine when
// the remote fails, so callers always receive a reply.
type ReplyProvider interface {
	Reply(ctx context.Context, prompt string, history []Turn) (Reply, error)
}

// Engine is the offline heuristic provider: classify, match against the FAQ
// catalog, compose. It never returns an error and ignores history; the rule
// tables carry all the context it uses.
type Engine struct {
	matcher  *Matcher
	composer *Composer
}

// NewEngine builds an Engine over the given catalog and FAQ threshold. A nil
// catalog means DefaultFAQ(); minScore < 1 means DefaultMinScore.
func NewEngine(faq []FAQEntry, minScore int) *Engine {
	if faq == nil {
		faq = DefaultFAQ()
	}
	return &Engine{
		matcher:  NewMatcher(faq, minScore),
		composer: &Composer{FAQ: faq},
	}
}

// Reply implements ReplyProvider.
func (e *Engine) Reply(_ context.Context, prompt string, _ []Turn) (Reply, error) {
	intent := Classify(prompt)
	faqIdx := NoMatch
	if intent == IntentUnresolved {
		faqIdx = e.matcher.Match(prompt)
	}
	return e.composer.Compose(intent, faqIdx, prompt), nil
}

// OfflineImageAnalysis is the canned analysis text used when no remote
// inference service is configured or the call fails. It is deliberately
// generic guidance; Parser.Parse structures it like any model output.
func OfflineImageAnalysis(filename string) string {
	return "**Analysis for " + filename + "**\n\n" +
		"I've received your dermatological image. Here is general guidance while a clinician review is pending:\n\n" +
		"1. **Color** - Note any unusual pigmentation, redness, or discoloration\n" +
		"2. **Texture** - Rough, smooth, scaly, or bumpy areas\n" +
		"3. **Size and shape** - Diameter, irregular borders, asymmetry, and any changes over time\n" +
		"4. **Symptoms** - Itching, pain, burning, or tenderness\n\n" +
		"I recommend documenting any changes with photos and dates, and monitoring for the ABCDE signs of melanoma.\n" +
		"You should consult a qualified dermatologist for any new or changing lesion, persistent irritation lasting more than two weeks, or signs of infection.\n\n" +
		"**Important:** This is educational guidance only, not a medical diagnosis."
}

// OfflinePDFAnalysis is the document-flavored counterpart of
// OfflineImageAnalysis.
func OfflinePDFAnalysis(filename string) string {
	return "**Document Analysis for " + filename + "**\n\n" +
		"I've received your medical document. Key areas typically reviewed in dermatological reports:\n\n" +
		"1. **Patient history** - Previous conditions, treatments, family history\n" +
		"2. **Clinical findings** - Visual examination results and measurements\n" +
		"3. **Diagnostic tests** - Biopsy results and imaging findings\n" +
		"4. **Treatment plan** - Medications, procedures, and follow-up\n\n" +
		"I suggest reviewing the document with your healthcare provider, and you should ask about any unclear medical terminology.\n\n" +
		"**Important:** This is educational guidance for document review, not an interpretation of your results."
}
