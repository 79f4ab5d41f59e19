package assistant

// Reply is a composed assistant turn: the reply text plus up to three
// quick-reply suggestion chips the UI may render under it.
type Reply struct {
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Canned reply catalog. One paragraph and one or two suggestion chips per
// resolved intent; the copy mirrors the marketing site.
var cannedReplies = map[Intent]Reply{
	IntentGreeting: {
		Text:        "Hello! How can I help you today with DermaSenseAI?",
		Suggestions: []string{"How does the analysis work?", "Is my data secure?", "What does it cost?"},
	},
	IntentClosing: {
		Text: "Have a good day!",
	},
	IntentPricing: {
		Text:        "We offer flexible plans for clinics and organizations. Please contact our team for tailored pricing details.",
		Suggestions: []string{"Contact sales", "Compare plans"},
	},
	IntentSecurity: {
		Text:        "We use AES-256 encryption at rest, TLS 1.3 in transit, role-based access, and immutable audit trails to safeguard your data. DermaSenseAI is designed to meet HIPAA and GDPR requirements.",
		Suggestions: []string{"Read the security overview", "Ask about compliance"},
	},
	IntentIntegration: {
		Text:        "DermaSenseAI supports standards-based interoperability, including FHIR, and offers APIs to integrate with EHRs and clinical photography systems. Our solutions team can assist with custom integrations.",
		Suggestions: []string{"View API documentation", "Talk to solutions team"},
	},
	IntentAccuracy: {
		Text:        "Our models achieve accuracy exceeding 98%, sensitivity over 97%, and specificity above 96% across validated datasets. Actual performance may vary by image quality, device type, and clinical context.",
		Suggestions: []string{"How is accuracy validated?", "See model performance"},
	},
	IntentBlockchain: {
		Text:        "Our blockchain approach logs diagnostic events immutably for transparency and verification while keeping sensitive data encrypted and private.",
		Suggestions: []string{"How does verification work?", "Ask about audit trails"},
	},
}

// Generic chips attached to FAQ answers and deferrals.
var genericSuggestions = []string{"Show more FAQs", "Contact support"}

// Deferral copy. The long-form variant mentions forwarding to a human team;
// the short variant is the plain "we'll get back to you" answer.
const (
	deferralShort = "Thank you for your question. Our team will get back to you with more information. Is there anything else I can help you with?"
	deferralLong  = "Thank you for the detailed question. I've forwarded it to our team, who will get back to you with a thorough answer. Is there anything else I can help you with?"
)

// Composer turns a classified intent (and an optional FAQ match) into the
// final reply. It holds the FAQ catalog so an accepted match index can be
// dereferenced to its answer text.
type Composer struct {
	// FAQ is the catalog consulted for matched answers; nil means DefaultFAQ().
	FAQ []FAQEntry
}

// Compose builds the reply for one exchange.
//
// Resolved intents map to their canned paragraph. IntentUnresolved with a
// valid faqIdx returns that entry's literal answer. IntentUnresolved without
// a match and IntentLongFreeform return the two deferral messages, which
// differ only in wording. Compose has no side effects; typing delays and
// message persistence are the caller's concern.
func (c *Composer) Compose(intent Intent, faqIdx int, rawText string) Reply {
	if r, ok := cannedReplies[intent]; ok {
		return r
	}

	if intent == IntentLongFreeform {
		return Reply{Text: deferralLong, Suggestions: genericSuggestions}
	}

	faq := c.FAQ
	if faq == nil {
		faq = DefaultFAQ()
	}
	if faqIdx >= 0 && faqIdx < len(faq) {
		return Reply{Text: faq[faqIdx].Answer, Suggestions: genericSuggestions}
	}
	return Reply{Text: deferralShort, Suggestions: genericSuggestions}
}
