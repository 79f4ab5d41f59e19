package assistant

import "testing"

func TestCompose_ResolvedIntents(t *testing.T) {
	var c Composer
	for _, intent := range []Intent{
		IntentGreeting, IntentClosing, IntentPricing, IntentSecurity,
		IntentIntegration, IntentAccuracy, IntentBlockchain,
	} {
		r := c.Compose(intent, NoMatch, "whatever")
		if r.Text == "" {
			t.Fatalf("%v: empty canned reply", intent)
		}
		if len(r.Suggestions) > 3 {
			t.Fatalf("%v: %d suggestions, max is 3", intent, len(r.Suggestions))
		}
	}
}

func TestCompose_GreetingIsDeterministic(t *testing.T) {
	var c Composer
	first := c.Compose(IntentGreeting, NoMatch, "hello")
	for i := 0; i < 5; i++ {
		again := c.Compose(IntentGreeting, NoMatch, "hello")
		if again.Text != first.Text || len(again.Suggestions) != 3 {
			t.Fatalf("greeting reply changed between calls")
		}
	}
	if first.Text != "Hello! How can I help you today with DermaSenseAI?" {
		t.Fatalf("unexpected greeting copy: %q", first.Text)
	}
}

func TestCompose_FAQMatchReturnsLiteralAnswer(t *testing.T) {
	var c Composer
	faq := DefaultFAQ()
	r := c.Compose(IntentUnresolved, 2, "how accurate is it")
	if r.Text != faq[2].Answer {
		t.Fatalf("got %q, want the literal FAQ answer", r.Text)
	}
	if len(r.Suggestions) != 2 || r.Suggestions[0] != "Show more FAQs" {
		t.Fatalf("FAQ replies carry the generic suggestions, got %v", r.Suggestions)
	}
}

func TestCompose_DeferralsDiffer(t *testing.T) {
	var c Composer
	short := c.Compose(IntentUnresolved, NoMatch, "purple elephant")
	long := c.Compose(IntentLongFreeform, NoMatch, "a very long ramble")
	if short.Text == long.Text {
		t.Fatalf("short and long-form deferrals must differ")
	}
	if short.Text != deferralShort || long.Text != deferralLong {
		t.Fatalf("unexpected deferral copy")
	}
}

func TestCompose_OutOfRangeFAQIndexFallsBack(t *testing.T) {
	c := Composer{FAQ: DefaultFAQ()}
	r := c.Compose(IntentUnresolved, 42, "text")
	if r.Text != deferralShort {
		t.Fatalf("out-of-range index should produce the short deferral, got %q", r.Text)
	}
}
