package prompt

import "testing"

func TestRenderSubstitutesAllOccurrences(t *testing.T) {
	out := Render("Hi {name}. Again: {name}. Topic {topic}.", map[string]string{"name": "Ann"})
	want := "Hi Ann. Again: Ann. Topic {topic}."
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestRenderLeavesUnresolvedLiteral(t *testing.T) {
	out := Render("Hello {name}, topic {topic}", map[string]string{"name": "Ann"})
	if out != "Hello Ann, topic {topic}" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderNoRecursiveExpansion(t *testing.T) {
	out := Render("value: {a}", map[string]string{"a": "{b}", "b": "boom"})
	if out != "value: {b}" {
		t.Fatalf("replacement value was re-expanded: %q", out)
	}
}

func TestRenderEmptyValues(t *testing.T) {
	if out := Render("plain text, no placeholders", nil); out != "plain text, no placeholders" {
		t.Fatalf("got %q", out)
	}
	if out := Render("{x}", map[string]string{"x": ""}); out != "" {
		t.Fatalf("empty value should substitute, got %q", out)
	}
}

func TestKnownUseCase(t *testing.T) {
	for _, uc := range []string{UseCaseObjectiveAnalysis, UseCaseFirstQuestion, UseCaseProbing, UseCaseInsightSynthesis, UseCaseChat} {
		if !KnownUseCase(uc) {
			t.Fatalf("use case %q should be known", uc)
		}
	}
	if KnownUseCase("bogus") {
		t.Fatalf("bogus use case accepted")
	}
}
