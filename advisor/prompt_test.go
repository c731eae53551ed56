package advisor

import (
	"errors"
	"strings"
	"testing"
)

var testQuestion = QuestionContext{Question: "What is the project goal?", Context: "Number the goals."}

func TestBuildSeedPrompt(t *testing.T) {
	p, err := BuildSeedPrompt(testQuestion, housingContext, "We build houses.")
	if err != nil {
		t.Fatalf("BuildSeedPrompt() error = %v", err)
	}
	if len(p.Messages) != 2 || p.Messages[0].Role != RoleSystem || p.Messages[1].Role != RoleUser {
		t.Fatalf("messages = %+v", p.Messages)
	}
	for _, want := range []string{persona, testQuestion.Question, testQuestion.Context, "instill reflection", housingContext} {
		if !strings.Contains(p.System(), want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if p.LastUser() != "We build houses." {
		t.Errorf("user = %q", p.LastUser())
	}

	if _, err := BuildSeedPrompt(testQuestion, "", "x"); !errors.Is(err, ErrMissingProjectContext) {
		t.Errorf("error = %v, want ErrMissingProjectContext", err)
	}
}

func TestBuildDeltaPrompt(t *testing.T) {
	prior := []AdviceItem{{Extract: "houses", Advice: "How many?"}, {Extract: "families", Advice: "Which families?"}}
	p, err := BuildDeltaPrompt(testQuestion, housingContext, prior, "We build ~~houses~~ **ten homes**.")
	if err != nil {
		t.Fatalf("BuildDeltaPrompt() error = %v", err)
	}
	sys := p.System()
	for _, want := range []string{"Extract: houses, Advice given: How many?", "Extract: families, Advice given: Which families?", "removing advice that has been fixed"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if p.LastUser() != "We build ~~houses~~ **ten homes**." {
		t.Errorf("user = %q", p.LastUser())
	}
	if _, err := BuildDeltaPrompt(testQuestion, " ", nil, "x"); !errors.Is(err, ErrMissingProjectContext) {
		t.Errorf("error = %v, want ErrMissingProjectContext", err)
	}
}

func TestBuildWholeTextPrompt(t *testing.T) {
	p, err := BuildWholeTextPrompt(map[string]QuestionContext{"2.0": testQuestion}, housingContext, map[string]string{
		"2.0": "second",
		"1.1": "first",
	})
	if err != nil {
		t.Fatalf("BuildWholeTextPrompt() error = %v", err)
	}
	want := "Paragraph ID: 1.1\nParagraph: first\nParagraph ID: 2.0\nQuestion: What is the project goal?\nParagraph: second"
	if p.LastUser() != want {
		t.Errorf("user =\n%s\nwant\n%s", p.LastUser(), want)
	}
}

func TestBuildScorePrompt(t *testing.T) {
	p, err := BuildScorePrompt(testQuestion, housingContext, "text")
	if err != nil {
		t.Fatalf("BuildScorePrompt() error = %v", err)
	}
	if !strings.Contains(p.System(), "Return only the score as a float.") {
		t.Error("score prompt lacks the format instruction")
	}
	if _, err := BuildScorePrompt(testQuestion, "", "text"); !errors.Is(err, ErrMissingProjectContext) {
		t.Errorf("error = %v, want ErrMissingProjectContext", err)
	}
}

func TestNewThreadAndReplyPrompt(t *testing.T) {
	th := NewThread("para", AdviceItem{ID: "a1", Extract: "ex", Advice: "adv"})
	if len(th) != threadSeedLen {
		t.Fatalf("len = %d, want %d", len(th), threadSeedLen)
	}
	if th[2].Content != "Considering the following extract of your paragraph: ex\nadv" {
		t.Errorf("assistant seed = %q", th[2].Content)
	}

	p := BuildReplyPrompt(th)
	p.Messages[0].Content = "mutated"
	if th[0].Content == "mutated" {
		t.Error("reply prompt shares backing array with the thread")
	}
}
