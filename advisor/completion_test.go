package advisor

import (
	"context"
	"errors"
	"testing"
)

func TestNewCompleter(t *testing.T) {
	if _, err := NewCompleter(nil, 3, nil); err == nil {
		t.Error("expected error for nil llm")
	}
	c, err := NewCompleter(MockLLM{}, 0, nil)
	if err != nil {
		t.Fatalf("NewCompleter() error = %v", err)
	}
	if c.MaxAttempts() != DefaultMaxAttempts {
		t.Errorf("MaxAttempts() = %d, want %d", c.MaxAttempts(), DefaultMaxAttempts)
	}
}

func TestCompleter_PlainTrimsAndNeverRetries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"  not json at all \n"}}
	c, _ := NewCompleter(llm, 3, nil)

	got, err := c.Complete(context.Background(), BuildEnhancePrompt("text"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "not json at all" {
		t.Errorf("Complete() = %q", got)
	}
	if len(llm.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(llm.calls))
	}
}

func TestCompleter_AdviceRetriesThenSucceeds(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"oops", "still not json", seedAdviceJSON}}
	c, _ := NewCompleter(llm, 3, nil)
	prompt, _ := BuildSeedPrompt(QuestionContext{Question: "q"}, housingContext, "p")

	items, err := c.CompleteAdvice(context.Background(), "add_paragraph", prompt)
	if err != nil {
		t.Fatalf("CompleteAdvice() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if len(llm.calls) != 3 {
		t.Errorf("calls = %d, want 3", len(llm.calls))
	}
	for i, call := range llm.calls {
		if call.System() != prompt.System() || call.LastUser() != prompt.LastUser() {
			t.Errorf("call %d was not the identical prompt", i+1)
		}
	}
}

func TestCompleter_AdviceGivesUpAfterCap(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"a", "b", "c", seedAdviceJSON}}
	c, _ := NewCompleter(llm, 3, nil)
	prompt, _ := BuildSeedPrompt(QuestionContext{Question: "q"}, housingContext, "p")

	_, err := c.CompleteAdvice(context.Background(), "add_paragraph", prompt)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("error = %v, want ErrDecode", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Attempts != 3 || de.Op != "add_paragraph" {
		t.Errorf("DecodeError = %+v", de)
	}
	if len(llm.calls) != 3 {
		t.Errorf("calls = %d, want 3", len(llm.calls))
	}
}

func TestCompleter_ConfigurableCap(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"a", "b", "c", "d", "e"}}
	c, _ := NewCompleter(llm, 5, nil)

	_, err := c.CompleteScore(context.Background(), Prompt{Kind: KindScore})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("error = %v, want ErrDecode", err)
	}
	if len(llm.calls) != 5 {
		t.Errorf("calls = %d, want 5", len(llm.calls))
	}
}

func TestCompleter_InvocationErrorNotRetried(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errBackendDown}, responses: []string{"", seedAdviceJSON}}
	c, _ := NewCompleter(llm, 3, nil)

	_, err := c.CompleteAdvice(context.Background(), "add_paragraph", Prompt{Kind: KindSeedFeedback})
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("error = %v, want errBackendDown", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Error("invocation failure reported as decode failure")
	}
	if len(llm.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(llm.calls))
	}
}

func TestCompleter_Score(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"Score: high", "0.8"}}
	c, _ := NewCompleter(llm, 3, nil)

	got, err := c.CompleteScore(context.Background(), Prompt{Kind: KindScore})
	if err != nil {
		t.Fatalf("CompleteScore() error = %v", err)
	}
	if got != 0.8 {
		t.Errorf("CompleteScore() = %v, want 0.8", got)
	}
}

func TestCompleter_ScoreRetriesNaN(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"NaN", "0.3"}}
	c, _ := NewCompleter(llm, 3, nil)

	got, err := c.CompleteScore(context.Background(), Prompt{Kind: KindScore})
	if err != nil || got != 0.3 {
		t.Fatalf("CompleteScore() = %v, %v; want 0.3, nil", got, err)
	}
	if len(llm.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(llm.calls))
	}
}

func TestCompleter_WholeText(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"```json\n{\"q1\":" + seedAdviceJSON + "}\n```"}}
	c, _ := NewCompleter(llm, 3, nil)

	got, err := c.CompleteWholeText(context.Background(), Prompt{Kind: KindWholeText})
	if err != nil {
		t.Fatalf("CompleteWholeText() error = %v", err)
	}
	if len(got["q1"]) != 1 {
		t.Errorf("q1 advice = %+v", got["q1"])
	}
}
