package advisor

import (
	"context"
	"errors"
	"fmt"
)

// scriptedLLM returns queued responses in order and records every prompt.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     []Prompt
}

func (s *scriptedLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	i := len(s.calls)
	s.calls = append(s.calls, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.responses) {
		return "", fmt.Errorf("scriptedLLM: no response queued for call %d", i+1)
	}
	return s.responses[i], nil
}

var errBackendDown = errors.New("backend down")

const housingContext = "Build housing for families in need"

const seedAdviceJSON = `[{"extract":"two bedrooms","advice":"Consider specifying accessibility features."}]`

func newTestEngine(t interface{ Fatalf(string, ...any) }, llm LLMClient) *Engine {
	c, err := NewCompleter(llm, DefaultMaxAttempts, nil)
	if err != nil {
		t.Fatalf("NewCompleter() error = %v", err)
	}
	e, err := NewEngine(c, DefaultQuestions(), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("adv-%d", n)
	}
	return e
}
