package advisor

import (
	"context"
	"errors"
	"strings"

	"grant_proposal_advisor/logging"
)

// DefaultMaxAttempts bounds structured calls whose output fails to decode.
const DefaultMaxAttempts = 3

// Completer sends prompts to the LLM. Plain calls return the trimmed text of a
// single invocation. Structured calls reissue the identical prompt until the
// output decodes, up to maxAttempts invocations. Invocation errors are never
// retried here.
type Completer struct {
	llm         LLMClient
	maxAttempts int
	log         *logging.Logger
}

func NewCompleter(llm LLMClient, maxAttempts int, log *logging.Logger) (*Completer, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Completer{llm: llm, maxAttempts: maxAttempts, log: log}, nil
}

// MaxAttempts reports the structured-call attempt cap.
func (c *Completer) MaxAttempts() int { return c.maxAttempts }

// Complete is the plain calling convention.
func (c *Completer) Complete(ctx context.Context, prompt Prompt) (string, error) {
	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// structured runs prompt until decode accepts the response.
func (c *Completer) structured(ctx context.Context, op string, prompt Prompt, decode func(string) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		raw, err := c.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		if lastErr = decode(raw); lastErr == nil {
			return nil
		}
		c.log.Warn("model output did not decode", "op", op, "attempt", attempt, "max_attempts", c.maxAttempts, "error", lastErr)
	}
	return &DecodeError{Op: op, Attempts: c.maxAttempts, Err: lastErr}
}

// CompleteAdvice runs a structured call expecting a list of advice items.
func (c *Completer) CompleteAdvice(ctx context.Context, op string, prompt Prompt) ([]AdviceItem, error) {
	var items []AdviceItem
	err := c.structured(ctx, op, prompt, func(raw string) error {
		var err error
		items, err = decodeAdviceList(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CompleteWholeText runs a structured call expecting advice keyed by paragraph ID.
func (c *Completer) CompleteWholeText(ctx context.Context, prompt Prompt) (map[ParagraphID][]AdviceItem, error) {
	var out map[ParagraphID][]AdviceItem
	err := c.structured(ctx, "process_whole_text", prompt, func(raw string) error {
		var err error
		out, err = decodeWholeText(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteScore runs a call expecting a bare number in [0, 1], with the same
// bounded retry as structured calls.
func (c *Completer) CompleteScore(ctx context.Context, prompt Prompt) (float64, error) {
	var score float64
	err := c.structured(ctx, "score_paragraph", prompt, func(raw string) error {
		var err error
		score, err = parseScore(raw)
		return err
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}
