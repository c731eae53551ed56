package advisor

import (
	"errors"
	"fmt"
)

var (
	ErrMissingProjectContext = errors.New("project context is required before requesting feedback")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrParagraphNotFound     = errors.New("paragraph not found")
	ErrAdviceNotFound        = errors.New("advice not found")
	ErrUnknownQuestion       = errors.New("no question context for paragraph")
	ErrDecode                = errors.New("could not decode model output")
)

// DecodeError reports that every attempt at a structured call returned output
// that could not be parsed.
type DecodeError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: could not decode model output after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func paragraphNotFound(id ParagraphID) error {
	return fmt.Errorf("%w: %q", ErrParagraphNotFound, id)
}
