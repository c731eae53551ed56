// Package textdiff renders word-level differences between two versions of a
// paragraph as compact markdown: removed words are struck through and added
// words are bold.
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Kind classifies one run of an edit script.
type Kind string

const (
	KindEqual   Kind = "equal"
	KindDelete  Kind = "delete"
	KindInsert  Kind = "insert"
	KindReplace Kind = "replace"
)

const (
	strikeMarker = "~~"
	boldMarker   = "**"
)

// Span is one run of the word-level edit script. Old holds words only present
// in the original (or shared words for KindEqual), New holds words only present
// in the update.
type Span struct {
	Kind Kind
	Old  []string
	New  []string
}

// Render returns updated with the word-level changes against original marked
// up: ~~removed~~ and **added**. Identical inputs come back whitespace-normalised
// and without markers.
func Render(original, updated string) string {
	spans := Spans(original, updated)
	out := make([]string, 0, len(spans)*2)
	for _, s := range spans {
		switch s.Kind {
		case KindEqual:
			out = append(out, s.Old...)
		case KindDelete:
			out = append(out, wrap(strikeMarker, s.Old))
		case KindInsert:
			out = append(out, wrap(boldMarker, s.New))
		case KindReplace:
			out = append(out, wrap(strikeMarker, s.Old), wrap(boldMarker, s.New))
		}
	}
	return strings.Join(out, " ")
}

// Spans computes the edit script between the whitespace-separated words of the
// two inputs. Among equally short scripts the one anchored on the earliest
// longest common run wins, so the output is stable for a given pair.
func Spans(original, updated string) []Span {
	oldWords := strings.Fields(original)
	newWords := strings.Fields(updated)
	if len(oldWords) == 0 && len(newWords) == 0 {
		return nil
	}

	ops := difflib.NewMatcher(oldWords, newWords).GetOpCodes()
	spans := make([]Span, 0, len(ops))
	for _, op := range ops {
		oldRun := oldWords[op.I1:op.I2]
		newRun := newWords[op.J1:op.J2]
		switch op.Tag {
		case 'e':
			spans = append(spans, Span{Kind: KindEqual, Old: oldRun})
		case 'd':
			spans = append(spans, Span{Kind: KindDelete, Old: oldRun})
		case 'i':
			spans = append(spans, Span{Kind: KindInsert, New: newRun})
		case 'r':
			spans = append(spans, Span{Kind: KindReplace, Old: oldRun, New: newRun})
		}
	}
	return spans
}

func wrap(marker string, words []string) string {
	return marker + strings.Join(words, " ") + marker
}
