package advisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingFenceRe = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
var leadingTagRe = regexp.MustCompile(`^(?i:json)\s*\n`)

// CleanOutput strips whitespace, a leading language-tagged code fence (or a
// bare "json" tag line) and closing fences from a model response. It is
// idempotent.
func CleanOutput(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = leadingFenceRe.ReplaceAllString(s, "")
	s = leadingTagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// unwrapSingleKey returns the sole value of a one-key JSON object, which some
// models emit around the list we asked for. Anything else is returned as is.
func unwrapSingleKey(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || len(obj) != 1 {
		return trimmed
	}
	for _, v := range obj {
		return v
	}
	return trimmed
}

// decodeAdviceList parses a cleaned response into advice items. Items with
// blank advice text are dropped. IDs are left empty for the engine to assign.
func decodeAdviceList(raw string) ([]AdviceItem, error) {
	data := unwrapSingleKey([]byte(CleanOutput(raw)))
	var wire []adviceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("advice list: %w", err)
	}
	items := make([]AdviceItem, 0, len(wire))
	for _, w := range wire {
		if strings.TrimSpace(w.Advice) == "" {
			continue
		}
		items = append(items, AdviceItem{Extract: w.Extract, Advice: w.Advice})
	}
	return items, nil
}

// decodeWholeText parses a cleaned response shaped {id: [advice...]}.
func decodeWholeText(raw string) (map[ParagraphID][]AdviceItem, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(CleanOutput(raw)), &obj); err != nil {
		return nil, fmt.Errorf("whole text advice: %w", err)
	}
	out := make(map[ParagraphID][]AdviceItem, len(obj))
	for id, v := range obj {
		items, err := decodeAdviceList(string(v))
		if err != nil {
			return nil, fmt.Errorf("paragraph %q: %w", id, err)
		}
		out[id] = items
	}
	return out, nil
}

var errScoreRange = errors.New("score is not a number in [0, 1]")

// parseScore parses a bare floating point score in [0, 1].
func parseScore(raw string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %v", errScoreRange, score)
	}
	return score, nil
}
