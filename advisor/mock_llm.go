package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MockLLM is a placeholder backend for local debugging; it never calls an
// external model. Feedback prompts get one advice item quoting the first
// sentence of the paragraph.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	user := prompt.LastUser()
	switch prompt.Kind {
	case KindSeedFeedback:
		return mockAdviceJSON(user)
	case KindDeltaFeedback:
		return mockAdviceJSON(acceptDiff(user))
	case KindWholeText:
		return mockWholeTextJSON(user)
	case KindScore:
		return "0.5", nil
	case KindEnhance:
		return strings.TrimSpace(user), nil
	default:
		return "Thanks, could you say more about how this supports the project goal?", nil
	}
}

func mockAdviceJSON(paragraph string) (string, error) {
	extract := firstSentence(paragraph)
	if extract == "" {
		return "[]", nil
	}
	b, err := json.Marshal([]adviceWire{{
		Extract: extract,
		Advice:  fmt.Sprintf("Here you write %q. What would a reviewer need to know to see why this matters?", extract),
	}})
	return string(b), err
}

func mockWholeTextJSON(user string) (string, error) {
	out := map[string][]adviceWire{}
	var id string
	for _, line := range strings.Split(user, "\n") {
		switch {
		case strings.HasPrefix(line, "Paragraph ID: "):
			id = strings.TrimPrefix(line, "Paragraph ID: ")
			out[id] = []adviceWire{}
		case strings.HasPrefix(line, "Paragraph: ") && id != "":
			if extract := firstSentence(strings.TrimPrefix(line, "Paragraph: ")); extract != "" {
				out[id] = append(out[id], adviceWire{Extract: extract, Advice: "Could you make this more specific?"})
			}
		}
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}

var removedRe = regexp.MustCompile(`~~[^~]*~~`)

// acceptDiff turns rendered diff markup back into the updated text.
func acceptDiff(rendered string) string {
	text := strings.ReplaceAll(removedRe.ReplaceAllString(rendered, ""), "**", "")
	return strings.Join(strings.Fields(text), " ")
}
