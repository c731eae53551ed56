package advisor

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultQuestionsYAML []byte

// QuestionLookup resolves the static guidance for a paragraph ID. A missing
// entry is a caller error reported as ErrUnknownQuestion.
type QuestionLookup interface {
	Lookup(id ParagraphID) (QuestionContext, error)
}

// QuestionTable is a read-only QuestionLookup backed by a map.
type QuestionTable map[ParagraphID]QuestionContext

func (t QuestionTable) Lookup(id ParagraphID) (QuestionContext, error) {
	q, ok := t[id]
	if !ok {
		return QuestionContext{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	return q, nil
}

// IDs returns the table's paragraph IDs in sorted order.
func (t QuestionTable) IDs() []ParagraphID {
	return sortedIDs(t)
}

// DefaultQuestions returns the built-in guided questions.
func DefaultQuestions() QuestionTable {
	t, err := ParseQuestions(defaultQuestionsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded questions.yaml: %v", err))
	}
	return t
}

// LoadQuestions reads a YAML question table from disk.
func LoadQuestions(path string) (QuestionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes a YAML mapping of paragraph ID to question/context.
func ParseQuestions(data []byte) (QuestionTable, error) {
	var t QuestionTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	for id, q := range t {
		if q.Question == "" {
			return nil, fmt.Errorf("parse questions: %q has no question", id)
		}
	}
	return t, nil
}
