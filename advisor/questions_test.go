package advisor

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultQuestions(t *testing.T) {
	q := DefaultQuestions()
	if got := q.IDs(); !reflect.DeepEqual(got, []string{"q1", "q2", "q3"}) {
		t.Errorf("IDs() = %v", got)
	}
	qc, err := q.Lookup("q3")
	if err != nil {
		t.Fatalf("Lookup(q3) error = %v", err)
	}
	if qc.Question != "What is the project goal?" {
		t.Errorf("q3 question = %q", qc.Question)
	}
	if _, err := q.Lookup("q4"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("Lookup(q4) error = %v, want ErrUnknownQuestion", err)
	}
}

func TestLoadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	data := []byte("budget:\n  question: How will funds be used?\n  context: Itemise the main costs.\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	q, err := LoadQuestions(path)
	if err != nil {
		t.Fatalf("LoadQuestions() error = %v", err)
	}
	if q["budget"].Context != "Itemise the main costs." {
		t.Errorf("budget = %+v", q["budget"])
	}

	if _, err := LoadQuestions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseQuestions_RejectsEmptyQuestion(t *testing.T) {
	if _, err := ParseQuestions([]byte("q1:\n  context: only context\n")); err == nil {
		t.Error("expected error for entry without question")
	}
	if _, err := ParseQuestions([]byte("- not\n- a map\n")); err == nil {
		t.Error("expected error for non-mapping yaml")
	}
}
