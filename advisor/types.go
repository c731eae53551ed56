package advisor

// ParagraphID identifies the guided question a paragraph answers (e.g. "q1").
// IDs are opaque but sortable.
type ParagraphID = string

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn sent to or received from the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Thread is an ordered conversation about a single advice item.
type Thread []Message

func (t Thread) clone() Thread {
	out := make(Thread, len(t))
	copy(out, t)
	return out
}

// AdviceItem is a critique tied to an extract of a paragraph. ID is generated
// locally; Extract should be a verbatim substring of the paragraph but the
// model does not always comply.
type AdviceItem struct {
	ID      string `json:"id"`
	Extract string `json:"extract"`
	Advice  string `json:"advice"`
}

// Turn is a display copy of a thread message with presentation role labels.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	displayAssistant = "Assistant"
	displayUser      = "You"
)

// QuestionContext is the static guidance attached to one paragraph ID.
type QuestionContext struct {
	Question string `json:"question" yaml:"question"`
	Context  string `json:"context" yaml:"context"`
}

// EnhanceRequest names either a single paragraph or an ordered batch. Exactly
// one of the two fields must be set; a non-nil empty batch counts as set.
type EnhanceRequest struct {
	ParagraphID  ParagraphID   `json:"paragraph_id,omitempty"`
	ParagraphIDs []ParagraphID `json:"paragraph_ids,omitempty"`
}

// EnhanceResult carries Text for a single-paragraph request and Texts, aligned
// with the requested IDs, for a batch.
type EnhanceResult struct {
	Text  string   `json:"text,omitempty"`
	Texts []string `json:"texts,omitempty"`
}
