package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"grant_proposal_advisor/logging"
	"grant_proposal_advisor/textdiff"
)

// Advisor is the paragraph feedback surface consumed by the HTTP and MCP
// layers. Engine is the model-backed implementation.
type Advisor interface {
	SetProjectContext(text string)
	ProjectContext() string
	AddParagraph(ctx context.Context, id ParagraphID, text string) ([]AdviceItem, error)
	UpdateParagraph(ctx context.Context, id ParagraphID, text string) ([]AdviceItem, error)
	ProcessWholeText(ctx context.Context, text map[ParagraphID]string) (map[ParagraphID][]AdviceItem, error)
	ParagraphThread(id ParagraphID, adviceKey string) ([]Turn, error)
	ParagraphReply(ctx context.Context, id ParagraphID, adviceKey, reply string) ([]Turn, error)
	EnhanceParagraph(ctx context.Context, req EnhanceRequest) (EnhanceResult, error)
	ScoreParagraph(ctx context.Context, id ParagraphID, text string) (float64, error)
	Paragraph(id ParagraphID) (string, bool)
	Paragraphs() map[ParagraphID]string
	Advice(id ParagraphID) ([]AdviceItem, error)
}

// Engine owns the paragraphs, advice items and advice chat threads of one
// writer. It is not safe for concurrent use; callers serialize operations on
// an instance (one instance per session).
//
// A failed operation leaves all stored state untouched.
type Engine struct {
	completer *Completer
	questions QuestionLookup
	log       *logging.Logger
	newID     func() string

	projectContext string
	paragraphs     map[ParagraphID]string
	advice         map[ParagraphID][]AdviceItem
	// threads are keyed by paragraph, then advice item ID
	threads map[ParagraphID]map[string]Thread
}

var _ Advisor = (*Engine)(nil)

func NewEngine(completer *Completer, questions QuestionLookup, log *logging.Logger) (*Engine, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if questions == nil {
		return nil, errors.New("question lookup is required")
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		completer:  completer,
		questions:  questions,
		log:        log,
		newID:      uuid.NewString,
		paragraphs: make(map[ParagraphID]string),
		advice:     make(map[ParagraphID][]AdviceItem),
		threads:    make(map[ParagraphID]map[string]Thread),
	}, nil
}

// SetProjectContext replaces the project description injected into feedback prompts.
func (e *Engine) SetProjectContext(text string) {
	e.projectContext = text
}

func (e *Engine) ProjectContext() string {
	return e.projectContext
}

func (e *Engine) requireProjectContext() error {
	if strings.TrimSpace(e.projectContext) == "" {
		return ErrMissingProjectContext
	}
	return nil
}

// AddParagraph stores a new paragraph and its first round of advice.
func (e *Engine) AddParagraph(ctx context.Context, id ParagraphID, text string) ([]AdviceItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: paragraph id is empty", ErrInvalidArgument)
	}
	if err := e.requireProjectContext(); err != nil {
		return nil, err
	}
	q, err := e.questions.Lookup(id)
	if err != nil {
		return nil, err
	}
	prompt, err := BuildSeedPrompt(q, e.projectContext, text)
	if err != nil {
		return nil, err
	}
	items, err := e.completer.CompleteAdvice(ctx, "add_paragraph", prompt)
	if err != nil {
		return nil, err
	}

	stored := e.store(id, text, items)
	e.log.Debug("paragraph added", "op", "add_paragraph", "paragraph_id", id, "advice_count", len(stored))
	return cloneItems(stored), nil
}

// UpdateParagraph replaces a paragraph's text and asks for advice on the
// change, given the advice issued for the previous version. Unknown IDs are
// handled exactly like AddParagraph.
//
// The returned list replaces the paragraph's advice set. Items repeating a
// previous advice text verbatim keep that item's ID and chat thread; threads
// of dropped items are discarded.
func (e *Engine) UpdateParagraph(ctx context.Context, id ParagraphID, text string) ([]AdviceItem, error) {
	old, ok := e.paragraphs[id]
	if !ok {
		return e.AddParagraph(ctx, id, text)
	}
	if err := e.requireProjectContext(); err != nil {
		return nil, err
	}
	q, err := e.questions.Lookup(id)
	if err != nil {
		return nil, err
	}
	prompt, err := BuildDeltaPrompt(q, e.projectContext, e.advice[id], textdiff.Render(old, text))
	if err != nil {
		return nil, err
	}
	items, err := e.completer.CompleteAdvice(ctx, "update_paragraph", prompt)
	if err != nil {
		return nil, err
	}

	stored := e.store(id, text, items)
	e.log.Debug("paragraph updated", "op", "update_paragraph", "paragraph_id", id, "advice_count", len(stored))
	return cloneItems(stored), nil
}

// ProcessWholeText requests advice for several paragraphs in one call and
// stores all of them. Paragraphs the model skipped get an empty advice list.
func (e *Engine) ProcessWholeText(ctx context.Context, text map[ParagraphID]string) (map[ParagraphID][]AdviceItem, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: no paragraphs given", ErrInvalidArgument)
	}
	if err := e.requireProjectContext(); err != nil {
		return nil, err
	}
	questions := make(map[ParagraphID]QuestionContext, len(text))
	for id := range text {
		q, err := e.questions.Lookup(id)
		if err != nil {
			return nil, err
		}
		questions[id] = q
	}
	prompt, err := BuildWholeTextPrompt(questions, e.projectContext, text)
	if err != nil {
		return nil, err
	}
	advice, err := e.completer.CompleteWholeText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out := make(map[ParagraphID][]AdviceItem, len(text))
	for _, id := range sortedIDs(text) {
		out[id] = cloneItems(e.store(id, text[id], advice[id]))
	}
	e.log.Debug("whole text processed", "op", "process_whole_text", "paragraphs", len(out))
	return out, nil
}

// ParagraphThread returns the display view of the conversation about one
// advice item without calling the model. An unopened thread is shown as it
// would be seeded; nothing is persisted.
func (e *Engine) ParagraphThread(id ParagraphID, adviceKey string) ([]Turn, error) {
	item, thread, err := e.resolveThread(id, adviceKey)
	if err != nil {
		return nil, err
	}
	return displayThread(thread, item), nil
}

// ParagraphReply appends the writer's reply to the advice thread, asks the
// model to answer over the whole thread and returns the display view.
func (e *Engine) ParagraphReply(ctx context.Context, id ParagraphID, adviceKey, reply string) ([]Turn, error) {
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("%w: reply is empty", ErrInvalidArgument)
	}
	item, thread, err := e.resolveThread(id, adviceKey)
	if err != nil {
		return nil, err
	}

	thread = append(thread.clone(), Message{Role: RoleUser, Content: reply})
	answer, err := e.completer.Complete(ctx, BuildReplyPrompt(thread))
	if err != nil {
		return nil, err
	}
	thread = append(thread, Message{Role: RoleAssistant, Content: answer})

	if e.threads[id] == nil {
		e.threads[id] = make(map[string]Thread)
	}
	e.threads[id][item.ID] = thread
	e.log.Debug("advice reply", "op", "paragraph_reply", "paragraph_id", id, "advice_id", item.ID, "turns", len(thread))
	return displayThread(thread, item), nil
}

// EnhanceParagraph rewrites one paragraph (ParagraphID) or each paragraph of
// a batch (ParagraphIDs) for clarity. Every ID is checked before the first
// model call.
func (e *Engine) EnhanceParagraph(ctx context.Context, req EnhanceRequest) (EnhanceResult, error) {
	single := req.ParagraphID != ""
	batch := req.ParagraphIDs != nil
	switch {
	case single && batch:
		return EnhanceResult{}, fmt.Errorf("%w: provide either paragraph_id or paragraph_ids, not both", ErrInvalidArgument)
	case !single && !batch:
		return EnhanceResult{}, fmt.Errorf("%w: either paragraph_id or paragraph_ids must be provided", ErrInvalidArgument)
	}

	if single {
		text, ok := e.paragraphs[req.ParagraphID]
		if !ok {
			return EnhanceResult{}, paragraphNotFound(req.ParagraphID)
		}
		enhanced, err := e.completer.Complete(ctx, BuildEnhancePrompt(text))
		if err != nil {
			return EnhanceResult{}, err
		}
		return EnhanceResult{Text: enhanced}, nil
	}

	for _, id := range req.ParagraphIDs {
		if _, ok := e.paragraphs[id]; !ok {
			return EnhanceResult{}, paragraphNotFound(id)
		}
	}
	texts := make([]string, 0, len(req.ParagraphIDs))
	for _, id := range req.ParagraphIDs {
		enhanced, err := e.completer.Complete(ctx, BuildEnhancePrompt(e.paragraphs[id]))
		if err != nil {
			return EnhanceResult{}, err
		}
		texts = append(texts, enhanced)
	}
	return EnhanceResult{Texts: texts}, nil
}

// ScoreParagraph rates how well text answers the paragraph's question, from 0
// to 1. A blank text scores the stored paragraph.
func (e *Engine) ScoreParagraph(ctx context.Context, id ParagraphID, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		stored, ok := e.paragraphs[id]
		if !ok {
			return 0, paragraphNotFound(id)
		}
		text = stored
	}
	if err := e.requireProjectContext(); err != nil {
		return 0, err
	}
	q, err := e.questions.Lookup(id)
	if err != nil {
		return 0, err
	}
	prompt, err := BuildScorePrompt(q, e.projectContext, text)
	if err != nil {
		return 0, err
	}
	return e.completer.CompleteScore(ctx, prompt)
}

func (e *Engine) Paragraph(id ParagraphID) (string, bool) {
	text, ok := e.paragraphs[id]
	return text, ok
}

// Paragraphs returns a copy of every stored paragraph.
func (e *Engine) Paragraphs() map[ParagraphID]string {
	out := make(map[ParagraphID]string, len(e.paragraphs))
	for id, text := range e.paragraphs {
		out[id] = text
	}
	return out
}

// Advice returns the current advice items of a paragraph in model order.
func (e *Engine) Advice(id ParagraphID) ([]AdviceItem, error) {
	if _, ok := e.paragraphs[id]; !ok {
		return nil, paragraphNotFound(id)
	}
	return cloneItems(e.advice[id]), nil
}

// store commits a paragraph and its new advice set, carrying item IDs over by
// advice text and pruning threads whose item disappeared.
func (e *Engine) store(id ParagraphID, text string, items []AdviceItem) []AdviceItem {
	prevIDs := make(map[string]string, len(e.advice[id]))
	for _, p := range e.advice[id] {
		if _, ok := prevIDs[p.Advice]; !ok {
			prevIDs[p.Advice] = p.ID
		}
	}

	used := make(map[string]bool, len(items))
	next := make([]AdviceItem, len(items))
	for i, it := range items {
		if prev, ok := prevIDs[it.Advice]; ok && !used[prev] {
			it.ID = prev
		} else {
			it.ID = e.newID()
		}
		used[it.ID] = true
		next[i] = it
	}

	e.paragraphs[id] = text
	e.advice[id] = next
	for adviceID := range e.threads[id] {
		if !used[adviceID] {
			delete(e.threads[id], adviceID)
		}
	}
	return next
}

// resolveThread finds the advice item addressed by adviceKey (an item ID or
// the exact advice text) and its thread, seeding a fresh one if none exists.
func (e *Engine) resolveThread(id ParagraphID, adviceKey string) (AdviceItem, Thread, error) {
	paragraph, ok := e.paragraphs[id]
	if !ok {
		return AdviceItem{}, nil, paragraphNotFound(id)
	}
	item, ok := findAdvice(e.advice[id], adviceKey)
	if !ok {
		return AdviceItem{}, nil, fmt.Errorf("%w: %q for paragraph %q", ErrAdviceNotFound, adviceKey, id)
	}
	if thread, ok := e.threads[id][item.ID]; ok {
		return item, thread, nil
	}
	return item, NewThread(paragraph, item), nil
}

func findAdvice(items []AdviceItem, key string) (AdviceItem, bool) {
	for _, it := range items {
		if it.ID == key {
			return it, true
		}
	}
	for _, it := range items {
		if it.Advice == key {
			return it, true
		}
	}
	return AdviceItem{}, false
}

// displayThread drops the system and paragraph turns, shows the advice turn
// as the bare advice text and relabels roles for presentation.
func displayThread(thread Thread, item AdviceItem) []Turn {
	if len(thread) < threadSeedLen {
		return nil
	}
	out := make([]Turn, 0, len(thread)-threadSeedLen+1)
	for i := threadSeedLen - 1; i < len(thread); i++ {
		m := thread[i]
		content := m.Content
		if i == threadSeedLen-1 {
			content = item.Advice
		}
		out = append(out, Turn{Role: displayRole(m.Role), Content: content})
	}
	return out
}

func displayRole(r Role) string {
	switch r {
	case RoleAssistant:
		return displayAssistant
	case RoleUser:
		return displayUser
	default:
		return string(r)
	}
}

func cloneItems(items []AdviceItem) []AdviceItem {
	out := make([]AdviceItem, len(items))
	copy(out, items)
	return out
}
