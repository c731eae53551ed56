package advisor

import (
	"fmt"
	"sort"
	"strings"
)

// PromptKind records which operation a prompt was built for. Backends ignore
// it; MockLLM uses it to pick a canned answer.
type PromptKind string

const (
	KindSeedFeedback  PromptKind = "seed_feedback"
	KindDeltaFeedback PromptKind = "delta_feedback"
	KindWholeText     PromptKind = "whole_text"
	KindReply         PromptKind = "reply"
	KindEnhance       PromptKind = "enhance"
	KindScore         PromptKind = "score"
)

// Prompt is the ordered message sequence sent to the LLM.
type Prompt struct {
	Kind     PromptKind
	Messages []Message
	// Schema is set for structured calls whose output must decode as JSON.
	Schema *ResponseSchema
}

// System returns the content of the first system message, if any.
func (p Prompt) System() string {
	for _, m := range p.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// LastUser returns the content of the last user message, if any.
func (p Prompt) LastUser() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}

const persona = "You are an LLM advisor that has to give feedback to grant proposal writing for proposals aimed at the non-profit World Childhood Foundation."

const socraticInstruction = "Analyze the following paragraph and provide constructive feedback. " +
	"Your goal is not to provide a full response but to instill reflection in the user. " +
	"Begin by analyzing the paragraph and understanding the underlying message that the user wants to convey. " +
	"Then reason about what a reader would not understand or what could be improved. Finally pry the user with some questions. " +
	"For each question, quote the part of the paragraph that led you to ask it and begin by summarizing the text, " +
	"e.g. 'Here you talk about how you would do this, but it is not clear what the final objective would be. Could you clarify that?' " +
	"Return a JSON array of advice objects, where each object has keys 'extract' (a relevant excerpt) and " +
	"'advice' (a suggestion for improvement). Output only valid JSON."

const deltaInstruction = "Below is the merged paragraph, highlighting the changes: removed words are wrapped in ~~ and added words in **. " +
	"Focus on the differences and provide constructive feedback on the changes. Return a JSON array of advice objects, based on the previous advice given, " +
	"removing advice that has been fixed and keeping advice that has not been addressed in the same wording, where each object has keys 'extract' and 'advice'. " +
	"Output only valid JSON."

const wholeTextInstruction = "Analyze the following text divided into paragraphs and provide constructive feedback for each paragraph. " +
	"For each paragraph, return a list of advice items. Each advice item should be a JSON object with keys 'extract' (an excerpt of the paragraph) and " +
	"'advice' (a suggestion for improvement). Return your output as a JSON object where the keys are the paragraph IDs " +
	"and the values are the corresponding list of advice objects. Output only valid JSON."

const scoreInstruction = "Analyze the following paragraph and provide a score on a scale of 0 to 1, where 0 is the worst and 1 is the best. " +
	"Your score should reflect how well the paragraph answers the question and how well it is written. " +
	"Be critical and provide a score that reflects the quality of the paragraph. Don't hold back."

const enhanceInstruction = "You are an expert writing assistant. Enhance the following paragraph to improve its clarity, coherence, " +
	"and style. Return only the enhanced paragraph text."

const replyInstruction = " Be concise with your answers e.g. a few sentences and DON'T USE BULLET POINTS."

const extractPreamble = "Considering the following extract of your paragraph: "

func projectOutline(projectContext string) string {
	return "\n\nThis is the general outline of the project: " + projectContext
}

func questionBlock(q QuestionContext) string {
	return "\nThe user is trying to answer the following question: " + q.Question +
		"\nThis is the context of the paragraph: " + q.Context + "\n"
}

// BuildSeedPrompt builds the feedback prompt for a paragraph seen for the first time.
func BuildSeedPrompt(q QuestionContext, projectContext, paragraph string) (Prompt, error) {
	if strings.TrimSpace(projectContext) == "" {
		return Prompt{}, ErrMissingProjectContext
	}
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString(questionBlock(q))
	sb.WriteString(socraticInstruction)
	sb.WriteString(projectOutline(projectContext))

	return Prompt{
		Kind: KindSeedFeedback,
		Messages: []Message{
			{Role: RoleSystem, Content: sb.String()},
			{Role: RoleUser, Content: paragraph},
		},
		Schema: adviceSchema,
	}, nil
}

// BuildDeltaPrompt builds the feedback prompt for an edited paragraph. The
// user turn carries the rendered diff instead of the raw text and the system
// turn lists the advice given to the previous version.
func BuildDeltaPrompt(q QuestionContext, projectContext string, prior []AdviceItem, renderedDiff string) (Prompt, error) {
	if strings.TrimSpace(projectContext) == "" {
		return Prompt{}, ErrMissingProjectContext
	}
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString(questionBlock(q))
	sb.WriteString("A paragraph has been updated.\n")
	sb.WriteString("Here's the list of advices given to the previous version of the paragraph:")
	for _, item := range prior {
		fmt.Fprintf(&sb, "\nExtract: %s, Advice given: %s", item.Extract, item.Advice)
	}
	sb.WriteString("\n")
	sb.WriteString(deltaInstruction)
	sb.WriteString(projectOutline(projectContext))

	return Prompt{
		Kind: KindDeltaFeedback,
		Messages: []Message{
			{Role: RoleSystem, Content: sb.String()},
			{Role: RoleUser, Content: renderedDiff},
		},
		Schema: adviceSchema,
	}, nil
}

// BuildWholeTextPrompt builds a single prompt covering every paragraph,
// ordered by paragraph ID.
func BuildWholeTextPrompt(questions map[ParagraphID]QuestionContext, projectContext string, text map[ParagraphID]string) (Prompt, error) {
	if strings.TrimSpace(projectContext) == "" {
		return Prompt{}, ErrMissingProjectContext
	}
	ids := sortedIDs(text)
	var user strings.Builder
	for i, id := range ids {
		if i > 0 {
			user.WriteString("\n")
		}
		fmt.Fprintf(&user, "Paragraph ID: %s\n", id)
		if q, ok := questions[id]; ok {
			fmt.Fprintf(&user, "Question: %s\n", q.Question)
		}
		fmt.Fprintf(&user, "Paragraph: %s", text[id])
	}

	return Prompt{
		Kind: KindWholeText,
		Messages: []Message{
			{Role: RoleSystem, Content: persona + " " + wholeTextInstruction + projectOutline(projectContext)},
			{Role: RoleUser, Content: user.String()},
		},
	}, nil
}

// BuildScorePrompt builds the 0-1 quality scoring prompt.
func BuildScorePrompt(q QuestionContext, projectContext, paragraph string) (Prompt, error) {
	if strings.TrimSpace(projectContext) == "" {
		return Prompt{}, ErrMissingProjectContext
	}
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString(" ")
	sb.WriteString(scoreInstruction)
	sb.WriteString(questionBlock(q))
	sb.WriteString("Return only the score as a float.")
	sb.WriteString(projectOutline(projectContext))

	return Prompt{
		Kind: KindScore,
		Messages: []Message{
			{Role: RoleSystem, Content: sb.String()},
			{Role: RoleUser, Content: paragraph},
		},
	}, nil
}

// BuildEnhancePrompt builds the rewrite-for-clarity prompt for one paragraph.
func BuildEnhancePrompt(paragraph string) Prompt {
	return Prompt{
		Kind: KindEnhance,
		Messages: []Message{
			{Role: RoleSystem, Content: enhanceInstruction},
			{Role: RoleUser, Content: paragraph},
		},
	}
}

// NewThread seeds the conversation about one advice item: the persona, the
// paragraph as a user turn and the advice restated as an assistant turn.
func NewThread(paragraph string, item AdviceItem) Thread {
	return Thread{
		{Role: RoleSystem, Content: persona + replyInstruction},
		{Role: RoleUser, Content: paragraph},
		{Role: RoleAssistant, Content: extractPreamble + item.Extract + "\n" + item.Advice},
	}
}

// threadSeedLen is the number of turns NewThread produces.
const threadSeedLen = 3

// BuildReplyPrompt sends the whole thread, ending with the user's reply.
func BuildReplyPrompt(thread Thread) Prompt {
	return Prompt{Kind: KindReply, Messages: thread.clone()}
}

func sortedIDs[V any](m map[ParagraphID]V) []ParagraphID {
	ids := make([]ParagraphID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
