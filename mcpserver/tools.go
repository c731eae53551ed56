// Package mcpserver exposes one advisor engine as Model Context Protocol
// tools, so an agent can drive a proposal review over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/logging"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// RegisterTools registers the advisor tools on server.
func RegisterTools(server *mcpserver.MCPServer, adv advisor.Advisor, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.Nop()
	}
	handlers := &Handlers{advisor: adv, log: log}

	server.AddTool(mcp.Tool{
		Name:        "set_project_context",
		Description: "Set the project outline every piece of advice is framed against. Required before paragraphs can be reviewed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_context": stringProp("Free text outline of the project"),
			},
			Required: []string{"project_context"},
		},
	}, handlers.SetProjectContext)

	server.AddTool(mcp.Tool{
		Name:        "add_paragraph",
		Description: "Submit a paragraph answering a guided question and receive advice items quoting extracts of it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paragraph_id": stringProp("Question identifier, e.g. q1"),
				"text":         stringProp("Paragraph text"),
			},
			Required: []string{"paragraph_id", "text"},
		},
	}, handlers.AddParagraph)

	server.AddTool(mcp.Tool{
		Name:        "update_paragraph",
		Description: "Submit a revised paragraph. Advice is given on the changes and replaces the previous advice set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paragraph_id": stringProp("Question identifier, e.g. q1"),
				"text":         stringProp("New paragraph text"),
			},
			Required: []string{"paragraph_id", "text"},
		},
	}, handlers.UpdateParagraph)

	server.AddTool(mcp.Tool{
		Name:        "paragraph_reply",
		Description: "Reply to one advice item and get the advisor's answer. Without a reply the current thread is returned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paragraph_id": stringProp("Question identifier"),
				"advice_key":   stringProp("Advice item ID or the exact advice text"),
				"reply":        stringProp("Optional reply to the advice"),
			},
			Required: []string{"paragraph_id", "advice_key"},
		},
	}, handlers.ParagraphReply)

	server.AddTool(mcp.Tool{
		Name:        "enhance_paragraph",
		Description: "Rewrite stored paragraphs for clarity. Give either paragraph_id or paragraph_ids.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paragraph_id": stringProp("Single paragraph to enhance"),
				"paragraph_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Paragraphs to enhance, in order",
				},
			},
		},
	}, handlers.EnhanceParagraph)

	server.AddTool(mcp.Tool{
		Name:        "score_paragraph",
		Description: "Score a paragraph from 0 (worst) to 1 (best) against its question. Uses the stored text when text is omitted.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paragraph_id": stringProp("Question identifier"),
				"text":         stringProp("Optional text to score instead of the stored paragraph"),
			},
			Required: []string{"paragraph_id"},
		},
	}, handlers.ScoreParagraph)

	server.AddTool(mcp.Tool{
		Name:        "list_advice",
		Description: "List the current advice items of a paragraph, or of every paragraph when paragraph_id is omitted.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paragraph_id": stringProp("Optional question identifier"),
			},
		},
	}, handlers.ListAdvice)

	return handlers
}
