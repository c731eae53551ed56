package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/logging"
)

// Handlers serializes tool calls onto a single advisor.
type Handlers struct {
	mu      sync.Mutex
	advisor advisor.Advisor
	log     *logging.Logger
}

func (h *Handlers) SetProjectContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("project_context")
	if err != nil {
		return mcp.NewToolResultError("project_context argument is required and must be a string"), nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advisor.SetProjectContext(text)
	return mcp.NewToolResultText("Project context set."), nil
}

func (h *Handlers) AddParagraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, request, "add_paragraph", h.advisor.AddParagraph)
}

func (h *Handlers) UpdateParagraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, request, "update_paragraph", h.advisor.UpdateParagraph)
}

func (h *Handlers) submit(ctx context.Context, request mcp.CallToolRequest, op string,
	fn func(context.Context, advisor.ParagraphID, string) ([]advisor.AdviceItem, error)) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("paragraph_id")
	if err != nil {
		return mcp.NewToolResultError("paragraph_id argument is required and must be a string"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	items, err := fn(ctx, id, text)
	if err != nil {
		h.log.Warn("tool failed", "tool", op, "paragraph_id", id, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err)), nil
	}
	return jsonResult(map[string]interface{}{"paragraph_id": id, "advice": items})
}

func (h *Handlers) ParagraphReply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("paragraph_id")
	if err != nil {
		return mcp.NewToolResultError("paragraph_id argument is required and must be a string"), nil
	}
	key, err := request.RequireString("advice_key")
	if err != nil {
		return mcp.NewToolResultError("advice_key argument is required and must be a string"), nil
	}
	reply := request.GetString("reply", "")

	h.mu.Lock()
	defer h.mu.Unlock()
	var turns []advisor.Turn
	if reply == "" {
		turns, err = h.advisor.ParagraphThread(id, key)
	} else {
		turns, err = h.advisor.ParagraphReply(ctx, id, key, reply)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("paragraph_reply failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"thread": turns})
}

func (h *Handlers) EnhanceParagraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := advisor.EnhanceRequest{ParagraphID: request.GetString("paragraph_id", "")}
	if raw, ok := request.GetArguments()["paragraph_ids"]; ok {
		list, ok := raw.([]interface{})
		if !ok {
			return mcp.NewToolResultError("paragraph_ids must be an array of strings"), nil
		}
		req.ParagraphIDs = make([]advisor.ParagraphID, 0, len(list))
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return mcp.NewToolResultError("paragraph_ids must be an array of strings"), nil
			}
			req.ParagraphIDs = append(req.ParagraphIDs, s)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	res, err := h.advisor.EnhanceParagraph(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("enhance_paragraph failed: %v", err)), nil
	}
	if req.ParagraphIDs == nil {
		return mcp.NewToolResultText(res.Text), nil
	}
	return jsonResult(res)
}

func (h *Handlers) ScoreParagraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("paragraph_id")
	if err != nil {
		return mcp.NewToolResultError("paragraph_id argument is required and must be a string"), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	score, err := h.advisor.ScoreParagraph(ctx, id, request.GetString("text", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("score_paragraph failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"paragraph_id": id, "score": score})
}

func (h *Handlers) ListAdvice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ids []advisor.ParagraphID
	if id := request.GetString("paragraph_id", ""); id != "" {
		ids = []advisor.ParagraphID{id}
	} else {
		for id := range h.advisor.Paragraphs() {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	out := make(map[advisor.ParagraphID][]advisor.AdviceItem, len(ids))
	for _, id := range ids {
		items, err := h.advisor.Advice(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list_advice failed: %v", err)), nil
		}
		out[id] = items
	}
	return jsonResult(map[string]interface{}{"advice": out})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
