package server

import (
	"bytes"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/export"
	"grant_proposal_advisor/textdiff"
)

const sessionKey = "session"

type contextReq struct {
	ProjectContext string `json:"project_context"`
}

type sessionResp struct {
	SessionID      string `json:"session_id"`
	ProjectContext string `json:"project_context"`
}

type paragraphReq struct {
	Text string `json:"text"`
}

type paragraphsReq struct {
	Paragraphs map[string]string `json:"paragraphs" binding:"required"`
}

type paragraphResp struct {
	ParagraphID string               `json:"paragraph_id"`
	Advice      []advisor.AdviceItem `json:"advice"`
	Diff        string               `json:"diff,omitempty"`
	DiffHTML    string               `json:"diff_html,omitempty"`
}

type scoreReq struct {
	Text string `json:"text"`
}

type replyReq struct {
	Reply string `json:"reply" binding:"required"`
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createSession(c *gin.Context) {
	var req contextReq
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	adv, err := s.newAdvisor()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "session_create_failed", err)
		return
	}
	if req.ProjectContext != "" {
		adv.SetProjectContext(req.ProjectContext)
	}
	id := s.newID()
	s.store.set(id, &session{advisor: adv})
	s.log.Info("session created", "session_id", id)
	c.JSON(http.StatusCreated, sessionResp{SessionID: id, ProjectContext: req.ProjectContext})
}

// loadSession resolves :id and holds the session lock for the rest of the
// request.
func (s *Server) loadSession(c *gin.Context) {
	id := c.Param("id")
	sess, ok := s.store.get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "session_not_found", errors.New("session not found"))
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.Set(sessionKey, sess)
	c.Next()
}

func advisorFrom(c *gin.Context) advisor.Advisor {
	return c.MustGet(sessionKey).(*session).advisor
}

func (s *Server) deleteSession(c *gin.Context) {
	s.store.delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) setProjectContext(c *gin.Context) {
	var req contextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	adv := advisorFrom(c)
	adv.SetProjectContext(req.ProjectContext)
	c.JSON(http.StatusOK, sessionResp{SessionID: c.Param("id"), ProjectContext: adv.ProjectContext()})
}

func (s *Server) listParagraphs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"paragraphs": advisorFrom(c).Paragraphs()})
}

// saveParagraphs applies update semantics to every paragraph in ID order.
// Paragraphs saved before a failure stay saved.
func (s *Server) saveParagraphs(c *gin.Context) {
	var req paragraphsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	adv := advisorFrom(c)
	ids := make([]string, 0, len(req.Paragraphs))
	for id := range req.Paragraphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	out := make(map[string][]advisor.AdviceItem, len(ids))
	for _, id := range ids {
		items, err := adv.UpdateParagraph(ctx, id, req.Paragraphs[id])
		if err != nil {
			respondAdvisorError(c, err)
			return
		}
		out[id] = items
	}
	c.JSON(http.StatusOK, gin.H{"advice": out})
}

func (s *Server) reviewWholeText(c *gin.Context) {
	var req paragraphsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	out, err := advisorFrom(c).ProcessWholeText(ctx, req.Paragraphs)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": out})
}

func (s *Server) updateParagraph(c *gin.Context) {
	var req paragraphReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	adv := advisorFrom(c)
	pid := c.Param("pid")
	previous, existed := adv.Paragraph(pid)

	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	items, err := adv.UpdateParagraph(ctx, pid, req.Text)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}

	resp := paragraphResp{ParagraphID: pid, Advice: items}
	if existed {
		resp.Diff = textdiff.Render(previous, req.Text)
		if resp.DiffHTML, err = export.DiffHTML(resp.Diff); err != nil {
			s.log.Warn("diff html render failed", "paragraph_id", pid, "error", err)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listAdvice(c *gin.Context) {
	pid := c.Param("pid")
	items, err := advisorFrom(c).Advice(pid)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	c.JSON(http.StatusOK, paragraphResp{ParagraphID: pid, Advice: items})
}

func (s *Server) scoreParagraph(c *gin.Context) {
	var req scoreReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	score, err := advisorFrom(c).ScoreParagraph(ctx, c.Param("pid"), req.Text)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paragraph_id": c.Param("pid"), "score": score})
}

func (s *Server) viewThread(c *gin.Context) {
	turns, err := advisorFrom(c).ParagraphThread(c.Param("pid"), c.Param("key"))
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": turns})
}

func (s *Server) replyThread(c *gin.Context) {
	var req replyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	turns, err := advisorFrom(c).ParagraphReply(ctx, c.Param("pid"), c.Param("key"), req.Reply)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": turns})
}

func (s *Server) enhance(c *gin.Context) {
	var req advisor.EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	res, err := advisorFrom(c).EnhanceParagraph(ctx, req)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) exportHTML(c *gin.Context) {
	doc, err := export.Collect(c.DefaultQuery("title", "Grant proposal review"), advisorFrom(c), s.questions)
	if err != nil {
		respondAdvisorError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := s.annotator.Annotate(&buf, doc); err != nil {
		respondError(c, http.StatusInternalServerError, "export_failed", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
