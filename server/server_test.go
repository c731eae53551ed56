package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"grant_proposal_advisor/advisor"
)

type failingLLM struct{ out string }

func (f failingLLM) Complete(context.Context, advisor.Prompt) (string, error) {
	if f.out != "" {
		return f.out, nil
	}
	return "", errors.New("backend down")
}

func newTestServer(t *testing.T, llm advisor.LLMClient) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv, err := New(func() (advisor.Advisor, error) {
		c, err := advisor.NewCompleter(llm, 2, nil)
		if err != nil {
			return nil, err
		}
		return advisor.NewEngine(c, advisor.DefaultQuestions(), nil)
	}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createSession(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d body=%s", rec.Code, rec.Body.String())
	}
	return decode[sessionResp](t, rec).SessionID
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(t, advisor.MockLLM{})
	rec := do(t, h, http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthcheck = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionFlow(t *testing.T) {
	h := newTestServer(t, advisor.MockLLM{})
	id := createSession(t, h, `{"project_context":"Build housing for families in need"}`)
	base := "/api/sessions/" + id

	rec := do(t, h, http.MethodPut, base+"/paragraphs/q1", `{"text":"We build homes. They are safe."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body.String())
	}
	added := decode[paragraphResp](t, rec)
	if len(added.Advice) != 1 || added.Advice[0].Extract != "We build homes." || added.Diff != "" {
		t.Fatalf("added = %+v", added)
	}

	rec = do(t, h, http.MethodPut, base+"/paragraphs/q1", `{"text":"We build safe homes."}`)
	updated := decode[paragraphResp](t, rec)
	if !strings.Contains(updated.Diff, "**") || !strings.Contains(updated.DiffHTML, "<del>") {
		t.Errorf("diff = %q html = %q", updated.Diff, updated.DiffHTML)
	}

	rec = do(t, h, http.MethodGet, base+"/paragraphs", "")
	paragraphs := decode[map[string]map[string]string](t, rec)["paragraphs"]
	if paragraphs["q1"] != "We build safe homes." {
		t.Errorf("paragraphs = %v", paragraphs)
	}

	rec = do(t, h, http.MethodGet, base+"/paragraphs/q1/advice", "")
	listed := decode[paragraphResp](t, rec)
	if len(listed.Advice) != 1 {
		t.Fatalf("advice = %+v", listed)
	}
	adviceID := listed.Advice[0].ID

	rec = do(t, h, http.MethodGet, base+"/paragraphs/q1/advice/"+adviceID+"/thread", "")
	view := decode[map[string][]advisor.Turn](t, rec)["thread"]
	if len(view) != 1 || view[0].Role != "Assistant" {
		t.Errorf("view = %+v", view)
	}

	rec = do(t, h, http.MethodPost, base+"/paragraphs/q1/advice/"+adviceID+"/thread", `{"reply":"We serve 40 families."}`)
	thread := decode[map[string][]advisor.Turn](t, rec)["thread"]
	if len(thread) != 3 || thread[1].Role != "You" {
		t.Errorf("thread = %+v", thread)
	}

	rec = do(t, h, http.MethodPost, base+"/paragraphs/q1/score", "")
	if score := decode[map[string]any](t, rec)["score"]; score != 0.5 {
		t.Errorf("score = %v", score)
	}

	rec = do(t, h, http.MethodPost, base+"/enhance", `{"paragraph_ids":["q1"]}`)
	res := decode[advisor.EnhanceResult](t, rec)
	if len(res.Texts) != 1 || res.Texts[0] != "We build safe homes." {
		t.Errorf("enhance = %+v", res)
	}

	rec = do(t, h, http.MethodGet, base+"/export?title=Shelter", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("export = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<h1>Shelter</h1>") || !strings.Contains(rec.Body.String(), `<mark class="extract"`) {
		t.Errorf("export body = %s", rec.Body.String())
	}

	if rec := do(t, h, http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, base+"/paragraphs", ""); rec.Code != http.StatusNotFound {
		t.Errorf("deleted session status = %d", rec.Code)
	}
}

func TestThreadByAdviceTextWithSlash(t *testing.T) {
	const advice = "Who builds / maintains them?"
	h := newTestServer(t, failingLLM{out: `[{"extract":"We build homes.","advice":"` + advice + `"}]`})
	base := "/api/sessions/" + createSession(t, h, `{"project_context":"Housing"}`)
	if rec := do(t, h, http.MethodPut, base+"/paragraphs/q1", `{"text":"We build homes."}`); rec.Code != http.StatusOK {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, base+"/paragraphs/q1/advice/"+url.PathEscape(advice)+"/thread", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("thread status = %d body=%s", rec.Code, rec.Body.String())
	}
	view := decode[map[string][]advisor.Turn](t, rec)["thread"]
	if len(view) != 1 || view[0].Content != advice {
		t.Errorf("view = %+v", view)
	}
}

func TestBulkSaveAndWholeText(t *testing.T) {
	h := newTestServer(t, advisor.MockLLM{})
	id := createSession(t, h, "")
	base := "/api/sessions/" + id

	rec := do(t, h, http.MethodPost, base+"/paragraphs", `{"paragraphs":{"q1":"Mission first."}}`)
	if rec.Code != http.StatusBadRequest || decode[ErrorEnvelope](t, rec).Error.Code != "missing_project_context" {
		t.Fatalf("without context = %d %s", rec.Code, rec.Body.String())
	}

	do(t, h, http.MethodPut, base+"/context", `{"project_context":"Housing"}`)
	rec = do(t, h, http.MethodPost, base+"/paragraphs", `{"paragraphs":{"q1":"Mission first.","q2":"Problem second."}}`)
	saved := decode[map[string]map[string][]advisor.AdviceItem](t, rec)["advice"]
	if len(saved) != 2 || len(saved["q2"]) != 1 {
		t.Errorf("saved = %+v", saved)
	}

	rec = do(t, h, http.MethodPost, base+"/review", `{"paragraphs":{"q3":"Goal third."}}`)
	reviewed := decode[map[string]map[string][]advisor.AdviceItem](t, rec)["advice"]
	if len(reviewed["q3"]) != 1 {
		t.Errorf("reviewed = %+v", reviewed)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		llm    advisor.LLMClient
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown session", advisor.MockLLM{}, http.MethodGet, "/api/sessions/nope/paragraphs", "", http.StatusNotFound, "session_not_found"},
		{"unknown question", advisor.MockLLM{}, http.MethodPut, "/paragraphs/q9", `{"text":"x"}`, http.StatusBadRequest, "unknown_question"},
		{"paragraph not found", advisor.MockLLM{}, http.MethodGet, "/paragraphs/q1/advice", "", http.StatusNotFound, "paragraph_not_found"},
		{"enhance neither", advisor.MockLLM{}, http.MethodPost, "/enhance", `{}`, http.StatusBadRequest, "invalid_argument"},
		{"bad json", advisor.MockLLM{}, http.MethodPut, "/paragraphs/q1", `{`, http.StatusBadRequest, "invalid_request"},
		{"decode failure", failingLLM{out: "not json"}, http.MethodPut, "/paragraphs/q1", `{"text":"x"}`, http.StatusBadGateway, "decode_failed"},
		{"backend failure", failingLLM{}, http.MethodPut, "/paragraphs/q1", `{"text":"x"}`, http.StatusBadGateway, "llm_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.llm)
			path := tt.path
			if strings.HasPrefix(path, "/paragraphs") || strings.HasPrefix(path, "/enhance") {
				path = "/api/sessions/" + createSession(t, h, `{"project_context":"Housing"}`) + path
			}
			rec := do(t, h, tt.method, path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := decode[ErrorEnvelope](t, rec).Error.Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newTestServer(t, advisor.MockLLM{})
	a := createSession(t, h, `{"project_context":"A"}`)
	b := createSession(t, h, `{"project_context":"B"}`)
	do(t, h, http.MethodPut, "/api/sessions/"+a+"/paragraphs/q1", `{"text":"Only in A."}`)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+b+"/paragraphs", "")
	if paragraphs := decode[map[string]map[string]string](t, rec)["paragraphs"]; len(paragraphs) != 0 {
		t.Errorf("session b sees %v", paragraphs)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://proposals.example.org"}))
	r.POST("/api/sessions", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "https://proposals.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://proposals.example.org" {
		t.Fatalf("allow-origin = %q", got)
	}
}
