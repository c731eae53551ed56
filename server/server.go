// Package server exposes advisor sessions over HTTP. Each session owns one
// engine; requests against the same session are serialized.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/export"
	"grant_proposal_advisor/logging"
)

// AdvisorFactory builds a fresh advisor for a new session.
type AdvisorFactory func() (advisor.Advisor, error)

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Questions      advisor.QuestionLookup
	Annotator      export.Annotator
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *logging.Logger
}

type Server struct {
	newAdvisor AdvisorFactory
	store      *sessionStore
	questions  advisor.QuestionLookup
	annotator  export.Annotator
	origins    []string
	timeout    time.Duration
	log        *logging.Logger
	newID      func() string
}

type session struct {
	mu      sync.Mutex
	advisor advisor.Advisor
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) set(id string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func New(newAdvisor AdvisorFactory, opts Options) (*Server, error) {
	if newAdvisor == nil {
		return nil, errors.New("advisor factory required")
	}
	if opts.Questions == nil {
		opts.Questions = advisor.DefaultQuestions()
	}
	if opts.Annotator == nil {
		opts.Annotator = export.NewHTMLAnnotator()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Server{
		newAdvisor: newAdvisor,
		store:      newStore(),
		questions:  opts.Questions,
		annotator:  opts.Annotator,
		origins:    opts.CORSOrigins,
		timeout:    opts.RequestTimeout,
		log:        opts.Logger,
		newID:      uuid.NewString,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	// Route on the escaped path so advice-text keys may carry an encoded "/".
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(CORS(s.origins))

	r.GET("/healthcheck", s.healthCheck)

	api := r.Group("/api")
	{
		api.POST("/sessions", s.createSession)

		sess := api.Group("/sessions/:id")
		sess.Use(s.loadSession)
		{
			sess.DELETE("", s.deleteSession)
			sess.PUT("/context", s.setProjectContext)
			sess.GET("/paragraphs", s.listParagraphs)
			sess.POST("/paragraphs", s.saveParagraphs)
			sess.POST("/review", s.reviewWholeText)
			sess.PUT("/paragraphs/:pid", s.updateParagraph)
			sess.GET("/paragraphs/:pid/advice", s.listAdvice)
			sess.POST("/paragraphs/:pid/score", s.scoreParagraph)
			sess.GET("/paragraphs/:pid/advice/:key/thread", s.viewThread)
			sess.POST("/paragraphs/:pid/advice/:key/thread", s.replyThread)
			sess.POST("/enhance", s.enhance)
			sess.GET("/export", s.exportHTML)
		}
	}
	return r
}

// withTimeout bounds model-backed calls by the configured request timeout.
func (s *Server) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"session_id", c.Param("id"),
		)
	}
}
