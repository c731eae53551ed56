package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"grant_proposal_advisor/advisor"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondAdvisorError maps engine errors onto HTTP statuses. Anything not
// recognised is treated as a failed model invocation.
func respondAdvisorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, advisor.ErrMissingProjectContext):
		respondError(c, http.StatusBadRequest, "missing_project_context", err)
	case errors.Is(err, advisor.ErrInvalidArgument):
		respondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, advisor.ErrUnknownQuestion):
		respondError(c, http.StatusBadRequest, "unknown_question", err)
	case errors.Is(err, advisor.ErrParagraphNotFound):
		respondError(c, http.StatusNotFound, "paragraph_not_found", err)
	case errors.Is(err, advisor.ErrAdviceNotFound):
		respondError(c, http.StatusNotFound, "advice_not_found", err)
	case errors.Is(err, advisor.ErrDecode):
		respondError(c, http.StatusBadGateway, "decode_failed", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "timeout", err)
	default:
		respondError(c, http.StatusBadGateway, "llm_error", err)
	}
}
