package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[string]int{
	"not_found":          http.StatusNotFound,
	"empty_conversation": http.StatusUnprocessableEntity,
	"access_denied":      http.StatusForbidden,
	"conflict":           http.StatusConflict,
	"generation_failure": http.StatusBadGateway,
	"invalid_input":      http.StatusBadRequest,
}

// errorResponse maps err to a status code and body.
func errorResponse(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		kind := "http_error"
		if he.Code == http.StatusBadRequest {
			kind = "invalid_input"
		} else if he.Code == http.StatusNotFound {
			kind = "not_found"
		}
		return he.Code, ErrorResponse{Error: kind, Message: msg}
	}

	kind := interview.Kind(err)
	status, ok := statusByKind[kind]
	switch {
	case !ok:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal server error"}
	case status >= http.StatusInternalServerError:
		// The cause may carry upstream response bodies; it is logged instead.
		return status, ErrorResponse{Error: kind, Message: "interviewer model request failed"}
	}
	return status, ErrorResponse{Error: kind, Message: err.Error()}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug(ctx, "request rejected", zap.Int("status", status), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
