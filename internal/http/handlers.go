package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

const (
	defaultSessionLimit     = 20
	defaultInteractionLimit = 50
)

// InitRequest is the request body for POST /api/v1/interviews.
type InitRequest struct {
	UserID     string `json:"user_id"`
	ModuleCode string `json:"module_code"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ModulesResponse is the response body for GET /api/v1/modules.
type ModulesResponse struct {
	Modules []interview.Module `json:"modules"`
}

// SessionsResponse is the response body for GET /api/v1/users/:user_id/sessions.
type SessionsResponse struct {
	Sessions []interview.Summary `json:"sessions"`
}

// InteractionsResponse is the response body for GET /api/v1/users/:user_id/interactions.
type InteractionsResponse struct {
	Interactions []interview.Interaction `json:"interactions"`
}

// handleHealth runs the configured dependency checks.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if len(s.config.Checks) == 0 {
		return c.JSON(http.StatusOK, resp)
	}

	resp.Checks = make(map[string]string, len(s.config.Checks))
	status := http.StatusOK
	for name, check := range s.config.Checks {
		if err := check(c.Request().Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return c.JSON(status, resp)
}

func (s *Server) handleInitialize(c echo.Context) error {
	var req InitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := logging.WithUserID(c.Request().Context(), req.UserID)
	res, err := s.api.Initialize(ctx, req.UserID, req.ModuleCode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleAnswer(c echo.Context) error {
	var req interview.AnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.api.SubmitAnswer(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleEnterCoding(c echo.Context) error {
	res, err := s.api.EnterCoding(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleFeedback(c echo.Context) error {
	fb, err := s.api.Feedback(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fb)
}

func (s *Server) handleModules(c echo.Context) error {
	modules, err := s.api.Modules(c.Request().Context())
	if err != nil {
		return err
	}
	if modules == nil {
		modules = []interview.Module{}
	}
	return c.JSON(http.StatusOK, ModulesResponse{Modules: modules})
}

func (s *Server) handleListSessions(c echo.Context) error {
	limit, err := queryLimit(c, defaultSessionLimit)
	if err != nil {
		return err
	}

	sessions, err := s.api.ListSessions(s.userContext(c), c.Param("user_id"), limit)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []interview.Summary{}
	}
	return c.JSON(http.StatusOK, SessionsResponse{Sessions: sessions})
}

func (s *Server) handleSessionDetail(c echo.Context) error {
	detail, err := s.api.SessionDetail(s.userContext(c), c.Param("user_id"), c.Param("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) handlePatterns(c echo.Context) error {
	h, err := s.api.Patterns(s.userContext(c), c.Param("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h)
}

func (s *Server) handleInteractions(c echo.Context) error {
	limit, err := queryLimit(c, defaultInteractionLimit)
	if err != nil {
		return err
	}

	list, err := s.api.Interactions(s.userContext(c), c.Param("user_id"), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []interview.Interaction{}
	}
	return c.JSON(http.StatusOK, InteractionsResponse{Interactions: list})
}

func (s *Server) handleAnalyzeApproach(c echo.Context) error {
	var req interview.ApproachRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.api.AnalyzeApproach(logging.WithUserID(c.Request().Context(), req.UserID), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleOptimizeCode(c echo.Context) error {
	var req interview.OptimizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.api.OptimizeCode(logging.WithUserID(c.Request().Context(), req.UserID), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleRetrieveContext(c echo.Context) error {
	var req interview.ContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.api.RetrieveContext(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// queryLimit parses the optional limit query parameter.
func queryLimit(c echo.Context, def int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	return n, nil
}

func (s *Server) userContext(c echo.Context) context.Context {
	return logging.WithUserID(c.Request().Context(), c.Param("user_id"))
}
