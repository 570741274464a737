package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akshaymalik1995/llm-agent/internal/planner"
	"github.com/akshaymalik1995/llm-agent/models"
)

// heartbeatInterval is how often an idle event stream emits a heartbeat.
const heartbeatInterval = 15 * time.Second

type planRequest struct {
	Query string `json:"query"`
}

type planResponse struct {
	Plan     *planner.Plan             `json:"plan"`
	Query    string                    `json:"query"`
	Warnings []planner.ValidationError `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error       string      `json:"error"`
	Kind        models.Kind `json:"kind"`
	Diagnostics []string    `json:"diagnostics,omitempty"`
}

// createPlan handles POST /api/plan: query in, validated plan out.
func (s *Server) createPlan(c echo.Context) error {
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	res, err := s.planner.Plan(c.Request().Context(), query)
	if err != nil {
		resp := errorResponse{Error: err.Error(), Kind: models.KindOf(err)}
		var unrecoverable *planner.UnrecoverableError
		if errors.As(err, &unrecoverable) {
			resp.Diagnostics = unrecoverable.Diagnostics
		}
		return c.JSON(http.StatusUnprocessableEntity, resp)
	}
	return c.JSON(http.StatusOK, planResponse{Plan: res.Plan, Query: query, Warnings: res.Warnings})
}

type startRequest struct {
	Plan  *planner.Plan `json:"plan"`
	Query string        `json:"query"`
}

// startExecution handles POST /api/executions. A plan round-tripped from
// createPlan is accepted unchanged.
func (s *Server) startExecution(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Plan == nil || len(req.Plan.Steps) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "plan is required")
	}

	id, errs := s.Start(req.Plan, req.Query)
	if len(errs) > 0 {
		diags := make([]string, 0, len(errs))
		for _, e := range errs {
			diags = append(diags, e.Error())
		}
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:       "plan failed validation",
			Kind:        models.KindSchemaViolation,
			Diagnostics: diags,
		})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"execution_id": id})
}

// getExecution handles GET /api/executions/:id. Pass include_events=true
// for an event log snapshot.
func (s *Server) getExecution(c echo.Context) error {
	withEvents := c.QueryParam("include_events") == "true"
	snap, ok := s.registry.Get(c.Param("id"), withEvents)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "execution not found")
	}
	return c.JSON(http.StatusOK, snap)
}

// stopExecution handles POST /api/executions/:id/stop by setting the
// execution's cancellation signal.
func (s *Server) stopExecution(c echo.Context) error {
	if !s.registry.Stop(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "execution not found")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "stopping"})
}

// listTools handles GET /api/tools.
func (s *Server) listTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"tools": s.tools.Catalog()})
}

// streamEvents handles GET /api/executions/:id/events via Server-Sent
// Events: it replays the logged events, then follows the live feed until
// the terminal event, emitting heartbeats while idle.
func (s *Server) streamEvents(c echo.Context) error {
	id := c.Param("id")
	replay, sub, ok := s.registry.Subscribe(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "execution not found")
	}
	defer s.registry.Unsubscribe(id, sub)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	writeEvent := func(event models.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("event: " + string(event.Type) + "\n")); err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	for _, event := range replay {
		if err := writeEvent(event); err != nil {
			return nil
		}
		if event.Terminal() {
			return nil
		}
	}

	ctx := c.Request().Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := writeEvent(models.HeartbeatEvent()); err != nil {
				return nil
			}
		case event, open := <-sub.C:
			if !open {
				return nil
			}
			if err := writeEvent(event); err != nil {
				return nil
			}
			if event.Terminal() {
				return nil
			}
			heartbeat.Reset(heartbeatInterval)
		}
	}
}
