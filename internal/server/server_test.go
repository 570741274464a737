package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akshaymalik1995/llm-agent/config"
	"github.com/akshaymalik1995/llm-agent/internal/interp"
	"github.com/akshaymalik1995/llm-agent/internal/planner"
	"github.com/akshaymalik1995/llm-agent/internal/registry"
	"github.com/akshaymalik1995/llm-agent/internal/tooling"
	"github.com/akshaymalik1995/llm-agent/models"
	"github.com/akshaymalik1995/llm-agent/provider"
)

// scriptedProvider replays canned completions in order.
type scriptedProvider struct {
	responses []string
}

func (s *scriptedProvider) Complete(ctx context.Context, prompt string, opts provider.Options) (string, error) {
	if len(s.responses) == 0 {
		return "fallback completion", nil
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return out, nil
}

func testServer(t *testing.T, prov provider.Provider) *Server {
	t.Helper()
	cfg := &config.Config{
		LLM:       config.LLMConfig{Model: "gpt-4o-mini", MaxContextTokens: 25000, ContextTokenBuffer: 2000},
		Agent:     config.AgentConfig{MaxIterations: 10},
		Tools:     config.ToolsConfig{ListFilesLimit: 20},
		Execution: config.ExecutionConfig{GraceSeconds: 600, SubscriberBuffer: 64},
	}
	tools := tooling.NewRegistry()
	if err := tools.Register(tooling.NewCurrentTimeTool()); err != nil {
		t.Fatalf("register: %v", err)
	}
	return &Server{
		cfg:      cfg,
		planner:  planner.New(cfg, prov, tools),
		interp:   interp.New(prov, tools),
		registry: registry.New(cfg.Execution.GracePeriod(), cfg.Execution.SubscriberBuffer),
		tools:    tools,
		logger:   log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

const timePlanJSON = `{
  "plan": [
    {"id": "T1", "type": "tool", "tool_name": "get_current_time", "arguments": {}, "output_name": "now"},
    {"id": "END", "type": "end"}
  ],
  "max_iterations": 2,
  "reasoning": "a single tool call suffices"
}`

func waitTerminal(t *testing.T, s *Server, id string) registry.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := s.registry.Get(id, true)
		if !ok {
			t.Fatalf("execution %s vanished", id)
		}
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("execution %s did not terminate", id)
	return registry.Snapshot{}
}

func TestPlanEndpointRoundTripsIntoStart(t *testing.T) {
	srv := testServer(t, &scriptedProvider{responses: []string{timePlanJSON}})
	e := srv.newEcho()

	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{"query": "What time is it?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("plan returned %d: %s", rec.Code, rec.Body.String())
	}

	var planned planResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &planned); err != nil {
		t.Fatalf("decode plan response: %v", err)
	}
	if planned.Plan == nil || len(planned.Plan.Steps) != 2 {
		t.Fatalf("unexpected plan: %+v", planned.Plan)
	}

	// The planned payload must be accepted by the start operation unchanged.
	body, _ := json.Marshal(map[string]interface{}{"plan": planned.Plan, "query": planned.Query})
	req = httptest.NewRequest(http.MethodPost, "/api/executions", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start returned %d: %s", rec.Code, rec.Body.String())
	}
	var started map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	id := started["execution_id"]
	if id == "" {
		t.Fatalf("missing execution_id")
	}

	snap := waitTerminal(t, srv, id)
	if snap.Status != registry.StatusCompleted {
		t.Fatalf("unexpected status: %+v", snap)
	}
	if !strings.Contains(snap.FinalResult, "current_time") {
		t.Fatalf("final result should be the tool output: %q", snap.FinalResult)
	}
}

func TestStartRejectsInvalidPlan(t *testing.T) {
	srv := testServer(t, &scriptedProvider{})
	e := srv.newEcho()

	body := `{"plan": {"plan": [{"id": "T1", "type": "tool", "tool_name": "flux", "output_name": "x"}]}, "query": "q"}`
	req := httptest.NewRequest(http.MethodPost, "/api/executions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Diagnostics) == 0 {
		t.Fatalf("expected diagnostics, got %+v", resp)
	}
}

func TestStatusEndpointIncludesEventLog(t *testing.T) {
	srv := testServer(t, &scriptedProvider{})
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "T1", Type: planner.StepTool, ToolName: "get_current_time", OutputName: "now"},
		{ID: "END", Type: planner.StepEnd},
	}}
	id, errs := srv.Start(plan, "what time is it")
	if len(errs) > 0 {
		t.Fatalf("start: %v", errs)
	}
	waitTerminal(t, srv, id)

	e := srv.newEcho()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/executions/%s?include_events=true", id), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status returned %d", rec.Code)
	}
	var snap registry.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Events) == 0 {
		t.Fatalf("expected events in snapshot")
	}
	if !snap.Events[len(snap.Events)-1].Terminal() {
		t.Fatalf("log should end with the terminal event")
	}
}

func TestStreamEventsReplaysTerminatedExecution(t *testing.T) {
	srv := testServer(t, &scriptedProvider{})
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "T1", Type: planner.StepTool, ToolName: "get_current_time", OutputName: "now"},
		{ID: "END", Type: planner.StepEnd},
	}}
	id, errs := srv.Start(plan, "q")
	if len(errs) > 0 {
		t.Fatalf("start: %v", errs)
	}
	waitTerminal(t, srv, id)

	e := srv.newEcho()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/executions/%s/events", id), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream returned %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: execution_started") {
		t.Fatalf("missing execution_started: %s", body)
	}
	if !strings.Contains(body, "event: execution_completed") {
		t.Fatalf("missing terminal event: %s", body)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), "text/event-stream") {
		t.Fatalf("wrong content type: %s", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestStopEndpointSignalsCancellation(t *testing.T) {
	srv := testServer(t, &scriptedProvider{})
	// A goto loop that would run up to the iteration cap without a stop.
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "T1", Type: planner.StepTool, ToolName: "get_current_time", OutputName: "now"},
		{ID: "G1", Type: planner.StepGoto, GotoID: "G1"},
	}, MaxIterations: planner.HardIterationCap}
	id, errs := srv.Start(plan, "q")
	if len(errs) > 0 {
		t.Fatalf("start: %v", errs)
	}

	e := srv.newEcho()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/executions/%s/stop", id), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("stop returned %d", rec.Code)
	}

	snap := waitTerminal(t, srv, id)
	if snap.Status != registry.StatusStopped && snap.Status != registry.StatusFailed {
		t.Fatalf("unexpected status after stop: %+v", snap)
	}
}

func TestToolCatalogEndpoint(t *testing.T) {
	srv := testServer(t, &scriptedProvider{})
	e := srv.newEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("tools returned %d", rec.Code)
	}
	var resp struct {
		Tools []tooling.Info `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tools) != 1 || resp.Tools[0].Name != "get_current_time" {
		t.Fatalf("unexpected catalog: %+v", resp.Tools)
	}
}

func TestPlanEndpointMapsPlannerError(t *testing.T) {
	srv := testServer(t, &scriptedProvider{responses: []string{"garbage", "still garbage"}})
	e := srv.newEcho()
	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{"query": "hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != models.KindPlannerUnrecoverable {
		t.Fatalf("expected planner_unrecoverable, got %s", resp.Kind)
	}
	if len(resp.Diagnostics) == 0 {
		t.Fatalf("expected diagnostics list, got %+v", resp)
	}
}
