package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akshaymalik1995/llm-agent/config"
	"github.com/akshaymalik1995/llm-agent/internal/execenv"
	"github.com/akshaymalik1995/llm-agent/internal/interp"
	"github.com/akshaymalik1995/llm-agent/internal/planner"
	"github.com/akshaymalik1995/llm-agent/internal/registry"
	"github.com/akshaymalik1995/llm-agent/internal/telemetry"
	"github.com/akshaymalik1995/llm-agent/internal/tooling"
	"github.com/akshaymalik1995/llm-agent/models"
	"github.com/akshaymalik1995/llm-agent/provider"
)

// Server is the boundary adapter: it exposes planning, execution start and
// event subscription to the outside world. The HTTP layer is one transport
// over the same three operations the CLI uses in-process.
type Server struct {
	cfg      *config.Config
	planner  *planner.Planner
	interp   *interp.Interpreter
	registry *registry.Registry
	tools    *tooling.Registry
	logger   *log.Logger
}

// New wires the full component graph from configuration.
func New(cfg *config.Config) (*Server, error) {
	llm, err := provider.NewProvider(provider.OpenAI, cfg.LLM)
	if err != nil {
		return nil, err
	}
	llm = telemetry.InstrumentProvider(llm)

	tools := tooling.NewRegistry()
	if err := tools.Register(tooling.NewCurrentTimeTool()); err != nil {
		return nil, err
	}
	if err := tools.Register(tooling.NewListFilesTool(cfg.Tools.ListFilesLimit)); err != nil {
		return nil, err
	}
	if err := tools.Register(tooling.NewLocalLLMTool(llm, cfg.LLM.Model)); err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		planner:  planner.New(cfg, llm, tools),
		interp:   interp.New(llm, tools),
		registry: registry.New(cfg.Execution.GracePeriod(), cfg.Execution.SubscriberBuffer),
		tools:    tools,
		logger:   log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}, nil
}

// Registry exposes the execution registry, e.g. for the CLI's local
// subscription.
func (s *Server) Registry() *registry.Registry { return s.registry }

// Tools exposes the tool registry.
func (s *Server) Tools() *tooling.Registry { return s.tools }

// Submit runs the planner for a query.
func (s *Server) Submit(ctx context.Context, query string) (planner.Result, error) {
	res, err := s.planner.Plan(ctx, query)
	if err != nil {
		telemetry.PlansCreated.WithLabelValues("error").Inc()
		return planner.Result{}, err
	}
	telemetry.PlansCreated.WithLabelValues("ok").Inc()
	return res, nil
}

// Start validates the plan, registers an execution and runs the
// interpreter in a background task, returning the execution id
// immediately.
func (s *Server) Start(plan *planner.Plan, query string) (string, []planner.ValidationError) {
	if errs, _ := planner.Validate(plan, s.tools.Has); len(errs) > 0 {
		return "", errs
	}

	id, ctx := s.registry.Create(plan, query)
	go func() {
		env := execenv.New()
		env.Seed("user_query", query)
		s.registry.MarkRunning(id)
		telemetry.ExecutionsStarted.Inc()

		obs := executionObserver{registry: s.registry, id: id}
		limit := plan.EffectiveIterations(s.cfg.Agent.MaxIterations)
		outcome := s.interp.Run(ctx, plan, env, limit, obs)

		s.registry.Terminate(id, statusFor(outcome.Status), outcome.FinalResult, outcome.Reason, errString(outcome.Err), env.Snapshot())
		telemetry.ExecutionsFinished.WithLabelValues(string(outcome.Status)).Inc()
	}()
	return id, nil
}

// Run starts the sweeper and serves HTTP until the listener fails. On
// return, pending executions are cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.registry.StartSweeper(ctx, 0)
	defer s.registry.Drain()

	e := s.newEcho()
	s.logger.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho assembles the HTTP surface: middleware, error handling, routes.
func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/plan", s.createPlan)
	api.POST("/executions", s.startExecution)
	api.GET("/executions/:id", s.getExecution)
	api.GET("/executions/:id/events", s.streamEvents)
	api.POST("/executions/:id/stop", s.stopExecution)
	api.GET("/tools", s.listTools)

	return e
}

// executionObserver forwards interpreter events into the registry and
// keeps the step metrics current.
type executionObserver struct {
	registry *registry.Registry
	id       string
}

func (o executionObserver) Publish(event models.Event) {
	if event.Type == models.EventStepStarted {
		telemetry.StepsExecuted.WithLabelValues(event.StepType).Inc()
	}
	o.registry.Publish(o.id, event)
}

func statusFor(s interp.Status) registry.Status {
	switch s {
	case interp.StatusCompleted:
		return registry.StatusCompleted
	case interp.StatusStopped:
		return registry.StatusStopped
	default:
		return registry.StatusFailed
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
