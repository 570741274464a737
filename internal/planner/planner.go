package planner

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/akshaymalik1995/llm-agent/config"
	"github.com/akshaymalik1995/llm-agent/internal/tooling"
	"github.com/akshaymalik1995/llm-agent/models"
	"github.com/akshaymalik1995/llm-agent/provider"
)

// Planner turns a natural-language query into a validated execution plan.
type Planner struct {
	cfg      *config.Config
	provider provider.Provider
	registry *tooling.Registry
	logger   *log.Logger
}

// New creates a planner over the given provider and tool registry.
func New(cfg *config.Config, p provider.Provider, registry *tooling.Registry) *Planner {
	return &Planner{
		cfg:      cfg,
		provider: p,
		registry: registry,
		logger:   log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Result carries a validated plan plus non-fatal diagnostics.
type Result struct {
	Plan     *Plan
	Warnings []ValidationError
}

// Plan asks the LLM for an execution plan, extracts and validates it, and
// runs at most one structured repair round before giving up with
// planner_unrecoverable.
func (p *Planner) Plan(ctx context.Context, query string) (Result, error) {
	systemPrompt, err := BuildPlanningPrompt(p.registry.Catalog())
	if err != nil {
		return Result{}, err
	}
	userPrompt := fmt.Sprintf("Create an execution plan for: %s", query)

	opts := provider.Options{
		Model:        p.cfg.LLM.Model,
		Temperature:  0.3,
		SystemPrompt: systemPrompt,
		ForceJSON:    true,
	}

	response, err := p.provider.Complete(ctx, userPrompt, opts)
	if err != nil {
		return Result{}, fmt.Errorf("planning call failed: %w", err)
	}

	plan, warns, diags := p.tryParse(response)
	if plan != nil {
		p.logger.Printf("plan created with %d steps", len(plan.Steps))
		return Result{Plan: plan, Warnings: warns}, nil
	}

	p.logger.Printf("plan rejected (%d problems), attempting repair", len(diags))
	repairPrompt := BuildRepairPrompt(response, diags)
	response, err = p.provider.Complete(ctx, repairPrompt, opts)
	if err != nil {
		return Result{}, fmt.Errorf("repair call failed: %w", err)
	}

	plan, warns, diags = p.tryParse(response)
	if plan != nil {
		p.logger.Printf("repaired plan accepted with %d steps", len(plan.Steps))
		return Result{Plan: plan, Warnings: warns}, nil
	}
	return Result{}, models.WrapError(models.KindPlannerUnrecoverable,
		&UnrecoverableError{Diagnostics: diags}, "plan rejected after repair round")
}

// UnrecoverableError carries the diagnostics of the final rejected plan so
// the boundary can surface them as a list.
type UnrecoverableError struct {
	Diagnostics []string
}

func (e *UnrecoverableError) Error() string {
	return "diagnostics: " + strings.Join(e.Diagnostics, "; ")
}

// tryParse runs extraction, schema parsing and semantic validation,
// returning either a plan or the complete diagnostic list.
func (p *Planner) tryParse(response string) (*Plan, []ValidationError, []string) {
	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, nil, []string{err.Error()}
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		return nil, nil, []string{err.Error()}
	}
	errs, warns := Validate(plan, p.registry.Has)
	if len(errs) > 0 {
		diags := make([]string, 0, len(errs))
		for _, e := range errs {
			diags = append(diags, e.Error())
		}
		return nil, nil, diags
	}
	return plan, warns, nil
}
