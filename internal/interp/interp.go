package interp

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/akshaymalik1995/llm-agent/internal/execenv"
	"github.com/akshaymalik1995/llm-agent/internal/planner"
	"github.com/akshaymalik1995/llm-agent/internal/tooling"
	"github.com/akshaymalik1995/llm-agent/models"
	"github.com/akshaymalik1995/llm-agent/provider"
)

// Observer receives lifecycle events as the interpreter produces them.
// Publish must not block: slow consumers are the observer's problem.
type Observer interface {
	Publish(event models.Event)
}

// Status is the terminal state of one interpreter run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Outcome summarises a finished run.
type Outcome struct {
	Status      Status
	FinalResult string
	Reason      models.Kind
	Err         error
}

// Interpreter executes validated plans. It is stateless across runs; each
// Run owns its environment and walks the plan in a single goroutine.
type Interpreter struct {
	provider provider.Provider
	tools    *tooling.Registry
	logger   *log.Logger
}

// New creates an interpreter over the given provider and tool registry.
func New(p provider.Provider, tools *tooling.Registry) *Interpreter {
	return &Interpreter{
		provider: p,
		tools:    tools,
		logger:   log.New(log.Writer(), "[INTERP] ", log.LstdFlags),
	}
}

// Run executes the plan against env, publishing events to obs. The
// iteration limit counts fetched steps; maxIterations must already be
// resolved via Plan.EffectiveIterations. Cancel ctx to stop the run at the
// next between-step check.
func (it *Interpreter) Run(ctx context.Context, plan *planner.Plan, env *execenv.Environment, maxIterations int, obs Observer) Outcome {
	index := plan.IndexByID()
	pointer := 0
	iterations := 0
	lastResult := ""

	obs.Publish(models.ExecutionStartedEvent(time.Now().UTC()))

	for {
		if ctx.Err() != nil {
			obs.Publish(models.ExecutionStoppedEvent(time.Now().UTC()))
			return Outcome{Status: StatusStopped}
		}
		if iterations >= maxIterations {
			err := models.NewError(models.KindIterationCapExceeded, "iteration cap %d reached", maxIterations)
			obs.Publish(models.ExecutionFailedEvent(models.KindIterationCapExceeded, err.Error(), time.Now().UTC()))
			return Outcome{Status: StatusFailed, Reason: models.KindIterationCapExceeded, Err: err}
		}
		if pointer >= len(plan.Steps) {
			// Fall-off past the last step is an implicit end.
			obs.Publish(models.ExecutionCompletedEvent(lastResult, time.Now().UTC()))
			return Outcome{Status: StatusCompleted, FinalResult: lastResult}
		}

		step := plan.Steps[pointer]
		iterations++
		obs.Publish(models.StepStartedEvent(step.ID, string(step.Type), step.Description))

		switch step.Type {
		case planner.StepLLM:
			result, err := it.runLLMStep(ctx, step, env)
			if err != nil {
				return it.failStep(ctx, obs, step, err)
			}
			lastResult = result
			obs.Publish(models.StepCompletedEvent(step.ID, true, result))
			pointer++

		case planner.StepTool:
			result, err := it.runToolStep(ctx, step, env)
			if err != nil {
				return it.failStep(ctx, obs, step, err)
			}
			lastResult = result
			obs.Publish(models.StepCompletedEvent(step.ID, true, result))
			pointer++

		case planner.StepIf:
			taken, warnings, err := EvalCondition(step.Condition, env)
			for _, w := range warnings {
				it.logger.Printf("step %s condition: %s", step.ID, w)
			}
			if err != nil {
				// Malformed conditions degrade to branch-not-taken; the
				// validator keeps well-formed plans from reaching this.
				it.logger.Printf("step %s condition %q: %v", step.ID, step.Condition, err)
				taken = false
			}
			branch := "branch-not-taken"
			if taken {
				target, ok := index[step.GotoID]
				if !ok {
					return it.failStep(ctx, obs, step, models.NewError(models.KindDanglingGoto, "goto_id %q does not name a step", step.GotoID))
				}
				pointer = target
				branch = "branch-taken"
			} else {
				pointer++
			}
			obs.Publish(models.StepCompletedEvent(step.ID, true, branch))

		case planner.StepGoto:
			target, ok := index[step.GotoID]
			if !ok {
				return it.failStep(ctx, obs, step, models.NewError(models.KindDanglingGoto, "goto_id %q does not name a step", step.GotoID))
			}
			pointer = target
			success := true
			obs.Publish(models.Event{Type: models.EventStepCompleted, StepID: step.ID, Success: &success})

		case planner.StepEnd:
			success := true
			obs.Publish(models.Event{Type: models.EventStepCompleted, StepID: step.ID, Success: &success})
			obs.Publish(models.ExecutionCompletedEvent(lastResult, time.Now().UTC()))
			return Outcome{Status: StatusCompleted, FinalResult: lastResult}

		default:
			return it.failStep(ctx, obs, step, models.NewError(models.KindUnknownStepType, "unknown step type %q", step.Type))
		}
	}
}

// failStep publishes the failed step completion followed by the terminal
// event. Cancellation surfaced through an in-flight call ends the run as
// stopped rather than failed.
func (it *Interpreter) failStep(ctx context.Context, obs Observer, step planner.Step, err error) Outcome {
	obs.Publish(models.StepFailedEvent(step.ID, err.Error()))
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || models.KindOf(err) == models.KindLLMCancelled {
		obs.Publish(models.ExecutionStoppedEvent(time.Now().UTC()))
		return Outcome{Status: StatusStopped, Err: err}
	}
	reason := models.KindOf(err)
	obs.Publish(models.ExecutionFailedEvent(reason, err.Error(), time.Now().UTC()))
	return Outcome{Status: StatusFailed, Reason: reason, Err: err}
}

func (it *Interpreter) runLLMStep(ctx context.Context, step planner.Step, env *execenv.Environment) (string, error) {
	prompt, _, missing := env.Render(step.Prompt)
	for _, name := range missing {
		it.logger.Printf("step %s: %s", step.ID, models.NewError(models.KindMissingRef, "reference %q is unbound, substituted empty string", name))
	}

	response, err := it.provider.Complete(ctx, prompt, provider.Options{})
	if err != nil {
		return "", err
	}
	if step.OutputName != "" {
		if err := env.Bind(step.OutputName, response); err != nil {
			return "", err
		}
	}
	return response, nil
}

func (it *Interpreter) runToolStep(ctx context.Context, step planner.Step, env *execenv.Environment) (string, error) {
	args := make(map[string]interface{}, len(step.Arguments))
	for key, value := range step.Arguments {
		// Templated string arguments render against the environment and
		// always yield strings; literal values pass through untouched.
		if s, ok := value.(string); ok {
			rendered, _, missing := env.Render(s)
			for _, name := range missing {
				it.logger.Printf("step %s argument %s: %s", step.ID, key, models.NewError(models.KindMissingRef, "reference %q is unbound, substituted empty string", name))
			}
			args[key] = rendered
			continue
		}
		args[key] = value
	}

	result, err := it.tools.Dispatch(ctx, step.ToolName, args)
	if err != nil {
		return "", err
	}
	if step.OutputName != "" {
		if err := env.Bind(step.OutputName, result); err != nil {
			return "", err
		}
	}
	return result, nil
}
