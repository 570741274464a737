package planner

import (
	"fmt"

	"github.com/akshaymalik1995/llm-agent/models"
)

// SystemVariables are seeded into every execution environment before the
// first step runs; input_refs may reference them freely.
var SystemVariables = map[string]bool{
	"user_query": true,
}

// ValidationError is one structural defect found in a plan. Validation
// collects every defect so a repair prompt can address all of them at once.
type ValidationError struct {
	Kind   models.Kind `json:"kind"`
	StepID string      `json:"step_id,omitempty"`
	Detail string      `json:"detail"`
}

func (v ValidationError) Error() string {
	if v.StepID != "" {
		return fmt.Sprintf("%s (step %s): %s", v.Kind, v.StepID, v.Detail)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Validate checks the semantic invariants of a plan: unique ids, resolvable
// jump targets, known step types and tools, write-once output names, and a
// sane iteration cap. hasTool resolves tool names against the registry; nil
// skips catalog checks. The second return value carries non-fatal warnings
// (currently unresolved input_refs, which the runtime tolerates).
func Validate(p *Plan, hasTool func(string) bool) (errs []ValidationError, warns []ValidationError) {
	if len(p.Steps) == 0 {
		errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, Detail: "plan has no steps"})
		return errs, nil
	}

	if p.MaxIterations < 0 || p.MaxIterations > HardIterationCap {
		errs = append(errs, ValidationError{
			Kind:   models.KindInvalidIterationCap,
			Detail: fmt.Sprintf("max_iterations %d outside [1, %d]", p.MaxIterations, HardIterationCap),
		})
	}

	ids := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.ID == "" {
			errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, Detail: "step id must not be empty"})
			continue
		}
		if ids[s.ID] {
			errs = append(errs, ValidationError{Kind: models.KindDuplicateID, StepID: s.ID, Detail: "step id used more than once"})
		}
		ids[s.ID] = true
	}

	outputs := make(map[string]bool)
	available := make(map[string]bool)
	for name := range SystemVariables {
		available[name] = true
	}

	for _, s := range p.Steps {
		switch s.Type {
		case StepLLM:
			if s.Prompt == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "llm step requires prompt"})
			}
			if s.OutputName == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "llm step requires output_name"})
			}
		case StepTool:
			if s.ToolName == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "tool step requires tool_name"})
			} else if hasTool != nil && !hasTool(s.ToolName) {
				errs = append(errs, ValidationError{Kind: models.KindUnknownTool, StepID: s.ID, Detail: fmt.Sprintf("tool %q is not in the catalog", s.ToolName)})
			}
			if s.OutputName == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "tool step requires output_name"})
			}
		case StepIf:
			if s.Condition == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "if step requires condition"})
			}
			if s.GotoID == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "if step requires goto_id"})
			} else if !ids[s.GotoID] {
				errs = append(errs, ValidationError{Kind: models.KindDanglingGoto, StepID: s.ID, Detail: fmt.Sprintf("goto_id %q does not name a step", s.GotoID)})
			}
		case StepGoto:
			if s.GotoID == "" {
				errs = append(errs, ValidationError{Kind: models.KindMissingRequiredField, StepID: s.ID, Detail: "goto step requires goto_id"})
			} else if !ids[s.GotoID] {
				errs = append(errs, ValidationError{Kind: models.KindDanglingGoto, StepID: s.ID, Detail: fmt.Sprintf("goto_id %q does not name a step", s.GotoID)})
			}
		case StepEnd:
			// no extra fields
		default:
			errs = append(errs, ValidationError{Kind: models.KindUnknownStepType, StepID: s.ID, Detail: fmt.Sprintf("unknown step type %q", s.Type)})
		}

		if s.OutputName != "" && (s.Type == StepLLM || s.Type == StepTool) {
			if outputs[s.OutputName] {
				errs = append(errs, ValidationError{Kind: models.KindDuplicateOutputName, StepID: s.ID, Detail: fmt.Sprintf("output_name %q bound by an earlier step", s.OutputName)})
			}
			outputs[s.OutputName] = true
		}

		// input_refs resolve against outputs of earlier steps in written
		// order; misses are warnings, the runtime binds empty strings.
		for _, ref := range s.InputRefs {
			if !available[ref] {
				warns = append(warns, ValidationError{Kind: models.KindMissingRef, StepID: s.ID, Detail: fmt.Sprintf("input ref %q is not produced by an earlier step", ref)})
			}
		}
		if s.OutputName != "" {
			available[s.OutputName] = true
		}
	}

	return errs, warns
}
