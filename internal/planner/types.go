package planner

// StepType enumerates the step kinds the interpreter can execute.
type StepType string

const (
	StepLLM  StepType = "llm"
	StepTool StepType = "tool"
	StepIf   StepType = "if"
	StepGoto StepType = "goto"
	StepEnd  StepType = "end"
)

// HardIterationCap is the ceiling on any plan's max_iterations. The
// configured per-process limit acts as the default when a plan omits its
// own estimate; both are clamped to this value.
const HardIterationCap = 50

// Step is a single instruction in an execution plan. Which optional
// fields are meaningful depends on Type.
type Step struct {
	ID          string   `json:"id"`
	Type        StepType `json:"type"`
	Description string   `json:"description,omitempty"`

	// llm steps
	Prompt string `json:"prompt,omitempty"`

	// tool steps
	ToolName  string                 `json:"tool_name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`

	// control flow
	Condition string `json:"condition,omitempty"`
	GotoID    string `json:"goto_id,omitempty"`

	// input/output tracking
	InputRefs  []string `json:"input_refs,omitempty"`
	OutputName string   `json:"output_name,omitempty"`
}

// Plan is an ordered sequence of labelled steps plus an iteration hint.
type Plan struct {
	Steps         []Step `json:"plan"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// EffectiveIterations resolves the runtime iteration limit: the in-plan
// value when present, otherwise fallback, clamped to HardIterationCap.
func (p *Plan) EffectiveIterations(fallback int) int {
	limit := p.MaxIterations
	if limit <= 0 {
		limit = fallback
	}
	if limit <= 0 || limit > HardIterationCap {
		limit = HardIterationCap
	}
	return limit
}

// IndexByID builds the id -> position map used for jumps.
func (p *Plan) IndexByID() map[string]int {
	idx := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		idx[s.ID] = i
	}
	return idx
}
