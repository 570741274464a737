package planner

import (
	"encoding/json"
	"fmt"

	"github.com/akshaymalik1995/llm-agent/internal/tooling"
)

const planningPromptTemplate = `You are an AI planning assistant. Analyze the user's request and create a structured execution plan.

=== PLAN FORMAT ===

Respond ONLY with a JSON object of this shape:

{
    "plan": [
        {
            "id": "step_identifier",
            "type": "llm" | "tool" | "if" | "goto" | "end",
            "description": "Human readable description of this step",

            // For llm steps
            "prompt": "The exact prompt to send to the LLM; may reference earlier outputs as {variable_name}",
            "output_name": "variable_name_for_result",

            // For tool steps
            "tool_name": "exact_tool_name",
            "arguments": {"param1": "value1"},
            "output_name": "variable_name_for_result",

            // For conditional steps
            "condition": "variable_name == 'expected_value'",
            "goto_id": "step_to_jump_to_if_true",

            // For goto steps
            "goto_id": "step_to_jump_to",

            // For referencing previous outputs
            "input_refs": ["output_name1", "output_name2"]
        }
    ],
    "max_iterations": estimated_number,
    "reasoning": "Explanation of your planning approach"
}

=== STEP TYPES ===

1. llm: direct query to the language model. Use for answering questions, generating content, analysis.
   Example: {"id": "L1", "type": "llm", "prompt": "What is the capital of France?", "output_name": "capital"}

2. tool: execute one of the available tools listed below. You MUST NOT name a tool that is not in the catalog.
   Example: {"id": "T1", "type": "tool", "tool_name": "list_files", "arguments": {"path": "."}, "output_name": "file_list"}

3. if: jump to goto_id when the condition holds, otherwise continue with the next step. Conditions compare
   variables with ==, !=, <, <=, >, >= and may be combined with &&, || and !. Use for loops and decision points.
   Example: {"id": "C1", "type": "if", "condition": "quality_score >= 8", "goto_id": "END"}

4. goto: unconditional jump, for loops.
   Example: {"id": "LOOP", "type": "goto", "goto_id": "L2"}

5. end: mark completion. Always include as the final step: {"id": "END", "type": "end"}

=== PLANNING EXAMPLES ===

These are example plans. They may not match your specific tools, but they illustrate the structure and logic of a good plan.
Always check the input schemas of the available tools before using them.

1. Simple query

User: "Why is the sky blue?"
{
    "plan": [
        {
            "id": "L1",
            "type": "llm",
            "description": "Answer the query directly",
            "prompt": "Why is the sky blue? Explain in detail.",
            "output_name": "query_answer"
        },
        {
            "id": "END",
            "type": "end"
        }
    ],
    "max_iterations": 2,
    "reasoning": "A single LLM call answers the question."
}

2. Tool call feeding an LLM step

User: "What time is it, in words?"
{
    "plan": [
        {
            "id": "T1",
            "type": "tool",
            "description": "Look up the current time",
            "tool_name": "get_current_time",
            "arguments": {},
            "output_name": "current_time"
        },
        {
            "id": "L1",
            "type": "llm",
            "description": "Phrase the timestamp in words",
            "prompt": "Express this timestamp in plain English: {current_time}",
            "input_refs": ["current_time"],
            "output_name": "spoken_time"
        },
        {
            "id": "END",
            "type": "end"
        }
    ],
    "max_iterations": 3,
    "reasoning": "Fetch the time with a tool, then let the LLM rephrase it."
}

3. Conditional refinement

Each variable is bound exactly once, so a refinement loop must NOT jump back to a step that
already produced its output. Instead, unroll the refinement into steps with fresh output
names and use "if" to skip the remaining ones when the result is already good enough.

User: "Write a short story and improve it if needed."
{
    "plan": [
        {
            "id": "L1",
            "type": "llm",
            "description": "Write the first draft",
            "prompt": "Write a short story about {user_query}",
            "input_refs": ["user_query"],
            "output_name": "draft"
        },
        {
            "id": "L2",
            "type": "llm",
            "description": "Score the draft from 1 to 10",
            "prompt": "Rate this story from 1 to 10. Respond with only the number.\n\n{draft}",
            "input_refs": ["draft"],
            "output_name": "draft_score"
        },
        {
            "id": "C1",
            "type": "if",
            "description": "Skip the rewrite when the draft is good enough",
            "condition": "draft_score >= 8",
            "goto_id": "END"
        },
        {
            "id": "L3",
            "type": "llm",
            "description": "Rewrite the draft",
            "prompt": "Improve this story (rated {draft_score}/10):\n\n{draft}",
            "input_refs": ["draft", "draft_score"],
            "output_name": "improved_story"
        },
        {
            "id": "END",
            "type": "end"
        }
    ],
    "max_iterations": 5,
    "reasoning": "One refinement cycle with a conditional skip; every step binds a fresh variable."
}

=== RULES ===

- Every step id must be unique; every goto_id must name an existing step.
- Every output_name may be bound exactly once. A goto must never jump back to a step whose
  output_name is already bound: re-executing it fails the run. Unroll refinement cycles with
  fresh output names as in example 3.
- Declare the variables a step reads in input_refs; they must be outputs of earlier steps or the system variable user_query.
- max_iterations is your estimate of how many steps the run needs, counting loop repetitions. It must not exceed %d.
- Keep plans minimal: a simple question needs one llm step and an end step.

=== AVAILABLE TOOLS ===

%s`

// BuildPlanningPrompt renders the system prompt for the planning call:
// the plan grammar plus the registered tool catalog.
func BuildPlanningPrompt(catalog []tooling.Info) (string, error) {
	toolsJSON, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tool catalog: %w", err)
	}
	return fmt.Sprintf(planningPromptTemplate, HardIterationCap, toolsJSON), nil
}

const repairPromptTemplate = `Your previous execution plan was rejected. Produce a corrected plan.

PREVIOUS OUTPUT:
%s

PROBLEMS FOUND:
%s

Respond ONLY with the corrected JSON plan object, in the same format as before. Fix every listed problem.`

// BuildRepairPrompt renders the single repair round's user prompt from the
// rejected output and the full diagnostic list.
func BuildRepairPrompt(previous string, diagnostics []string) string {
	list := ""
	for _, d := range diagnostics {
		list += "- " + d + "\n"
	}
	return fmt.Sprintf(repairPromptTemplate, previous, list)
}
