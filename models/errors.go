package models

import (
	"errors"
	"fmt"
)

// Kind identifies a stable, client-facing error category. The names are
// part of the external contract and must not change.
type Kind string

const (
	KindPlannerUnrecoverable Kind = "planner_unrecoverable"
	KindMalformedJSON        Kind = "malformed_json"
	KindSchemaViolation      Kind = "schema_violation"
	KindUnknownTool          Kind = "unknown_tool"
	KindInvalidArguments     Kind = "invalid_arguments"
	KindToolRuntimeError     Kind = "tool_runtime_error"
	KindLLMNetwork           Kind = "llm_network"
	KindLLMRateLimited       Kind = "llm_rate_limited"
	KindLLMInvalidResponse   Kind = "llm_invalid_response"
	KindLLMCancelled         Kind = "llm_cancelled"
	KindDuplicateBinding     Kind = "duplicate_binding"
	KindMissingRef           Kind = "missing_ref"
	KindIterationCapExceeded Kind = "iteration_cap_exceeded"
	KindDanglingGoto         Kind = "dangling_goto"
	KindUnknownStepType      Kind = "unknown_step_type"
	KindDuplicateID          Kind = "duplicate_id"
	KindDuplicateOutputName  Kind = "duplicate_output_name"
	KindMissingRequiredField Kind = "missing_required_field"
	KindInvalidIterationCap  Kind = "invalid_iteration_cap"
)

// AgentError is an error annotated with a stable kind.
type AgentError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Err }

// NewError creates an AgentError with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *AgentError {
	return &AgentError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError annotates err with a kind, keeping it unwrappable.
func WrapError(kind Kind, err error, format string, args ...interface{}) *AgentError {
	return &AgentError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the stable kind from err, or "internal" if it carries none.
func KindOf(err error) Kind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return "internal"
}
