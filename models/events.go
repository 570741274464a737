package models

import "time"

// EventType enumerates the closed set of execution lifecycle events.
type EventType string

const (
	EventExecutionStarted   EventType = "execution_started"
	EventStepStarted        EventType = "step_started"
	EventStepCompleted      EventType = "step_completed"
	EventExecutionCompleted EventType = "execution_completed"
	EventExecutionFailed    EventType = "execution_failed"
	EventExecutionStopped   EventType = "execution_stopped"
	EventHeartbeat          EventType = "heartbeat"
)

// Event is a discriminated record in an execution's ordered event stream.
// Fields not used by a given type are omitted from the wire form.
type Event struct {
	Type        EventType  `json:"type"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	StepID      string     `json:"step_id,omitempty"`
	StepType    string     `json:"step_type,omitempty"`
	Description string     `json:"description,omitempty"`
	Success     *bool      `json:"success,omitempty"`
	Result      *string    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the event closes its execution's stream.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventExecutionCompleted, EventExecutionFailed, EventExecutionStopped:
		return true
	}
	return false
}

func ExecutionStartedEvent(at time.Time) Event {
	return Event{Type: EventExecutionStarted, StartedAt: &at}
}

func StepStartedEvent(stepID, stepType, description string) Event {
	return Event{Type: EventStepStarted, StepID: stepID, StepType: stepType, Description: description}
}

func StepCompletedEvent(stepID string, success bool, result string) Event {
	return Event{Type: EventStepCompleted, StepID: stepID, Success: &success, Result: &result}
}

func StepFailedEvent(stepID string, errMsg string) Event {
	success := false
	return Event{Type: EventStepCompleted, StepID: stepID, Success: &success, Error: errMsg}
}

func ExecutionCompletedEvent(result string, at time.Time) Event {
	return Event{Type: EventExecutionCompleted, Result: &result, FinishedAt: &at}
}

func ExecutionFailedEvent(reason Kind, errMsg string, at time.Time) Event {
	return Event{Type: EventExecutionFailed, Reason: string(reason), Error: errMsg, FinishedAt: &at}
}

func ExecutionStoppedEvent(at time.Time) Event {
	return Event{Type: EventExecutionStopped, FinishedAt: &at}
}

func HeartbeatEvent() Event {
	return Event{Type: EventHeartbeat}
}
