package registry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akshaymalik1995/llm-agent/internal/execenv"
	"github.com/akshaymalik1995/llm-agent/internal/planner"
	"github.com/akshaymalik1995/llm-agent/models"
)

// Status is the lifecycle state of an execution record.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// execution is the live state of one plan being run. All fields are
// guarded by the registry mutex; the mutex is held only for O(1) work
// (appends, map updates, channel sends that cannot block).
type execution struct {
	id            string
	plan          *planner.Plan
	query         string
	status        Status
	startedAt     time.Time
	finishedAt    *time.Time
	currentStepID string
	finalResult   string
	errMsg        string
	reason        models.Kind
	environment   []execenv.Binding
	events        []models.Event
	subscribers   map[*Subscriber]struct{}
	cancel        context.CancelFunc
	expiresAt     time.Time // zero until terminal
}

// Subscriber is one consumer of an execution's live event feed. Events
// arrive on C in order; C is closed when the execution's stream ends or
// the subscriber falls behind and is detached.
type Subscriber struct {
	C chan models.Event
}

// Registry is the process-wide map of execution id to live record. It is
// the only shared mutable state in the system.
type Registry struct {
	mu         sync.Mutex
	executions map[string]*execution
	bufferSize int
	grace      time.Duration
	logger     *log.Logger
}

// New creates a registry. grace is how long terminated records stay
// available for late replay; bufferSize bounds each subscriber's delivery
// buffer.
func New(grace time.Duration, bufferSize int) *Registry {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Registry{
		executions: make(map[string]*execution),
		bufferSize: bufferSize,
		grace:      grace,
		logger:     log.New(log.Writer(), "[REGISTRY] ", log.LstdFlags),
	}
}

// Create registers a new execution in status starting and returns its id
// together with the context the interpreter task must run under.
func (r *Registry) Create(plan *planner.Plan, query string) (string, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &execution{
		id:          uuid.NewString(),
		plan:        plan,
		query:       query,
		status:      StatusStarting,
		startedAt:   time.Now().UTC(),
		subscribers: make(map[*Subscriber]struct{}),
		cancel:      cancel,
	}
	r.mu.Lock()
	r.executions[exec.id] = exec
	r.mu.Unlock()
	return exec.id, ctx
}

// MarkRunning transitions a starting execution to running.
func (r *Registry) MarkRunning(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if exec, ok := r.executions[id]; ok && exec.status == StatusStarting {
		exec.status = StatusRunning
	}
}

// Publish appends an event to the execution's log and fans it out to all
// current subscribers. A subscriber whose buffer is full is detached so
// the interpreter is never throttled by slow clients. Terminal events
// close every subscriber channel.
func (r *Registry) Publish(id string, event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return
	}
	exec.events = append(exec.events, event)
	if event.Type == models.EventStepStarted {
		exec.currentStepID = event.StepID
	}
	for sub := range exec.subscribers {
		select {
		case sub.C <- event:
		default:
			r.logger.Printf("execution %s: subscriber buffer full, detaching", id)
			delete(exec.subscribers, sub)
			close(sub.C)
		}
	}
	if event.Terminal() {
		for sub := range exec.subscribers {
			delete(exec.subscribers, sub)
			close(sub.C)
		}
	}
}

// Terminate records the final status of an execution. The transition
// happens at most once; later calls are ignored.
func (r *Registry) Terminate(id string, status Status, finalResult string, reason models.Kind, errMsg string, env []execenv.Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok || exec.status.Terminal() {
		return
	}
	now := time.Now().UTC()
	exec.status = status
	exec.finishedAt = &now
	exec.finalResult = finalResult
	exec.reason = reason
	exec.errMsg = errMsg
	exec.environment = env
	exec.expiresAt = now.Add(r.grace)
}

// Stop sets the execution's cancellation signal. The interpreter observes
// it at the next between-step check; in-flight calls are asked to cancel.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	exec, ok := r.executions[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	exec.cancel()
	return true
}

// Subscribe attaches a consumer to an execution's event stream. The
// returned slice replays all events logged so far; the subscriber's
// channel continues with live events from exactly that point on. For a
// terminated execution the channel is already closed. The hand-off is
// atomic: no event is duplicated or lost between replay and live feed.
func (r *Registry) Subscribe(id string) ([]models.Event, *Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return nil, nil, false
	}
	replay := make([]models.Event, len(exec.events))
	copy(replay, exec.events)
	sub := &Subscriber{C: make(chan models.Event, r.bufferSize)}
	if r.streamClosed(exec) {
		close(sub.C)
	} else {
		exec.subscribers[sub] = struct{}{}
	}
	return replay, sub, true
}

// streamClosed reports whether the execution's event stream has ended
// (terminal event already logged).
func (r *Registry) streamClosed(exec *execution) bool {
	n := len(exec.events)
	return n > 0 && exec.events[n-1].Terminal()
}

// Unsubscribe detaches a subscriber, e.g. when its client disconnects.
func (r *Registry) Unsubscribe(id string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return
	}
	if _, attached := exec.subscribers[sub]; attached {
		delete(exec.subscribers, sub)
		close(sub.C)
	}
}

// Snapshot is a copy of an execution's externally visible state.
type Snapshot struct {
	ID            string            `json:"execution_id"`
	Plan          *planner.Plan     `json:"plan"`
	Query         string            `json:"query"`
	Status        Status            `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
	CurrentStepID string            `json:"current_step_id,omitempty"`
	FinalResult   string            `json:"final_result,omitempty"`
	Reason        models.Kind       `json:"reason,omitempty"`
	Error         string            `json:"error,omitempty"`
	Environment   []execenv.Binding `json:"environment,omitempty"`
	Events        []models.Event    `json:"events,omitempty"`
}

// Get returns a snapshot of the execution. withEvents includes a copy of
// the event log.
func (r *Registry) Get(id string, withEvents bool) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return Snapshot{}, false
	}
	snap := Snapshot{
		ID:            exec.id,
		Plan:          exec.plan,
		Query:         exec.query,
		Status:        exec.status,
		StartedAt:     exec.startedAt,
		FinishedAt:    exec.finishedAt,
		CurrentStepID: exec.currentStepID,
		FinalResult:   exec.finalResult,
		Reason:        exec.reason,
		Error:         exec.errMsg,
		Environment:   exec.environment,
	}
	if withEvents {
		snap.Events = make([]models.Event, len(exec.events))
		copy(snap.Events, exec.events)
	}
	return snap, true
}

// SweepExpired evicts terminated records whose grace period has elapsed,
// closing any remaining subscriber channels. It returns the number of
// evicted records.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, exec := range r.executions {
		if exec.status.Terminal() && now.After(exec.expiresAt) {
			for sub := range exec.subscribers {
				delete(exec.subscribers, sub)
				close(sub.C)
			}
			delete(r.executions, id)
			evicted++
		}
	}
	return evicted
}

// StartSweeper runs the periodic eviction loop until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.SweepExpired(now); n > 0 {
					r.logger.Printf("swept %d expired executions", n)
				}
			}
		}
	}()
}

// Drain cancels every non-terminal execution; used on shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for _, exec := range r.executions {
		if !exec.status.Terminal() {
			cancels = append(cancels, exec.cancel)
		}
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
