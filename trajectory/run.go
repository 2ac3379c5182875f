package trajectory

import (
	"sync"
	"time"

	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/status"
	"github.com/google/uuid"
)

// State is the position of a run in the trajectory state machine.
type State uint8

const (
	Idle State = iota
	Submitted
	Running
	Completed
	Faulted
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitted:
		return "submitted"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Faulted:
		return "faulted"
	case TimedOut:
		return "timed_out"
	default:
		return "invalid"
	}
}

// Terminal reports whether s is Completed, Faulted or TimedOut.
func (s State) Terminal() bool {
	return s >= Completed
}

// Outcome is the resolution of a run.
type Outcome struct {
	State State
	// Err is nil for Completed. It wraps ErrFaulted, ErrAborted or ErrTimedOut, or is
	// the rejection returned by the controller.
	Err error

	EndedAt time.Time

	// Snapshot is the status snapshot that resolved the run, if any.
	Snapshot *status.RobotState
}

// Run is one submitted trajectory.
type Run struct {
	id          string
	traj        protocol.Trajectory
	submittedAt time.Time
	deadline    time.Time

	mu      sync.Mutex
	ackedAt time.Time
	state   State
	aborted bool
	outcome Outcome
	done    chan struct{}
}

func newRun(traj protocol.Trajectory, now time.Time) *Run {
	return &Run{
		id:          uuid.NewString(),
		traj:        traj,
		submittedAt: now,
		state:       Idle,
		done:        make(chan struct{}),
	}
}

// ID returns the unique id of the run.
func (r *Run) ID() string {
	return r.id
}

// Trajectory returns the submitted trajectory.
func (r *Run) Trajectory() protocol.Trajectory {
	return r.traj
}

// SubmittedAt returns when the run was submitted.
func (r *Run) SubmittedAt() time.Time {
	return r.submittedAt
}

// Deadline returns the time after which the run times out. It's zero until the
// controller acknowledged the trajectory.
func (r *Run) Deadline() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deadline
}

// State returns the current state of the run.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Done returns a channel closed once the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the outcome of the run and whether it is resolved.
func (r *Run) Outcome() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.outcome, r.state.Terminal()
}

func (r *Run) String() string {
	return r.traj.String() + "#" + r.id
}

// submitted moves an idle run to Submitted; it reports false when the run was
// already resolved.
func (r *Run) submitted(ackedAt, deadline time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Idle {
		return false
	}
	r.state = Submitted
	r.ackedAt = ackedAt
	r.deadline = deadline

	return true
}

// running moves a submitted run to Running; it reports whether the state changed.
func (r *Run) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Submitted {
		return false
	}
	r.state = Running

	return true
}

func (r *Run) acknowledged() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ackedAt
}

func (r *Run) markAborted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.aborted = true
}

func (r *Run) isAborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.aborted
}

// resolve records the outcome; only the first call has an effect. Waiters are
// woken by release.
func (r *Run) resolve(o Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Terminal() {
		return false
	}
	r.state = o.State
	r.outcome = o

	return true
}

func (r *Run) release() {
	close(r.done)
}
