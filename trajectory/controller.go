package trajectory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-asc/internal/task"
	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/status"
)

// Sender is the command channel. *transport.Transport implements it.
type Sender interface {
	Send(ctx context.Context, frame []byte) ([]byte, error)
}

// Controller submits trajectories and resolves them from published snapshots.
type Controller struct {
	cfg     *config
	conn    Sender
	cache   *status.Cache
	logger  logger.Logger
	taskMgr *task.Manager
	metrics Metrics

	active atomic.Pointer[Run]
	closed atomic.Bool
}

// New creates a controller sending on conn and observing cache.
func New(conn Sender, cache *status.Cache, opts ...Option) (*Controller, error) {
	if conn == nil {
		return nil, errors.New("sender is nil")
	}
	if cache == nil {
		return nil, errors.New("cache is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	l := cfg.logger.With("component", "trajectory")

	return &Controller{
		cfg:     cfg,
		conn:    conn,
		cache:   cache,
		logger:  l,
		taskMgr: task.NewManager(context.Background(), l),
	}, nil
}

// Metrics returns the controller metrics.
func (c *Controller) Metrics() *Metrics {
	return &c.metrics
}

// Active returns the run holding the in-flight slot, or nil.
func (c *Controller) Active() *Run {
	return c.active.Load()
}

// Submit sends traj and returns its run once the controller answered.
//
// A trajectory that can't be encoded fails with protocol.ErrInvalidArgument and a
// second submission while a run is active fails with ErrBusy; neither touches the
// transport. A rejected trajectory returns its run, already Faulted, together with
// the rejection error.
func (c *Controller) Submit(ctx context.Context, traj protocol.Trajectory) (*Run, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	frame, err := traj.Frame()
	if err != nil {
		return nil, err
	}

	run := newRun(traj, c.cfg.now())
	if !c.active.CompareAndSwap(nil, run) {
		c.metrics.incBusyCount()
		return nil, ErrBusy
	}
	c.metrics.Active.Store(1)
	if c.closed.Load() {
		c.finish(run, Outcome{State: Faulted, Err: ErrClosed, EndedAt: c.cfg.now()})
		return nil, ErrClosed
	}

	c.logger.Debug("submit trajectory", "method", "Submit", "run", run.id, "trajectory", traj.String())

	raw, err := c.conn.Send(ctx, frame)
	if err == nil {
		err = c.decode(traj, raw)
	}
	if err != nil {
		var rejected *protocol.RejectedError
		if errors.As(err, &rejected) {
			c.metrics.incRejectCount()
		}
		c.logger.Warn("trajectory not accepted", "method", "Submit", "run", run.id, "error", err)
		c.finish(run, Outcome{State: Faulted, Err: err, EndedAt: c.cfg.now()})

		return run, err
	}

	// Close may have resolved the run while the frame was in flight
	ackedAt := c.cfg.now()
	if c.closed.Load() || !run.submitted(ackedAt, ackedAt.Add(c.cfg.timeout)) {
		c.finish(run, Outcome{State: Faulted, Err: ErrClosed, EndedAt: ackedAt})
		return run, ErrClosed
	}
	c.metrics.incSubmitCount()

	if err := c.taskMgr.Start("trajectory-watch", func(ctx context.Context) bool {
		c.watch(ctx, run)
		return false
	}); err != nil {
		c.finish(run, Outcome{State: Faulted, Err: fmt.Errorf("%w: %w", ErrClosed, err), EndedAt: c.cfg.now()})
		return run, err
	}

	return run, nil
}

// Await waits until run is resolved or ctx is done. Canceling ctx only stops the
// wait; the run keeps being followed and the trajectory keeps running.
//
// The returned error is the outcome error, or ctx.Err() with the current state when
// the wait was canceled.
//
// A run completes only once some published snapshot showed its path running. A
// trajectory that started and ended between two polls is never seen and the run
// ends as TimedOut at its deadline.
func (c *Controller) Await(ctx context.Context, run *Run) (Outcome, error) {
	if run == nil {
		return Outcome{}, errors.New("run is nil")
	}

	select {
	case <-run.Done():
		o, _ := run.Outcome()
		return o, o.Err
	case <-ctx.Done():
		return Outcome{State: run.State()}, ctx.Err()
	}
}

// Abort sends the abort command. The active run, if any, resolves as Faulted with
// ErrAborted once the controller is seen idle; the in-flight slot is held until then.
func (c *Controller) Abort(ctx context.Context) error {
	if run := c.active.Load(); run != nil {
		run.markAborted()
	}

	return c.Exec(ctx, protocol.Abort)
}

// Exec sends a general command and decodes its reply.
func (c *Controller) Exec(ctx context.Context, cmd protocol.Command) error {
	frame, err := cmd.Frame()
	if err != nil {
		return err
	}

	raw, err := c.conn.Send(ctx, frame)
	if err != nil {
		return err
	}

	return c.decode(cmd, raw)
}

// Close resolves the active run as Faulted with ErrClosed and stops following it.
func (c *Controller) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.taskMgr.Shutdown()

	if run := c.active.Load(); run != nil {
		c.finish(run, Outcome{State: Faulted, Err: ErrClosed, EndedAt: c.cfg.now()})
	}
}

func (c *Controller) decode(cmd protocol.Command, raw []byte) error {
	if c.cfg.reasons != nil {
		return c.cfg.reasons.Decode(cmd, raw).Err()
	}

	return protocol.Decode(cmd, raw).Err()
}

// watch follows run until it resolves, its deadline passes or ctx is done.
func (c *Controller) watch(ctx context.Context, run *Run) {
	timer := time.NewTimer(time.Until(run.Deadline()))
	defer timer.Stop()

	for {
		// take the channel before reading so no publish is missed
		changed := c.cache.Changed()
		if o, ok := c.observe(run, c.cache.Peek()); ok {
			c.finish(run, o)
			return
		}

		select {
		case <-ctx.Done():
			c.finish(run, Outcome{State: Faulted, Err: ErrClosed, EndedAt: c.cfg.now()})
			return
		case <-timer.C:
			c.logger.Warn("trajectory timed out", "method", "watch", "run", run.id, "state", run.State().String())
			c.finish(run, Outcome{
				State:    TimedOut,
				Err:      fmt.Errorf("%w: %s after %v", ErrTimedOut, run.traj.Name(), c.cfg.timeout),
				EndedAt:  c.cfg.now(),
				Snapshot: c.cache.Peek(),
			})
			return
		case <-changed:
		}
	}
}

// observe applies snapshot s to run and returns the outcome once s resolves it.
// Snapshots captured before the acknowledgement are ignored.
func (c *Controller) observe(run *Run, s *status.RobotState) (Outcome, bool) {
	if s == nil || !s.CapturedAt.After(run.acknowledged()) {
		return Outcome{}, false
	}

	name := run.traj.Name()
	if s.Path.Name == name {
		if run.running() {
			c.logger.Debug("trajectory running", "method", "observe", "run", run.id)
		}
		return Outcome{}, false
	}

	ended := false
	faulted := s.FaultOrStopped
	if last := s.LastTrajectory; last.Path.Name == name && last.EndedAt.After(run.acknowledged()) {
		ended = true
		faulted = faulted || last.Faulted
	}
	if run.State() == Running && s.Path.IsIdle() {
		ended = true
	}
	// the controller faulted before it started the path, or the run was aborted early
	if !ended && s.Path.IsIdle() && (s.FaultOrStopped || run.isAborted()) {
		ended = true
	}
	if !ended {
		return Outcome{}, false
	}

	o := Outcome{State: Completed, EndedAt: s.CapturedAt, Snapshot: s}
	switch {
	case run.isAborted():
		o.State = Faulted
		o.Err = fmt.Errorf("%w: %s", ErrAborted, name)
	case faulted:
		o.State = Faulted
		o.Err = fmt.Errorf("%w: %s: %s", ErrFaulted, name, s.LastMessage)
	}

	return o, true
}

func (c *Controller) finish(run *Run, o Outcome) {
	if !run.resolve(o) {
		return
	}

	c.metrics.Active.Store(0)
	c.active.CompareAndSwap(run, nil)
	c.metrics.incOutcome(o.State)
	// the slot is free before waiters wake, so they can submit the next run
	run.release()

	c.logger.Debug("trajectory resolved", "method", "finish", "run", run.id, "state", o.State.String(), "error", o.Err)
}
