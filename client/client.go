package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-asc/barcode"
	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/poller"
	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
	"github.com/arloliu/go-asc/trajectory"
	"github.com/arloliu/go-asc/transport"
	"golang.org/x/sync/errgroup"
)

// Client talks to one sample changer controller.
type Client struct {
	cfg    *Config
	logger logger.Logger

	statusConn  *transport.Transport
	commandConn *transport.Transport

	states       *status.Cache
	poller       *poller.Poller
	trajectories *trajectory.Controller
	barcodes     *barcode.Cache

	mu     sync.Mutex // protects opened, closed and cancel
	opened bool
	closed bool
	cancel context.CancelFunc
}

// New builds a client and its components. It doesn't connect, see Open.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	l := cfg.logger.With("host", cfg.host)
	c := &Client{
		cfg:    cfg,
		logger: l,
		states: status.NewCache(cfg.stalenessBound),
	}

	var err error
	if c.statusConn, err = c.newTransport(cfg.statusPort, "status"); err != nil {
		return nil, err
	}
	if c.commandConn, err = c.newTransport(cfg.commandPort, "command"); err != nil {
		return nil, err
	}

	c.poller, err = poller.New(c.statusConn, c.states,
		poller.WithInterval(cfg.pollInterval),
		poller.WithFailureThreshold(cfg.failureThreshold),
		poller.WithDecoder(status.NewDecoder(cfg.layout)),
		poller.WithLogger(l),
	)
	if err != nil {
		return nil, err
	}

	trajOpts := []trajectory.Option{
		trajectory.WithTimeout(cfg.trajectoryTimeout),
		trajectory.WithLogger(l),
	}
	if cfg.reasons != nil {
		trajOpts = append(trajOpts, trajectory.WithReasons(cfg.reasons))
	}
	if c.trajectories, err = trajectory.New(c.commandConn, c.states, trajOpts...); err != nil {
		return nil, err
	}

	c.barcodes, err = barcode.New(c.commandConn,
		barcode.WithTTL(cfg.barcodeTTL),
		barcode.WithLayout(cfg.layout),
		barcode.WithStatus(c.states),
		barcode.WithLogger(l),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) newTransport(port int, channel string) (*transport.Transport, error) {
	cfg, err := transport.NewConfig(c.cfg.host, port,
		transport.WithConnectTimeout(c.cfg.connectTimeout),
		transport.WithReplyTimeout(c.cfg.replyTimeout),
		transport.WithLogger(c.logger.With("channel", channel)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s channel: %w", channel, err)
	}

	return transport.New(cfg)
}

// Open connects both channels, reads a first snapshot and starts the status poller.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.opened {
		return ErrAlreadyOpen
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.statusConn.Connect(gctx) })
	g.Go(func() error { return c.commandConn.Connect(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.poller.PollOnce(ctx); err != nil {
		c.logger.Warn("first status poll failed", "method", "Open", "error", err)
	}

	pctx, cancel := context.WithCancel(context.Background())
	if err := c.poller.Start(pctx); err != nil {
		cancel()
		return err
	}
	c.cancel = cancel
	c.opened = true
	c.logger.Info("client opened", "method", "Open", "readonly", c.cfg.readonly)

	return nil
}

// Close stops the poller, resolves any followed run and closes both channels.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.cancel != nil {
		c.poller.Stop()
		c.cancel()
		c.poller.Wait()
		c.cancel = nil
	}
	c.trajectories.Close()
	c.opened = false

	return errors.Join(c.statusConn.Close(), c.commandConn.Close())
}

// Readonly reports whether the client refuses commands.
func (c *Client) Readonly() bool {
	return c.cfg.readonly
}

// Latest returns the latest snapshot and its freshness. The snapshot is nil
// unless it is fresh.
func (c *Client) Latest() (*status.RobotState, status.Freshness) {
	return c.states.Latest()
}

// State returns the latest fresh snapshot, or status.ErrStateUnknown / status.ErrStateStale.
func (c *Client) State() (*status.RobotState, error) {
	return c.states.Require()
}

// Changed returns a channel closed when the next snapshot is published.
func (c *Client) Changed() <-chan struct{} {
	return c.states.Changed()
}

// OccupiedSlots returns the pucks present in the dewar according to the latest snapshot.
func (c *Client) OccupiedSlots() ([]sample.Position, error) {
	s, err := c.states.Require()
	if err != nil {
		return nil, err
	}

	return s.OccupiedSlots(), nil
}

// ResolveBarcode returns the puck carrying a datamatrix code.
func (c *Client) ResolveBarcode(ctx context.Context, code string) (sample.Position, error) {
	return c.barcodes.Resolve(ctx, code)
}

// PuckPresent resolves code and reports whether its puck is in the dewar.
func (c *Client) PuckPresent(ctx context.Context, code string) (bool, error) {
	puck, err := c.barcodes.Resolve(ctx, code)
	if err != nil {
		return false, err
	}
	s, err := c.states.Require()
	if err != nil {
		return false, err
	}

	return s.Occupied(puck), nil
}

// InvalidateBarcode drops the cached resolution of code.
func (c *Client) InvalidateBarcode(code string) {
	c.barcodes.Invalidate(code)
}

// Submit sends traj and returns its run handle.
//
// A trajectory built without a tool runs with the tool mounted according to the
// latest snapshot. With WithAutoToolChange, a tool change runs to completion
// first when traj needs another tool, and once more if the controller still
// answers that the tool must be changed.
func (c *Client) Submit(ctx context.Context, traj protocol.Trajectory) (*trajectory.Run, error) {
	if c.cfg.readonly {
		return nil, ErrReadonly
	}

	traj, err := c.withMountedTool(traj)
	if err != nil {
		return nil, err
	}

	autoChange := c.cfg.autoToolChange && traj.Path() != robot.PathChangeTool
	if autoChange {
		if err := c.ensureTool(ctx, traj.Tool(), false); err != nil {
			return nil, err
		}
	}

	run, err := c.trajectories.Submit(ctx, traj)
	if autoChange && rejectedWith(err, "change_tool_first") {
		c.logger.Info("controller asks for a tool change", "method", "Submit", "tool", traj.Tool().Name)
		if err := c.ensureTool(ctx, traj.Tool(), true); err != nil {
			return run, err
		}

		return c.trajectories.Submit(ctx, traj)
	}

	return run, err
}

// ensureTool runs a tool change to tool unless the latest snapshot shows it
// mounted already. force skips the snapshot check.
func (c *Client) ensureTool(ctx context.Context, tool robot.Tool, force bool) error {
	if !force {
		s, err := c.states.Require()
		if err != nil {
			return fmt.Errorf("mounted tool unknown: %w", err)
		}
		if s.Tool == tool {
			return nil
		}
		c.logger.Info("changing tool", "method", "ensureTool", "from", s.Tool.Name, "to", tool.Name)
	}

	change, err := protocol.ChangeTool(tool)
	if err != nil {
		return err
	}
	run, err := c.trajectories.Submit(ctx, change)
	if rejectedWith(err, "tool_already_equipped") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("change tool to %s: %w", tool.Name, err)
	}
	if _, err := c.trajectories.Await(ctx, run); err != nil {
		return fmt.Errorf("change tool to %s: %w", tool.Name, err)
	}

	return nil
}

func rejectedWith(err error, code string) bool {
	var rejected *protocol.RejectedError
	return errors.As(err, &rejected) && rejected.Reason.Code == code
}

// Await waits for run to resolve; canceling ctx only releases the caller.
func (c *Client) Await(ctx context.Context, run *trajectory.Run) (trajectory.Outcome, error) {
	return c.trajectories.Await(ctx, run)
}

// Run submits traj and waits for its outcome.
func (c *Client) Run(ctx context.Context, traj protocol.Trajectory) (trajectory.Outcome, error) {
	run, err := c.Submit(ctx, traj)
	if err != nil {
		if run != nil {
			o, _ := run.Outcome()
			return o, err
		}
		return trajectory.Outcome{}, err
	}

	return c.trajectories.Await(ctx, run)
}

// ActiveRun returns the run holding the controller, or nil.
func (c *Client) ActiveRun() *trajectory.Run {
	return c.trajectories.Active()
}

func (c *Client) withMountedTool(traj protocol.Trajectory) (protocol.Trajectory, error) {
	if traj.Tool().IsSet() {
		return traj, nil
	}

	s, err := c.states.Require()
	if err != nil {
		return traj, fmt.Errorf("no tool given and mounted tool unknown: %w", err)
	}
	if s.Tool == robot.ToolUnset {
		return traj, fmt.Errorf("%w: no tool given and none mounted", protocol.ErrInvalidArgument)
	}

	return traj.WithTool(s.Tool)
}

// Exec sends a general command.
func (c *Client) Exec(ctx context.Context, cmd protocol.General) error {
	if c.cfg.readonly {
		return ErrReadonly
	}
	c.logger.Debug("exec", "method", "Exec", "command", cmd.Name())

	return c.trajectories.Exec(ctx, cmd)
}

// Abort stops the running trajectory. The active run resolves as aborted once the
// controller reports it idle.
func (c *Client) Abort(ctx context.Context) error {
	if c.cfg.readonly {
		return ErrReadonly
	}

	return c.trajectories.Abort(ctx)
}

// PowerOn enables the robot power.
func (c *Client) PowerOn(ctx context.Context) error {
	return c.Exec(ctx, protocol.PowerOn)
}

// PowerOff disables the robot power.
func (c *Client) PowerOff(ctx context.Context) error {
	return c.Exec(ctx, protocol.PowerOff)
}

// Panic stops the robot immediately.
func (c *Client) Panic(ctx context.Context) error {
	return c.Exec(ctx, protocol.Panic)
}

// ResetFault acknowledges the controller fault.
func (c *Client) ResetFault(ctx context.Context) error {
	return c.Exec(ctx, protocol.ResetFault)
}

// Pause suspends the running trajectory.
func (c *Client) Pause(ctx context.Context) error {
	return c.Exec(ctx, protocol.Pause)
}

// Restart resumes a paused trajectory.
func (c *Client) Restart(ctx context.Context) error {
	return c.Exec(ctx, protocol.Restart)
}

// SpeedUp raises the speed ratio one step.
func (c *Client) SpeedUp(ctx context.Context) error {
	return c.Exec(ctx, protocol.SpeedUp)
}

// SlowDown lowers the speed ratio one step.
func (c *Client) SlowDown(ctx context.Context) error {
	return c.Exec(ctx, protocol.SpeedDown)
}

// OpenLid opens the dewar lid.
func (c *Client) OpenLid(ctx context.Context) error {
	return c.Exec(ctx, protocol.OpenLid)
}

// CloseLid closes the dewar lid.
func (c *Client) CloseLid(ctx context.Context) error {
	return c.Exec(ctx, protocol.CloseLid)
}
