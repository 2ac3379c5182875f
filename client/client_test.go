package client

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/arloliu/go-asc/internal/simulator"
	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
	"github.com/arloliu/go-asc/trajectory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.SetLevel(logger.ParseLevel(logLevel))

	os.Exit(m.Run())
}

func newSimClient(t *testing.T, opts ...Option) (*Client, *simulator.Controller) {
	t.Helper()

	sim := simulator.New()
	sim.TrajectoryDuration = 40 * time.Millisecond
	require.NoError(t, sim.Start())
	t.Cleanup(func() { _ = sim.Close() })

	opts = append([]Option{
		WithStatusPort(sim.StatusPort()),
		WithCommandPort(sim.CommandPort()),
		WithPollInterval(10 * time.Millisecond),
		WithStalenessBound(time.Second),
		WithTrajectoryTimeout(2 * time.Second),
	}, opts...)
	cfg, err := NewConfig(sim.Host(), opts...)
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	return c, sim
}

func TestClient_LatestState(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t)
	sim.Update(func(m *simulator.Model) {
		m.Pucks[3] = "CPS-0003"
		m.Pucks[7] = "CPS-0007"
		m.GonioPin, _ = sample.PinOf(3, 2)
	})

	require.Eventually(func() bool {
		s, freshness := c.Latest()
		if freshness != status.Fresh {
			return false
		}
		_, loaded := s.Loaded()
		return loaded
	}, time.Second, 5*time.Millisecond)

	s, err := c.State()
	require.NoError(err)
	loaded, _ := s.Loaded()
	pin, _ := sample.PinOf(3, 2)
	require.Equal(pin, loaded)

	slots, err := c.OccupiedSlots()
	require.NoError(err)
	p3, _ := sample.NewPuck(3)
	p7, _ := sample.NewPuck(7)
	require.Equal([]sample.Position{p3, p7}, slots)

	pos, err := c.ResolveBarcode(context.Background(), "CPS-0007")
	require.NoError(err)
	require.Equal(p7, pos)

	present, err := c.PuckPresent(context.Background(), "CPS-0003")
	require.NoError(err)
	require.True(present)
}

func TestClient_ReadonlyByDefault(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t)
	require.True(c.Readonly())

	traj, err := protocol.Home(robot.DoubleGripper)
	require.NoError(err)
	_, err = c.Submit(context.Background(), traj)
	require.ErrorIs(err, ErrReadonly)
	require.ErrorIs(c.PowerOff(context.Background()), ErrReadonly)
	require.ErrorIs(c.Abort(context.Background()), ErrReadonly)
	require.Empty(sim.Commands())
}

func TestClient_RunMount(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t, WithReadonly(false))
	require.Eventually(func() bool {
		_, freshness := c.Latest()
		return freshness == status.Fresh
	}, time.Second, 5*time.Millisecond)

	pin, _ := sample.PinOf(5, 9)
	// no tool: the mounted double gripper is used
	traj, err := protocol.Mount(pin, protocol.MountOptions{})
	require.NoError(err)

	outcome, err := c.Run(context.Background(), traj)
	require.NoError(err)
	require.Equal(trajectory.Completed, outcome.State)
	require.Equal([]string{"traj(put,3,5,9)"}, sim.Commands())

	require.Eventually(func() bool {
		s, _ := c.Latest()
		if s == nil {
			return false
		}
		loaded, ok := s.Loaded()
		return ok && loaded == pin
	}, time.Second, 5*time.Millisecond)
	require.Nil(c.ActiveRun())
}

func TestClient_RunFaulted(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t, WithReadonly(false))
	require.Eventually(func() bool {
		_, freshness := c.Latest()
		return freshness == status.Fresh
	}, time.Second, 5*time.Millisecond)

	sim.FailNextTrajectory()
	traj, err := protocol.Home(robot.ToolUnset)
	require.NoError(err)
	outcome, err := c.Run(context.Background(), traj)
	require.ErrorIs(err, trajectory.ErrFaulted)
	require.Equal(trajectory.Faulted, outcome.State)

	require.NoError(c.ResetFault(context.Background()))
	require.Eventually(func() bool {
		s, _ := c.Latest()
		return s != nil && !s.IsFault()
	}, time.Second, 5*time.Millisecond)
}

func TestClient_Rejected(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t, WithReadonly(false))

	sim.Reject("Doors must be closed")
	traj, err := protocol.Home(robot.DoubleGripper)
	require.NoError(err)
	outcome, err := c.Run(context.Background(), traj)
	require.ErrorIs(err, protocol.ErrRejected)
	require.Equal(trajectory.Faulted, outcome.State)

	var rejected *protocol.RejectedError
	require.ErrorAs(err, &rejected)
	require.Equal("door_open", rejected.Reason.Code)
}

func TestClient_BusyWhileRunning(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t, WithReadonly(false))
	sim.TrajectoryDuration = 200 * time.Millisecond

	traj, err := protocol.Home(robot.DoubleGripper)
	require.NoError(err)
	run, err := c.Submit(context.Background(), traj)
	require.NoError(err)

	_, err = c.Submit(context.Background(), traj)
	require.ErrorIs(err, trajectory.ErrBusy)
	require.Len(sim.Commands(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = c.Await(ctx, run)
	require.ErrorIs(err, context.DeadlineExceeded)

	outcome, err := c.Await(context.Background(), run)
	require.NoError(err)
	require.Equal(trajectory.Completed, outcome.State)
}

func TestClient_GeneralCommands(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t, WithReadonly(false))
	ctx := context.Background()

	require.NoError(c.SlowDown(ctx))
	require.NoError(c.Pause(ctx))
	require.NoError(c.Restart(ctx))
	require.NoError(c.OpenLid(ctx))
	require.NoError(c.CloseLid(ctx))
	require.NoError(c.PowerOff(ctx))
	require.NoError(c.PowerOn(ctx))
	require.NoError(c.SpeedUp(ctx))
	require.NoError(c.Exec(ctx, protocol.MagnetOn))

	require.Equal([]string{
		"speeddown", "pause", "restart", "openlid", "closelid", "off", "on", "speedup", "magneton",
	}, sim.Commands())
	require.True(sim.Model().Power)
	require.Equal(100, sim.Model().SpeedRatio)
}

func TestClient_StaleState(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t,
		WithStalenessBound(50*time.Millisecond),
		WithReplyTimeout(100*time.Millisecond),
	)
	require.Eventually(func() bool {
		_, freshness := c.Latest()
		return freshness == status.Fresh
	}, time.Second, 5*time.Millisecond)

	// the controller stops answering status queries
	sim.Mute(1 << 20)
	require.Eventually(func() bool {
		s, freshness := c.Latest()
		return freshness == status.Stale && s == nil
	}, 2*time.Second, 5*time.Millisecond)

	_, err := c.OccupiedSlots()
	require.ErrorIs(err, status.ErrStateStale)
}

func TestClient_RegisterMetrics(t *testing.T) {
	require := require.New(t)

	c, _ := newSimClient(t)
	reg := prometheus.NewRegistry()
	require.NoError(c.RegisterMetrics(reg))
	require.Error(c.RegisterMetrics(reg), "duplicate registration")

	require.Eventually(func() bool {
		return c.Metrics().Poller.PublishCount.Load() > 0
	}, time.Second, 5*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(err)
	series := make(map[string]int)
	for _, mf := range families {
		series[mf.GetName()] = len(mf.GetMetric())
	}
	require.Equal(1, series["asc_poller_published_total"])
	require.Equal(2, series["asc_transport_connected"])
}

func TestClient_OpenClose(t *testing.T) {
	require := require.New(t)

	c, _ := newSimClient(t)
	require.ErrorIs(c.Open(context.Background()), ErrAlreadyOpen)
	require.NoError(c.Close())
	require.NoError(c.Close())
	require.ErrorIs(c.Open(context.Background()), ErrClosed)
}

func TestNewConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig("asc.example.org")
	require.NoError(err)
	require.True(cfg.Readonly())
	require.Equal(DefaultStatusPort, cfg.statusPort)
	require.Equal(DefaultCommandPort, cfg.commandPort)

	_, err = NewConfig("")
	require.Error(err)
	_, err = NewConfig("h", WithStatusPort(0))
	require.Error(err)
	_, err = NewConfig("h", WithLayout(sample.Layout{}))
	require.Error(err)
	_, err = NewConfig("h", WithLogger(nil))
	require.Error(err)

	// component ranges are checked when the client is built
	cfg, err = NewConfig("h", WithPollInterval(time.Nanosecond))
	require.NoError(err)
	_, err = New(cfg)
	require.Error(err)
}

func TestClient_AutoToolChange(t *testing.T) {
	require := require.New(t)

	pin, _ := sample.PinOf(5, 9)
	traj, err := protocol.Mount(pin, protocol.MountOptions{Tool: robot.SingleGripper})
	require.NoError(err)

	c, sim := newSimClient(t, WithReadonly(false))
	require.False(c.cfg.AutoToolChange())
	require.Eventually(func() bool {
		_, freshness := c.Latest()
		return freshness == status.Fresh
	}, time.Second, 5*time.Millisecond)

	_, err = c.Run(context.Background(), traj)
	var rejected *protocol.RejectedError
	require.ErrorAs(err, &rejected)
	require.Equal("change_tool_first", rejected.Reason.Code)

	c, sim = newSimClient(t, WithReadonly(false), WithAutoToolChange(true))
	require.Eventually(func() bool {
		_, freshness := c.Latest()
		return freshness == status.Fresh
	}, time.Second, 5*time.Millisecond)

	outcome, err := c.Run(context.Background(), traj)
	require.NoError(err)
	require.Equal(trajectory.Completed, outcome.State)
	require.Equal([]string{"traj(changetool,2)", "traj(put,2,5,9)"}, sim.Commands())
	require.Equal(robot.SingleGripper, sim.Model().Tool)

	// the tool is mounted now, nothing to change
	home, err := protocol.Home(robot.SingleGripper)
	require.NoError(err)
	_, err = c.Run(context.Background(), home)
	require.NoError(err)
	require.Equal([]string{"traj(changetool,2)", "traj(put,2,5,9)", "traj(home,2)"}, sim.Commands())
}

func TestClient_AutoToolChangeOnRejection(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t, WithReadonly(false), WithAutoToolChange(true))
	require.Eventually(func() bool {
		s, freshness := c.Latest()
		return freshness == status.Fresh && s.Tool == robot.DoubleGripper
	}, time.Second, 5*time.Millisecond)

	// the tool is swapped behind the client's back; the snapshot still shows the old one
	c.poller.Stop()
	c.poller.Wait()
	sim.Update(func(m *simulator.Model) { m.Tool = robot.Cryotong })

	polling := make(chan error, 1)
	go func() {
		for len(sim.Commands()) == 0 {
			time.Sleep(time.Millisecond)
		}
		polling <- c.poller.Start(context.Background())
	}()

	home, err := protocol.Home(robot.DoubleGripper)
	require.NoError(err)
	outcome, err := c.Run(context.Background(), home)
	require.NoError(err)
	require.NoError(<-polling)
	require.Equal(trajectory.Completed, outcome.State)
	require.Equal([]string{"traj(home,3)", "traj(changetool,3)", "traj(home,3)"}, sim.Commands())
}

func TestClient_Pucks(t *testing.T) {
	require := require.New(t)

	c, sim := newSimClient(t)
	sim.Update(func(m *simulator.Model) {
		m.Pucks[3] = "CPS-0003"
		m.Pucks[7] = ""
	})
	require.Eventually(func() bool {
		slots, err := c.OccupiedSlots()
		return err == nil && len(slots) == 2
	}, time.Second, 5*time.Millisecond)

	pucks, err := c.Pucks(context.Background())
	require.NoError(err)
	require.Len(pucks, sample.DefaultLayout.NumPucks)

	p3, _ := sample.NewPuck(3)
	p7, _ := sample.NewPuck(7)
	require.Equal(PuckInfo{Puck: p3, Datamatrix: "CPS-0003", Present: true}, pucks[2])
	require.Equal(PuckInfo{Puck: p7, Present: true}, pucks[6])
	require.False(pucks[0].Present)

	loaded, err := c.LoadedPucks(context.Background())
	require.NoError(err)
	require.Equal([]PuckInfo{pucks[2], pucks[6]}, loaded)

	// the table read refreshed the barcode cache
	pos, err := c.ResolveBarcode(context.Background(), "CPS-0003")
	require.NoError(err)
	require.Equal(p3, pos)
}
