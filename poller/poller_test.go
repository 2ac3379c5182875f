package poller

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-asc/internal/simulator"
	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
	"github.com/arloliu/go-asc/transport"
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

// fakeTransport answers queries from a simulator model, or fails them.
type fakeTransport struct {
	mu         sync.Mutex
	model      simulator.Model
	fail       map[string]error
	reconnects atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{model: simulator.DefaultModel(), fail: map[string]error{}}
}

func (f *fakeTransport) setFail(query string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		delete(f.fail, query)
		return
	}
	f.fail[query] = err
}

func (f *fakeTransport) Send(_ context.Context, frame []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	query := strings.TrimSuffix(string(frame), "\r")
	if err := f.fail[query]; err != nil {
		return nil, err
	}

	switch query {
	case "state":
		return f.model.StateFrame(), nil
	case "di":
		return f.model.InputsFrame(), nil
	case "do":
		return f.model.OutputsFrame(), nil
	default:
		return []byte("Command not found"), nil
	}
}

func (f *fakeTransport) Reconnect(context.Context) error {
	f.reconnects.Add(1)
	return nil
}

func TestPoller_PollOnce(t *testing.T) {
	require := require.New(t)

	ft := newFakeTransport()
	ft.model.Pucks[3] = ""
	ft.model.Pucks[7] = ""
	ft.model.GonioPin, _ = sample.PinOf(3, 2)

	captured := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cache := status.NewCache(time.Hour)
	p, err := New(ft, cache, withClock(func() time.Time { return captured }))
	require.NoError(err)

	require.NoError(p.PollOnce(context.Background()))

	s := cache.Peek()
	require.NotNil(s)
	require.False(s.PartiallyDecoded(), "faults: %v", s.Faults())
	require.Equal(captured, s.CapturedAt)
	require.Len(s.OccupiedSlots(), 2)
	loaded, ok := s.Loaded()
	require.True(ok)
	require.Equal(ft.model.GonioPin, loaded)
	require.Equal(uint64(1), p.Metrics().PublishCount.Load())
}

func TestPoller_PartialFramesStillPublish(t *testing.T) {
	require := require.New(t)

	ft := newFakeTransport()
	ft.setFail("do", transport.ErrTimeout)

	cache := status.NewCache(time.Hour)
	p, err := New(ft, cache)
	require.NoError(err)

	require.NoError(p.PollOnce(context.Background()))
	s := cache.Peek()
	require.True(s.PartiallyDecoded())
	require.True(s.Power)
	require.Equal(uint64(1), p.Metrics().PartialCount.Load())
}

func TestPoller_ReconnectAfterThreshold(t *testing.T) {
	require := require.New(t)

	ft := newFakeTransport()
	ft.setFail("state", transport.ErrConnection)

	cache := status.NewCache(time.Hour)
	p, err := New(ft, cache, WithFailureThreshold(3))
	require.NoError(err)

	ctx := context.Background()
	for range 2 {
		require.ErrorIs(p.PollOnce(ctx), transport.ErrConnection)
	}
	require.Equal(int32(0), ft.reconnects.Load())
	require.Equal(int32(2), p.Metrics().ConsecutiveFailures.Load())

	require.Error(p.PollOnce(ctx))
	require.Equal(int32(1), ft.reconnects.Load())
	require.Equal(int32(0), p.Metrics().ConsecutiveFailures.Load())
	require.Nil(cache.Peek())

	ft.setFail("state", nil)
	require.NoError(p.PollOnce(ctx))
	require.NotNil(cache.Peek())
	require.Equal(uint64(3), p.Metrics().FailureCount.Load())
}

func TestPoller_RejectedStateIsFailure(t *testing.T) {
	require := require.New(t)

	ft := newFakeTransport()
	p, err := New(ft, status.NewCache(time.Hour))
	require.NoError(err)

	// a reply that is not a state frame
	p.conn = sendFunc(func(context.Context, []byte) ([]byte, error) {
		return []byte("Remote mode requested"), nil
	})
	err = p.PollOnce(context.Background())
	require.ErrorIs(err, ErrUnusableState)
	require.Equal(int32(1), p.Metrics().ConsecutiveFailures.Load())
}

type sendFunc func(ctx context.Context, frame []byte) ([]byte, error)

func (f sendFunc) Send(ctx context.Context, frame []byte) ([]byte, error) {
	return f(ctx, frame)
}

func (f sendFunc) Reconnect(context.Context) error {
	return errors.New("not supported")
}

func TestPoller_Lifecycle(t *testing.T) {
	require := require.New(t)

	ft := newFakeTransport()
	cache := status.NewCache(time.Hour)
	p, err := New(ft, cache, WithInterval(10*time.Millisecond))
	require.NoError(err)

	ctx := context.Background()
	require.NoError(p.Start(ctx))
	require.ErrorIs(p.Start(ctx), ErrAlreadyStarted)

	require.Eventually(func() bool {
		s := cache.Peek()
		return s != nil && s.Generation >= 3
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Wait()

	cycles := p.Metrics().CycleCount.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(cycles, p.Metrics().CycleCount.Load())

	// restartable
	require.NoError(p.Start(ctx))
	p.Stop()
	p.Wait()
}

func TestPoller_Simulator(t *testing.T) {
	require := require.New(t)

	sim := simulator.New()
	require.NoError(sim.Start())
	defer sim.Close()
	sim.Update(func(m *simulator.Model) {
		m.Path = robot.PathPut
	})

	cfg, err := transport.NewConfig(sim.Host(), sim.StatusPort())
	require.NoError(err)
	conn, err := transport.New(cfg)
	require.NoError(err)
	defer conn.Close()

	cache := status.NewCache(time.Second)
	p, err := New(conn, cache, WithInterval(10*time.Millisecond))
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(p.Start(ctx))
	defer func() {
		p.Stop()
		p.Wait()
	}()

	require.Eventually(func() bool {
		s, freshness := cache.Latest()
		return freshness == status.Fresh && s.Busy()
	}, time.Second, 5*time.Millisecond)

	sim.Update(func(m *simulator.Model) {
		m.Path = robot.PathIdle
	})
	require.Eventually(func() bool {
		s, _ := cache.Latest()
		return s != nil && s.LastTrajectory.Path == robot.PathPut
	}, time.Second, 5*time.Millisecond)

	// the poller survives a dropped connection
	sim.DropConnections()
	gen := cache.Peek().Generation
	require.Eventually(func() bool {
		return cache.Peek().Generation > gen+2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNew_Options(t *testing.T) {
	require := require.New(t)

	cache := status.NewCache(time.Second)
	_, err := New(nil, cache)
	require.Error(err)
	_, err = New(newFakeTransport(), nil)
	require.Error(err)
	_, err = New(newFakeTransport(), cache, WithInterval(time.Millisecond))
	require.Error(err)
	_, err = New(newFakeTransport(), cache, WithFailureThreshold(0))
	require.Error(err)
	_, err = New(newFakeTransport(), cache, WithDecoder(nil))
	require.Error(err)
	_, err = New(newFakeTransport(), cache, WithLogger(nil))
	require.Error(err)
}
