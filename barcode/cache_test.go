package barcode

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
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
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

// tableSender serves the datamatrix table of a simulator model.
type tableSender struct {
	calls   atomic.Int32
	release chan struct{}

	mu    sync.Mutex
	model simulator.Model
	err   error
}

func newTableSender(pucks map[int]string) *tableSender {
	m := simulator.DefaultModel()
	m.Pucks = pucks

	return &tableSender{model: m}
}

func (s *tableSender) Send(ctx context.Context, frame []byte) ([]byte, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(string(frame)) != "sampledata" {
		return []byte("Command not found"), nil
	}
	if s.err != nil {
		return nil, s.err
	}

	return s.model.SampleDataFrame(), nil
}

func (s *tableSender) set(pucks map[int]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.model.Pucks = pucks
}

func puck(t *testing.T, id int) sample.Position {
	t.Helper()

	p, err := sample.NewPuck(id)
	require.NoError(t, err)

	return p
}

func TestCache_Resolve(t *testing.T) {
	require := require.New(t)

	sender := newTableSender(map[int]string{3: "CPS-0003", 7: "CPS-0007", 9: ""})
	c, err := New(sender)
	require.NoError(err)

	pos, err := c.Resolve(context.Background(), "CPS-0007")
	require.NoError(err)
	require.Equal(puck(t, 7), pos)
	require.Equal(int32(1), sender.calls.Load())

	// the whole table was cached by the first query
	pos, err = c.Resolve(context.Background(), " CPS-0003 ")
	require.NoError(err)
	require.Equal(puck(t, 3), pos)
	require.Equal(int32(1), sender.calls.Load())
	require.Equal(2, c.Len())
	require.Equal(uint64(1), c.Metrics().HitCount.Load())

	_, err = c.Resolve(context.Background(), "CPS-9999")
	require.ErrorIs(err, ErrNotFound)
	require.Equal(int32(2), sender.calls.Load())

	_, err = c.Resolve(context.Background(), "  ")
	require.ErrorIs(err, ErrEmptyCode)
}

func TestCache_ConcurrentMissesShareOneQuery(t *testing.T) {
	require := require.New(t)

	sender := newTableSender(map[int]string{5: "CPS-0005"})
	sender.release = make(chan struct{})
	c, err := New(sender)
	require.NoError(err)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan sample.Position, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos, err := c.Resolve(context.Background(), "CPS-0005")
			if err == nil {
				results <- pos
			}
		}()
	}

	require.Eventually(func() bool { return c.Metrics().MissCount.Load() == callers }, time.Second, time.Millisecond)
	// let the last caller join the in-flight query
	time.Sleep(20 * time.Millisecond)
	close(sender.release)
	wg.Wait()
	close(results)

	require.Equal(int32(1), sender.calls.Load())
	n := 0
	for pos := range results {
		require.Equal(puck(t, 5), pos)
		n++
	}
	require.Equal(callers, n)
}

func TestCache_TTL(t *testing.T) {
	require := require.New(t)

	var now atomic.Pointer[time.Time]
	start := time.Now()
	now.Store(&start)
	clock := func() time.Time { return *now.Load() }

	sender := newTableSender(map[int]string{2: "CPS-A"})
	c, err := New(sender, WithTTL(time.Minute), withClock(clock))
	require.NoError(err)

	pos, err := c.Resolve(context.Background(), "CPS-A")
	require.NoError(err)
	require.Equal(puck(t, 2), pos)

	// the puck moved; the cache still answers within the TTL
	sender.set(map[int]string{4: "CPS-A"})
	later := start.Add(59 * time.Second)
	now.Store(&later)
	pos, err = c.Resolve(context.Background(), "CPS-A")
	require.NoError(err)
	require.Equal(puck(t, 2), pos)
	require.Equal(int32(1), sender.calls.Load())

	// expired entries are resolved again rather than served
	expired := start.Add(time.Minute)
	now.Store(&expired)
	_, ok := c.Lookup("CPS-A")
	require.False(ok)
	pos, err = c.Resolve(context.Background(), "CPS-A")
	require.NoError(err)
	require.Equal(puck(t, 4), pos)
	require.Equal(int32(2), sender.calls.Load())
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	require := require.New(t)

	sender := newTableSender(map[int]string{1: "A", 2: "B"})
	c, err := New(sender)
	require.NoError(err)

	_, err = c.Resolve(context.Background(), "A")
	require.NoError(err)
	require.Equal(2, c.Len())

	c.Invalidate("A")
	require.Equal(1, c.Len())
	_, err = c.Resolve(context.Background(), "A")
	require.NoError(err)
	require.Equal(int32(2), sender.calls.Load())

	c.Purge()
	require.Equal(0, c.Len())
	_, ok := c.Lookup("B")
	require.False(ok)
}

func TestCache_PrefersOccupiedPuck(t *testing.T) {
	require := require.New(t)

	// puck 4 still carries a stale scan of the code, puck 11 holds the puck now
	model := simulator.DefaultModel()
	model.Pucks = map[int]string{11: "DUP"}
	states := status.NewCache(time.Minute)
	states.Publish(status.Decode(status.Telegram{
		State:      model.StateFrame(),
		Inputs:     model.InputsFrame(),
		Outputs:    model.OutputsFrame(),
		CapturedAt: time.Now(),
	}))

	sender := newTableSender(map[int]string{4: "DUP", 11: "DUP"})
	c, err := New(sender, WithStatus(states))
	require.NoError(err)

	pos, err := c.Resolve(context.Background(), "DUP")
	require.NoError(err)
	require.Equal(puck(t, 11), pos)

	c.Purge()
	c2, err := New(sender)
	require.NoError(err)
	pos, err = c2.Resolve(context.Background(), "DUP")
	require.NoError(err)
	require.Equal(puck(t, 4), pos)
}

func TestCache_QueryFailure(t *testing.T) {
	require := require.New(t)

	sender := newTableSender(map[int]string{1: "A"})
	sender.err = errors.New("connection reset")
	c, err := New(sender)
	require.NoError(err)

	_, err = c.Resolve(context.Background(), "A")
	require.Error(err)
	require.NotErrorIs(err, ErrNotFound)
	require.Equal(0, c.Len())
	require.Equal(uint64(1), c.Metrics().QueryErrCount.Load())
}

func TestCache_CallerCancel(t *testing.T) {
	require := require.New(t)

	sender := newTableSender(map[int]string{1: "A"})
	sender.release = make(chan struct{})
	c, err := New(sender)
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Resolve(ctx, "A")
	require.ErrorIs(err, context.DeadlineExceeded)

	// the shared query completes and fills the cache
	close(sender.release)
	require.Eventually(func() bool {
		_, ok := c.Lookup("A")
		return ok
	}, time.Second, time.Millisecond)
}

func TestCache_Table(t *testing.T) {
	require := require.New(t)

	sender := newTableSender(map[int]string{3: "CPS-0003", 7: "CPS-0007", 9: ""})
	c, err := New(sender)
	require.NoError(err)

	table, err := c.Table(context.Background())
	require.NoError(err)
	require.Equal(map[sample.Position]string{puck(t, 3): "CPS-0003", puck(t, 7): "CPS-0007"}, table)
	require.Equal(2, c.Len())

	// the returned table is the caller's own
	delete(table, puck(t, 3))
	pos, err := c.Resolve(context.Background(), "CPS-0003")
	require.NoError(err)
	require.Equal(puck(t, 3), pos)
	require.Equal(int32(1), sender.calls.Load())

	sender.err = errors.New("connection reset")
	_, err = c.Table(context.Background())
	require.Error(err)
	require.Equal(uint64(1), c.Metrics().QueryErrCount.Load())
}
