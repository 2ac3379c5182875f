package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-asc/internal/task"
	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/status"
)

// Transport is the status channel the poller queries. *transport.Transport implements it.
type Transport interface {
	Send(ctx context.Context, frame []byte) ([]byte, error)
	Reconnect(ctx context.Context) error
}

// Poller is the single background task that refreshes a status.Cache.
type Poller struct {
	cfg     *config
	conn    Transport
	cache   *status.Cache
	logger  logger.Logger
	metrics Metrics

	mu      sync.Mutex // protects taskMgr
	taskMgr *task.Manager
}

// New creates a poller publishing to cache. It doesn't start polling.
func New(conn Transport, cache *status.Cache, opts ...Option) (*Poller, error) {
	if conn == nil {
		return nil, errors.New("transport is nil")
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

	return &Poller{
		cfg:    cfg,
		conn:   conn,
		cache:  cache,
		logger: cfg.logger.With("component", "poller"),
	}, nil
}

// Metrics returns the poller metrics.
func (p *Poller) Metrics() *Metrics {
	return &p.metrics
}

// Start starts polling until ctx is done or Stop is called. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.taskMgr != nil {
		return ErrAlreadyStarted
	}

	mgr := task.NewManager(ctx, p.logger)
	if err := mgr.StartInterval("poller", p.cycle, p.cfg.interval, true); err != nil {
		return err
	}
	p.taskMgr = mgr
	p.logger.Debug("poller started", "method", "Start", "interval", p.cfg.interval)

	return nil
}

// Stop signals the polling task to return. It doesn't wait, see Wait.
func (p *Poller) Stop() {
	p.mu.Lock()
	mgr := p.taskMgr
	p.mu.Unlock()

	if mgr != nil {
		mgr.Stop()
	}
}

// Wait blocks until the polling task has returned. The poller can then be started again.
func (p *Poller) Wait() {
	p.mu.Lock()
	mgr := p.taskMgr
	p.mu.Unlock()

	if mgr == nil {
		return
	}
	mgr.Wait()

	p.mu.Lock()
	if p.taskMgr == mgr {
		p.taskMgr = nil
	}
	p.mu.Unlock()
}

func (p *Poller) cycle(ctx context.Context) bool {
	if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
		p.logger.Debug("poll cycle failed", "method", "cycle", "error", err)
	}

	return ctx.Err() == nil
}

// PollOnce runs one poll cycle and publishes its snapshot. It is what the background
// task runs on every tick and may also be called directly, e.g. to prime the cache.
func (p *Poller) PollOnce(ctx context.Context) error {
	p.metrics.incCycleCount()

	var tg status.Telegram

	raw, err := p.query(ctx, protocol.QueryState)
	if err == nil {
		if _, splitErr := protocol.SplitStatus(protocol.QueryState, raw); splitErr != nil {
			err = fmt.Errorf("%w: %w", ErrUnusableState, splitErr)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.failed(ctx, err)
		return err
	}
	tg.State = raw
	tg.CapturedAt = p.cfg.now()

	// inputs and outputs are best effort, their fields fault on their own
	if tg.Inputs, err = p.query(ctx, protocol.QueryInputs); err != nil {
		p.logger.Debug("inputs query failed", "method", "PollOnce", "error", err)
	}
	if tg.Outputs, err = p.query(ctx, protocol.QueryOutputs); err != nil {
		p.logger.Debug("outputs query failed", "method", "PollOnce", "error", err)
	}

	s := p.cfg.decoder.Decode(tg)
	if s.PartiallyDecoded() {
		p.metrics.incPartialCount()
		p.logger.Debug("partially decoded snapshot", "method", "PollOnce", "faults", len(s.Faults()))
	}

	p.cache.Publish(s)
	p.metrics.incPublishCount()
	p.metrics.resetFailures()

	return nil
}

func (p *Poller) query(ctx context.Context, q protocol.Query) ([]byte, error) {
	frame, err := q.Frame()
	if err != nil {
		return nil, err
	}

	return p.conn.Send(ctx, frame)
}

func (p *Poller) failed(ctx context.Context, err error) {
	n := p.metrics.incFailure()
	p.logger.Warn("state query failed", "method", "PollOnce", "consecutive", n, "error", err)

	if n < p.cfg.failureThreshold {
		return
	}

	p.metrics.incReconnectCount()
	if rerr := p.conn.Reconnect(ctx); rerr != nil {
		p.logger.Error("reconnect failed", "method", "PollOnce", "error", rerr)
		return
	}
	p.logger.Info("status channel reconnected", "method", "PollOnce")
	p.metrics.resetFailures()
}
