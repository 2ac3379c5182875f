// Package task runs the background loops of the client under a shared lifecycle.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-asc/logger"
)

// ErrStopped is returned when starting a task on a stopped Manager.
var ErrStopped = errors.New("task manager stopped")

// Func is the body of a task. It's called repeatedly, or on every tick for interval
// tasks, until it returns false or the Manager is stopped. ctx is canceled on Stop.
type Func func(ctx context.Context) bool

// Manager manages the lifecycle of goroutines.
//
// Stop cancels the context handed to every task and Wait blocks until all of them
// have returned. After Wait the Manager can be reused, unless it was shut down.
//
//	mgr := task.NewManager(ctx, logger)
//	_ = mgr.StartInterval("poll", poll, 200*time.Millisecond, true)
//	...
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx   context.Context
	logger logger.Logger

	mu     sync.RWMutex // protects ctx and cancel
	ctx    context.Context
	cancel context.CancelFunc

	taskMu  sync.RWMutex // blocks task creation during Wait
	wg      sync.WaitGroup
	count   atomic.Int32
	tickers sync.Map // map[string]*time.Ticker

	shutdown atomic.Bool
}

// NewManager creates a Manager whose tasks are canceled with ctx.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

func (mgr *Manager) context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start starts a task that loops over fn.
func (mgr *Manager) Start(name string, fn Func) error {
	mgr.logger.Debug("start task", "name", name)

	return mgr.spawn(name, func(ctx context.Context) {
		for ctx.Err() == nil {
			if !mgr.call(ctx, name, fn) {
				return
			}
		}
	})
}

// StartInterval starts a task that calls fn every interval. If runNow is true
// fn is also called once right away, inside the task goroutine.
func (mgr *Manager) StartInterval(name string, fn Func, interval time.Duration, runNow bool) error {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval, "runNow", runNow)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)
	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}
	cleanup := func() {
		ticker.Stop()
		mgr.tickers.CompareAndDelete(name, ticker)
	}

	err := mgr.spawn(name, func(ctx context.Context) {
		defer cleanup()

		if runNow && !mgr.call(ctx, name, fn) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !mgr.call(ctx, name, fn) {
					return
				}
			}
		}
	})
	if err != nil {
		cleanup()
	}

	return err
}

// StopInterval stops the ticker of the named interval task. The task itself
// returns on the next Stop.
func (mgr *Manager) StopInterval(name string) error {
	val, ok := mgr.tickers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("interval task %s not found", name)
	}
	val.(*time.Ticker).Stop()

	return nil
}

// Stop signals all tasks to return.
func (mgr *Manager) Stop() {
	mgr.tickers.Range(func(_, value any) bool {
		value.(*time.Ticker).Stop()
		return true
	})

	mgr.mu.Lock()
	mgr.cancel()
	mgr.mu.Unlock()
}

// Wait waits for all tasks to return and rearms the Manager.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	if mgr.ctx.Err() != nil && mgr.pctx.Err() == nil && !mgr.shutdown.Load() {
		mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	}
	mgr.mu.Unlock()
}

// Shutdown stops all tasks, waits for them and leaves the Manager stopped for good:
// later starts fail with ErrStopped.
func (mgr *Manager) Shutdown() {
	mgr.shutdown.Store(true)
	mgr.Stop()
	mgr.Wait()
}

// Count returns the number of running tasks.
func (mgr *Manager) Count() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) spawn(name string, body func(ctx context.Context)) error {
	mgr.taskMu.RLock()
	defer mgr.taskMu.RUnlock()

	ctx := mgr.context()
	if ctx.Err() != nil {
		return fmt.Errorf("start %s: %w", name, ErrStopped)
	}

	mgr.wg.Add(1)
	mgr.count.Add(1)
	go func() {
		defer func() {
			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.Count())
		}()

		body(ctx)
	}()

	return nil
}

// call runs fn once. A panic is logged and keeps the task running.
func (mgr *Manager) call(ctx context.Context, name string, fn Func) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			cont = true
		}
	}()

	return fn(ctx)
}
