package barcode

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/sample"
	"github.com/arloliu/go-asc/status"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// Sender is the channel the datamatrix table is queried on. *transport.Transport implements it.
type Sender interface {
	Send(ctx context.Context, frame []byte) ([]byte, error)
}

// Entry is a cached resolution.
type Entry struct {
	Puck       sample.Position
	CapturedAt time.Time
}

// Cache maps datamatrix codes to pucks.
type Cache struct {
	cfg     *config
	conn    Sender
	logger  logger.Logger
	entries *xsync.MapOf[string, Entry]
	group   singleflight.Group
	metrics Metrics
}

// New creates a cache querying conn on misses.
func New(conn Sender, opts ...Option) (*Cache, error) {
	if conn == nil {
		return nil, errors.New("sender is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return &Cache{
		cfg:     cfg,
		conn:    conn,
		logger:  cfg.logger.With("component", "barcode"),
		entries: xsync.NewMapOf[string, Entry](),
	}, nil
}

// Metrics returns the cache metrics.
func (c *Cache) Metrics() *Metrics {
	return &c.metrics
}

// Resolve returns the puck carrying code.
//
// A cached resolution younger than the TTL is returned as is; otherwise the
// datamatrix table is read again. Concurrent misses for one code share a single
// query. Canceling ctx releases the caller but not the shared query.
func (c *Cache) Resolve(ctx context.Context, code string) (sample.Position, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return sample.Position{}, ErrEmptyCode
	}

	if e, ok := c.lookup(code); ok {
		c.metrics.incHitCount()
		return e.Puck, nil
	}
	c.metrics.incMissCount()

	ch := c.group.DoChan(code, func() (any, error) {
		// the query outlives a canceled leader; the transport bounds it
		return c.fetch(context.WithoutCancel(ctx), code)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return sample.Position{}, res.Err
		}
		return res.Val.(Entry).Puck, nil
	case <-ctx.Done():
		return sample.Position{}, ctx.Err()
	}
}

// Lookup returns the cached entry for code without querying the controller.
func (c *Cache) Lookup(code string) (Entry, bool) {
	return c.lookup(strings.TrimSpace(code))
}

// Invalidate drops the resolution of code.
func (c *Cache) Invalidate(code string) {
	c.entries.Delete(strings.TrimSpace(code))
}

// Purge drops every resolution.
func (c *Cache) Purge() {
	c.entries.Clear()
}

// Len returns the number of cached resolutions, expired ones included.
func (c *Cache) Len() int {
	return c.entries.Size()
}

func (c *Cache) lookup(code string) (Entry, bool) {
	e, ok := c.entries.Load(code)
	if !ok {
		return Entry{}, false
	}
	if c.cfg.now().Sub(e.CapturedAt) >= c.cfg.ttl {
		return Entry{}, false
	}

	return e, true
}

// Table reads the datamatrix table and refreshes every code it holds. The
// result maps each puck carrying a code to that code; concurrent calls share a
// single query.
func (c *Cache) Table(ctx context.Context) (map[sample.Position]string, error) {
	ch := c.group.DoChan(tableKey, func() (any, error) {
		table, err := c.query(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(table)

		return table, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return maps.Clone(res.Val.(map[sample.Position]string)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// tableKey keys whole-table reads in the query group; codes are never empty.
const tableKey = ""

// fetch reads the datamatrix table, refreshes every code it holds and returns the
// entry of code.
func (c *Cache) fetch(ctx context.Context, code string) (Entry, error) {
	table, err := c.query(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("resolve %q: %w", code, err)
	}

	found, ok := c.store(table)[code]
	if !ok {
		c.entries.Delete(code)
		c.metrics.incNotFoundCount()
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	c.logger.Debug("barcode resolved", "method", "fetch", "code", code, "puck", found.Puck.String())

	return found, nil
}

func (c *Cache) query(ctx context.Context) (map[sample.Position]string, error) {
	frame, err := protocol.QuerySampleData.Frame()
	if err != nil {
		return nil, err
	}

	c.metrics.incQueryCount()
	raw, err := c.conn.Send(ctx, frame)
	if err == nil {
		var table map[sample.Position]string
		if table, err = status.DecodeSampleData(raw, c.cfg.layout); err == nil {
			return table, nil
		}
	}

	c.metrics.incQueryErrCount()
	c.logger.Warn("datamatrix query failed", "method", "query", "error", err)

	return nil, err
}

// store caches an entry per code of table and returns them by code.
func (c *Cache) store(table map[sample.Position]string) map[string]Entry {
	now := c.cfg.now()

	byCode := make(map[string][]sample.Position, len(table))
	for puck, scanned := range table {
		byCode[scanned] = append(byCode[scanned], puck)
	}

	var state *status.RobotState
	if c.cfg.states != nil {
		state, _ = c.cfg.states.Latest()
	}

	entries := make(map[string]Entry, len(byCode))
	for scanned, pucks := range byCode {
		e := Entry{Puck: prefer(pucks, state), CapturedAt: now}
		c.entries.Store(scanned, e)
		entries[scanned] = e
	}

	return entries
}

// prefer picks among pucks sharing a code: the lowest id reported present, else the lowest id.
func prefer(pucks []sample.Position, state *status.RobotState) sample.Position {
	slices.SortFunc(pucks, func(a, b sample.Position) int {
		return a.ID() - b.ID()
	})
	if state != nil {
		for _, puck := range pucks {
			if state.Occupied(puck) {
				return puck
			}
		}
	}

	return pucks[0]
}
