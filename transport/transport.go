package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-asc/logger"
)

var errFrameTooLarge = errors.New("frame too large")

// Transport carries request/reply pairs over one controller connection.
type Transport struct {
	cfg    *Config
	logger logger.Logger
	dialer net.Dialer

	// slot serializes requests, reconnects and dials.
	slot chan struct{}

	mu     sync.Mutex // protects conn and reader
	conn   net.Conn
	reader *bufio.Reader

	// drain is set when a request timed out with no reply; the late reply is
	// discarded before the next request. Only accessed while holding slot.
	drain bool

	closed  atomic.Bool
	metrics Metrics
}

// New creates a transport for cfg. No connection is made until Connect or the first Send.
func New(cfg *Config) (*Transport, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	return &Transport{
		cfg:    cfg,
		logger: cfg.logger.With("addr", cfg.Addr()),
		dialer: net.Dialer{Timeout: cfg.connectTimeout, KeepAlive: 15 * time.Second},
		slot:   make(chan struct{}, 1),
	}, nil
}

// Addr returns the remote address of the transport.
func (t *Transport) Addr() string {
	return t.cfg.Addr()
}

// Metrics returns the transport counters.
func (t *Transport) Metrics() *Metrics {
	return &t.metrics
}

// IsConnected reports whether a socket is currently open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil
}

// Connect dials the controller if no connection is open.
func (t *Transport) Connect(ctx context.Context) error {
	if err := t.acquire(ctx); err != nil {
		return err
	}
	defer t.release()

	_, err := t.ensureConn(ctx)

	return err
}

// Reconnect closes the current connection, if any, and dials again.
func (t *Transport) Reconnect(ctx context.Context) error {
	if err := t.acquire(ctx); err != nil {
		return err
	}
	defer t.release()

	t.logger.Info("reconnect", "method", "Reconnect")
	t.dropConn()
	_, err := t.ensureConn(ctx)

	return err
}

// Close closes the transport. A request in flight fails and later requests return ErrClosed.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.logger.Debug("close transport", "method", "Close")
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn, t.reader = nil, nil
	t.metrics.Connected.Store(0)

	return err
}

// Send writes frame and waits for one reply line, returned without its terminator.
func (t *Transport) Send(ctx context.Context, frame []byte) ([]byte, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	defer t.release()

	conn, err := t.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	if err := t.discardStray(conn); err != nil {
		return nil, t.connFailed("drain", err)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(t.cfg.writeTimeout)); err != nil {
		return nil, t.connFailed("set write deadline", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return nil, t.connFailed("write", err)
	}
	t.metrics.incRequestCount()
	t.logger.Debug("frame sent", "method", "Send", "frame", string(bytes.TrimSpace(frame)))

	reply, err := t.readReply(ctx, conn)
	if err != nil {
		return nil, err
	}
	t.metrics.incReplyCount()
	t.logger.Debug("reply received", "method", "Send", "reply", string(reply))

	return reply, nil
}

func (t *Transport) acquire(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}

	select {
	case t.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if t.closed.Load() {
		t.release()
		return ErrClosed
	}

	return nil
}

func (t *Transport) release() {
	<-t.slot
}

// ensureConn returns the open connection or dials a new one. Caller holds slot.
func (t *Transport) ensureConn(ctx context.Context) (net.Conn, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", t.cfg.Addr())
	if err != nil {
		t.metrics.incConnErrCount()
		t.logger.Warn("failed to connect", "method", "ensureConn", "error", err)
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnection, t.cfg.Addr(), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		_ = conn.Close()
		return nil, ErrClosed
	}
	t.conn = conn
	t.reader = bufio.NewReaderSize(conn, 512)
	t.drain = false
	t.metrics.incDialCount()
	t.metrics.Connected.Store(1)
	t.logger.Info("connected", "method", "ensureConn")

	return conn, nil
}

// dropConn closes the current connection so the next request dials again.
func (t *Transport) dropConn() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn, t.reader = nil, nil
	t.drain = false
	t.metrics.Connected.Store(0)
}

func (t *Transport) connFailed(op string, err error) error {
	t.dropConn()
	if t.closed.Load() {
		return ErrClosed
	}
	t.metrics.incConnErrCount()
	t.logger.Warn("connection failed", "method", "Send", "op", op, "error", err)

	return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
}

func (t *Transport) protocolFailed(reason string, partial []byte) error {
	t.dropConn()
	t.metrics.incProtocolErrCount()
	t.logger.Warn("protocol error", "method", "Send", "reason", reason, "partial", string(partial))

	return fmt.Errorf("%w: %s after %d bytes", ErrProtocol, reason, len(partial))
}

// discardStray drops bytes left in the read buffer and, after a timed out
// request, reads off the late reply for up to the drain window.
func (t *Transport) discardStray(conn net.Conn) error {
	reader := t.currentReader()
	if reader == nil {
		return nil
	}

	if n := reader.Buffered(); n > 0 {
		_, _ = reader.Discard(n)
		t.metrics.DrainedBytes.Add(uint64(n))
	}
	if !t.drain {
		return nil
	}
	t.drain = false

	if err := conn.SetReadDeadline(time.Now().Add(t.cfg.drainWindow)); err != nil {
		return err
	}
	for {
		if _, err := reader.ReadByte(); err != nil {
			if isTimeout(err) {
				return nil
			}
			return err
		}
		t.metrics.DrainedBytes.Add(1)
	}
}

func (t *Transport) currentReader() *bufio.Reader {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reader
}

func (t *Transport) readReply(ctx context.Context, conn net.Conn) ([]byte, error) {
	reader := t.currentReader()
	if reader == nil {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(t.cfg.replyTimeout)
	ctxBound := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline, ctxBound = d, true
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, t.connFailed("set read deadline", err)
	}

	// unblock the read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	line, err := readLine(reader, t.cfg.maxFrameSize)
	if err == nil {
		return line, nil
	}

	switch {
	case errors.Is(err, errFrameTooLarge):
		return nil, t.protocolFailed("frame exceeds max size", line)

	case isTimeout(err):
		if len(line) > 0 {
			return nil, t.protocolFailed("incomplete frame", line)
		}
		t.drain = true
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if ctxBound {
			return nil, context.DeadlineExceeded
		}
		t.metrics.incTimeoutCount()
		t.logger.Debug("reply timeout", "method", "Send", "timeout", t.cfg.replyTimeout)

		return nil, fmt.Errorf("%w after %s", ErrTimeout, t.cfg.replyTimeout)

	default:
		return nil, t.connFailed("read", err)
	}
}

// readLine reads one non-empty line terminated by CR or LF.
func readLine(r *bufio.Reader, maxSize int) ([]byte, error) {
	line := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return line, err
		}
		if b == '\r' || b == '\n' {
			if len(line) == 0 {
				continue
			}
			return line, nil
		}
		if len(line) >= maxSize {
			return line, errFrameTooLarge
		}
		line = append(line, b)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
