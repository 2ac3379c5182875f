package simulator

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-asc/logger"
	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
)

// Controller is a loopback controller serving a status and a command channel.
//
// Both channels answer every request; the split only mirrors how clients connect.
// Trajectories are accepted one at a time and complete after TrajectoryDuration.
type Controller struct {
	// TrajectoryDuration is how long an accepted trajectory keeps its path running.
	TrajectoryDuration time.Duration

	logger logger.Logger

	mu        sync.Mutex
	model     Model
	running   *time.Timer
	reject    []string
	mute      int
	failNext  bool
	commands  []string
	listeners []net.Listener
	conns     map[net.Conn]struct{}
	closed    bool

	wg sync.WaitGroup
}

// New creates a controller serving DefaultModel. Call Start to listen.
func New() *Controller {
	return &Controller{
		TrajectoryDuration: 50 * time.Millisecond,
		logger:             logger.GetLogger().With("component", "simulator"),
		model:              DefaultModel(),
		conns:              make(map[net.Conn]struct{}),
	}
}

// Start listens on two loopback ports.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for range 2 {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			for _, l := range c.listeners {
				_ = l.Close()
			}
			return err
		}
		c.listeners = append(c.listeners, ln)

		c.wg.Add(1)
		go c.accept(ln)
	}

	return nil
}

// Host returns the listening host.
func (c *Controller) Host() string {
	return "127.0.0.1"
}

// StatusPort returns the port of the status channel.
func (c *Controller) StatusPort() int {
	return c.port(0)
}

// CommandPort returns the port of the command channel.
func (c *Controller) CommandPort() int {
	return c.port(1)
}

func (c *Controller) port(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.listeners[i].Addr().(*net.TCPAddr).Port
}

// Close stops listening and drops every connection.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	for _, ln := range c.listeners {
		_ = ln.Close()
	}
	for conn := range c.conns {
		_ = conn.Close()
	}
	if c.running != nil {
		c.running.Stop()
	}
	c.mu.Unlock()

	c.wg.Wait()

	return nil
}

// DropConnections closes the open connections but keeps listening.
func (c *Controller) DropConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for conn := range c.conns {
		_ = conn.Close()
	}
}

// Update changes the served model.
func (c *Controller) Update(fn func(m *Model)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(&c.model)
}

// Model returns a copy of the served model.
func (c *Controller) Model() Model {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.model.clone()
}

// Reject makes the next command (not query) be answered with msg instead of running it.
func (c *Controller) Reject(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reject = append(c.reject, msg)
}

// Mute leaves the next n requests unanswered.
func (c *Controller) Mute(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mute = n
}

// FailNextTrajectory makes the next accepted trajectory end with the fault flag raised.
func (c *Controller) FailNextTrajectory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failNext = true
}

// Commands returns the commands received so far, queries excluded.
func (c *Controller) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.commands...)
}

func (c *Controller) accept(ln net.Listener) {
	defer c.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conns[conn] = struct{}{}
		c.mu.Unlock()

		c.wg.Add(1)
		go c.serve(conn)
	}
}

func (c *Controller) serve(conn net.Conn) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.conns, conn)
		c.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		reply, ok := c.handle(line)
		if !ok {
			continue
		}
		if _, err := conn.Write([]byte(reply + "\r")); err != nil {
			return
		}
	}
}

func (c *Controller) handle(line string) (string, bool) {
	name, args := parse(line)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mute > 0 {
		c.mute--
		return "", false
	}

	switch name {
	case "state":
		return string(c.model.StateFrame()), true
	case "di":
		return string(c.model.InputsFrame()), true
	case "do":
		return string(c.model.OutputsFrame()), true
	case "sampledata":
		return string(c.model.SampleDataFrame()), true
	}

	c.commands = append(c.commands, line)
	if len(c.reject) > 0 {
		msg := c.reject[0]
		c.reject = c.reject[1:]
		return msg, true
	}

	if name == "traj" {
		return c.trajectory(args)
	}

	return c.general(name)
}

func (c *Controller) general(name string) (string, bool) {
	m := &c.model
	switch name {
	case "on":
		m.Power = true
	case "off":
		m.Power = false
	case "panic":
		m.Power = false
		m.FaultOrStopped = true
		c.stopPath()
	case "reset":
		m.FaultOrStopped = false
	case "abort":
		c.stopPath()
	case "pause":
		m.SequencePaused = true
	case "restart":
		m.SequencePaused = false
	case "speedup":
		m.SpeedRatio = min(100, m.SpeedRatio+10)
	case "speeddown":
		m.SpeedRatio = max(0, m.SpeedRatio-10)
	case "opentool":
		m.JawAOpen = true
	case "closetool":
		m.JawAOpen = false
	case "opentoolb":
		m.JawBOpen = true
	case "closetoolb":
		m.JawBOpen = false
	case "openlid", "closelid", "magneton", "magnetoff", "clearbrcd",
		"heateron", "heateroff", "regulon", "reguloff", "ps_regulon", "ps_reguloff":
	default:
		return "Command not found", true
	}

	return name, true
}

func (c *Controller) trajectory(args []string) (string, bool) {
	if len(args) < 2 {
		return "Inconsistent parameters", true
	}
	m := &c.model
	if !m.Path.IsIdle() {
		return "Path already running", true
	}
	if !m.Power {
		return "Power disabled", true
	}

	path, err := robot.LookupPath(args[0])
	if err != nil {
		return "Command not found", true
	}
	ints := make([]int, len(args)-1)
	for i, a := range args[1:] {
		if ints[i], err = strconv.Atoi(a); err != nil {
			return "Inconsistent parameters", true
		}
	}
	if path == robot.PathChangeTool {
		if ints[0] == m.Tool.ID {
			return "Tool already equipped: " + m.Tool.Name, true
		}
	} else if ints[0] != m.Tool.ID {
		return "Change tool first", true
	}

	m.Path = path
	m.SequenceRunning = true
	failed := c.failNext
	c.failNext = false

	var timer *time.Timer
	timer = time.AfterFunc(c.TrajectoryDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.running != timer {
			return
		}
		c.running = nil
		c.finish(path, ints, failed)
	})
	c.running = timer
	c.logger.Debug("trajectory started", "method", "trajectory", "path", path.Name)

	return path.Name, true
}

// finish applies the effect of a completed trajectory.
func (c *Controller) finish(path robot.Path, args []int, failed bool) {
	m := &c.model
	m.Path = robot.PathIdle
	m.SequenceRunning = false
	if failed {
		m.FaultOrStopped = true
		m.LastMessage = "Collision detected"
		return
	}

	switch path {
	case robot.PathPut, robot.PathGetPut, robot.PathPutHT, robot.PathGetPutHT:
		if len(args) >= 3 {
			if pin, err := sample.PinOf(args[1], args[2]); err == nil {
				m.GonioPin = pin
			}
		}
		m.Position = robot.PositionGonio
	case robot.PathGet, robot.PathGetHT:
		m.GonioPin = sample.Position{}
		m.Position = robot.PositionHome
	case robot.PathHome:
		m.Position = robot.PositionHome
	case robot.PathChangeTool:
		if len(args) >= 1 {
			if tool, ok := robot.ToolByID(args[0]); ok {
				m.Tool = tool
			}
		}
	}
}

func (c *Controller) stopPath() {
	if c.running != nil {
		c.running.Stop()
		c.running = nil
	}
	c.model.Path = robot.PathIdle
	c.model.SequenceRunning = false
}

func parse(line string) (string, []string) {
	open := strings.IndexByte(line, '(')
	if open < 0 || !strings.HasSuffix(line, ")") {
		return line, nil
	}

	inner := line[open+1 : len(line)-1]
	if inner == "" {
		return line[:open], nil
	}

	return line[:open], strings.Split(inner, ",")
}

var errNotStarted = errors.New("simulator not started")

// Addrs returns the status and command addresses.
func (c *Controller) Addrs() (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.listeners) < 2 {
		return "", "", errNotStarted
	}

	return c.listeners[0].Addr().String(), c.listeners[1].Addr().String(), nil
}
