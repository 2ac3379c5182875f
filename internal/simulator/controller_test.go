package simulator

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, port int) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, bufio.NewReader(conn)
}

func request(t *testing.T, conn net.Conn, r *bufio.Reader, line string) string {
	t.Helper()

	_, err := conn.Write([]byte(line + "\r"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	reply, err := r.ReadString('\r')
	require.NoError(t, err)

	return strings.TrimSuffix(reply, "\r")
}

func TestController_Trajectory(t *testing.T) {
	require := require.New(t)

	sim := New()
	sim.TrajectoryDuration = 20 * time.Millisecond
	require.NoError(sim.Start())
	defer sim.Close()

	conn, r := dial(t, sim.CommandPort())

	require.Equal("put", request(t, conn, r, "traj(put,3,5,2)"))
	require.Equal("Path already running", request(t, conn, r, "traj(get,3)"))
	require.Equal(robot.PathPut, sim.Model().Path)

	require.Eventually(func() bool { return sim.Model().Path.IsIdle() }, time.Second, 5*time.Millisecond)
	pin, _ := sample.PinOf(5, 2)
	require.Equal(pin, sim.Model().GonioPin)

	state := request(t, conn, r, "state")
	require.True(strings.HasPrefix(state, "state(1,1,0,DoubleGripper,GONIO,,"), state)

	require.Equal("Command not found", request(t, conn, r, "fly"))
	require.Equal([]string{"traj(put,3,5,2)", "traj(get,3)", "fly"}, sim.Commands())
}

func TestController_RejectAndFail(t *testing.T) {
	require := require.New(t)

	sim := New()
	sim.TrajectoryDuration = 10 * time.Millisecond
	require.NoError(sim.Start())
	defer sim.Close()

	conn, r := dial(t, sim.StatusPort())

	sim.Reject("Doors must be closed")
	require.Equal("Doors must be closed", request(t, conn, r, "traj(home,3)"))

	sim.FailNextTrajectory()
	require.Equal("home", request(t, conn, r, "traj(home,3)"))
	require.Eventually(func() bool { return sim.Model().FaultOrStopped }, time.Second, 5*time.Millisecond)
	require.Equal("reset", request(t, conn, r, "reset"))
	require.False(sim.Model().FaultOrStopped)
}

func TestModel_Frames(t *testing.T) {
	require := require.New(t)

	m := DefaultModel()
	m.Pucks[3] = "CPS-0003"
	m.Pucks[7] = ""
	m.HotPuckSentinel = true
	m.JawAPin, _ = sample.PinOf(sample.HotPuckID, 4)

	state := strings.Split(strings.TrimSuffix(strings.TrimPrefix(string(m.StateFrame()), "state("), ")"), ",")
	require.Len(state, stateLen)
	require.Equal("100", state[8])
	require.Equal("4", state[9])

	outputs := string(m.OutputsFrame())
	values := strings.Split(strings.TrimSuffix(strings.TrimPrefix(outputs, "do("), ")"), ",")
	require.Equal("1", values[outputsOffset+2])
	require.Equal("1", values[outputsOffset+6])
	require.Equal("0", values[outputsOffset])

	data := string(m.SampleDataFrame())
	require.Contains(data, "CPS-0003")
}

func TestController_ToolChecks(t *testing.T) {
	require := require.New(t)

	sim := New()
	sim.TrajectoryDuration = 10 * time.Millisecond
	require.NoError(sim.Start())
	defer sim.Close()

	conn, r := dial(t, sim.CommandPort())

	require.Equal("Change tool first", request(t, conn, r, "traj(put,2,5,2)"))
	require.Equal("Tool already equipped: DoubleGripper", request(t, conn, r, "traj(changetool,3)"))

	require.Equal("changetool", request(t, conn, r, "traj(changetool,2)"))
	require.Eventually(func() bool { return sim.Model().Path.IsIdle() }, time.Second, 5*time.Millisecond)
	require.Equal(robot.SingleGripper, sim.Model().Tool)
	require.Equal("put", request(t, conn, r, "traj(put,2,5,2)"))
}
