package protocol

import (
	"errors"
	"regexp"
	"testing"

	"github.com/arloliu/go-asc/robot"
	"github.com/stretchr/testify/require"
)

func TestDecode_Ack(t *testing.T) {
	require := require.New(t)

	traj, err := Home(robot.DoubleGripper)
	require.NoError(err)

	reply := Decode(traj, []byte("home\r"))
	require.Equal(ReplyAck, reply.Kind)
	require.NoError(reply.Err())

	reply = Decode(traj, []byte("traj(home,3)\n"))
	require.Equal(ReplyAck, reply.Kind)

	reply = Decode(Abort, []byte("abort"))
	require.Equal(ReplyAck, reply.Kind)

	reply = Decode(QueryState, []byte("state(1,0,0)"))
	require.Equal(ReplyAck, reply.Kind)
}

func TestDecode_Nack(t *testing.T) {
	tests := []struct {
		msg   string
		code  string
		fault bool
		busy  bool
	}{
		{"Command not found", "command_not_found", false, false},
		{"Remote mode requested", "remote_mode_requested", false, false},
		{"Doors must be closed", "door_open", false, false},
		{"Emergency stop triggered", "emergency_stop", true, false},
		{"System fault", "system_fault", true, false},
		{"Inconsistent parameters", "inconsistent_parameters", false, false},
		{"Order rejected", "order_rejected", false, false},
		{"Path already running", "path_running", false, true},
		{"Safety restart required", "safety_restart_required", true, false},
		{"Device not responding", "device_not_responding", true, false},
		{"Disabled when lid is moving", "lid_moving", false, false},
		{"Power disabled", "power_disabled", false, false},
		{"Robot not ready", "not_ready", false, false},
		{"Change tool first", "change_tool_first", false, false},
		{"Trajectory must start at position: HOME", "wrong_start_position", false, false},
		{"Tool already equipped: DoubleGripper", "tool_already_equipped", false, false},
	}

	traj, err := Home(robot.DoubleGripper)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			require := require.New(t)

			reply := Decode(traj, []byte(tt.msg+"\r"))
			require.Equal(ReplyNack, reply.Kind)
			require.Equal(tt.code, reply.Reason.Code)
			require.Equal(tt.msg, reply.Message)

			err := reply.Err()
			require.ErrorIs(err, ErrRejected)
			require.Equal(tt.fault, errors.Is(err, ErrFault))
			require.Equal(tt.busy, errors.Is(err, ErrControllerBusy))
			require.NotErrorIs(err, ErrMalformedReply)

			var rejected *RejectedError
			require.ErrorAs(err, &rejected)
			require.Equal("home", rejected.Command)
		})
	}
}

func TestDecode_Error(t *testing.T) {
	require := require.New(t)

	for _, raw := range [][]byte{nil, []byte(""), []byte("\r\n"), []byte("\x00\x01"), []byte("bonjour"), []byte{0xff, 0xfe}} {
		reply := Decode(PowerOn, raw)
		require.Equal(ReplyMalformed, reply.Kind, "raw %q", raw)
		require.Equal("malformed", reply.Kind.String())
		require.ErrorIs(reply.Err(), ErrMalformedReply)

		var replyErr *ReplyError
		require.ErrorAs(reply.Err(), &replyErr)
		require.Equal("on", replyErr.Command)
	}
}

func TestReasonRegistry_Register(t *testing.T) {
	require := require.New(t)

	reg := NewReasonRegistry()
	require.NoError(reg.Register(Reason{Code: "lid_jammed", Pattern: regexp.MustCompile(`(?i)lid jammed`), Fault: true}))
	require.ErrorIs(reg.Register(Reason{Code: "door_open", Pattern: regexp.MustCompile(`x`)}), ErrDuplicateReason)
	require.ErrorIs(reg.Register(Reason{Code: "nopattern"}), ErrInvalidArgument)

	reply := reg.Decode(OpenLid, []byte("lid jammed, power disabled"))
	require.Equal(ReplyNack, reply.Kind)
	require.Equal("lid_jammed", reply.Reason.Code)
	require.ErrorIs(reply.Err(), ErrFault)

	// the default registry is untouched
	require.Equal(ReplyNack, Decode(OpenLid, []byte("lid jammed, power disabled")).Kind)
	require.Equal("power_disabled", Decode(OpenLid, []byte("lid jammed, power disabled")).Reason.Code)

	_, ok := reg.Lookup("lid_jammed")
	require.True(ok)
	_, ok = LookupReason("lid_jammed")
	require.False(ok)
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte("home"))
	f.Add([]byte("Path already running"))
	f.Add([]byte("state(1,0,"))
	f.Add([]byte{0x00, 0xff})

	traj, err := Home(robot.DoubleGripper)
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, raw []byte) {
		reply := Decode(traj, raw)
		switch reply.Kind {
		case ReplyAck:
			if reply.Err() != nil {
				t.Fatalf("ack with error for %q", raw)
			}
		case ReplyNack, ReplyMalformed:
			if reply.Err() == nil {
				t.Fatalf("%s without error for %q", reply.Kind, raw)
			}
		default:
			t.Fatalf("unknown kind %d", reply.Kind)
		}
	})
}
