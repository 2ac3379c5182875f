// Package simulator provides a loopback sample changer controller for tests
// and examples.
package simulator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
)

const (
	stateLen      = 30
	inputsLen     = 16
	outputsOffset = 56
	sampleOffset  = 21
	doorIndex     = 11
)

// Model is the controller state served by the simulator.
type Model struct {
	Power          bool
	RemoteMode     bool
	FaultOrStopped bool

	Tool     robot.Tool
	Position robot.ArmPosition
	Path     robot.Path

	JawAOpen bool
	JawBOpen bool
	JawAPin  sample.Position
	JawBPin  sample.Position
	GonioPin sample.Position

	ArmPlate   sample.Position
	GonioPlate sample.Position

	SequenceRunning bool
	SequencePaused  bool
	SpeedRatio      int
	LastMessage     string
	DoorClosed      bool

	// Pucks maps the id of every puck present in the dewar to its datamatrix
	// code, "" when it was never scanned.
	Pucks map[int]string

	// HotPuckSentinel reports hot puck pins with the legacy id 100.
	HotPuckSentinel bool
}

// DefaultModel returns an idle, powered controller in remote mode holding a double gripper.
func DefaultModel() Model {
	return Model{
		Power:       true,
		RemoteMode:  true,
		Tool:        robot.DoubleGripper,
		Position:    robot.PositionHome,
		SpeedRatio:  100,
		LastMessage: "Robot ready",
		DoorClosed:  true,
		Pucks:       map[int]string{},
	}
}

func (m *Model) clone() Model {
	c := *m
	c.Pucks = make(map[int]string, len(m.Pucks))
	for id, code := range m.Pucks {
		c.Pucks[id] = code
	}

	return c
}

// StateFrame renders the reply to the "state" query.
func (m *Model) StateFrame() []byte {
	v := make([]string, stateLen)
	for i := range v {
		v[i] = "0"
	}

	v[0] = boolStr(m.Power)
	v[1] = boolStr(m.RemoteMode)
	v[2] = boolStr(m.FaultOrStopped)
	v[3] = m.Tool.Name
	v[4] = m.Position.Name
	v[5] = m.Path.Name
	v[6] = boolStr(m.JawAOpen)
	v[7] = boolStr(m.JawBOpen)
	v[8], v[9] = m.pin(m.JawAPin)
	v[10], v[11] = m.pin(m.JawBPin)
	v[12], v[13] = m.pin(m.GonioPin)
	v[14] = plate(m.ArmPlate)
	v[15] = plate(m.GonioPlate)
	v[17] = boolStr(m.SequenceRunning)
	v[18] = boolStr(m.SequencePaused)
	v[19] = strconv.Itoa(m.SpeedRatio)
	v[28] = m.LastMessage

	return render("state", v)
}

// InputsFrame renders the reply to the "di" query.
func (m *Model) InputsFrame() []byte {
	v := zeros(inputsLen)
	v[doorIndex] = boolStr(m.DoorClosed)

	return render("di", v)
}

// OutputsFrame renders the reply to the "do" query.
func (m *Model) OutputsFrame() []byte {
	v := zeros(outputsOffset + sample.DefaultLayout.NumPucks)
	for id := range m.Pucks {
		if id >= 1 && id <= sample.DefaultLayout.NumPucks {
			v[outputsOffset+id-1] = "1"
		}
	}

	return render("do", v)
}

// SampleDataFrame renders the reply to the "sampledata" query.
func (m *Model) SampleDataFrame() []byte {
	v := zeros(sampleOffset + sample.DefaultLayout.NumPucks)
	ids := make([]int, 0, len(m.Pucks))
	for id := range m.Pucks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if code := m.Pucks[id]; code != "" && id <= sample.DefaultLayout.NumPucks {
			v[sampleOffset+id-1] = code
		}
	}

	return render("sampledata", v)
}

func (m *Model) pin(p sample.Position) (string, string) {
	if !p.IsPin() {
		return "-1", "-1"
	}
	id := p.ID()
	if p.IsHot() && m.HotPuckSentinel {
		id = sample.HotPuckID - 1
	}

	return strconv.Itoa(id), strconv.Itoa(p.PinID())
}

func plate(p sample.Position) string {
	if !p.IsPlate() {
		return "-1"
	}

	return strconv.Itoa(p.ID())
}

func zeros(n int) []string {
	v := make([]string, n)
	for i := range v {
		v[i] = "0"
	}

	return v
}

func boolStr(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

func render(name string, values []string) []byte {
	return []byte(name + "(" + strings.Join(values, ",") + ")")
}
