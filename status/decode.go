package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
)

// Telegram holds the raw replies of one poll cycle. A nil frame means the query failed.
type Telegram struct {
	State   []byte
	Inputs  []byte
	Outputs []byte

	CapturedAt time.Time
}

type frameID uint8

const (
	frameState frameID = iota
	frameInputs
	frameOutputs
)

var frameQueries = [...]protocol.Query{
	frameState:   protocol.QueryState,
	frameInputs:  protocol.QueryInputs,
	frameOutputs: protocol.QueryOutputs,
}

const (
	fieldPath = "path"

	// first index of the puck presence bits in the "do" frame
	presenceOffset = 56
	// index of the door closed bit in the "di" frame
	doorClosedIndex = 11
	// first index of the puck datamatrix table in the "sampledata" frame
	sampleDataOffset = 21
)

// field is one row of the decode table.
type field struct {
	name    string
	frame   frameID
	indexes []int
	decode  func(d *Decoder, s *RobotState, raw []string) error
}

// Decoder decodes telegrams for one dewar layout. It's safe for concurrent use.
type Decoder struct {
	layout sample.Layout
	fields []field
}

// NewDecoder builds the decode table for layout.
func NewDecoder(layout sample.Layout) *Decoder {
	d := &Decoder{layout: layout}
	d.fields = append(d.fields, stateFields...)
	d.fields = append(d.fields, field{
		name: "door_closed", frame: frameInputs, indexes: []int{doorClosedIndex},
		decode: boolField(func(s *RobotState, v bool) { s.DoorClosed = v }),
	})

	for _, puck := range layout.Pucks() {
		d.fields = append(d.fields, field{
			name:    "puck_presence." + strconv.Itoa(puck.ID()),
			frame:   frameOutputs,
			indexes: []int{presenceOffset + puck.ID() - 1},
			decode: boolField(func(s *RobotState, present bool) {
				if present {
					s.occupied[puck] = struct{}{}
				}
			}),
		})
	}

	return d
}

var defaultDecoder = NewDecoder(sample.DefaultLayout)

// Decode decodes tg against sample.DefaultLayout.
func Decode(tg Telegram) *RobotState {
	return defaultDecoder.Decode(tg)
}

// Layout returns the dewar layout the decoder validates positions against.
func (d *Decoder) Layout() sample.Layout {
	return d.layout
}

// Decode decodes every field of the table. It never fails as a whole: problems are
// recorded as DecodeFaults on the returned state.
func (d *Decoder) Decode(tg Telegram) *RobotState {
	s := &RobotState{
		CapturedAt: tg.CapturedAt,
		occupied:   make(map[sample.Position]struct{}),
	}

	var frames [len(frameQueries)][]string
	var frameErrs [len(frameQueries)]error
	for i, raw := range [...][]byte{tg.State, tg.Inputs, tg.Outputs} {
		if raw == nil {
			frameErrs[i] = ErrFrameMissing
			continue
		}
		frames[i], frameErrs[i] = protocol.SplitStatus(frameQueries[i], raw)
	}

	for _, f := range d.fields {
		if err := frameErrs[f.frame]; err != nil {
			s.faults = append(s.faults, DecodeFault{Field: f.name, Err: err})
			continue
		}

		values := frames[f.frame]
		raw := make([]string, len(f.indexes))
		missing := false
		for i, idx := range f.indexes {
			if idx >= len(values) {
				missing = true
				break
			}
			raw[i] = strings.TrimSpace(values[idx])
		}
		if missing {
			s.faults = append(s.faults, DecodeFault{Field: f.name, Err: ErrFieldMissing})
			continue
		}

		if err := d.safeDecode(f, s, raw); err != nil {
			s.faults = append(s.faults, DecodeFault{Field: f.name, Raw: strings.Join(raw, ","), Err: err})
		}
	}

	return s
}

func (d *Decoder) safeDecode(f field, s *RobotState, raw []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrBadValue, r)
		}
	}()

	return f.decode(d, s, raw)
}

var stateFields = []field{
	{name: "power", indexes: []int{0}, decode: boolField(func(s *RobotState, v bool) { s.Power = v })},
	{name: "remote_mode", indexes: []int{1}, decode: boolField(func(s *RobotState, v bool) { s.RemoteMode = v })},
	{name: "fault_or_stopped", indexes: []int{2}, decode: boolField(func(s *RobotState, v bool) { s.FaultOrStopped = v })},
	{name: "tool", indexes: []int{3}, decode: decodeTool},
	{name: "position", indexes: []int{4}, decode: decodeArmPosition},
	{name: fieldPath, indexes: []int{5}, decode: decodePath},
	{name: "jaw_a_open", indexes: []int{6}, decode: boolField(func(s *RobotState, v bool) { s.JawAOpen = v })},
	{name: "jaw_b_open", indexes: []int{7}, decode: boolField(func(s *RobotState, v bool) { s.JawBOpen = v })},
	{name: "jaw_a_pin", indexes: []int{8, 9}, decode: pinField(func(s *RobotState, p sample.Position) { s.JawAPin = p })},
	{name: "jaw_b_pin", indexes: []int{10, 11}, decode: pinField(func(s *RobotState, p sample.Position) { s.JawBPin = p })},
	{name: "gonio_pin", indexes: []int{12, 13}, decode: pinField(func(s *RobotState, p sample.Position) { s.GonioPin = p })},
	{name: "arm_plate", indexes: []int{14}, decode: plateField(func(s *RobotState, p sample.Position) { s.ArmPlate = p })},
	{name: "gonio_plate", indexes: []int{15}, decode: plateField(func(s *RobotState, p sample.Position) { s.GonioPlate = p })},
	{name: "sequence_running", indexes: []int{17}, decode: boolField(func(s *RobotState, v bool) { s.SequenceRunning = v })},
	{name: "sequence_paused", indexes: []int{18}, decode: boolField(func(s *RobotState, v bool) { s.SequencePaused = v })},
	{name: "speed_ratio", indexes: []int{19}, decode: decodeSpeedRatio},
	{name: "last_message", indexes: []int{28}, decode: func(_ *Decoder, s *RobotState, raw []string) error {
		s.LastMessage = raw[0]
		return nil
	}},
}

func boolField(set func(*RobotState, bool)) func(*Decoder, *RobotState, []string) error {
	return func(_ *Decoder, s *RobotState, raw []string) error {
		v, err := parseBool(raw[0])
		if err != nil {
			return err
		}
		set(s, v)

		return nil
	}
}

func pinField(set func(*RobotState, sample.Position)) func(*Decoder, *RobotState, []string) error {
	return func(d *Decoder, s *RobotState, raw []string) error {
		puckEmpty, pinEmpty := isNoPinID(raw[0]), isNoPinID(raw[1])
		if puckEmpty && pinEmpty {
			return nil
		}
		if puckEmpty != pinEmpty {
			return fmt.Errorf("%w: half empty pin", ErrBadValue)
		}

		puckID, err := strconv.Atoi(raw[0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		pinID, err := strconv.Atoi(raw[1])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		// the hot puck sentinel is normalized by the constructor
		pin, err := d.layout.PinOf(puckID, pinID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		set(s, pin)

		return nil
	}
}

func plateField(set func(*RobotState, sample.Position)) func(*Decoder, *RobotState, []string) error {
	return func(d *Decoder, s *RobotState, raw []string) error {
		if isEmpty(raw[0]) {
			return nil
		}
		id, err := strconv.Atoi(raw[0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		plate, err := d.layout.NewPlate(id)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		set(s, plate)

		return nil
	}
}

func decodeTool(_ *Decoder, s *RobotState, raw []string) error {
	if isEmpty(raw[0]) {
		return nil
	}
	tool, err := robot.LookupTool(raw[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadValue, err)
	}
	s.Tool = tool

	return nil
}

func decodeArmPosition(_ *Decoder, s *RobotState, raw []string) error {
	if isEmpty(raw[0]) {
		s.Position = robot.PositionUndefined
		return nil
	}
	pos, err := robot.LookupArmPosition(raw[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadValue, err)
	}
	s.Position = pos

	return nil
}

func decodePath(_ *Decoder, s *RobotState, raw []string) error {
	path, err := robot.LookupPath(raw[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadValue, err)
	}
	s.Path = path

	return nil
}

func decodeSpeedRatio(_ *Decoder, s *RobotState, raw []string) error {
	v, err := strconv.ParseFloat(raw[0], 64)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadValue, err)
	}
	if !(v >= 0 && v <= 100) {
		return fmt.Errorf("%w: speed ratio %v out of [0, 100]", ErrBadValue, v)
	}
	s.SpeedRatio = v

	return nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: not a boolean", ErrBadValue)
	}
}

func isEmpty(raw string) bool {
	return raw == "" || raw == "-1"
}

// isNoPinID reports an absent half of a pin field; the controller clears pin
// fields to 0 as well as -1.
func isNoPinID(raw string) bool {
	return isEmpty(raw) || raw == "0"
}
