package status

import (
	"slices"
	"time"

	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
)

// FinishedTrajectory describes the last trajectory the controller stopped running.
type FinishedTrajectory struct {
	Path robot.Path

	// Faulted is set when the controller reported a fault or stop as the path ended.
	Faulted bool

	EndedAt time.Time
}

// IsZero reports whether no trajectory has been seen finishing.
func (f FinishedTrajectory) IsZero() bool {
	return f.Path.IsIdle() && f.EndedAt.IsZero()
}

// RobotState is one decoded snapshot of the controller. It must not be modified
// once published.
type RobotState struct {
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

	// SpeedRatio is the robot speed in percent.
	SpeedRatio  float64
	LastMessage string

	DoorClosed bool

	LastTrajectory FinishedTrajectory

	CapturedAt time.Time

	// Generation increases by one with every published snapshot.
	Generation uint64

	occupied map[sample.Position]struct{}
	faults   []DecodeFault
}

// Loaded returns the sample mounted on the goniometer: the pin if any, else the plate.
func (s *RobotState) Loaded() (sample.Position, bool) {
	if !s.GonioPin.IsZero() {
		return s.GonioPin, true
	}
	if !s.GonioPlate.IsZero() {
		return s.GonioPlate, true
	}

	return sample.Position{}, false
}

// Occupied reports whether a puck is present in the dewar. Presence is reported
// per puck only; other kinds of position are never occupied.
func (s *RobotState) Occupied(pos sample.Position) bool {
	_, ok := s.occupied[pos]
	return ok
}

// OccupiedSlots returns the present pucks in id order.
func (s *RobotState) OccupiedSlots() []sample.Position {
	slots := make([]sample.Position, 0, len(s.occupied))
	for pos := range s.occupied {
		slots = append(slots, pos)
	}
	slices.SortFunc(slots, func(a, b sample.Position) int {
		return a.ID() - b.ID()
	})

	return slots
}

// IsFault reports whether the controller is faulted or stopped.
func (s *RobotState) IsFault() bool {
	return s.FaultOrStopped
}

// Busy reports whether a trajectory is running.
func (s *RobotState) Busy() bool {
	return !s.Path.IsIdle()
}

// PartiallyDecoded reports whether any field failed to decode.
func (s *RobotState) PartiallyDecoded() bool {
	return len(s.faults) > 0
}

// Faults returns the fields that failed to decode.
func (s *RobotState) Faults() []DecodeFault {
	return slices.Clone(s.faults)
}

// Age returns how old the snapshot is at now.
func (s *RobotState) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// follow fills in the fields derived from the previous snapshot.
func (s *RobotState) follow(prev *RobotState) {
	if prev == nil {
		s.Generation = 1
		return
	}

	s.Generation = prev.Generation + 1
	s.LastTrajectory = prev.LastTrajectory
	// an undecodable path must not look like the running one finished
	if s.hasFault(fieldPath) {
		s.Path = prev.Path
	}
	if !prev.Path.IsIdle() && s.Path != prev.Path {
		s.LastTrajectory = FinishedTrajectory{
			Path:    prev.Path,
			Faulted: s.FaultOrStopped,
			EndedAt: s.CapturedAt,
		}
	}
}

func (s *RobotState) hasFault(field string) bool {
	for _, f := range s.faults {
		if f.Field == field {
			return true
		}
	}

	return false
}
