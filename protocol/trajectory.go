package protocol

import (
	"fmt"

	"github.com/arloliu/go-asc/robot"
	"github.com/arloliu/go-asc/sample"
)

// trajectoryCmd is the command word carrying every trajectory.
const trajectoryCmd = "traj"

// numArgs is the length of the full positional argument vector.
const numArgs = 13

// argument slots of the full trajectory vector
const (
	argTool = iota
	argPuck
	argSample
	argScan
	argNextPuck
	argNextSample
	argType
	argNextType
	argInhibit
	argNextInhibit
	argShiftX
	argShiftY
	argShiftZ
)

// Trajectory is a validated arm motion command.
//
// Trajectories are immutable values built by the constructors of this package.
type Trajectory struct {
	path   robot.Path
	tool   robot.Tool
	args   [numArgs]int
	arity  int
	target sample.Position
}

// Name returns the trajectory sub-command, which is also the path name
// reported by the controller while it runs.
func (t Trajectory) Name() string { return t.path.Name }

// Path returns the controller path run by the trajectory.
func (t Trajectory) Path() robot.Path { return t.path }

// Tool returns the tool the trajectory runs with; robot.ToolUnset if not chosen yet.
func (t Trajectory) Tool() robot.Tool { return t.tool }

// Target returns the position the trajectory brings to the goniometer, if any.
func (t Trajectory) Target() sample.Position { return t.target }

// Args returns the argument vector as sent, with trailing zeros trimmed.
func (t Trajectory) Args() []int {
	n := t.arity
	for n > 1 && t.args[n-1] == 0 {
		n--
	}

	return append([]int(nil), t.args[:n]...)
}

// WithTool returns a copy of the trajectory running with tool.
func (t Trajectory) WithTool(tool robot.Tool) (Trajectory, error) {
	if !tool.Usable() {
		return Trajectory{}, fmt.Errorf("%w: tool %q can't run %s", ErrInvalidArgument, tool, t.path)
	}
	t.tool = tool
	t.args[argTool] = tool.ID

	return t, nil
}

// Frame encodes the trajectory. It fails when no tool has been chosen.
func (t Trajectory) Frame() ([]byte, error) {
	if t.path.Name == "" {
		return nil, fmt.Errorf("%w: empty trajectory", ErrInvalidArgument)
	}
	if !t.tool.Usable() {
		return nil, fmt.Errorf("%w: %s needs a tool", ErrInvalidArgument, t.path)
	}

	return encode(trajectoryCmd, append([]string{t.path.Name}, itoa(t.Args())...))
}

func (t Trajectory) String() string {
	return fmt.Sprintf("%s%v", t.path, t.Args())
}

// The controller echoes either the sub-command or the full request.
func (t Trajectory) echoes(reply string) bool {
	if reply == t.path.Name {
		return true
	}
	frame, err := t.Frame()
	if err != nil {
		return false
	}

	return reply == string(frame[:len(frame)-1])
}

func newTrajectory(path robot.Path, tool robot.Tool, arity int) (Trajectory, error) {
	t := Trajectory{path: path, arity: arity}
	if !tool.IsSet() {
		return t, nil
	}

	return t.WithTool(tool)
}

// Custom builds a trajectory for a path this package has no builder for.
// args are sent as given, the first one being the tool id.
func Custom(name string, args ...int) (Trajectory, error) {
	if err := validateToken(name); err != nil {
		return Trajectory{}, err
	}
	if len(args) < 1 || len(args) > numArgs {
		return Trajectory{}, fmt.Errorf("%w: %s takes 1 to %d arguments, got %d", ErrInvalidArgument, name, numArgs, len(args))
	}
	tool, ok := robot.ToolByID(args[0])
	if !ok {
		return Trajectory{}, fmt.Errorf("%w: unknown tool id %d", ErrInvalidArgument, args[0])
	}
	path, err := robot.LookupPath(name)
	if err != nil {
		return Trajectory{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	t, err := newTrajectory(path, tool, len(args))
	if err != nil {
		return Trajectory{}, err
	}
	copy(t.args[1:], args[1:])

	return t, nil
}

// MountOptions tune the sample mount trajectories.
type MountOptions struct {
	Tool robot.Tool
	// Cap is the cap type of the mounted pin.
	Cap sample.CapType
	// ScanDatamatrix reads the pin datamatrix on the way.
	ScanDatamatrix bool
	// SkipDetection disables pin presence detection.
	SkipDetection bool
	// Prepick is the pin to pick for the next exchange; zero skips the prepick.
	Prepick              sample.Position
	PrepickCap           sample.CapType
	PrepickSkipDetection bool
	// GonioShift is the goniometer X, Y, Z offset in micrometres.
	GonioShift [3]int
}

// UnmountOptions tune the sample unmount trajectories.
type UnmountOptions struct {
	Tool           robot.Tool
	ScanDatamatrix bool
	GonioShift     [3]int
}

// PickOptions tune prepick, datamatrix reading and pick-and-move trajectories.
type PickOptions struct {
	Tool           robot.Tool
	Cap            sample.CapType
	ScanDatamatrix bool
	SkipDetection  bool
}

// Home moves the arm straight back home.
func Home(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathHome, tool) }

// Recover brings the arm home along a safe path after an interrupted trajectory.
func Recover(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathRecover, tool) }

// ReturnSample puts the sample held by the gripper back to its memorized dewar slot.
func ReturnSample(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathBack, tool) }

// HotPuckReturnSample puts the held sample back to its memorized hot puck slot.
func HotPuckReturnSample(tool robot.Tool) (Trajectory, error) {
	return toolOnly(robot.PathBackHT, tool)
}

// Soak chills the gripper.
func Soak(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathSoak, tool) }

// Dry dries and warms the gripper.
func Dry(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathDry, tool) }

// ChangeTool stores the mounted tool and picks up tool.
func ChangeTool(tool robot.Tool) (Trajectory, error) {
	if !tool.IsSet() {
		return Trajectory{}, fmt.Errorf("%w: changetool needs the target tool", ErrInvalidArgument)
	}

	return toolOnly(robot.PathChangeTool, tool)
}

// CalibrateTool runs the tool calibration.
func CalibrateTool(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathToolCal, tool) }

// TeachGonio teaches the goniometer position.
func TeachGonio(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathTeachGonio, tool) }

// TeachPlateHolder teaches the plate holder position.
func TeachPlateHolder(tool robot.Tool) (Trajectory, error) {
	return toolOnly(robot.PathTeachPlateHolder, tool)
}

// UnmountPlate takes the plate from the goniometer back to its storage slot.
func UnmountPlate(tool robot.Tool) (Trajectory, error) { return toolOnly(robot.PathGetPlate, tool) }

func toolOnly(path robot.Path, tool robot.Tool) (Trajectory, error) {
	return newTrajectory(path, tool, 1)
}

// MountPlate takes plate from storage and mounts it on the goniometer.
func MountPlate(tool robot.Tool, plate sample.Position) (Trajectory, error) {
	return plateTraj(robot.PathPutPlate, tool, plate)
}

// PickAndMovePlate brings plate to the goniometer without releasing it.
func PickAndMovePlate(tool robot.Tool, plate sample.Position) (Trajectory, error) {
	return plateTraj(robot.PathPlateToDif, tool, plate)
}

func plateTraj(path robot.Path, tool robot.Tool, plate sample.Position) (Trajectory, error) {
	if !plate.IsPlate() {
		return Trajectory{}, fmt.Errorf("%w: %s needs a plate, got %s", ErrInvalidArgument, path, plate)
	}
	t, err := newTrajectory(path, tool, 2)
	if err != nil {
		return Trajectory{}, err
	}
	t.args[1] = plate.ID()
	t.target = plate

	return t, nil
}

// TeachPuck teaches the position of puck.
func TeachPuck(tool robot.Tool, puck sample.Position) (Trajectory, error) {
	if puck.Kind() != sample.KindPuck {
		return Trajectory{}, fmt.Errorf("%w: teachpuck needs a puck, got %s", ErrInvalidArgument, puck)
	}

	return withContainer(robot.PathTeachPuck, tool, puck)
}

// TeachDewar teaches every puck position, starting at from.
func TeachDewar(tool robot.Tool, from sample.Position) (Trajectory, error) {
	if from.Kind() != sample.KindPuck {
		return Trajectory{}, fmt.Errorf("%w: teachdewar needs a starting puck, got %s", ErrInvalidArgument, from)
	}

	return withContainer(robot.PathTeachDewar, tool, from)
}

// TeachHotPuck teaches the hot puck position.
func TeachHotPuck(tool robot.Tool) (Trajectory, error) {
	hot, _ := sample.NewHotPuck(sample.HotPuckID)
	path, _ := robot.LookupPath("teachhotpuck")

	return withContainer(path, tool, hot)
}

func withContainer(path robot.Path, tool robot.Tool, container sample.Position) (Trajectory, error) {
	t, err := newTrajectory(path, tool, 2)
	if err != nil {
		return Trajectory{}, err
	}
	t.args[1] = container.ID()

	return t, nil
}

// Mount takes pin from the dewar and mounts it on the goniometer, optionally
// prepicking the next pin.
func Mount(pin sample.Position, opts MountOptions) (Trajectory, error) {
	return mountTraj(robot.PathPut, false, pin, opts)
}

// UnmountThenMount swaps the mounted sample for pin.
func UnmountThenMount(pin sample.Position, opts MountOptions) (Trajectory, error) {
	return mountTraj(robot.PathGetPut, false, pin, opts)
}

// HotPuckMount mounts pin from the hot puck.
func HotPuckMount(pin sample.Position, opts MountOptions) (Trajectory, error) {
	return mountTraj(robot.PathPutHT, true, pin, opts)
}

// HotPuckUnmountThenMount swaps the mounted sample for pin from the hot puck.
func HotPuckUnmountThenMount(pin sample.Position, opts MountOptions) (Trajectory, error) {
	return mountTraj(robot.PathGetPutHT, true, pin, opts)
}

func mountTraj(path robot.Path, hot bool, pin sample.Position, opts MountOptions) (Trajectory, error) {
	if err := checkPin(path, hot, pin); err != nil {
		return Trajectory{}, err
	}
	if !opts.Prepick.IsZero() {
		if !opts.Prepick.IsPin() {
			return Trajectory{}, fmt.Errorf("%w: prepick needs a pin, got %s", ErrInvalidArgument, opts.Prepick)
		}
		if opts.Prepick == pin {
			return Trajectory{}, fmt.Errorf("%w: prepick %s is the mounted pin", ErrInvalidArgument, pin)
		}
	}

	t, err := newTrajectory(path, opts.Tool, numArgs)
	if err != nil {
		return Trajectory{}, err
	}
	t.args[argPuck] = pin.ID()
	t.args[argSample] = pin.PinID()
	t.args[argScan] = flag(opts.ScanDatamatrix)
	t.args[argNextPuck] = opts.Prepick.ID()
	t.args[argNextSample] = opts.Prepick.PinID()
	t.args[argType] = capArg(opts.Cap)
	t.args[argInhibit] = flag(opts.SkipDetection)
	if !opts.Prepick.IsZero() {
		t.args[argNextType] = capArg(opts.PrepickCap)
		t.args[argNextInhibit] = flag(opts.PrepickSkipDetection)
	}
	t.args[argShiftX], t.args[argShiftY], t.args[argShiftZ] = opts.GonioShift[0], opts.GonioShift[1], opts.GonioShift[2]
	t.target = pin

	return t, nil
}

// Unmount takes the mounted sample back to its memorized dewar slot.
func Unmount(opts UnmountOptions) (Trajectory, error) {
	return unmountTraj(robot.PathGet, opts)
}

// HotPuckUnmount takes the mounted sample back to its memorized hot puck slot.
func HotPuckUnmount(opts UnmountOptions) (Trajectory, error) {
	return unmountTraj(robot.PathGetHT, opts)
}

func unmountTraj(path robot.Path, opts UnmountOptions) (Trajectory, error) {
	t, err := newTrajectory(path, opts.Tool, numArgs)
	if err != nil {
		return Trajectory{}, err
	}
	t.args[argScan] = flag(opts.ScanDatamatrix)
	t.args[argShiftX], t.args[argShiftY], t.args[argShiftZ] = opts.GonioShift[0], opts.GonioShift[1], opts.GonioShift[2]

	return t, nil
}

// Prepick takes pin from the dewar and keeps it in the gripper for the next exchange.
func Prepick(pin sample.Position, opts PickOptions) (Trajectory, error) {
	t, err := pickTraj(robot.PathPick, pin, opts)
	if err != nil {
		return Trajectory{}, err
	}
	t.args[argScan] = flag(opts.ScanDatamatrix)

	return t, nil
}

// ReadDatamatrix takes pin to the datamatrix reader and puts it back.
func ReadDatamatrix(pin sample.Position, opts PickOptions) (Trajectory, error) {
	return pickTraj(robot.PathDatamatrix, pin, opts)
}

// PickAndMove takes pin to the goniometer mounting position without releasing it.
func PickAndMove(pin sample.Position, opts PickOptions) (Trajectory, error) {
	t, err := pickTraj(robot.PathGotoDif, pin, opts)
	if err != nil {
		return Trajectory{}, err
	}
	t.target = pin

	return t, nil
}

func pickTraj(path robot.Path, pin sample.Position, opts PickOptions) (Trajectory, error) {
	if err := checkPin(path, false, pin); err != nil {
		return Trajectory{}, err
	}
	t, err := newTrajectory(path, opts.Tool, numArgs)
	if err != nil {
		return Trajectory{}, err
	}
	t.args[argPuck] = pin.ID()
	t.args[argSample] = pin.PinID()
	t.args[argType] = capArg(opts.Cap)
	t.args[argInhibit] = flag(opts.SkipDetection)

	return t, nil
}

func checkPin(path robot.Path, hot bool, pin sample.Position) error {
	if !pin.IsPin() {
		return fmt.Errorf("%w: %s needs a pin, got %s", ErrInvalidArgument, path, pin)
	}
	if pin.IsHot() != hot {
		if hot {
			return fmt.Errorf("%w: %s needs a hot puck pin, got %s", ErrInvalidArgument, path, pin)
		}
		return fmt.Errorf("%w: %s can't address hot puck pin %s", ErrInvalidArgument, path, pin)
	}

	return nil
}

func capArg(c sample.CapType) int {
	return flag(c == sample.CapHampton)
}

func flag(b bool) int {
	if b {
		return 1
	}

	return 0
}
