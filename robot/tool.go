package robot

// Tool is a tool that can be mounted on the robot arm.
type Tool struct {
	ID   int
	Name string
}

func (t Tool) String() string { return t.Name }

// IsSet reports whether t refers to a concrete tool. ToolUnset asks the caller
// to substitute the tool currently mounted.
func (t Tool) IsSet() bool { return t != ToolUnset }

// Usable reports whether a trajectory can be issued with this tool; the tool
// changer itself (id 0) can't handle samples.
func (t Tool) Usable() bool { return t.ID >= 1 && t.Name != "" }

var (
	// ToolUnset is the zero Tool.
	ToolUnset = Tool{}

	ToolChanger      = Tool{ID: 0, Name: "ToolChanger"}
	Cryotong         = Tool{ID: 1, Name: "Cryotong"}
	SingleGripper    = Tool{ID: 2, Name: "SingleGripper"}
	DoubleGripper    = Tool{ID: 3, Name: "DoubleGripper"}
	MiniSpineGripper = Tool{ID: 4, Name: "MiniSpineGripper"}
	RotatingGripper  = Tool{ID: 5, Name: "RotatingGripper"}
	PlateGripper     = Tool{ID: 6, Name: "PlateGripper"}
	Spare            = Tool{ID: 7, Name: "Spare"}
	LaserTool        = Tool{ID: 8, Name: "LaserTool"}
)

var tools = newCatalog("tool",
	func(t Tool) int { return t.ID },
	func(t Tool) string { return t.Name },
	ToolChanger, Cryotong, SingleGripper, DoubleGripper, MiniSpineGripper,
	RotatingGripper, PlateGripper, Spare, LaserTool,
)

// ToolByID returns the tool with the given id.
func ToolByID(id int) (Tool, bool) { return tools.id(id) }

// ToolByName returns the tool with the given name, case-insensitively.
func ToolByName(name string) (Tool, bool) { return tools.name(name) }

// LookupTool resolves a wire token holding a tool id or name.
func LookupTool(raw string) (Tool, error) { return tools.lookup(raw) }

// Tools returns all known tools in id order.
func Tools() []Tool { return append([]Tool(nil), tools.all...) }
