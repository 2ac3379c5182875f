package robot

import "strings"

// Path is a trajectory the controller can run. Its Name is the trajectory
// sub-command used on the wire and reported in the state telegram while running.
type Path struct {
	ID   int
	Name string
}

func (p Path) String() string {
	if p.Name == "" {
		return "idle"
	}
	return p.Name
}

// IsIdle reports whether no trajectory is running.
func (p Path) IsIdle() bool { return p.Name == "" }

var (
	PathIdle             = Path{ID: 0, Name: ""}
	PathHome             = Path{ID: 1000, Name: "home"}
	PathPut              = Path{ID: 2000, Name: "put"}
	PathGet              = Path{ID: 3000, Name: "get"}
	PathGetPut           = Path{ID: 4000, Name: "getput"}
	PathPick             = Path{ID: 5000, Name: "pick"}
	PathSoak             = Path{ID: 6000, Name: "soak"}
	PathDry              = Path{ID: 7000, Name: "dry"}
	PathDatamatrix       = Path{ID: 8000, Name: "datamatrix"}
	PathPutPlate         = Path{ID: 9000, Name: "putplate"}
	PathGetPlate         = Path{ID: 10000, Name: "getplate"}
	PathChangeTool       = Path{ID: 20000, Name: "changetool"}
	PathToolCal          = Path{ID: 21000, Name: "toolcal"}
	PathTeachPuck        = Path{ID: 22000, Name: "teachpuck"}
	PathTeachDewar       = Path{ID: 23000, Name: "teachdewar"}
	PathTeachGonio       = Path{ID: 24000, Name: "teachgonio"}
	PathTeachPlateHolder = Path{ID: 25000, Name: "teachplateholder"}
	PathRecover          = Path{ID: 30000, Name: "recover"}
	PathBack             = Path{ID: 31000, Name: "back"}
	PathGotoDif          = Path{ID: 32000, Name: "gotodif"}
	PathPlateToDif       = Path{ID: 33000, Name: "platetodif"}
	PathPutHT            = Path{ID: 35000, Name: "putht"}
	PathGetHT            = Path{ID: 36000, Name: "getht"}
	PathGetPutHT         = Path{ID: 37000, Name: "getputht"}
	PathBackHT           = Path{ID: 50000, Name: "backht"}
)

var paths = newCatalog("path",
	func(p Path) int { return p.ID },
	func(p Path) string { return p.Name },
	PathIdle, PathHome, PathPut, PathGet, PathGetPut, PathPick, PathSoak, PathDry,
	PathDatamatrix, PathPutPlate, PathGetPlate, PathChangeTool, PathToolCal,
	PathTeachPuck, PathTeachDewar, PathTeachGonio, PathTeachPlateHolder,
	PathRecover, PathBack, PathGotoDif, PathPlateToDif, PathPutHT, PathGetHT,
	PathGetPutHT, PathBackHT,
)

// PathByID returns the path with the given id.
func PathByID(id int) (Path, bool) { return paths.id(id) }

// PathByName returns the path with the given name.
func PathByName(name string) (Path, bool) { return paths.name(name) }

// LookupPath resolves a wire token holding a path id or name.
//
// Numeric ids must be known. Names that aren't in the catalog are accepted
// as ad-hoc paths with id 0, so trajectories added by newer firmware can
// still be followed by name.
func LookupPath(raw string) (Path, error) {
	p, err := paths.lookup(raw)
	if err == nil {
		return p, nil
	}

	name := strings.TrimSpace(raw)
	if !isName(name) {
		return Path{}, err
	}

	return Path{ID: 0, Name: strings.ToLower(name)}, nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	// a name never starts with a digit or a sign
	return !(s[0] >= '0' && s[0] <= '9')
}
