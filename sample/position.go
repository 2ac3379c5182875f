package sample

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the kind of a storage position.
type Kind uint8

const (
	KindNone Kind = iota
	KindPuck
	KindHotPuck
	KindPlate
	KindPin
)

func (k Kind) String() string {
	switch k {
	case KindPuck:
		return "puck"
	case KindHotPuck:
		return "hotpuck"
	case KindPlate:
		return "plate"
	case KindPin:
		return "pin"
	default:
		return "none"
	}
}

// Position identifies one storage slot. The zero value is "no position".
//
// Position is comparable; use == and map keys directly.
type Position struct {
	kind Kind
	id   int
	pin  int
}

// Kind returns the kind of the position.
func (p Position) Kind() Kind { return p.kind }

// ID returns the container id: the puck, hot puck or plate id, or for a pin the id of its puck.
func (p Position) ID() int { return p.id }

// PinID returns the pin number for pins and 0 otherwise.
func (p Position) PinID() int { return p.pin }

func (p Position) IsZero() bool { return p.kind == KindNone }

func (p Position) IsPin() bool { return p.kind == KindPin }

func (p Position) IsPlate() bool { return p.kind == KindPlate }

// IsHot reports whether the position is the hot puck or one of its pins.
func (p Position) IsHot() bool {
	return p.kind == KindHotPuck || (p.kind == KindPin && p.id == HotPuckID)
}

// Container returns the puck or hot puck holding a pin. Containers return themselves,
// every other kind returns the zero Position.
func (p Position) Container() Position {
	switch p.kind {
	case KindPuck, KindHotPuck:
		return p
	case KindPin:
		if p.id == HotPuckID {
			return Position{kind: KindHotPuck, id: HotPuckID}
		}
		return Position{kind: KindPuck, id: p.id}
	default:
		return Position{}
	}
}

// String renders the position in the form accepted by Parse, e.g. "pin:3:2".
func (p Position) String() string {
	switch p.kind {
	case KindNone:
		return "none"
	case KindPin:
		return "pin:" + strconv.Itoa(p.id) + ":" + strconv.Itoa(p.pin)
	default:
		return p.kind.String() + ":" + strconv.Itoa(p.id)
	}
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses text produced by MarshalText against DefaultLayout.
func (p *Position) UnmarshalText(text []byte) error {
	pos, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = pos

	return nil
}

// Parse parses "puck:<id>", "hotpuck:<id>", "plate:<id>", "pin:<puck>:<pin>" or "none"
// against DefaultLayout.
func Parse(s string) (Position, error) {
	return DefaultLayout.Parse(s)
}

// Parse is like the package-level Parse but validates against l.
func (l Layout) Parse(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if s == "none" || s == "" {
		return Position{}, nil
	}

	parts := strings.Split(s, ":")
	ids := make([]int, 0, 2)
	for _, part := range parts[1:] {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
		}
		ids = append(ids, n)
	}

	switch {
	case parts[0] == "puck" && len(ids) == 1:
		return l.NewPuck(ids[0])
	case parts[0] == "hotpuck" && len(ids) == 1:
		return l.NewHotPuck(ids[0])
	case parts[0] == "plate" && len(ids) == 1:
		return l.NewPlate(ids[0])
	case parts[0] == "pin" && len(ids) == 2:
		return l.PinOf(ids[0], ids[1])
	default:
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
}

// CapType is the kind of cap a pin carries; it's sent along with mount commands.
type CapType int

const (
	CapOther   CapType = 0
	CapHampton CapType = 1
)

func (c CapType) String() string {
	if c == CapHampton {
		return "hampton"
	}

	return "other"
}
