package sample

import "fmt"

const (
	// HotPuckID is the canonical id of the hot puck.
	HotPuckID = 101
	// hotPuckSentinel is the out-of-range id some firmware revisions report for the hot puck.
	hotPuckSentinel = 100
)

// Layout describes the storage geometry of a dewar.
type Layout struct {
	NumPucks  int
	NumPins   int
	NumPlates int
}

// DefaultLayout is the geometry of the standard dewar: 29 pucks of 16 pins and 20 plates.
var DefaultLayout = Layout{NumPucks: 29, NumPins: 16, NumPlates: 20}

// Validate reports whether the layout can address at least one slot of each kind.
func (l Layout) Validate() error {
	if l.NumPucks < 1 || l.NumPucks >= hotPuckSentinel {
		return fmt.Errorf("puck count %d out of range [1, %d]", l.NumPucks, hotPuckSentinel-1)
	}
	if l.NumPins < 1 {
		return fmt.Errorf("pin count %d must be positive", l.NumPins)
	}
	if l.NumPlates < 0 {
		return fmt.Errorf("plate count %d must not be negative", l.NumPlates)
	}

	return nil
}

// NewPuck returns the puck with the given id.
func (l Layout) NewPuck(id int) (Position, error) {
	if id < 1 || id > l.NumPucks {
		return Position{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidPuck, id, l.NumPucks)
	}

	return Position{kind: KindPuck, id: id}, nil
}

// NewHotPuck returns the hot puck. Both HotPuckID and the firmware sentinel
// are accepted and produce the same position.
func (l Layout) NewHotPuck(id int) (Position, error) {
	if id != HotPuckID && id != hotPuckSentinel {
		return Position{}, fmt.Errorf("%w: %d", ErrInvalidHotPuck, id)
	}

	return Position{kind: KindHotPuck, id: HotPuckID}, nil
}

// NewPlate returns the plate with the given id.
func (l Layout) NewPlate(id int) (Position, error) {
	if id < 1 || id > l.NumPlates {
		return Position{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidPlate, id, l.NumPlates)
	}

	return Position{kind: KindPlate, id: id}, nil
}

// NewContainer resolves a bare puck id as used on the wire: regular pucks,
// the hot puck and its sentinel.
func (l Layout) NewContainer(id int) (Position, error) {
	if id == HotPuckID || id == hotPuckSentinel {
		return l.NewHotPuck(id)
	}

	return l.NewPuck(id)
}

// NewPin returns pin number pin of the given puck or hot puck.
func (l Layout) NewPin(container Position, pin int) (Position, error) {
	if container.kind != KindPuck && container.kind != KindHotPuck {
		return Position{}, fmt.Errorf("%w: %s is not a puck", ErrInvalidPin, container)
	}
	if pin < 1 || pin > l.NumPins {
		return Position{}, fmt.Errorf("%w: pin %d not in [1, %d]", ErrInvalidPin, pin, l.NumPins)
	}

	return Position{kind: KindPin, id: container.id, pin: pin}, nil
}

// PinOf is the compact tuple form of NewPin.
func (l Layout) PinOf(puckID, pinID int) (Position, error) {
	container, err := l.NewContainer(puckID)
	if err != nil {
		return Position{}, err
	}

	return l.NewPin(container, pinID)
}

// Contains reports whether p is addressable in this layout.
func (l Layout) Contains(p Position) bool {
	switch p.kind {
	case KindPuck:
		return p.id >= 1 && p.id <= l.NumPucks
	case KindHotPuck:
		return true
	case KindPlate:
		return p.id >= 1 && p.id <= l.NumPlates
	case KindPin:
		if p.pin < 1 || p.pin > l.NumPins {
			return false
		}
		return p.id == HotPuckID || (p.id >= 1 && p.id <= l.NumPucks)
	default:
		return false
	}
}

// Pucks returns every regular puck of the layout in id order.
func (l Layout) Pucks() []Position {
	pucks := make([]Position, 0, l.NumPucks)
	for id := 1; id <= l.NumPucks; id++ {
		pucks = append(pucks, Position{kind: KindPuck, id: id})
	}

	return pucks
}

// NewPuck returns the puck with the given id in DefaultLayout.
func NewPuck(id int) (Position, error) {
	return DefaultLayout.NewPuck(id)
}

// NewHotPuck returns the hot puck, accepting the firmware sentinel id.
func NewHotPuck(id int) (Position, error) {
	return DefaultLayout.NewHotPuck(id)
}

// NewPlate returns the plate with the given id in DefaultLayout.
func NewPlate(id int) (Position, error) {
	return DefaultLayout.NewPlate(id)
}

// NewContainer returns the puck or hot puck addressed by a wire puck id.
func NewContainer(id int) (Position, error) {
	return DefaultLayout.NewContainer(id)
}

// NewPin returns pin number pin of container in DefaultLayout.
func NewPin(container Position, pin int) (Position, error) {
	return DefaultLayout.NewPin(container, pin)
}

// PinOf returns the pin addressed by a (puck id, pin id) pair in DefaultLayout.
func PinOf(puckID, pinID int) (Position, error) {
	return DefaultLayout.PinOf(puckID, pinID)
}
