package sample

import "errors"

var (
	// ErrInvalidPuck indicates a puck id outside [1, NumPucks].
	ErrInvalidPuck = errors.New("invalid puck id")

	// ErrInvalidHotPuck indicates an id that is neither the hot puck id nor its firmware sentinel.
	ErrInvalidHotPuck = errors.New("invalid hot puck id")

	// ErrInvalidPlate indicates a plate id outside [1, NumPlates].
	ErrInvalidPlate = errors.New("invalid plate id")

	// ErrInvalidPin indicates a pin id outside [1, NumPins] or a pin built on a non-puck position.
	ErrInvalidPin = errors.New("invalid pin")

	// ErrInvalidPosition indicates a textual position that can't be parsed.
	ErrInvalidPosition = errors.New("invalid position")
)
