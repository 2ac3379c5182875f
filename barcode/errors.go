package barcode

import "errors"

var (
	// ErrNotFound indicates that no puck carries the code.
	ErrNotFound = errors.New("barcode not found")

	// ErrEmptyCode is returned for a blank code.
	ErrEmptyCode = errors.New("empty barcode")

	// ErrConfigNil is returned when an option is applied to a nil config.
	ErrConfigNil = errors.New("barcode config is nil")
)
