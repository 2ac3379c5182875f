package status

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameMissing indicates that a telegram frame was not received.
	ErrFrameMissing = errors.New("frame missing")

	// ErrFieldMissing indicates that a frame is too short to hold a field.
	ErrFieldMissing = errors.New("field missing")

	// ErrBadValue indicates a field value outside its domain.
	ErrBadValue = errors.New("bad field value")

	// ErrStateUnknown indicates that no snapshot has been published yet.
	ErrStateUnknown = errors.New("robot state unknown")

	// ErrStateStale indicates that the latest snapshot is older than the staleness bound.
	ErrStateStale = errors.New("robot state stale")
)

// DecodeFault reports a status field that could not be interpreted.
type DecodeFault struct {
	Field string
	Raw   string
	Err   error
}

func (f DecodeFault) Error() string {
	return fmt.Sprintf("decode %s %q: %v", f.Field, f.Raw, f.Err)
}

func (f DecodeFault) Unwrap() error {
	return f.Err
}
