package trajectory

import "errors"

var (
	// ErrBusy is returned by Submit while another run is submitted or running.
	ErrBusy = errors.New("trajectory controller busy")

	// ErrTimedOut is the outcome error of a run that did not finish before its deadline.
	ErrTimedOut = errors.New("trajectory timed out")

	// ErrFaulted is the outcome error of a run that ended with the controller fault flag raised.
	ErrFaulted = errors.New("trajectory faulted")

	// ErrAborted is the outcome error of a run ended by Abort.
	ErrAborted = errors.New("trajectory aborted")

	// ErrClosed is returned when the controller is closed.
	ErrClosed = errors.New("trajectory controller closed")

	// ErrConfigNil is returned when an option is applied to a nil config.
	ErrConfigNil = errors.New("trajectory config is nil")
)
