package poller

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running poller.
	ErrAlreadyStarted = errors.New("poller already started")

	// ErrUnusableState indicates a cycle whose "state" reply carried no status frame.
	ErrUnusableState = errors.New("unusable state reply")
)
