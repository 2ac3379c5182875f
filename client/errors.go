package client

import "errors"

var (
	// ErrReadonly is returned for commands sent through a read-only client.
	ErrReadonly = errors.New("client is read-only")

	// ErrClosed is returned by Open on a closed client. A client can't be reopened.
	ErrClosed = errors.New("client closed")

	// ErrAlreadyOpen is returned by Open on an open client.
	ErrAlreadyOpen = errors.New("client already open")

	// ErrConfigNil is returned when an option is applied to a nil config.
	ErrConfigNil = errors.New("client config is nil")
)
