package transport

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("transport config is nil")

	// ErrConnection indicates the socket could not be established or broke.
	ErrConnection = errors.New("connection error")

	// ErrTimeout indicates that no reply arrived within the reply timeout.
	ErrTimeout = errors.New("reply timeout")

	// ErrProtocol indicates that the received bytes are not a valid frame.
	ErrProtocol = errors.New("protocol error")

	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")
)
