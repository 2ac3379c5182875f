package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a command that failed local validation; nothing was sent.
	ErrInvalidArgument = errors.New("invalid command argument")

	// ErrRejected indicates the controller explicitly refused a command.
	ErrRejected = errors.New("command rejected by controller")

	// ErrFault indicates a rejection caused by a controller fault condition.
	ErrFault = errors.New("controller fault")

	// ErrControllerBusy indicates a rejection because another path is already running.
	ErrControllerBusy = errors.New("controller busy")

	// ErrMalformedReply indicates a reply that is neither an acknowledgement nor a known rejection.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrDuplicateReason indicates a rejection reason code registered twice.
	ErrDuplicateReason = errors.New("duplicate reason code")
)

// RejectedError is returned for a Nack reply. It matches ErrRejected and, depending on
// its reason, ErrFault or ErrControllerBusy through errors.Is.
type RejectedError struct {
	Command string
	Reason  Reason
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.Command, e.Reason.Code, e.Message)
}

func (e *RejectedError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrFault:
		return e.Reason.Fault
	case ErrControllerBusy:
		return e.Reason.Busy
	default:
		return false
	}
}

// ReplyError is returned for a reply that can't be interpreted. It matches ErrMalformedReply.
type ReplyError struct {
	Command string
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: unexpected reply %q", e.Command, e.Message)
}

func (e *ReplyError) Is(target error) bool {
	return target == ErrMalformedReply
}
