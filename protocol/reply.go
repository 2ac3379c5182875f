package protocol

import (
	"bytes"
)

// ReplyKind classifies a controller reply.
type ReplyKind uint8

const (
	// ReplyAck means the controller accepted the command.
	ReplyAck ReplyKind = iota
	// ReplyNack means the controller refused the command for a known reason.
	ReplyNack
	// ReplyMalformed means the reply could not be interpreted.
	ReplyMalformed
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyAck:
		return "ack"
	case ReplyNack:
		return "nack"
	default:
		return "malformed"
	}
}

// Reply is the decoded answer to one command.
type Reply struct {
	Kind    ReplyKind
	Command string
	// Reason is set for ReplyNack.
	Reason Reason
	// Message is the reply text with the line terminator removed.
	Message string
}

// Err converts a Nack or Error reply to an error; an Ack returns nil.
func (r Reply) Err() error {
	switch r.Kind {
	case ReplyAck:
		return nil
	case ReplyNack:
		return &RejectedError{Command: r.Command, Reason: r.Reason, Message: r.Message}
	default:
		return &ReplyError{Command: r.Command, Message: r.Message}
	}
}

// Decode classifies raw as the reply to cmd using the default reason registry.
//
// Decode is total: every input yields a Reply.
func Decode(cmd Command, raw []byte) Reply {
	return defaultRegistry.Decode(cmd, raw)
}

// Decode is like the package-level Decode but uses the reasons of r.
func (r *ReasonRegistry) Decode(cmd Command, raw []byte) Reply {
	name := cmd.Name()
	msg := string(bytes.TrimSpace(raw))

	if msg == "" {
		return Reply{Kind: ReplyMalformed, Command: name, Message: msg}
	}
	if !printable(msg) {
		return Reply{Kind: ReplyMalformed, Command: name, Message: msg}
	}
	if cmd.echoes(msg) {
		return Reply{Kind: ReplyAck, Command: name, Message: msg}
	}
	if reason, ok := r.Match(msg); ok {
		return Reply{Kind: ReplyNack, Command: name, Reason: reason, Message: msg}
	}

	return Reply{Kind: ReplyMalformed, Command: name, Reason: ReasonUnknown, Message: msg}
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < ' ' && c != '\t' || c > '~' {
			return false
		}
	}

	return true
}
