package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// SplitStatus extracts the comma separated values of a status reply "name(v0,v1,...)".
//
// A reply that doesn't carry a payload frame for q is returned as a *ReplyError,
// or as a *RejectedError when it matches a known rejection reason.
func SplitStatus(q Query, raw []byte) ([]string, error) {
	msg := string(bytes.TrimSpace(raw))
	prefix := string(q) + "("

	start := strings.Index(msg, prefix)
	end := strings.LastIndexByte(msg, ')')
	if start < 0 || end < start+len(prefix) {
		if err := Decode(q, raw).Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s reply without payload", ErrMalformedReply, q)
	}

	inner := msg[start+len(prefix) : end]
	if inner == "" {
		return []string{}, nil
	}

	return strings.Split(inner, ","), nil
}
