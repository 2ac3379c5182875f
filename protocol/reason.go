package protocol

import (
	"fmt"
	"regexp"
	"sync"
)

// Reason is a class of controller rejection, recognized by matching the reply text.
type Reason struct {
	// Code is the stable identifier of the reason, e.g. "door_open".
	Code string
	// Pattern matches the controller message for this reason.
	Pattern *regexp.Regexp
	// Fault marks reasons caused by a controller fault condition rather than a refused request.
	Fault bool
	// Busy marks the reason reported while another path is running.
	Busy bool
}

// ReasonUnknown is attached to errors whose message matched no registered reason.
var ReasonUnknown = Reason{Code: "unknown"}

var builtinReasons = []Reason{
	{Code: "command_not_found", Pattern: regexp.MustCompile(`(?i)\bcommand\b.*\bnot\b.*\bfound\b`)},
	{Code: "remote_mode_requested", Pattern: regexp.MustCompile(`(?i)\bremote\b.*\bmode\b.*\brequested\b`)},
	{Code: "door_open", Pattern: regexp.MustCompile(`(?i)\bdoors\b.*\bmust\b.*\bclosed\b`)},
	{Code: "emergency_stop", Pattern: regexp.MustCompile(`(?i)\bemergency\b.*\bstop\b.*\btriggered\b`), Fault: true},
	{Code: "system_fault", Pattern: regexp.MustCompile(`(?i)\bsystem\b.*\bfault\b`), Fault: true},
	{Code: "inconsistent_parameters", Pattern: regexp.MustCompile(`(?i)\binconsistent\b.*\bparameters\b`)},
	{Code: "order_rejected", Pattern: regexp.MustCompile(`(?i)\border\b.*\brejected\b`)},
	{Code: "path_running", Pattern: regexp.MustCompile(`(?i)\bpath\b.*(?:\bis\b|\balready\b).*\brunning\b`), Busy: true},
	{Code: "safety_restart_required", Pattern: regexp.MustCompile(`(?i)\bsafety\b.*\brestart\b.*(?:\bneeded\b|\brequired\b)`), Fault: true},
	{Code: "device_not_responding", Pattern: regexp.MustCompile(`(?i)\bdevice\b.*\bnot\b.*\bresponding\b`), Fault: true},
	{Code: "lid_moving", Pattern: regexp.MustCompile(`(?i)\bdisabled\b.*\blid\b.*\bmoving\b`)},
	{Code: "power_disabled", Pattern: regexp.MustCompile(`(?i)\bpower\b.*\bdisabled\b`)},
	{Code: "change_tool_first", Pattern: regexp.MustCompile(`(?i)\bchange\b.*\btool\b.*\bfirst\b`)},
	{Code: "wrong_start_position", Pattern: regexp.MustCompile(`(?i)\btrajectory\b.*\bmust\b.*\bstart\b.*\bposition\b`)},
	{Code: "tool_already_equipped", Pattern: regexp.MustCompile(`(?i)\btool\b.*\balready\b.*\bequipped\b`)},
	{Code: "not_ready", Pattern: regexp.MustCompile(`(?i)\bnot\b.*\bready\b`)},
}

// ReasonRegistry is an ordered set of rejection reasons. The first matching reason wins.
type ReasonRegistry struct {
	mu      sync.RWMutex
	reasons []Reason
}

// NewReasonRegistry returns a registry holding the built-in reasons.
func NewReasonRegistry() *ReasonRegistry {
	return &ReasonRegistry{reasons: append([]Reason(nil), builtinReasons...)}
}

// Register adds a reason. Registered reasons are matched before the built-in ones
// so firmware specific messages can refine a generic reason.
func (r *ReasonRegistry) Register(reason Reason) error {
	if reason.Code == "" || reason.Pattern == nil {
		return fmt.Errorf("%w: reason needs a code and a pattern", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reasons {
		if existing.Code == reason.Code {
			return fmt.Errorf("%w: %s", ErrDuplicateReason, reason.Code)
		}
	}
	r.reasons = append([]Reason{reason}, r.reasons...)

	return nil
}

// Lookup returns the reason registered under code.
func (r *ReasonRegistry) Lookup(code string) (Reason, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reason := range r.reasons {
		if reason.Code == code {
			return reason, true
		}
	}

	return Reason{}, false
}

// Match returns the first reason whose pattern matches msg.
func (r *ReasonRegistry) Match(msg string) (Reason, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reason := range r.reasons {
		if reason.Pattern.MatchString(msg) {
			return reason, true
		}
	}

	return Reason{}, false
}

var defaultRegistry = NewReasonRegistry()

// RegisterReason adds a reason to the default registry used by Decode.
func RegisterReason(reason Reason) error {
	return defaultRegistry.Register(reason)
}

// LookupReason returns the reason registered under code in the default registry.
func LookupReason(code string) (Reason, bool) {
	return defaultRegistry.Lookup(code)
}
