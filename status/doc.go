// Package status turns controller status telegrams into RobotState snapshots and
// publishes them.
//
// A telegram is the set of replies to the "state", "di" and "do" queries taken in
// one poll cycle. Decoding is driven by an explicit table: every field names the
// frame and value indexes it reads and the function that interprets them. A field
// that can't be interpreted yields a DecodeFault attached to the snapshot; the
// other fields are still decoded, so fault flags and the arm position stay visible
// when, say, one presence bit is garbled.
//
// Snapshots are immutable once published. Cache holds the latest one and lets any
// number of readers fetch it without blocking.
package status
