/*
Package protocol implements the line protocol spoken by the sample changer controller.

Every request is a single ASCII line terminated by a carriage return:

	state\r
	opentool\r
	traj(put,3,5,2)\r

Three kinds of commands exist:

  - Query: status queries answered with a payload frame such as "state(1,0,...)".
  - General: one-word controller commands such as "on", "abort" or "openlid".
  - Trajectory: arm motions sent as "traj(<path>,<args>...)" with a positional
    argument vector of up to 13 integers. Trailing zero arguments are trimmed.

Trajectory builders (Mount, Unmount, Home, ...) validate arguments before anything is
sent, so invalid requests never reach the wire.

The controller acknowledges a command by echoing its name. Anything else is a
rejection message; Decode classifies it against the registered rejection reasons
and always returns a Reply, never an error or a panic. New firmware messages can be
taught to the decoder with RegisterReason.
*/
package protocol
