/*
Package trajectory submits trajectories to the controller and follows them to
completion.

A trajectory moves through Idle → Submitted → Running → {Completed | Faulted | TimedOut}.
Submitted is entered when the controller acknowledges the command; Running when a
published status snapshot shows the controller executing the trajectory's path;
Completed or Faulted when the path ends with the fault flag down or up. A rejected
command goes straight to Faulted. TimedOut is entered when no terminal transition is
seen before the run deadline.

The controller runs one trajectory at a time, so a Controller holds a single
in-flight slot: Submit fails with ErrBusy, without any I/O, while a run is active.

State changes are observed by reading the snapshots a poller publishes to a
status.Cache; the Controller never talks to the poller directly.

	run, err := ctl.Submit(ctx, traj)
	if err != nil {
		return err
	}
	outcome, err := ctl.Await(ctx, run)
*/
package trajectory
