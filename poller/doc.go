/*
Package poller keeps a status.Cache current by querying the controller's status
channel on a fixed interval.

Each cycle sends the "state", "di" and "do" queries, decodes them into a
status.RobotState and publishes it. A cycle whose "state" query fails publishes
nothing; after a configurable number of consecutive failed cycles the poller
reconnects the transport and keeps polling.

	p, err := poller.New(statusTransport, cache, poller.WithInterval(200*time.Millisecond))
	if err != nil {
		return err
	}
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer func() {
		p.Stop()
		p.Wait()
	}()
*/
package poller
