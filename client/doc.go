/*
Package client is the programmatic surface of the sample changer controller.

A Client owns the two controller channels (status and command), the status
poller, the trajectory controller and the barcode cache. Callers submit
trajectories, await their outcome, read the latest robot state and resolve puck
barcodes; they never see the wire protocol.

	cfg, err := client.NewConfig("asc.example.org", client.WithReadonly(false))
	if err != nil {
		return err
	}
	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer c.Close()

	pin, _ := sample.PinOf(3, 2)
	traj, _ := protocol.Mount(pin, protocol.MountOptions{})
	outcome, err := c.Run(ctx, traj)

Clients are read-only unless configured otherwise: trajectories and general
commands then fail with ErrReadonly.
*/
package client
