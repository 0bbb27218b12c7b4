// Package lifecycle drives remote resources (volumes, attachments, snapshots,
// backups) to a terminal status.
//
// A Driver polls a Resource on a fixed interval until its status is accepted,
// reaches a failure status, or the deadline passes. Every poll re-reads the
// status from the remote system; nothing is cached between polls. Failure
// statuses are absorbing: the first one ends polling.
//
// Basic usage:
//
//	d := lifecycle.NewDriver(clock.WallClock, logger)
//	out, err := d.DriveToTerminal(ctx, lifecycle.NewVolume(api, href), lifecycle.VolumeCreated, 15*time.Minute)
//	if err != nil {
//		// out.Result is Failed, TimedOut or the refresh failed
//	}
//
// Destroy requests are the only remote calls retried, once, by DestroyWithRetry.
package lifecycle
