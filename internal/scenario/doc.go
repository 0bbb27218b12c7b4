// Package scenario runs the block-storage validation scenarios against a
// cloud.API while cross-checking the host's block devices.
//
// A run is a fixed sequence of stages:
//
//	single-volume/create    create, attach, format and mount one volume
//	single-volume/write     write a random test file and fingerprint it
//	single-volume/snapshot  snapshot the volume
//	single-volume/teardown  unmount, detach and destroy the volume
//	restore                 restore the snapshot to a new volume and compare fingerprints
//	multi-volume            attach several volumes at once and back them up together
//	cleanup                 destroy the snapshot and the backup
//
// Every resource a stage creates registers a release action on the session's
// cleanup stack. A stage that tears its resources down normally removes the
// actions; whatever remains when the run ends, including after a failure, is
// released in reverse order: unmount, detach, destroy volume, then destroy
// snapshots and backups.
package scenario
