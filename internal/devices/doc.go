// Package devices tracks the block devices visible to the host.
//
// There is no attach or detach notification to wait on, so the package works
// from point-in-time snapshots of /proc/partitions and their set differences.
// It also pokes the SCSI sysfs controls: a bus rescan after an attach, and a
// per-device delete for devices whose backing storage disappeared after a
// detach.
//
// All filesystem access goes through an afero.Fs so /proc, /sys and /dev can
// be replaced in tests.
package devices
