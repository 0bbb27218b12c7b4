// Package hostfs runs the filesystem workload on an attached volume: format,
// mount, write a random test file, fingerprint it, unmount.
//
// Formatting shells out to mkfs through k8s.io/utils/exec; mounting goes
// through k8s.io/mount-utils. File I/O uses an afero.Fs rooted at the host
// filesystem.
package hostfs
