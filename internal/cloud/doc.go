// Package cloud describes the remote block-storage API a validation run talks
// to: the resource representations it returns, the equality filters used to
// index collections, and the API interface implemented by each backend.
//
// Backends report a resource that no longer exists with faults.NotFound so
// deletion waits can treat it as success.
package cloud
