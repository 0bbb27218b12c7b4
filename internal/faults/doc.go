// Package faults defines the error taxonomy of a validation run.
//
// Each fault kind has a constructor and an IsX predicate that sees through
// wrapping, so callers can classify an error returned from any layer:
//
//	if faults.IsNotFound(err) {
//		// resource already gone
//	}
//
// Configuration, remote failure, timeout, binding, external command and
// fingerprint faults abort the stage that raised them. Transient remote
// errors are retried once, and only by destroy operations. Not-found is
// success when waiting for a deletion.
package faults
