package faults

import (
	"errors"
	"fmt"
	"time"
)

// ///////////////////////////////////////////////////////////////////////////
// configurationFault
// ///////////////////////////////////////////////////////////////////////////

type configurationFault struct {
	message string
}

func (e *configurationFault) Error() string { return e.message }

// ConfigurationFault reports an unusable setup such as an unknown platform
// or missing credentials.
func ConfigurationFault(message string, a ...any) error {
	return &configurationFault{message: fmt.Sprintf(message, a...)}
}

func IsConfigurationFault(err error) bool {
	var e *configurationFault
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// remoteFailureState
// ///////////////////////////////////////////////////////////////////////////

type remoteFailureState struct {
	href   string
	status string
}

func (e *remoteFailureState) Error() string {
	return fmt.Sprintf("resource %s reported failure status %q", e.href, e.status)
}

// RemoteFailureState reports a resource that reached a failure status.
func RemoteFailureState(href, status string) error {
	return &remoteFailureState{href: href, status: status}
}

func IsRemoteFailureState(err error) bool {
	var e *remoteFailureState
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// timeoutFault
// ///////////////////////////////////////////////////////////////////////////

type timeoutFault struct {
	what    string
	elapsed time.Duration
	status  string
}

func (e *timeoutFault) Error() string {
	if e.status == "" {
		return fmt.Sprintf("timed out after %s waiting for %s", e.elapsed, e.what)
	}
	return fmt.Sprintf("timed out after %s waiting for %s (last status %q)", e.elapsed, e.what, e.status)
}

// Timeout reports a deadline that elapsed while waiting for what.
func Timeout(what string, elapsed time.Duration, lastStatus string) error {
	return &timeoutFault{what: what, elapsed: elapsed, status: lastStatus}
}

func IsTimeout(err error) bool {
	var e *timeoutFault
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// bindingInconsistency
// ///////////////////////////////////////////////////////////////////////////

type bindingInconsistency struct {
	href     string
	expected string
	actual   string
}

func (e *bindingInconsistency) Error() string {
	return fmt.Sprintf("attachment %s bound to device %q, requested %q", e.href, e.actual, e.expected)
}

// BindingInconsistency reports an attachment on a different device than requested.
func BindingInconsistency(href, expected, actual string) error {
	return &bindingInconsistency{href: href, expected: expected, actual: actual}
}

func IsBindingInconsistency(err error) bool {
	var e *bindingInconsistency
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// externalCommandFailure
// ///////////////////////////////////////////////////////////////////////////

type externalCommandFailure struct {
	inner   error
	command string
	output  string
}

func (e *externalCommandFailure) Error() string {
	msg := fmt.Sprintf("command %q failed", e.command)
	if e.inner != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.inner)
	}
	if e.output != "" {
		msg = fmt.Sprintf("%s; output: %s", msg, e.output)
	}
	return msg
}

func (e *externalCommandFailure) Unwrap() error { return e.inner }

// ExternalCommandFailure reports a host command (format, mount, unmount)
// that did not succeed.
func ExternalCommandFailure(command, output string, err error) error {
	return &externalCommandFailure{inner: err, command: command, output: output}
}

func IsExternalCommandFailure(err error) bool {
	var e *externalCommandFailure
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// transientRemote
// ///////////////////////////////////////////////////////////////////////////

type transientRemote struct {
	inner   error
	message string
}

func (e *transientRemote) Error() string {
	if e.inner == nil {
		return e.message
	}
	return fmt.Sprintf("%s; %v", e.message, e.inner)
}

func (e *transientRemote) Unwrap() error { return e.inner }

// TransientRemote wraps an isolated API call failure.
func TransientRemote(err error, message string, a ...any) error {
	return &transientRemote{inner: err, message: fmt.Sprintf(message, a...)}
}

func IsTransientRemote(err error) bool {
	var e *transientRemote
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// notFound
// ///////////////////////////////////////////////////////////////////////////

type notFound struct {
	href string
}

func (e *notFound) Error() string { return fmt.Sprintf("resource %s not found", e.href) }

// NotFound reports a resource the remote system no longer knows about.
func NotFound(href string) error {
	return &notFound{href: href}
}

func IsNotFound(err error) bool {
	var e *notFound
	return errors.As(err, &e)
}

// ///////////////////////////////////////////////////////////////////////////
// fingerprintMismatch
// ///////////////////////////////////////////////////////////////////////////

type fingerprintMismatch struct {
	original string
	restored string
}

func (e *fingerprintMismatch) Error() string {
	return fmt.Sprintf("restored content fingerprint %s does not match original %s", e.restored, e.original)
}

// FingerprintMismatch reports restored data that differs from what was written.
func FingerprintMismatch(original, restored string) error {
	return &fingerprintMismatch{original: original, restored: restored}
}

func IsFingerprintMismatch(err error) bool {
	var e *fingerprintMismatch
	return errors.As(err, &e)
}
