package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/internal/faults"
)

const (
	// DefaultInterval is the fixed delay between status polls.
	DefaultInterval = 2 * time.Second

	// DefaultDestroyRetryDelay is the wait before the single destroy retry.
	DefaultDestroyRetryDelay = 5 * time.Second
)

var errNotTerminal = errors.New("resource not in a terminal status")

// Driver polls remote resources to a terminal status.
type Driver struct {
	Clock             clock.Clock
	Interval          time.Duration
	DestroyRetryDelay time.Duration
	Logger            logrus.FieldLogger
}

// NewDriver returns a Driver with the default poll interval.
func NewDriver(clk clock.Clock, logger logrus.FieldLogger) *Driver {
	return &Driver{
		Clock:             clk,
		Interval:          DefaultInterval,
		DestroyRetryDelay: DefaultDestroyRetryDelay,
		Logger:            logger,
	}
}

func (d *Driver) logger() logrus.FieldLogger {
	if d.Logger == nil {
		return logrus.StandardLogger()
	}
	return d.Logger
}

func (d *Driver) interval() time.Duration {
	if d.Interval <= 0 {
		return DefaultInterval
	}
	return d.Interval
}

// DriveToTerminal polls res until its status satisfies exp or deadline
// elapses. A status is accepted only if it was observed strictly before the
// deadline.
//
// The returned error is nil only for Success. Failed carries a
// RemoteFailureState fault, TimedOut a Timeout fault. A refresh error ends
// polling and is returned as is, unless exp.AcceptGone and the resource is
// not found.
func (d *Driver) DriveToTerminal(ctx context.Context, res Resource, exp Expectation, deadline time.Duration) (Outcome, error) {
	log := d.logger().WithFields(logrus.Fields{
		"resource": res.Href(),
		"wait":     exp.Name,
	})

	what := fmt.Sprintf("%s on %s", exp.Name, res.Href())
	start := d.Clock.Now()
	var (
		out      Outcome
		terminal error
	)

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			out.Elapsed = d.Clock.Now().Sub(start)
			if ctx.Err() != nil {
				out.Result = TimedOut
				terminal = stopped(ctx, what, out)
				return terminal
			}
			if out.Elapsed >= deadline {
				out.Result = TimedOut
				terminal = faults.Timeout(what, out.Elapsed, out.Status)
				return terminal
			}

			out.Polls++
			status, err := res.RefreshStatus(ctx)
			if err != nil {
				if exp.AcceptGone && faults.IsNotFound(err) {
					out.Result = Success
					out.Status = StatusDeleted
					return nil
				}
				out.Result = Failed
				terminal = fmt.Errorf("failed to refresh %s: %w", res.Href(), err)
				return terminal
			}
			out.Status = status

			switch exp.classify(status) {
			case accepted:
				out.Result = Success
				return nil
			case failed:
				out.Result = Failed
				terminal = faults.RemoteFailureState(res.Href(), status)
				return terminal
			}
			return errNotTerminal
		},
		IsFatalError: func(error) bool {
			return terminal != nil
		},
		NotifyFunc: func(_ error, attempt int) {
			log.WithFields(logrus.Fields{
				"status":  out.Status,
				"attempt": attempt,
			}).Debug("Waiting for terminal status.")
		},
		Attempts:    retry.UnlimitedAttempts,
		Delay:       d.interval(),
		MaxDuration: deadline + d.interval(),
		Clock:       d.Clock,
		Stop:        ctx.Done(),
	})

	switch {
	case err == nil:
		log.WithFields(logrus.Fields{
			"status":  out.Status,
			"elapsed": out.Elapsed,
		}).Info("Resource reached terminal status.")
		return out, nil
	case terminal != nil:
		log.WithField("status", out.Status).WithError(terminal).Error("Resource did not reach an accepted status.")
		return out, terminal
	case retry.IsDurationExceeded(err):
		out.Result = TimedOut
		out.Elapsed = d.Clock.Now().Sub(start)
		return out, faults.Timeout(what, out.Elapsed, out.Status)
	case retry.IsRetryStopped(err):
		out.Result = TimedOut
		out.Elapsed = d.Clock.Now().Sub(start)
		return out, stopped(ctx, what, out)
	default:
		return out, fmt.Errorf("failed waiting for %s on %s: %w", exp.Name, res.Href(), err)
	}
}

// stopped reports why polling ended early. An expired context deadline is
// the enclosing stage running out of time and becomes a Timeout fault.
func stopped(ctx context.Context, what string, out Outcome) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return faults.Timeout(what, out.Elapsed, out.Status)
	}
	return fmt.Errorf("stopped waiting for %s: %w", what, ctx.Err())
}

// Binding is a resource that reports the device it is attached at.
type Binding interface {
	Href() string
	Device(ctx context.Context) (string, error)
}

// VerifyBinding checks that the attachment is bound to exactly expectedSlot.
// The comparison is case-sensitive. A match is Success with the device as
// status; a mismatch is Inconsistent with a BindingInconsistency fault. A
// device that cannot be read is Failed.
func VerifyBinding(ctx context.Context, att Binding, expectedSlot string) (Outcome, error) {
	device, err := att.Device(ctx)
	if err != nil {
		return Outcome{Result: Failed}, fmt.Errorf("failed to read device of %s: %w", att.Href(), err)
	}
	if device != expectedSlot {
		return Outcome{Result: Inconsistent, Status: device}, faults.BindingInconsistency(att.Href(), expectedSlot, device)
	}
	return Outcome{Result: Success, Status: device}, nil
}

// DestroyWithRetry destroys res, retrying once after a remote error. A
// resource that is already gone counts as destroyed.
func (d *Driver) DestroyWithRetry(ctx context.Context, res Resource) error {
	log := d.logger().WithField("resource", res.Href())

	op := func() error {
		err := res.Destroy(ctx)
		if err == nil || faults.IsNotFound(err) {
			return nil
		}
		return faults.TransientRemote(err, "failed to destroy %s", res.Href())
	}
	notify := func(err error, next time.Duration) {
		log.WithError(err).WithField("retryIn", next).Warn("Destroy failed, retrying.")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(d.DestroyRetryDelay), 1), ctx)
	if err := backoff.RetryNotifyWithTimer(op, policy, notify, &clockTimer{clock: d.Clock}); err != nil {
		return err
	}
	log.Debug("Destroy requested.")
	return nil
}

// clockTimer adapts a clock.Clock to backoff.Timer.
type clockTimer struct {
	clock clock.Clock
	ch    <-chan time.Time
}

func (t *clockTimer) Start(duration time.Duration) {
	t.ch = t.clock.After(duration)
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time {
	return t.ch
}
