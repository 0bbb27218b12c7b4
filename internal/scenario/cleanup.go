package scenario

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/jbweber/volcheck/internal/logging"
)

type releaseFunc func(ctx context.Context) error

type release struct {
	id       int
	what     string
	resource string
	fn       releaseFunc
}

// cleanupStack holds release actions for live resources. Ids start at 1, so
// the zero id never names an action.
type cleanupStack struct {
	lastID int
	items  []release
}

// push registers an action that runs before everything already registered.
func (c *cleanupStack) push(what, resource string, fn releaseFunc) int {
	c.lastID++
	c.items = append(c.items, release{id: c.lastID, what: what, resource: resource, fn: fn})
	return c.lastID
}

// pushLast registers an action that runs after everything already
// registered. Snapshots and backups use it so they outlive the volumes they
// were taken from.
func (c *cleanupStack) pushLast(what, resource string, fn releaseFunc) int {
	c.lastID++
	c.items = append([]release{{id: c.lastID, what: what, resource: resource, fn: fn}}, c.items...)
	return c.lastID
}

func (c *cleanupStack) pop(id int) {
	for i, r := range c.items {
		if r.id == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *cleanupStack) len() int {
	return len(c.items)
}

// run executes one action now and forgets it if it succeeded. A failed
// action stays registered so unwind tries it again.
func (c *cleanupStack) run(ctx context.Context, id int) error {
	if id == 0 {
		return nil
	}
	for _, r := range c.items {
		if r.id != id {
			continue
		}
		if err := r.fn(ctx); err != nil {
			return fmt.Errorf("failed to %s %s: %w", r.what, r.resource, err)
		}
		c.pop(id)
		return nil
	}
	return nil
}

// unwind runs every remaining action, newest first, and empties the stack.
// It keeps going past failures and returns them combined.
func (c *cleanupStack) unwind(ctx context.Context, log logrus.FieldLogger) error {
	var errs error
	for i := len(c.items) - 1; i >= 0; i-- {
		r := c.items[i]
		rlog := log.WithField(logging.FieldResource, r.resource)
		if err := r.fn(ctx); err != nil {
			rlog.WithError(err).Errorf("Cleanup could not %s.", r.what)
			errs = multierr.Append(errs, fmt.Errorf("failed to %s %s: %w", r.what, r.resource, err))
			continue
		}
		rlog.Infof("Cleanup: %s done.", r.what)
	}
	c.items = nil
	return errs
}
