package lifecycle

import (
	"context"
	"time"

	"github.com/juju/clock/testclock"
)

// scriptedResource returns statuses in order, repeating the last one.
type scriptedResource struct {
	href     string
	statuses []string
	// refreshErrs maps a poll index to the error returned by that poll.
	refreshErrs map[int]error
	polls       int

	destroyErrs []error
	destroys    int
}

func (r *scriptedResource) Href() string { return r.href }

func (r *scriptedResource) RefreshStatus(ctx context.Context) (string, error) {
	i := r.polls
	r.polls++
	if err, ok := r.refreshErrs[i]; ok {
		return "", err
	}
	if i >= len(r.statuses) {
		return r.statuses[len(r.statuses)-1], nil
	}
	return r.statuses[i], nil
}

func (r *scriptedResource) Destroy(ctx context.Context) error {
	i := r.destroys
	r.destroys++
	if i < len(r.destroyErrs) {
		return r.destroyErrs[i]
	}
	return nil
}

// mockBinding reports a fixed device.
type mockBinding struct {
	device string
	err    error
}

func (b *mockBinding) Href() string { return "/api/clouds/1/volume_attachments/1" }

func (b *mockBinding) Device(ctx context.Context) (string, error) {
	return b.device, b.err
}

// newTestDriver returns a driver on a clock that advances by itself whenever
// something waits on it.
func newTestDriver() (*Driver, *testclock.Clock) {
	clk := testclock.NewClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	auto := &testclock.AutoAdvancingClock{Clock: clk, Advance: clk.Advance}
	return &Driver{
		Clock:             auto,
		Interval:          2 * time.Second,
		DestroyRetryDelay: time.Second,
	}, clk
}
