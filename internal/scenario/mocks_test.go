package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/cloud/cloudtest"
	"github.com/jbweber/volcheck/internal/devices"
	"github.com/jbweber/volcheck/internal/loader"
	"github.com/jbweber/volcheck/internal/naming"
)

// testHost mirrors attachments of the fake cloud into a fake
// /proc/partitions. Every attachment gets a fresh kernel name, the way a
// hypervisor hands out the next free disk.
type testHost struct {
	t       *testing.T
	fs      afero.Fs
	devices map[string]string // attachment href -> kernel name
	next    byte

	// events is shared with fakeWorkload to check ordering across the two.
	events []string
}

func newTestHost(t *testing.T) *testHost {
	h := &testHost{
		t:       t,
		fs:      afero.NewMemMapFs(),
		devices: map[string]string{},
		next:    'b',
	}
	h.write()
	return h
}

func (h *testHost) onAttach(att cloud.Attachment) {
	name := "sd" + string(rune(h.next))
	h.next++
	h.devices[att.Href] = name
	h.events = append(h.events, "attach "+att.Device)
	h.write()
}

func (h *testHost) onDetach(att cloud.Attachment) {
	delete(h.devices, att.Href)
	h.events = append(h.events, "detach "+att.Device)
	h.write()
}

func (h *testHost) write() {
	names := []string{"sda"}
	for _, n := range h.devices {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("major minor  #blocks  name\n\n")
	for i, n := range names {
		fmt.Fprintf(&b, "   8  %5d   10485760 %s\n", i*16, n)
	}
	if err := afero.WriteFile(h.fs, devices.PartitionsPath, []byte(b.String()), 0o444); err != nil {
		h.t.Fatal(err)
	}
}

// fakeWorkload records host operations instead of running them.
type fakeWorkload struct {
	host *testHost

	formatted []string
	mounted   map[string]string // mount point -> device
	written   string

	// corrupt makes Fingerprint report different content.
	corrupt bool
}

func newFakeWorkload(host *testHost) *fakeWorkload {
	return &fakeWorkload{host: host, mounted: map[string]string{}}
}

func (w *fakeWorkload) Format(ctx context.Context, device, fstype string) error {
	w.formatted = append(w.formatted, device)
	return nil
}

func (w *fakeWorkload) Mount(ctx context.Context, device, mountPoint, fstype string) error {
	if _, ok := w.mounted[mountPoint]; ok {
		return fmt.Errorf("%s already mounted", mountPoint)
	}
	w.mounted[mountPoint] = device
	w.host.events = append(w.host.events, "mount "+device)
	return nil
}

func (w *fakeWorkload) Unmount(ctx context.Context, mountPoint string) error {
	if _, ok := w.mounted[mountPoint]; !ok {
		return fmt.Errorf("%s not mounted", mountPoint)
	}
	delete(w.mounted, mountPoint)
	w.host.events = append(w.host.events, "unmount "+mountPoint)
	return nil
}

func (w *fakeWorkload) WriteTestFile(ctx context.Context, mountPoint string, sizeBytes int64) (string, error) {
	w.written = "3f2a6c1d0e9b8a7f6e5d4c3b2a190817"
	return w.written, nil
}

func (w *fakeWorkload) Fingerprint(ctx context.Context, mountPoint string) (string, error) {
	if w.corrupt {
		return "00000000000000000000000000000000", nil
	}
	return w.written, nil
}

// newTestSession wires a session on platform p to api, a fake host and a
// clock that advances whenever something waits on it.
func newTestSession(t *testing.T, api *cloudtest.Fake, p naming.Platform) (*Session, *testHost, *fakeWorkload) {
	t.Helper()

	host := newTestHost(t)
	api.OnAttach = host.onAttach
	api.OnDetach = host.onDetach

	clk := testclock.NewClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	auto := &testclock.AutoAdvancingClock{Clock: clk, Advance: clk.Advance}
	logger, _ := test.NewNullLogger()

	vc := loader.Default()
	vc.Spec.VolumeSizeGB = naming.DefaultVolumeSizeGB(p)

	inv := devices.NewInventory(host.fs, auto, logger)
	w := newFakeWorkload(host)

	s := NewSession(api, vc, p, inv, w, auto, logger)
	s.RunID = "run-1"
	s.Driver.DestroyRetryDelay = time.Second
	return s, host, w
}

// callsWithPrefix returns the recorded calls that start with prefix.
func callsWithPrefix(api *cloudtest.Fake, prefix string) []string {
	var out []string
	for _, c := range api.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// indexOf returns the position of the first call starting with prefix at or
// after from, or -1.
func indexOf(calls []string, prefix string, from int) int {
	for i := from; i < len(calls); i++ {
		if strings.HasPrefix(calls[i], prefix) {
			return i
		}
	}
	return -1
}
