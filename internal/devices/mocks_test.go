package devices

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// eioFs fails reads of the named devices with EIO, like a SCSI disk whose
// backing volume was detached.
type eioFs struct {
	afero.Fs
	dead map[string]bool
}

func (e *eioFs) Open(name string) (afero.File, error) {
	f, err := e.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	if e.dead[name] {
		return &eioFile{File: f}, nil
	}
	return f, nil
}

type eioFile struct {
	afero.File
}

func (f *eioFile) Read(p []byte) (int, error) {
	return 0, &os.PathError{Op: "read", Path: f.Name(), Err: unix.EIO}
}

const partitionsHeader = "major minor  #blocks  name\n\n"

func writePartitions(t *testing.T, fs afero.Fs, names ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString(partitionsHeader)
	for i, n := range names {
		b.WriteString("   8       ")
		b.WriteString(string(rune('0' + i%10)))
		b.WriteString("   10485760 ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	if err := afero.WriteFile(fs, PartitionsPath, []byte(b.String()), 0o444); err != nil {
		t.Fatal(err)
	}
}

func touch(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestInventory(fs afero.Fs) *Inventory {
	clk := testclock.NewClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	auto := &testclock.AutoAdvancingClock{Clock: clk, Advance: clk.Advance}
	return NewInventory(fs, auto, nil)
}
