package devices

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/jbweber/volcheck/internal/faults"
)

const (
	PartitionsPath    = "/proc/partitions"
	ScsiHostScanGlob  = "/sys/class/scsi_host/host*/scan"
	blockDeleteFormat = "/sys/block/%s/device/delete"

	DefaultRootDevice     = "/dev/sda"
	DefaultSettleInterval = time.Second
	DefaultPollInterval   = 2 * time.Second

	scanTrigger   = "- - -"
	deleteTrigger = "1"
	probeSize     = 8
)

var (
	deviceMapperRegex = regexp.MustCompile(`^dm-\d+$`)
	endsInLetterRegex = regexp.MustCompile(`[a-z]$`)
	endsInDigitRegex  = regexp.MustCompile(`[0-9]$`)
)

// Inventory reads and manipulates the host's block devices.
type Inventory struct {
	fs     afero.Afero
	clock  clock.Clock
	logger logrus.FieldLogger

	// RootDevice hosts the root filesystem and is never removed.
	RootDevice     string
	SettleInterval time.Duration
	PollInterval   time.Duration
}

// NewInventory returns an Inventory over fs with default intervals.
func NewInventory(fs afero.Fs, clk clock.Clock, logger logrus.FieldLogger) *Inventory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Inventory{
		fs:             afero.Afero{Fs: fs},
		clock:          clk,
		logger:         logger,
		RootDevice:     DefaultRootDevice,
		SettleInterval: DefaultSettleInterval,
		PollInterval:   DefaultPollInterval,
	}
}

// Capture reads the current block devices from /proc/partitions.
//
// Device-mapper entries are dropped. Whole disks (names ending in a letter)
// are preferred; partition names are returned only when no whole disk is
// listed.
func (i *Inventory) Capture(ctx context.Context) (Snapshot, error) {
	data, err := i.fs.ReadFile(PartitionsPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", PartitionsPath, err)
	}
	return parsePartitions(data), nil
}

func parsePartitions(data []byte) Snapshot {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for line := 0; scanner.Scan(); line++ {
		// header row and the blank line after it
		if line < 2 {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		if deviceMapperRegex.MatchString(name) {
			continue
		}
		names = append(names, name)
	}

	selected := filterNames(names, endsInLetterRegex)
	if len(selected) == 0 {
		selected = filterNames(names, endsInDigitRegex)
	}

	paths := make([]string, 0, len(selected))
	for _, name := range selected {
		paths = append(paths, "/dev/"+name)
	}
	return NewSnapshot(paths...)
}

func filterNames(names []string, re *regexp.Regexp) []string {
	var out []string
	for _, n := range names {
		if re.MatchString(n) {
			out = append(out, n)
		}
	}
	return out
}

// RescanBuses asks every SCSI host to rescan and waits for each to settle.
// Hosts without a scan control are skipped. Returns the number of hosts
// rescanned.
func (i *Inventory) RescanBuses(ctx context.Context) int {
	scanFiles, err := afero.Glob(i.fs, ScsiHostScanGlob)
	if err != nil {
		i.logger.WithError(err).Warn("Could not list SCSI hosts.")
		return 0
	}

	rescanned := 0
	for _, scanFile := range scanFiles {
		if err := i.writeTrigger(scanFile, scanTrigger); err != nil {
			i.logger.WithError(err).WithField("file", scanFile).Warn("Could not trigger SCSI rescan.")
			continue
		}
		i.logger.WithField("file", scanFile).Debug("Triggered SCSI rescan.")
		rescanned++
		if err := i.sleep(ctx, i.SettleInterval); err != nil {
			return rescanned
		}
	}
	return rescanned
}

// ReconcileDetachments removes devices whose backing storage is gone.
//
// Every device except the root device is probed with a small read. A device
// that fails with EIO is orphaned; it is deleted through its sysfs control
// when one exists. Returns the devices deleted.
func (i *Inventory) ReconcileDetachments(ctx context.Context) ([]string, error) {
	current, err := i.Capture(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, dev := range current.Without(i.RootDevice).Paths() {
		log := i.logger.WithField("device", dev)

		err := i.probe(dev)
		switch {
		case err == nil:
			log.Debug("Device still readable.")
			continue
		case !errors.Is(err, unix.EIO):
			log.WithError(err).Warn("Could not probe device.")
			continue
		}

		deleteFile := fmt.Sprintf(blockDeleteFormat, path.Base(dev))
		exists, err := i.fs.Exists(deleteFile)
		if err != nil || !exists {
			log.Warn("Device is not readable and has no removal control.")
			continue
		}

		if err := i.writeTrigger(deleteFile, deleteTrigger); err != nil {
			return removed, fmt.Errorf("failed to remove device %s: %w", dev, err)
		}
		log.Info("Removed orphaned device.")
		removed = append(removed, dev)
		if err := i.sleep(ctx, i.SettleInterval); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// WaitForNewDevice polls the inventory until a device not in baseline
// appears or deadline elapses. When several appear at once the first in
// sorted order is returned. Running into either deadline, or the deadline
// of ctx, is a Timeout fault.
func (i *Inventory) WaitForNewDevice(ctx context.Context, baseline Snapshot, deadline time.Duration) (string, error) {
	start := i.clock.Now()
	timedOut := func(err error) error {
		if errors.Is(err, context.DeadlineExceeded) {
			return faults.Timeout("new block device", i.clock.Now().Sub(start), "")
		}
		return err
	}
	for {
		current, err := i.Capture(ctx)
		if err != nil {
			return "", timedOut(err)
		}
		if added := current.Difference(baseline); len(added) > 0 {
			if len(added) > 1 {
				i.logger.WithField("devices", added).Warn("Several new devices appeared, using the first.")
			}
			return added[0], nil
		}

		elapsed := i.clock.Now().Sub(start)
		if elapsed >= deadline {
			return "", faults.Timeout("new block device", elapsed, "")
		}
		if err := i.sleep(ctx, i.PollInterval); err != nil {
			return "", timedOut(err)
		}
	}
}

func (i *Inventory) probe(dev string) error {
	f, err := i.fs.Open(dev)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, probeSize)
	if _, err := f.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (i *Inventory) writeTrigger(name, value string) error {
	f, err := i.fs.OpenFile(name, os.O_APPEND|os.O_WRONLY, 0o200)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (i *Inventory) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.clock.After(d):
		return nil
	}
}
