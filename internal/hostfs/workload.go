package hostfs

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	mount "k8s.io/mount-utils"
	utilexec "k8s.io/utils/exec"

	"github.com/jbweber/volcheck/internal/faults"
)

const (
	// TestFileName is written at the root of the mounted volume.
	TestFileName = "testfile"

	chunkSize = 16 * humanize.MiByte
)

// mounter is the subset of mount.Interface the workload needs.
//
// In production, this is satisfied by mount.New("").
// In tests, by *mount.FakeMounter.
type mounter interface {
	Mount(source, target, fstype string, options []string) error
	Unmount(target string) error
}

// Workload formats, mounts and exercises volumes on the host.
type Workload struct {
	fs      afero.Afero
	exec    utilexec.Interface
	mounter mounter
	logger  logrus.FieldLogger
}

// New returns a Workload using the given filesystem, command runner and mounter.
func New(fs afero.Fs, exec utilexec.Interface, m mounter, logger logrus.FieldLogger) *Workload {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Workload{
		fs:      afero.Afero{Fs: fs},
		exec:    exec,
		mounter: m,
		logger:  logger,
	}
}

// NewHost returns a Workload on the real host.
func NewHost(logger logrus.FieldLogger) *Workload {
	return New(afero.NewOsFs(), utilexec.New(), mount.New(""), logger)
}

// Format creates a fresh filesystem of type fstype on device, overwriting
// whatever is there.
func (w *Workload) Format(ctx context.Context, device, fstype string) error {
	command := "mkfs." + fstype
	args := []string{forceFlag(fstype), device}

	w.logger.WithFields(logrus.Fields{"device": device, "fstype": fstype}).Info("Formatting device.")
	out, err := w.exec.CommandContext(ctx, command, args...).CombinedOutput()
	if err != nil {
		return faults.ExternalCommandFailure(command+" "+strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}

func forceFlag(fstype string) string {
	if fstype == "xfs" {
		return "-f"
	}
	return "-F"
}

// Mount creates mountPoint if needed and mounts device on it.
func (w *Workload) Mount(ctx context.Context, device, mountPoint, fstype string) error {
	if err := w.fs.MkdirAll(mountPoint, 0o755); err != nil {
		return fmt.Errorf("failed to create mount point %s: %w", mountPoint, err)
	}

	w.logger.WithFields(logrus.Fields{"device": device, "mountPoint": mountPoint}).Info("Mounting device.")
	if err := w.mounter.Mount(device, mountPoint, fstype, nil); err != nil {
		return faults.ExternalCommandFailure(fmt.Sprintf("mount %s %s", device, mountPoint), "", err)
	}
	return nil
}

// Unmount unmounts mountPoint.
func (w *Workload) Unmount(ctx context.Context, mountPoint string) error {
	w.logger.WithField("mountPoint", mountPoint).Info("Unmounting.")
	if err := w.mounter.Unmount(mountPoint); err != nil {
		return faults.ExternalCommandFailure("umount "+mountPoint, "", err)
	}
	return nil
}

// TestFilePath returns where the test file lives under mountPoint.
func TestFilePath(mountPoint string) string {
	return filepath.Join(mountPoint, TestFileName)
}

// WriteTestFile fills the test file under mountPoint with sizeBytes of random
// data, syncs it and returns its fingerprint as read back from the volume.
func (w *Workload) WriteTestFile(ctx context.Context, mountPoint string, sizeBytes int64) (string, error) {
	path := TestFilePath(mountPoint)
	log := w.logger.WithFields(logrus.Fields{"file": path, "size": humanize.IBytes(uint64(sizeBytes))})
	log.Info("Writing test file.")

	if err := w.writeRandom(ctx, path, sizeBytes); err != nil {
		return "", err
	}

	sum, err := w.Fingerprint(ctx, mountPoint)
	if err != nil {
		return "", err
	}
	log.WithField("md5", sum).Info("Test file written.")
	return sum, nil
}

func (w *Workload) writeRandom(ctx context.Context, path string, sizeBytes int64) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create test file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, min(int64(chunkSize), sizeBytes))
	for remaining := sizeBytes; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(int64(len(buf)), remaining)
		if _, err := rand.Read(buf[:n]); err != nil {
			return fmt.Errorf("failed to generate random data: %w", err)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return fmt.Errorf("failed to write test file: %w", err)
		}
		remaining -= n
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync test file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close test file: %w", err)
	}
	return nil
}

// Fingerprint returns the MD5 of the test file under mountPoint.
func (w *Workload) Fingerprint(ctx context.Context, mountPoint string) (string, error) {
	f, err := w.fs.Open(TestFilePath(mountPoint))
	if err != nil {
		return "", fmt.Errorf("failed to open test file: %w", err)
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to read test file: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
