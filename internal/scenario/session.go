package scenario

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/devices"
	"github.com/jbweber/volcheck/internal/lifecycle"
	"github.com/jbweber/volcheck/internal/logging"
	"github.com/jbweber/volcheck/internal/naming"
)

// DefaultStageTimeout bounds a stage when the run definition leaves it unset.
const DefaultStageTimeout = 900 * time.Second

// Inventory is the host block-device view the scenarios need.
//
// In production, this is satisfied by *devices.Inventory.
type Inventory interface {
	Capture(ctx context.Context) (devices.Snapshot, error)
	RescanBuses(ctx context.Context) int
	ReconcileDetachments(ctx context.Context) ([]string, error)
	WaitForNewDevice(ctx context.Context, baseline devices.Snapshot, deadline time.Duration) (string, error)
}

// Workload formats, mounts and exercises a volume on the host.
//
// In production, this is satisfied by *hostfs.Workload.
type Workload interface {
	Format(ctx context.Context, device, fstype string) error
	Mount(ctx context.Context, device, mountPoint, fstype string) error
	Unmount(ctx context.Context, mountPoint string) error
	WriteTestFile(ctx context.Context, mountPoint string, sizeBytes int64) (string, error)
	Fingerprint(ctx context.Context, mountPoint string) (string, error)
}

// Session is everything one run needs. It is not safe for concurrent use.
type Session struct {
	API       cloud.API
	Check     *v1alpha1.VolumeCheck
	Platform  naming.Platform
	Slots     []string
	Inventory Inventory
	Workload  Workload
	Driver    *lifecycle.Driver
	Clock     clock.Clock
	Logger    logrus.FieldLogger
	RunID     string

	instance    *cloud.Instance
	volumeTypes []cloud.VolumeType
	typesLoaded bool
	cleanup     cleanupStack
	log         logrus.FieldLogger

	// state carried between stages
	single         *mountedVolume
	snapshotHref   string
	snapshotParent string
	snapshotID     int
	backupHref     string
	backupID       int
}

// mountedVolume is a volume the run created, with the cleanup ids of the
// steps that release it. A zero id means the step is not needed.
type mountedVolume struct {
	volume     *lifecycle.Volume
	attachment *lifecycle.Attachment
	device     string

	destroyID int
	detachID  int
	unmountID int
}

// NewSession returns a session for vc on platform p. The run id is fresh and
// the slots follow the platform's naming rule.
func NewSession(api cloud.API, vc *v1alpha1.VolumeCheck, p naming.Platform, inv Inventory, w Workload, clk clock.Clock, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	driver := lifecycle.NewDriver(clk, logger)
	if interval := vc.PollInterval(); interval > 0 {
		driver.Interval = interval
	}
	return &Session{
		API:       api,
		Check:     vc,
		Platform:  p,
		Slots:     naming.Slots(p),
		Inventory: inv,
		Workload:  w,
		Driver:    driver,
		Clock:     clk,
		Logger:    logger,
		RunID:     uuid.NewString(),
	}
}

func (s *Session) now() time.Time {
	return s.Clock.Now()
}

func (s *Session) stageTimeout() time.Duration {
	if d := s.Check.StageTimeout(); d > 0 {
		return d
	}
	return DefaultStageTimeout
}

func (s *Session) logger() logrus.FieldLogger {
	if s.log != nil {
		return s.log
	}
	return logging.ForRun(s.Logger, s.RunID)
}

// lineage names the backup lineage of the run.
func (s *Session) lineage() string {
	return "volcheck-" + s.RunID
}
