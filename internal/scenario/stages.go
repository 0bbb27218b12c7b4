package scenario

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/lifecycle"
	"github.com/jbweber/volcheck/internal/logging"
	"github.com/jbweber/volcheck/internal/status"
)

// Stage names, in run order.
const (
	StageCreate   = "single-volume/create"
	StageWrite    = "single-volume/write"
	StageSnapshot = "single-volume/snapshot"
	StageTeardown = "single-volume/teardown"
	StageRestore  = "restore"
	StageMulti    = "multi-volume"
	StageCleanup  = "cleanup"

	groupSingle = "single-volume"
)

type stage struct {
	name  string
	group string
	// blocked returns why the stage cannot run, or "".
	blocked func() string
	run     func(ctx context.Context, name string) error
}

func (s *Session) stages() []stage {
	return []stage{
		{name: StageCreate, group: groupSingle, run: s.createSingle},
		{name: StageWrite, group: groupSingle, blocked: s.needSingle, run: s.writeTestFile},
		{name: StageSnapshot, group: groupSingle, blocked: s.needSingle, run: s.snapshotSingle},
		{name: StageTeardown, group: groupSingle, blocked: s.needSingle, run: s.teardownSingle},
		{name: StageRestore, blocked: s.needSnapshot, run: s.restore},
		{name: StageMulti, blocked: s.needFreeSlots, run: s.multiVolume},
		{name: StageCleanup, run: s.destroyCopies},
	}
}

func (s *Session) needSingle() string {
	if s.single == nil {
		return "no mounted volume"
	}
	return ""
}

func (s *Session) needFreeSlots() string {
	if s.single != nil {
		return "single volume still attached"
	}
	return ""
}

func (s *Session) needSnapshot() string {
	switch {
	case s.snapshotHref == "":
		return "no snapshot taken"
	case s.Check.Status.OriginalFingerprint == "":
		return "no test file written"
	}
	return s.needFreeSlots()
}

// createSingle creates the volume under test, attaches it at the first slot
// and mounts a fresh filesystem on it.
func (s *Session) createSingle(ctx context.Context, name string) error {
	baseline, err := s.prepareDevices(ctx)
	if err != nil {
		return err
	}

	m, err := s.createVolume(ctx, name, s.Check.Spec.VolumeName, "")
	if err != nil {
		return err
	}
	s.single = m

	return s.attachAndMount(ctx, name, m, baseline, true)
}

func (s *Session) writeTestFile(ctx context.Context, name string) error {
	sum, err := s.Workload.WriteTestFile(ctx, s.Check.Spec.MountPoint, s.Check.TestFileBytes())
	if err != nil {
		return err
	}
	s.Check.Status.OriginalFingerprint = sum
	return nil
}

func (s *Session) snapshotSingle(ctx context.Context, name string) error {
	volHref := s.single.volume.Href()
	snap, err := s.API.CreateSnapshot(ctx, cloud.SnapshotRequest{
		Name:             s.Check.Spec.SnapshotName,
		Description:      "volcheck run " + s.RunID,
		ParentVolumeHref: volHref,
	})
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", volHref, err)
	}

	res := lifecycle.NewSnapshot(s.API, snap.Href)
	s.snapshotHref = snap.Href
	s.snapshotParent = volHref
	s.snapshotID = s.cleanup.pushLast("destroy snapshot", snap.Href, func(ctx context.Context) error {
		return s.Driver.DestroyWithRetry(ctx, res)
	})
	status.AddResource(s.Check, name, snap.Href)

	_, err = s.Driver.DriveToTerminal(ctx, res, lifecycle.SnapshotCompleted, s.stageTimeout())
	return err
}

func (s *Session) teardownSingle(ctx context.Context, name string) error {
	if err := s.release(ctx, s.single); err != nil {
		return err
	}
	s.single = nil
	return nil
}

// restore builds a volume from the snapshot and checks the test file
// survived.
func (s *Session) restore(ctx context.Context, name string) error {
	snapHref, err := s.findSnapshot(ctx)
	if err != nil {
		return err
	}

	baseline, err := s.prepareDevices(ctx)
	if err != nil {
		return err
	}

	m, err := s.createVolume(ctx, name, s.Check.Spec.VolumeName, snapHref)
	if err != nil {
		return err
	}
	if err := s.attachAndMount(ctx, name, m, baseline, false); err != nil {
		return err
	}

	restored, err := s.Workload.Fingerprint(ctx, s.Check.Spec.MountPoint)
	if err != nil {
		return err
	}
	original := s.Check.Status.OriginalFingerprint
	status.MarkDataIntact(s.Check, original, restored, s.now())
	if restored != original {
		return faults.FingerprintMismatch(original, restored)
	}
	s.logger().WithField("md5", restored).Info("Restored test file matches.")

	return s.release(ctx, m)
}

// findSnapshot looks the run's snapshot up by its parent volume, the way a
// restore without local state would.
func (s *Session) findSnapshot(ctx context.Context) (string, error) {
	parent := s.snapshotParent
	snaps, err := s.API.ListSnapshots(ctx, cloud.Eq("parent_volume_href", parent))
	if err != nil {
		return "", fmt.Errorf("failed to list snapshots of %s: %w", parent, err)
	}
	for _, snap := range snaps {
		if snap.Href == s.snapshotHref {
			return snap.Href, nil
		}
	}
	if len(snaps) > 0 {
		s.logger().WithField(logging.FieldResource, snaps[0].Href).Warn("Run snapshot not listed, using another snapshot of the volume.")
		return snaps[0].Href, nil
	}
	return "", fmt.Errorf("no snapshot of %s listed: %w", parent, faults.NotFound(s.snapshotHref))
}

// multiVolume attaches several volumes at once and takes a consistency-group
// backup across them.
func (s *Session) multiVolume(ctx context.Context, name string) error {
	n := s.Check.Spec.MultiVolumeCount
	if n > len(s.Slots) {
		return faults.ConfigurationFault("platform %s has %d slots, %d volumes requested", s.Platform, len(s.Slots), n)
	}

	vols := make([]*mountedVolume, 0, n)
	for i := 0; i < n; i++ {
		m, err := s.createVolume(ctx, name, fmt.Sprintf("%s_%d", s.Check.Spec.VolumeName, i), "")
		if err != nil {
			return err
		}
		vols = append(vols, m)
	}
	for i, m := range vols {
		if err := s.attach(ctx, name, m, s.Slots[i]); err != nil {
			return err
		}
	}
	s.Inventory.RescanBuses(ctx)

	if err := s.backup(ctx, name); err != nil {
		return err
	}

	for _, m := range vols {
		if err := s.cleanup.run(ctx, m.detachID); err != nil {
			return err
		}
	}
	if _, err := s.Inventory.ReconcileDetachments(ctx); err != nil {
		return fmt.Errorf("failed to reconcile detached devices: %w", err)
	}
	for _, m := range vols {
		if err := s.cleanup.run(ctx, m.destroyID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) backup(ctx context.Context, name string) error {
	atts, err := s.API.ListAttachments(ctx, cloud.Eq("instance_href", s.instance.Href))
	if err != nil {
		return fmt.Errorf("failed to list attachments of %s: %w", s.instance.Href, err)
	}
	hrefs := make([]string, 0, len(atts))
	for _, a := range atts {
		hrefs = append(hrefs, a.Href)
	}

	b, err := s.API.CreateBackup(ctx, cloud.BackupRequest{
		Name:            s.lineage(),
		Lineage:         s.lineage(),
		Description:     "volcheck run " + s.RunID,
		AttachmentHrefs: hrefs,
	})
	if err != nil {
		return fmt.Errorf("failed to back up %d attachments: %w", len(hrefs), err)
	}

	res := lifecycle.NewBackup(s.API, b.Href)
	s.backupHref = b.Href
	s.backupID = s.cleanup.pushLast("destroy backup", b.Href, func(ctx context.Context) error {
		return s.Driver.DestroyWithRetry(ctx, res)
	})
	status.AddResource(s.Check, name, b.Href)
	s.logger().WithFields(logrus.Fields{
		logging.FieldResource: b.Href,
		"attachments":         len(hrefs),
		"lineage":             b.Lineage,
	}).Info("Backup requested.")

	_, err = s.Driver.DriveToTerminal(ctx, res, lifecycle.BackupCompleted, s.stageTimeout())
	return err
}

// destroyCopies destroys the snapshot and the backup.
func (s *Session) destroyCopies(ctx context.Context, name string) error {
	if err := s.cleanup.run(ctx, s.snapshotID); err != nil {
		return err
	}
	return s.cleanup.run(ctx, s.backupID)
}
