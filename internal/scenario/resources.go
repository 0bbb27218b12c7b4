package scenario

import (
	"context"
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/devices"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/lifecycle"
	"github.com/jbweber/volcheck/internal/logging"
	"github.com/jbweber/volcheck/internal/status"
)

// prepareDevices rescans the buses and drops devices left behind by earlier
// detaches, so the next capture is a clean baseline.
func (s *Session) prepareDevices(ctx context.Context) (devices.Snapshot, error) {
	s.Inventory.RescanBuses(ctx)
	removed, err := s.Inventory.ReconcileDetachments(ctx)
	if err != nil {
		return devices.Snapshot{}, fmt.Errorf("failed to reconcile detached devices: %w", err)
	}
	if len(removed) > 0 {
		s.logger().WithField("devices", removed).Info("Removed orphaned devices.")
	}
	baseline, err := s.Inventory.Capture(ctx)
	if err != nil {
		return devices.Snapshot{}, fmt.Errorf("failed to capture baseline devices: %w", err)
	}
	return baseline, nil
}

// createVolume creates a volume, registers its destruction and waits for it
// to become usable.
func (s *Session) createVolume(ctx context.Context, stage, name, parentSnapshot string) (*mountedVolume, error) {
	volType, err := s.volumeType(ctx)
	if err != nil {
		return nil, err
	}

	req := cloud.VolumeRequest{
		Name:               name,
		Description:        "volcheck run " + s.RunID,
		SizeGB:             s.Check.Spec.VolumeSizeGB,
		DatacenterHref:     s.instance.DatacenterHref(),
		VolumeTypeHref:     volType,
		ParentSnapshotHref: parentSnapshot,
	}
	vol, err := s.API.CreateVolume(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create volume %q: %w", name, err)
	}

	res := lifecycle.NewVolume(s.API, vol.Href)
	m := &mountedVolume{volume: res}
	m.destroyID = s.cleanup.push("destroy volume", vol.Href, func(ctx context.Context) error {
		return s.destroyVolume(ctx, res)
	})
	status.AddResource(s.Check, stage, vol.Href)

	s.logger().WithFields(logrus.Fields{
		logging.FieldResource: vol.Href,
		"name":                name,
		"size":                humanize.Bytes(uint64(req.SizeGB) * humanize.GByte),
	}).Info("Volume requested.")

	if _, err := s.Driver.DriveToTerminal(ctx, res, lifecycle.VolumeCreated, s.stageTimeout()); err != nil {
		return m, err
	}
	return m, nil
}

// destroyVolume destroys a volume and waits until it is gone.
func (s *Session) destroyVolume(ctx context.Context, vol *lifecycle.Volume) error {
	if err := s.Driver.DestroyWithRetry(ctx, vol); err != nil {
		return err
	}
	_, err := s.Driver.DriveToTerminal(ctx, vol, lifecycle.VolumeDeleted, s.stageTimeout())
	return err
}

// attach binds m to slot, registers the detach and checks the binding.
func (s *Session) attach(ctx context.Context, stage string, m *mountedVolume, slot string) error {
	att, err := s.API.CreateAttachment(ctx, cloud.AttachmentRequest{
		VolumeHref:   m.volume.Href(),
		InstanceHref: s.instance.Href,
		Device:       slot,
	})
	if err != nil {
		return fmt.Errorf("failed to attach %s at %s: %w", m.volume.Href(), slot, err)
	}

	res := lifecycle.NewAttachment(s.API, att.Href, m.volume.Href())
	m.attachment = res
	m.detachID = s.cleanup.push("detach volume", att.Href, func(ctx context.Context) error {
		return s.detach(ctx, res)
	})
	status.AddResource(s.Check, stage, att.Href)

	s.logger().WithFields(logrus.Fields{
		logging.FieldResource: att.Href,
		"slot":                slot,
	}).Info("Attachment requested.")

	if _, err := s.Driver.DriveToTerminal(ctx, res, lifecycle.VolumeAttached, s.stageTimeout()); err != nil {
		return err
	}
	_, err = lifecycle.VerifyBinding(ctx, res, slot)
	return err
}

// detach removes an attachment and waits for the volume to be available
// again.
func (s *Session) detach(ctx context.Context, att *lifecycle.Attachment) error {
	if err := s.Driver.DestroyWithRetry(ctx, att); err != nil {
		return err
	}
	vol := lifecycle.NewVolume(s.API, att.VolumeHref())
	_, err := s.Driver.DriveToTerminal(ctx, vol, lifecycle.VolumeDetached, s.stageTimeout())
	return err
}

// confirmListed checks that the remote system lists the attachment for its
// volume.
func (s *Session) confirmListed(ctx context.Context, m *mountedVolume) error {
	atts, err := s.API.ListAttachments(ctx, cloud.Eq("volume_href", m.volume.Href()))
	if err != nil {
		return fmt.Errorf("failed to list attachments of %s: %w", m.volume.Href(), err)
	}
	listed := slices.ContainsFunc(atts, func(a cloud.Attachment) bool {
		return a.Href == m.attachment.Href()
	})
	if !listed {
		return faults.BindingInconsistency(m.attachment.Href(), "listed for "+m.volume.Href(), "not listed")
	}
	return nil
}

// mount mounts the new device, formatting it first when asked.
func (s *Session) mount(ctx context.Context, m *mountedVolume, format bool) error {
	spec := s.Check.Spec
	if format {
		if err := s.Workload.Format(ctx, m.device, spec.FSType); err != nil {
			return err
		}
	}
	if err := s.Workload.Mount(ctx, m.device, spec.MountPoint, spec.FSType); err != nil {
		return err
	}
	m.unmountID = s.cleanup.push("unmount", spec.MountPoint, func(ctx context.Context) error {
		return s.Workload.Unmount(ctx, spec.MountPoint)
	})
	return nil
}

// attachAndMount attaches m at the first slot, finds its device and mounts
// it.
func (s *Session) attachAndMount(ctx context.Context, stage string, m *mountedVolume, baseline devices.Snapshot, format bool) error {
	if err := s.attach(ctx, stage, m, s.Slots[0]); err != nil {
		return err
	}
	if err := s.confirmListed(ctx, m); err != nil {
		return err
	}

	s.Inventory.RescanBuses(ctx)
	device, err := s.Inventory.WaitForNewDevice(ctx, baseline, s.stageTimeout())
	if err != nil {
		return fmt.Errorf("attached volume %s never appeared: %w", m.volume.Href(), err)
	}
	m.device = device
	s.logger().WithFields(logrus.Fields{
		logging.FieldResource: m.attachment.Href(),
		"device":              device,
	}).Info("Volume appeared on the host.")

	return s.mount(ctx, m, format)
}

// release tears m down in order: unmount, detach, drop orphaned devices,
// destroy.
func (s *Session) release(ctx context.Context, m *mountedVolume) error {
	if err := s.cleanup.run(ctx, m.unmountID); err != nil {
		return err
	}
	if err := s.cleanup.run(ctx, m.detachID); err != nil {
		return err
	}
	if _, err := s.Inventory.ReconcileDetachments(ctx); err != nil {
		return fmt.Errorf("failed to reconcile detached devices: %w", err)
	}
	return s.cleanup.run(ctx, m.destroyID)
}
