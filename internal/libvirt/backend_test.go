package libvirt

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/metadata"
)

func newTestBackend(t *testing.T) (*fakeHypervisor, *Backend) {
	t.Helper()
	hv := newFakeHypervisor("worker-1")
	logger, _ := test.NewNullLogger()

	b, err := Open(context.Background(), hv, Config{Domain: "worker-1"}, logger)
	require.NoError(t, err)

	seq := 0
	b.newID = func() string {
		seq++
		return fmt.Sprintf("id%d", seq)
	}
	return hv, b
}

func createAttached(t *testing.T, b *Backend, device string) (*cloud.Volume, *cloud.Attachment) {
	t.Helper()
	ctx := context.Background()

	vol, err := b.CreateVolume(ctx, cloud.VolumeRequest{Name: "QTEST VOLUME", SizeGB: 10})
	require.NoError(t, err)

	inst, err := b.Instance(ctx)
	require.NoError(t, err)

	att, err := b.CreateAttachment(ctx, cloud.AttachmentRequest{
		VolumeHref:   vol.Href,
		InstanceHref: inst.Href,
		Device:       device,
	})
	require.NoError(t, err)
	return vol, att
}

func TestOpen(t *testing.T) {
	t.Run("creates pool", func(t *testing.T) {
		hv, _ := newTestBackend(t)
		assert.Contains(t, hv.pools, "volcheck")
	})

	t.Run("requires domain", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		_, err := Open(context.Background(), newFakeHypervisor("worker-1"), Config{}, logger)
		assert.True(t, faults.IsConfigurationFault(err))
	})

	t.Run("unknown domain", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		_, err := Open(context.Background(), newFakeHypervisor("worker-1"), Config{Domain: "other"}, logger)
		assert.Error(t, err)
	})

	t.Run("warns about leftover ledger", func(t *testing.T) {
		hv := newFakeHypervisor("worker-1")
		ledger := metadata.NewLedger()
		ledger.Volumes["volcheck-vol-old"] = metadata.VolumeRecord{Name: "QTEST VOLUME"}
		require.NoError(t, metadata.Store(hv, hv.domainRef(), ledger))

		logger, hook := test.NewNullLogger()
		_, err := Open(context.Background(), hv, Config{Domain: "worker-1"}, logger)
		require.NoError(t, err)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})
}

func TestBackend_Instance(t *testing.T) {
	_, b := newTestBackend(t)

	inst, err := b.Instance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/libvirt/domains/worker-1", inst.Href)
	assert.Equal(t, "/libvirt/pools/volcheck", inst.DatacenterHref())
}

func TestBackend_VolumeLifecycle(t *testing.T) {
	hv, b := newTestBackend(t)
	ctx := context.Background()

	vol, err := b.CreateVolume(ctx, cloud.VolumeRequest{Name: "QTEST VOLUME", Description: "run", SizeGB: 10})
	require.NoError(t, err)
	assert.Equal(t, "/libvirt/pools/volcheck/volumes/volcheck-vol-id1", vol.Href)
	assert.Equal(t, "QTEST VOLUME", vol.Name)
	assert.Equal(t, cloud.VolumeAvailable, vol.Status)
	assert.Equal(t, 10, vol.SizeGB)

	// the ledger is persisted on the domain
	ledger, err := metadata.Load(hv, hv.domainRef())
	require.NoError(t, err)
	assert.Equal(t, "QTEST VOLUME", ledger.Volumes["volcheck-vol-id1"].Name)

	require.NoError(t, b.DestroyVolume(ctx, vol.Href))

	_, err = b.ShowVolume(ctx, vol.Href)
	assert.True(t, faults.IsNotFound(err), "ShowVolume() after destroy: %v", err)
	assert.True(t, faults.IsNotFound(b.DestroyVolume(ctx, vol.Href)))
}

func TestBackend_CreateVolume_InvalidSize(t *testing.T) {
	_, b := newTestBackend(t)
	_, err := b.CreateVolume(context.Background(), cloud.VolumeRequest{Name: "QTEST VOLUME"})
	assert.True(t, faults.IsConfigurationFault(err))
}

func TestBackend_AttachDetach(t *testing.T) {
	hv, b := newTestBackend(t)
	ctx := context.Background()

	vol, att := createAttached(t, b, "/dev/vdb")
	assert.Equal(t, "/libvirt/domains/worker-1/disks/vdb", att.Href)
	assert.Equal(t, "/dev/vdb", att.Device)
	assert.Equal(t, 1, hv.attachCalls)

	shown, err := b.ShowVolume(ctx, vol.Href)
	require.NoError(t, err)
	assert.Equal(t, cloud.VolumeInUse, shown.Status)

	gotAtt, err := b.ShowAttachment(ctx, att.Href)
	require.NoError(t, err)
	assert.Equal(t, vol.Href, gotAtt.VolumeHref)
	assert.Equal(t, cloud.AttachmentAttached, gotAtt.State)

	listed, err := b.ListAttachments(ctx, cloud.Eq("volume_href", vol.Href))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, att.Href, listed[0].Href)

	// attached volumes cannot be destroyed
	assert.Error(t, b.DestroyVolume(ctx, vol.Href))

	require.NoError(t, b.DestroyAttachment(ctx, att.Href))
	assert.Equal(t, 1, hv.detachCalls)

	shown, err = b.ShowVolume(ctx, vol.Href)
	require.NoError(t, err)
	assert.Equal(t, cloud.VolumeAvailable, shown.Status)

	_, err = b.ShowAttachment(ctx, att.Href)
	assert.True(t, faults.IsNotFound(err))
}

func TestBackend_ListAttachments_SkipsForeignDisks(t *testing.T) {
	_, b := newTestBackend(t)

	listed, err := b.ListAttachments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed, "root disk vda must not be listed")
}

func TestBackend_CreateAttachment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     func(vol *cloud.Volume) cloud.AttachmentRequest
		check   func(error) bool
		attachE error
	}{
		{
			name: "foreign instance",
			req: func(vol *cloud.Volume) cloud.AttachmentRequest {
				return cloud.AttachmentRequest{VolumeHref: vol.Href, InstanceHref: "/libvirt/domains/other", Device: "/dev/vdb"}
			},
			check: faults.IsConfigurationFault,
		},
		{
			name: "missing volume",
			req: func(vol *cloud.Volume) cloud.AttachmentRequest {
				return cloud.AttachmentRequest{VolumeHref: "/libvirt/pools/volcheck/volumes/nope", InstanceHref: "/libvirt/domains/worker-1", Device: "/dev/vdb"}
			},
			check: faults.IsNotFound,
		},
		{
			name: "empty device",
			req: func(vol *cloud.Volume) cloud.AttachmentRequest {
				return cloud.AttachmentRequest{VolumeHref: vol.Href, InstanceHref: "/libvirt/domains/worker-1", Device: "/dev/"}
			},
			check: faults.IsConfigurationFault,
		},
		{
			name: "hypervisor refuses",
			req: func(vol *cloud.Volume) cloud.AttachmentRequest {
				return cloud.AttachmentRequest{VolumeHref: vol.Href, InstanceHref: "/libvirt/domains/worker-1", Device: "/dev/vdb"}
			},
			check:   func(err error) bool { return err != nil },
			attachE: fmt.Errorf("unable to execute QEMU command"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hv, b := newTestBackend(t)
			hv.attachErr = tt.attachE
			vol, err := b.CreateVolume(context.Background(), cloud.VolumeRequest{Name: "QTEST VOLUME", SizeGB: 10})
			require.NoError(t, err)

			_, err = b.CreateAttachment(context.Background(), tt.req(vol))
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestBackend_SnapshotRestore(t *testing.T) {
	hv, b := newTestBackend(t)
	ctx := context.Background()

	vol, err := b.CreateVolume(ctx, cloud.VolumeRequest{Name: "QTEST VOLUME", SizeGB: 10})
	require.NoError(t, err)

	snap, err := b.CreateSnapshot(ctx, cloud.SnapshotRequest{Name: "QTEST SNAPSHOT", ParentVolumeHref: vol.Href})
	require.NoError(t, err)
	assert.Equal(t, cloud.SnapshotCompleted, snap.State)
	assert.Equal(t, "/libvirt/pools/volcheck/snapshots/volcheck-snap-id2", snap.Href)

	// the snapshot survives its parent
	require.NoError(t, b.DestroyVolume(ctx, vol.Href))

	found, err := b.ListSnapshots(ctx, cloud.Eq("parent_volume_href", vol.Href))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "QTEST SNAPSHOT", found[0].Name)

	restored, err := b.CreateVolume(ctx, cloud.VolumeRequest{Name: "QTEST VOLUME", ParentSnapshotHref: snap.Href})
	require.NoError(t, err)
	assert.Equal(t, snap.Href, restored.ParentSnapshotHref)
	assert.Equal(t, 10, restored.SizeGB)

	require.NoError(t, b.DestroySnapshot(ctx, snap.Href))
	_, err = b.ShowSnapshot(ctx, snap.Href)
	assert.True(t, faults.IsNotFound(err))
	assert.NotContains(t, hv.volumes["volcheck"], "volcheck-snap-id2")

	found, err = b.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBackend_RestoreFromMissingSnapshot(t *testing.T) {
	_, b := newTestBackend(t)
	_, err := b.CreateVolume(context.Background(), cloud.VolumeRequest{
		Name:               "QTEST VOLUME",
		ParentSnapshotHref: "/libvirt/pools/volcheck/snapshots/gone",
	})
	assert.True(t, faults.IsNotFound(err), "unexpected error: %v", err)
}

func TestBackend_Backup(t *testing.T) {
	hv, b := newTestBackend(t)
	ctx := context.Background()

	_, att1 := createAttached(t, b, "/dev/vdb")
	_, att2 := createAttached(t, b, "/dev/vdc")

	backup, err := b.CreateBackup(ctx, cloud.BackupRequest{
		Name:            "volcheck backup",
		Lineage:         "volcheck-run",
		AttachmentHrefs: []string{att1.Href, att2.Href},
	})
	require.NoError(t, err)
	assert.Equal(t, cloud.BackupCompleted, backup.Status())
	assert.Len(t, hv.volumes["volcheck"], 4)

	shown, err := b.ShowBackup(ctx, backup.Href)
	require.NoError(t, err)
	assert.Equal(t, "volcheck-run", shown.Lineage)

	require.NoError(t, b.DestroyBackup(ctx, backup.Href))
	assert.Len(t, hv.volumes["volcheck"], 2)

	_, err = b.ShowBackup(ctx, backup.Href)
	assert.True(t, faults.IsNotFound(err))
}

func TestBackend_Backup_MemberLost(t *testing.T) {
	hv, b := newTestBackend(t)
	ctx := context.Background()

	_, att := createAttached(t, b, "/dev/vdb")
	backup, err := b.CreateBackup(ctx, cloud.BackupRequest{Name: "b", AttachmentHrefs: []string{att.Href}})
	require.NoError(t, err)

	for name := range hv.volumes["volcheck"] {
		if name != "volcheck-vol-id1" {
			delete(hv.volumes["volcheck"], name)
		}
	}

	shown, err := b.ShowBackup(ctx, backup.Href)
	require.NoError(t, err)
	assert.Equal(t, cloud.BackupFailed, shown.Status())
}

func TestBackend_Backup_RollsBackPartialClones(t *testing.T) {
	hv, b := newTestBackend(t)
	ctx := context.Background()

	_, att := createAttached(t, b, "/dev/vdb")

	_, err := b.CreateBackup(ctx, cloud.BackupRequest{
		Name:            "b",
		AttachmentHrefs: []string{att.Href, "/libvirt/domains/worker-1/disks/vdz"},
	})
	assert.True(t, faults.IsNotFound(err), "unexpected error: %v", err)
	assert.Len(t, hv.volumes["volcheck"], 1, "partial clone must be removed")
}

func TestBackend_MalformedHrefs(t *testing.T) {
	_, b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.ShowVolume(ctx, "/api/clouds/1/volumes/ABC")
	assert.Error(t, err)
	_, err = b.ShowAttachment(ctx, "/libvirt/domains/worker-1")
	assert.Error(t, err)
	_, err = b.ShowVolume(ctx, "/libvirt/pools/other/volumes/x")
	assert.True(t, faults.IsNotFound(err))
}
