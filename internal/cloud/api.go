package cloud

import "context"

// API is the remote block-storage surface a validation run needs. Every call
// addresses an existing resource by the href the remote system assigned when
// creating it.
//
// In production this is satisfied by *rightscale.Client or the libvirt
// backend. In tests, by *cloudtest.Fake.
type API interface {
	// Instance returns the server the run executes on.
	Instance(ctx context.Context) (*Instance, error)

	// VolumeTypes lists the volume offerings of the instance's cloud.
	VolumeTypes(ctx context.Context) ([]VolumeType, error)

	CreateVolume(ctx context.Context, req VolumeRequest) (*Volume, error)
	ShowVolume(ctx context.Context, href string) (*Volume, error)
	DestroyVolume(ctx context.Context, href string) error

	CreateAttachment(ctx context.Context, req AttachmentRequest) (*Attachment, error)
	ShowAttachment(ctx context.Context, href string) (*Attachment, error)
	ListAttachments(ctx context.Context, filters ...Filter) ([]Attachment, error)
	DestroyAttachment(ctx context.Context, href string) error

	CreateSnapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error)
	ShowSnapshot(ctx context.Context, href string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, filters ...Filter) ([]Snapshot, error)
	DestroySnapshot(ctx context.Context, href string) error

	CreateBackup(ctx context.Context, req BackupRequest) (*Backup, error)
	ShowBackup(ctx context.Context, href string) (*Backup, error)
	DestroyBackup(ctx context.Context, href string) error
}
