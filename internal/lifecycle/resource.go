package lifecycle

import (
	"context"
	"fmt"

	"github.com/jbweber/volcheck/internal/cloud"
)

// Resource is a remote resource whose status can be re-read and which can be
// destroyed by href.
type Resource interface {
	Href() string
	RefreshStatus(ctx context.Context) (string, error)
	Destroy(ctx context.Context) error
}

// Volume is a volume addressed by href.
type Volume struct {
	API  cloud.API
	href string
}

// NewVolume returns the volume resource for href.
func NewVolume(api cloud.API, href string) *Volume {
	return &Volume{API: api, href: href}
}

func (v *Volume) Href() string { return v.href }

func (v *Volume) RefreshStatus(ctx context.Context) (string, error) {
	vol, err := v.API.ShowVolume(ctx, v.href)
	if err != nil {
		return "", err
	}
	return vol.Status, nil
}

func (v *Volume) Destroy(ctx context.Context) error {
	return v.API.DestroyVolume(ctx, v.href)
}

// Attachment is a volume attachment tracked jointly with its volume. Its
// status is "attached" only once the attachment reports attached and the
// volume reports in-use.
type Attachment struct {
	API        cloud.API
	href       string
	volumeHref string
}

// NewAttachment returns the attachment resource for href, bound to volumeHref.
func NewAttachment(api cloud.API, href, volumeHref string) *Attachment {
	return &Attachment{API: api, href: href, volumeHref: volumeHref}
}

func (a *Attachment) Href() string { return a.href }

// VolumeHref returns the href of the attached volume.
func (a *Attachment) VolumeHref() string { return a.volumeHref }

func (a *Attachment) RefreshStatus(ctx context.Context) (string, error) {
	att, err := a.API.ShowAttachment(ctx, a.href)
	if err != nil {
		return "", err
	}
	vol, err := a.API.ShowVolume(ctx, a.volumeHref)
	if err != nil {
		return "", fmt.Errorf("failed to show attached volume: %w", err)
	}
	return jointStatus(att.State, vol.Status), nil
}

// Device returns the device the remote system reports for the attachment.
func (a *Attachment) Device(ctx context.Context) (string, error) {
	att, err := a.API.ShowAttachment(ctx, a.href)
	if err != nil {
		return "", err
	}
	return att.Device, nil
}

func (a *Attachment) Destroy(ctx context.Context) error {
	return a.API.DestroyAttachment(ctx, a.href)
}

func jointStatus(attachmentState, volumeStatus string) string {
	switch {
	case attachmentState == cloud.AttachmentFailed || volumeStatus == cloud.VolumeFailed:
		return cloud.AttachmentFailed
	case attachmentState == cloud.AttachmentAttached && volumeStatus == cloud.VolumeInUse:
		return cloud.AttachmentAttached
	default:
		return attachmentState + "/" + volumeStatus
	}
}

// Snapshot is a volume snapshot addressed by href.
type Snapshot struct {
	API  cloud.API
	href string
}

// NewSnapshot returns the snapshot resource for href.
func NewSnapshot(api cloud.API, href string) *Snapshot {
	return &Snapshot{API: api, href: href}
}

func (s *Snapshot) Href() string { return s.href }

func (s *Snapshot) RefreshStatus(ctx context.Context) (string, error) {
	snap, err := s.API.ShowSnapshot(ctx, s.href)
	if err != nil {
		return "", err
	}
	return snap.State, nil
}

func (s *Snapshot) Destroy(ctx context.Context) error {
	return s.API.DestroySnapshot(ctx, s.href)
}

// Backup is a consistency-group backup addressed by href.
type Backup struct {
	API  cloud.API
	href string
}

// NewBackup returns the backup resource for href.
func NewBackup(api cloud.API, href string) *Backup {
	return &Backup{API: api, href: href}
}

func (b *Backup) Href() string { return b.href }

func (b *Backup) RefreshStatus(ctx context.Context) (string, error) {
	backup, err := b.API.ShowBackup(ctx, b.href)
	if err != nil {
		return "", err
	}
	return backup.Status(), nil
}

func (b *Backup) Destroy(ctx context.Context) error {
	return b.API.DestroyBackup(ctx, b.href)
}
