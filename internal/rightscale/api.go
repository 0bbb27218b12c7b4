package rightscale

import (
	"context"
	"fmt"

	"github.com/jbweber/volcheck/internal/cloud"
)

var _ cloud.API = (*Client)(nil)

func (c *Client) Instance(ctx context.Context) (*cloud.Instance, error) {
	if c.instance == nil {
		return nil, fmt.Errorf("not logged in")
	}
	inst := *c.instance
	return &inst, nil
}

func (c *Client) VolumeTypes(ctx context.Context) ([]cloud.VolumeType, error) {
	path, err := c.cloudPath("volume_types")
	if err != nil {
		return nil, err
	}
	var res []volumeTypeResource
	if err := c.index(ctx, path, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to list volume types: %w", err)
	}
	types := make([]cloud.VolumeType, 0, len(res))
	for i := range res {
		types = append(types, res[i].toCloud())
	}
	return types, nil
}

func (c *Client) CreateVolume(ctx context.Context, req cloud.VolumeRequest) (*cloud.Volume, error) {
	path, err := c.cloudPath("volumes")
	if err != nil {
		return nil, err
	}
	params := volumeParams{
		Name:               req.Name,
		Description:        req.Description,
		Size:               req.SizeGB,
		DatacenterHref:     req.DatacenterHref,
		VolumeTypeHref:     req.VolumeTypeHref,
		ParentSnapshotHref: req.ParentSnapshotHref,
	}
	var res volumeResource
	if err := c.create(ctx, path, params, &res); err != nil {
		return nil, fmt.Errorf("failed to create volume %q: %w", req.Name, err)
	}
	return res.toCloud(), nil
}

func (c *Client) ShowVolume(ctx context.Context, href string) (*cloud.Volume, error) {
	var res volumeResource
	if err := c.show(ctx, href, &res); err != nil {
		return nil, err
	}
	return res.toCloud(), nil
}

func (c *Client) DestroyVolume(ctx context.Context, href string) error {
	return c.destroy(ctx, href)
}

func (c *Client) CreateAttachment(ctx context.Context, req cloud.AttachmentRequest) (*cloud.Attachment, error) {
	path, err := c.cloudPath("volume_attachments")
	if err != nil {
		return nil, err
	}
	params := attachmentParams{
		Device:       req.Device,
		InstanceHref: req.InstanceHref,
		VolumeHref:   req.VolumeHref,
	}
	var res attachmentResource
	if err := c.create(ctx, path, params, &res); err != nil {
		return nil, fmt.Errorf("failed to attach %s at %s: %w", req.VolumeHref, req.Device, err)
	}
	return res.toCloud(), nil
}

func (c *Client) ShowAttachment(ctx context.Context, href string) (*cloud.Attachment, error) {
	var res attachmentResource
	if err := c.show(ctx, href, &res); err != nil {
		return nil, err
	}
	return res.toCloud(), nil
}

func (c *Client) ListAttachments(ctx context.Context, filters ...cloud.Filter) ([]cloud.Attachment, error) {
	path, err := c.cloudPath("volume_attachments")
	if err != nil {
		return nil, err
	}
	var res []attachmentResource
	if err := c.index(ctx, path, filters, &res); err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	out := make([]cloud.Attachment, 0, len(res))
	for i := range res {
		out = append(out, *res[i].toCloud())
	}
	return out, nil
}

func (c *Client) DestroyAttachment(ctx context.Context, href string) error {
	return c.destroy(ctx, href)
}

func (c *Client) CreateSnapshot(ctx context.Context, req cloud.SnapshotRequest) (*cloud.Snapshot, error) {
	path, err := c.cloudPath("volume_snapshots")
	if err != nil {
		return nil, err
	}
	params := snapshotParams{
		Name:             req.Name,
		Description:      req.Description,
		ParentVolumeHref: req.ParentVolumeHref,
	}
	var res snapshotResource
	if err := c.create(ctx, path, params, &res); err != nil {
		return nil, fmt.Errorf("failed to create snapshot %q: %w", req.Name, err)
	}
	return res.toCloud(), nil
}

func (c *Client) ShowSnapshot(ctx context.Context, href string) (*cloud.Snapshot, error) {
	var res snapshotResource
	if err := c.show(ctx, href, &res); err != nil {
		return nil, err
	}
	return res.toCloud(), nil
}

func (c *Client) ListSnapshots(ctx context.Context, filters ...cloud.Filter) ([]cloud.Snapshot, error) {
	path, err := c.cloudPath("volume_snapshots")
	if err != nil {
		return nil, err
	}
	var res []snapshotResource
	if err := c.index(ctx, path, filters, &res); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := make([]cloud.Snapshot, 0, len(res))
	for i := range res {
		out = append(out, *res[i].toCloud())
	}
	return out, nil
}

func (c *Client) DestroySnapshot(ctx context.Context, href string) error {
	return c.destroy(ctx, href)
}

func (c *Client) CreateBackup(ctx context.Context, req cloud.BackupRequest) (*cloud.Backup, error) {
	params := backupParams{
		Name:            req.Name,
		Lineage:         req.Lineage,
		Description:     req.Description,
		AttachmentHrefs: req.AttachmentHrefs,
	}
	var res backupResource
	if err := c.create(ctx, "/api/backups", params, &res); err != nil {
		return nil, fmt.Errorf("failed to create backup %q: %w", req.Name, err)
	}
	return res.toCloud(), nil
}

func (c *Client) ShowBackup(ctx context.Context, href string) (*cloud.Backup, error) {
	var res backupResource
	if err := c.show(ctx, href, &res); err != nil {
		return nil, err
	}
	return res.toCloud(), nil
}

func (c *Client) DestroyBackup(ctx context.Context, href string) error {
	return c.destroy(ctx, href)
}
