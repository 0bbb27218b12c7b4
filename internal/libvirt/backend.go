package libvirt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/metadata"
	"github.com/jbweber/volcheck/internal/storage"
)

// Hypervisor is the set of libvirt calls the backend makes.
// *libvirt.Libvirt satisfies it.
type Hypervisor interface {
	storage.LibvirtClient
	metadata.LibvirtClient

	DomainLookupByName(Name string) (libvirt.Domain, error)
	DomainGetXMLDesc(Dom libvirt.Domain, Flags libvirt.DomainXMLFlags) (string, error)
	DomainAttachDeviceFlags(Dom libvirt.Domain, XML string, Flags uint32) error
	DomainDetachDeviceFlags(Dom libvirt.Domain, XML string, Flags uint32) error
}

// Config selects the domain and pool the backend works in.
type Config struct {
	Domain   string // Domain the run executes in
	Pool     string // Storage pool, defaults to storage.DefaultPool
	PoolPath string // Directory backing a newly created pool
}

// Backend implements cloud.API on a libvirt host.
type Backend struct {
	hv      Hypervisor
	storage *storage.Manager
	logger  logrus.FieldLogger

	domainName string
	pool       string
	dom        libvirt.Domain

	// newID generates unique volume and backup ids
	newID func() string

	mu     sync.Mutex
	ledger *metadata.Ledger
}

var _ cloud.API = (*Backend)(nil)

// Open looks up the domain, ensures the storage pool exists and loads the
// ledger left by earlier runs.
func Open(ctx context.Context, hv Hypervisor, cfg Config, logger logrus.FieldLogger) (*Backend, error) {
	if cfg.Domain == "" {
		return nil, faults.ConfigurationFault("libvirt domain is required")
	}
	if cfg.Pool == "" {
		cfg.Pool = storage.DefaultPool
	}
	if cfg.PoolPath == "" {
		cfg.PoolPath = path.Join(path.Dir(storage.DefaultPoolPath), cfg.Pool)
	}

	dom, err := hv.DomainLookupByName(cfg.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to look up domain %s: %w", cfg.Domain, err)
	}

	mgr := storage.NewManager(hv)
	if err := mgr.EnsurePool(ctx, cfg.Pool, storage.PoolTypeDir, cfg.PoolPath); err != nil {
		return nil, fmt.Errorf("failed to ensure storage pool %s: %w", cfg.Pool, err)
	}

	ledger, err := metadata.Load(hv, dom)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	b := &Backend{
		hv:         hv,
		storage:    mgr,
		logger:     logger.WithField("backend", "libvirt"),
		domainName: cfg.Domain,
		pool:       cfg.Pool,
		dom:        dom,
		newID:      uuid.NewString,
		ledger:     ledger,
	}
	if !ledger.Empty() {
		b.logger.WithFields(logrus.Fields{
			"volumes":   len(ledger.Volumes),
			"snapshots": len(ledger.Snapshots),
			"backups":   len(ledger.Backups),
		}).Warn("ledger holds resources from an earlier run")
	}
	return b, nil
}

// persist writes the ledger back to the domain. Callers hold b.mu.
func (b *Backend) persist() error {
	if err := metadata.Store(b.hv, b.dom, b.ledger); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}

func (b *Backend) disks() ([]domainDisk, error) {
	xmlDesc, err := b.hv.DomainGetXMLDesc(b.dom, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get domain XML: %w", err)
	}
	return parseDomainDisks(xmlDesc)
}

// notFound maps a missing pool volume onto the caller-facing href.
func notFound(href string, err error) error {
	if errors.Is(err, storage.ErrVolumeNotFound) {
		return faults.NotFound(href)
	}
	return err
}

func (b *Backend) checkPool(pool, href string) error {
	if pool != b.pool {
		return faults.NotFound(href)
	}
	return nil
}

func (b *Backend) Instance(ctx context.Context) (*cloud.Instance, error) {
	href := instanceHref(b.domainName)
	return &cloud.Instance{
		Href:      href,
		Name:      b.domainName,
		CloudHref: hrefRoot,
		Links: []cloud.Link{
			{Rel: "self", Href: href},
			{Rel: "cloud", Href: hrefRoot},
			{Rel: "datacenter", Href: datacenterHref(b.pool)},
		},
	}, nil
}

// VolumeTypes reports a single custom-size type; pool volumes take any size.
func (b *Backend) VolumeTypes(ctx context.Context) ([]cloud.VolumeType, error) {
	return []cloud.VolumeType{{
		Href:        path.Join(hrefRoot, "volume_types", string(storage.VolumeFormatQCOW2)),
		Name:        string(storage.VolumeFormatQCOW2),
		ResourceUID: string(storage.VolumeFormatQCOW2),
	}}, nil
}

func (b *Backend) CreateVolume(ctx context.Context, req cloud.VolumeRequest) (*cloud.Volume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := "volcheck-vol-" + b.newID()

	var (
		info *storage.VolumeInfo
		err  error
	)
	if req.ParentSnapshotHref != "" {
		pool, snap, perr := parseSnapshotHref(req.ParentSnapshotHref)
		if perr != nil {
			return nil, perr
		}
		if err := b.checkPool(pool, req.ParentSnapshotHref); err != nil {
			return nil, err
		}
		info, err = b.storage.CloneVolume(ctx, b.pool, snap, name, storage.RoleVolume)
		err = notFound(req.ParentSnapshotHref, err)
	} else {
		if req.SizeGB <= 0 {
			return nil, faults.ConfigurationFault("volume size must be positive, got %d", req.SizeGB)
		}
		info, err = b.storage.CreateVolume(ctx, b.pool, storage.VolumeSpec{
			Name:       name,
			Role:       storage.RoleVolume,
			Format:     storage.VolumeFormatQCOW2,
			CapacityGB: uint64(req.SizeGB),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create volume %q: %w", req.Name, err)
	}

	b.ledger.Volumes[name] = metadata.VolumeRecord{
		Name:               req.Name,
		Description:        req.Description,
		ParentSnapshotHref: req.ParentSnapshotHref,
	}
	if err := b.persist(); err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"resource": volumeHref(b.pool, name),
		"size":     humanize.IBytes(info.Capacity),
	}).Debug("created pool volume")

	return b.volume(info, nil)
}

// volume renders a pool volume. disks may be nil, in which case the domain
// is queried for the in-use check.
func (b *Backend) volume(info *storage.VolumeInfo, disks []domainDisk) (*cloud.Volume, error) {
	if disks == nil {
		var err error
		if disks, err = b.disks(); err != nil {
			return nil, err
		}
	}

	status := cloud.VolumeAvailable
	for _, d := range disks {
		if d.Source == info.Path {
			status = cloud.VolumeInUse
			break
		}
	}

	rec := b.ledger.Volumes[info.Name]
	return &cloud.Volume{
		Href:               volumeHref(b.pool, info.Name),
		Name:               rec.Name,
		Description:        rec.Description,
		Status:             status,
		SizeGB:             info.CapacityGB(),
		ResourceUID:        info.Name,
		ParentSnapshotHref: rec.ParentSnapshotHref,
	}, nil
}

func (b *Backend) ShowVolume(ctx context.Context, href string) (*cloud.Volume, error) {
	pool, name, err := parseVolumeHref(href)
	if err != nil {
		return nil, err
	}
	if err := b.checkPool(pool, href); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	info, err := b.storage.GetVolume(ctx, b.pool, name)
	if err != nil {
		return nil, notFound(href, err)
	}
	return b.volume(info, nil)
}

func (b *Backend) DestroyVolume(ctx context.Context, href string) error {
	pool, name, err := parseVolumeHref(href)
	if err != nil {
		return err
	}
	if err := b.checkPool(pool, href); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	info, err := b.storage.GetVolume(ctx, b.pool, name)
	if err != nil {
		return notFound(href, err)
	}
	vol, err := b.volume(info, nil)
	if err != nil {
		return err
	}
	if vol.Status == cloud.VolumeInUse {
		return fmt.Errorf("volume %s is still attached", href)
	}

	if err := b.storage.DeleteVolume(ctx, b.pool, name); err != nil {
		return notFound(href, err)
	}
	delete(b.ledger.Volumes, name)
	return b.persist()
}

func (b *Backend) CreateAttachment(ctx context.Context, req cloud.AttachmentRequest) (*cloud.Attachment, error) {
	if req.InstanceHref != instanceHref(b.domainName) {
		return nil, faults.ConfigurationFault("instance %s is not managed by this backend", req.InstanceHref)
	}
	target, err := targetForDevice(req.Device)
	if err != nil {
		return nil, faults.ConfigurationFault("%v", err)
	}
	pool, name, err := parseVolumeHref(req.VolumeHref)
	if err != nil {
		return nil, err
	}
	if err := b.checkPool(pool, req.VolumeHref); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	info, err := b.storage.GetVolume(ctx, b.pool, name)
	if err != nil {
		return nil, notFound(req.VolumeHref, err)
	}

	diskXML, err := generateDiskXML(info.Path, target)
	if err != nil {
		return nil, fmt.Errorf("failed to generate disk XML: %w", err)
	}

	if err := b.hv.DomainAttachDeviceFlags(b.dom, diskXML, uint32(libvirt.DomainDeviceModifyLive)); err != nil {
		return nil, fmt.Errorf("failed to attach %s at %s: %w", req.VolumeHref, target, err)
	}

	return &cloud.Attachment{
		Href:         attachmentHref(b.domainName, target),
		State:        cloud.AttachmentAttached,
		Device:       deviceForTarget(target),
		VolumeHref:   req.VolumeHref,
		InstanceHref: req.InstanceHref,
	}, nil
}

// attachment renders a domain disk backed by one of the pool's volumes.
func (b *Backend) attachment(d domainDisk) cloud.Attachment {
	return cloud.Attachment{
		Href:         attachmentHref(b.domainName, d.Target),
		State:        cloud.AttachmentAttached,
		Device:       deviceForTarget(d.Target),
		VolumeHref:   volumeHref(b.pool, d.VolumeName()),
		InstanceHref: instanceHref(b.domainName),
	}
}

// findDisk returns the disk at target, or a not-found fault for href.
func (b *Backend) findDisk(href, target string) (domainDisk, error) {
	disks, err := b.disks()
	if err != nil {
		return domainDisk{}, err
	}
	for _, d := range disks {
		if d.Target == target {
			return d, nil
		}
	}
	return domainDisk{}, faults.NotFound(href)
}

func (b *Backend) ShowAttachment(ctx context.Context, href string) (*cloud.Attachment, error) {
	domain, target, err := parseAttachmentHref(href)
	if err != nil {
		return nil, err
	}
	if domain != b.domainName {
		return nil, faults.NotFound(href)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.findDisk(href, target)
	if err != nil {
		return nil, err
	}
	a := b.attachment(d)
	return &a, nil
}

// ListAttachments lists the domain disks backed by volumes this backend
// created.
func (b *Backend) ListAttachments(ctx context.Context, filters ...cloud.Filter) ([]cloud.Attachment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	disks, err := b.disks()
	if err != nil {
		return nil, err
	}

	var out []cloud.Attachment
	for _, d := range disks {
		if _, ok := b.ledger.Volumes[d.VolumeName()]; !ok {
			continue
		}
		a := b.attachment(d)
		if cloud.Matches(a.Fields(), filters...) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *Backend) DestroyAttachment(ctx context.Context, href string) error {
	domain, target, err := parseAttachmentHref(href)
	if err != nil {
		return err
	}
	if domain != b.domainName {
		return faults.NotFound(href)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.findDisk(href, target)
	if err != nil {
		return err
	}
	diskXML, err := d.XML()
	if err != nil {
		return fmt.Errorf("failed to render disk XML: %w", err)
	}

	if err := b.hv.DomainDetachDeviceFlags(b.dom, diskXML, uint32(libvirt.DomainDeviceModifyLive)); err != nil {
		return fmt.Errorf("failed to detach %s: %w", href, err)
	}
	return nil
}

func (b *Backend) CreateSnapshot(ctx context.Context, req cloud.SnapshotRequest) (*cloud.Snapshot, error) {
	pool, parent, err := parseVolumeHref(req.ParentVolumeHref)
	if err != nil {
		return nil, err
	}
	if err := b.checkPool(pool, req.ParentVolumeHref); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name := "volcheck-snap-" + b.newID()
	if _, err := b.storage.CloneVolume(ctx, b.pool, parent, name, storage.RoleSnapshot); err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", req.ParentVolumeHref, notFound(req.ParentVolumeHref, err))
	}

	rec := metadata.SnapshotRecord{
		Name:             req.Name,
		Description:      req.Description,
		ParentVolumeHref: req.ParentVolumeHref,
	}
	b.ledger.Snapshots[name] = rec
	if err := b.persist(); err != nil {
		return nil, err
	}

	return b.snapshot(name, rec), nil
}

// snapshot renders a snapshot clone. Clones are complete once created.
func (b *Backend) snapshot(name string, rec metadata.SnapshotRecord) *cloud.Snapshot {
	return &cloud.Snapshot{
		Href:             snapshotHref(b.pool, name),
		Name:             rec.Name,
		Description:      rec.Description,
		State:            cloud.SnapshotCompleted,
		ParentVolumeHref: rec.ParentVolumeHref,
	}
}

func (b *Backend) ShowSnapshot(ctx context.Context, href string) (*cloud.Snapshot, error) {
	pool, name, err := parseSnapshotHref(href)
	if err != nil {
		return nil, err
	}
	if err := b.checkPool(pool, href); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.storage.GetVolume(ctx, b.pool, name); err != nil {
		return nil, notFound(href, err)
	}
	return b.snapshot(name, b.ledger.Snapshots[name]), nil
}

// ListSnapshots lists ledger snapshots whose clone still exists, in name order.
func (b *Backend) ListSnapshots(ctx context.Context, filters ...cloud.Filter) ([]cloud.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.ledger.Snapshots))
	for name := range b.ledger.Snapshots {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []cloud.Snapshot
	for _, name := range names {
		if _, err := b.storage.GetVolume(ctx, b.pool, name); err != nil {
			if errors.Is(err, storage.ErrVolumeNotFound) {
				continue
			}
			return nil, err
		}
		s := b.snapshot(name, b.ledger.Snapshots[name])
		if cloud.Matches(s.Fields(), filters...) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (b *Backend) DestroySnapshot(ctx context.Context, href string) error {
	pool, name, err := parseSnapshotHref(href)
	if err != nil {
		return err
	}
	if err := b.checkPool(pool, href); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.storage.DeleteVolume(ctx, b.pool, name); err != nil {
		return notFound(href, err)
	}
	delete(b.ledger.Snapshots, name)
	return b.persist()
}

// CreateBackup clones the volume behind every attachment. A failure part way
// removes the clones already made.
func (b *Backend) CreateBackup(ctx context.Context, req cloud.BackupRequest) (*cloud.Backup, error) {
	if len(req.AttachmentHrefs) == 0 {
		return nil, faults.ConfigurationFault("backup %q has no attachments", req.Name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	disks, err := b.disks()
	if err != nil {
		return nil, err
	}
	byTarget := make(map[string]domainDisk, len(disks))
	for _, d := range disks {
		byTarget[d.Target] = d
	}

	id := b.newID()
	var members []string
	rollback := func() {
		for _, m := range members {
			if err := b.storage.DeleteVolume(ctx, b.pool, m); err != nil {
				b.logger.WithError(err).WithField("volume", m).Warn("failed to remove partial backup member")
			}
		}
	}

	for i, href := range req.AttachmentHrefs {
		_, target, err := parseAttachmentHref(href)
		if err != nil {
			rollback()
			return nil, err
		}
		d, ok := byTarget[target]
		if !ok {
			rollback()
			return nil, faults.NotFound(href)
		}

		member := fmt.Sprintf("volcheck-bak-%s-%d", id, i)
		if _, err := b.storage.CloneVolume(ctx, b.pool, d.VolumeName(), member, storage.RoleBackup); err != nil {
			rollback()
			return nil, fmt.Errorf("failed to back up %s: %w", href, err)
		}
		members = append(members, member)
	}

	rec := metadata.BackupRecord{
		Name:        req.Name,
		Lineage:     req.Lineage,
		Description: req.Description,
		Members:     members,
	}
	b.ledger.Backups[id] = rec
	if err := b.persist(); err != nil {
		return nil, err
	}

	return b.backup(ctx, id, rec), nil
}

// backup renders a backup; it is failed once any member clone is gone.
func (b *Backend) backup(ctx context.Context, id string, rec metadata.BackupRecord) *cloud.Backup {
	out := &cloud.Backup{
		Href:        backupHref(id),
		Name:        rec.Name,
		Lineage:     rec.Lineage,
		Description: rec.Description,
		Completed:   true,
	}
	for _, m := range rec.Members {
		if _, err := b.storage.GetVolume(ctx, b.pool, m); err != nil {
			out.Completed = false
			out.Failed = true
			break
		}
	}
	return out
}

func (b *Backend) ShowBackup(ctx context.Context, href string) (*cloud.Backup, error) {
	id, err := parseBackupHref(href)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.ledger.Backups[id]
	if !ok {
		return nil, faults.NotFound(href)
	}
	return b.backup(ctx, id, rec), nil
}

func (b *Backend) DestroyBackup(ctx context.Context, href string) error {
	id, err := parseBackupHref(href)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.ledger.Backups[id]
	if !ok {
		return faults.NotFound(href)
	}
	for _, m := range rec.Members {
		if err := b.storage.DeleteVolume(ctx, b.pool, m); err != nil && !errors.Is(err, storage.ErrVolumeNotFound) {
			return fmt.Errorf("failed to delete backup member %s: %w", m, err)
		}
	}
	delete(b.ledger.Backups, id)
	return b.persist()
}
