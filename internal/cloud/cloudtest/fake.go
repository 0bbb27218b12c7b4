// Package cloudtest provides an in-memory cloud.API whose resources move
// through scripted status sequences, one step per Show call.
package cloudtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/faults"
)

// InstanceHref is the href of the fake's instance.
const InstanceHref = "/api/clouds/1/instances/FAKE"

// script is a status sequence. Each next call advances one step and the
// final status repeats forever.
type script struct {
	states []string
}

func newScript(states []string) *script {
	return &script{states: append([]string(nil), states...)}
}

func (s *script) current() string {
	return s.states[0]
}

func (s *script) next() string {
	st := s.states[0]
	if len(s.states) > 1 {
		s.states = s.states[1:]
	}
	return st
}

type fakeVolume struct {
	vol    cloud.Volume
	status *script
}

type fakeAttachment struct {
	att   cloud.Attachment
	state *script
}

type fakeSnapshot struct {
	snap  cloud.Snapshot
	state *script
}

type fakeBackup struct {
	backup cloud.Backup
	state  *script
}

// Fake is an in-memory cloud.API. Configure the exported fields before use.
type Fake struct {
	mu sync.Mutex

	InstanceValue cloud.Instance
	Types         []cloud.VolumeType

	// Status sequences handed to each new resource.
	VolumeStatuses   []string
	AttachStatuses   []string
	DetachStatuses   []string
	SnapshotStates   []string
	BackupStates     []string
	AttachmentStates []string

	// DeviceFor overrides the device an attachment reports.
	DeviceFor func(requested string) string

	// OnAttach and OnDetach run when an attachment is created or destroyed,
	// letting tests mirror the change in a fake /proc/partitions.
	OnAttach func(att cloud.Attachment)
	OnDetach func(att cloud.Attachment)

	// FailNext makes the named method return the error once.
	FailNext map[string]error

	// Calls records every method invocation as "Method arg".
	Calls []string

	seq         int
	volumes     map[string]*fakeVolume
	attachments map[string]*fakeAttachment
	snapshots   map[string]*fakeSnapshot
	backups     map[string]*fakeBackup
	volumeOrder []string
	attachOrder []string
	snapOrder   []string
}

// NewFake returns a Fake whose resources settle after one transitional poll.
func NewFake() *Fake {
	return &Fake{
		InstanceValue: cloud.Instance{
			Href:      InstanceHref,
			Name:      "fake-instance",
			CloudHref: "/api/clouds/1",
			Links: []cloud.Link{
				{Rel: "datacenter", Href: "/api/clouds/1/datacenters/DC1"},
			},
		},
		VolumeStatuses:   []string{cloud.VolumeCreating, cloud.VolumeAvailable},
		AttachStatuses:   []string{cloud.VolumeAvailable, cloud.VolumeInUse},
		DetachStatuses:   []string{cloud.VolumeDetaching, cloud.VolumeAvailable},
		AttachmentStates: []string{cloud.AttachmentAttaching, cloud.AttachmentAttached},
		SnapshotStates:   []string{cloud.SnapshotPending, cloud.SnapshotCompleted},
		BackupStates:     []string{cloud.BackupPending, cloud.BackupCompleted},
		FailNext:         map[string]error{},
		volumes:          map[string]*fakeVolume{},
		attachments:      map[string]*fakeAttachment{},
		snapshots:        map[string]*fakeSnapshot{},
		backups:          map[string]*fakeBackup{},
	}
}

// CallCount returns how many recorded calls start with prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// LiveVolumes returns the hrefs of volumes not yet destroyed, in creation order.
func (f *Fake) LiveVolumes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, href := range f.volumeOrder {
		if _, ok := f.volumes[href]; ok {
			out = append(out, href)
		}
	}
	return out
}

// LiveSnapshots returns the hrefs of snapshots not yet destroyed.
func (f *Fake) LiveSnapshots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, href := range f.snapOrder {
		if _, ok := f.snapshots[href]; ok {
			out = append(out, href)
		}
	}
	return out
}

// LiveAttachments returns the number of attachments not yet destroyed.
func (f *Fake) LiveAttachments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attachments)
}

func (f *Fake) record(method string, args ...string) error {
	f.Calls = append(f.Calls, strings.TrimSpace(method+" "+strings.Join(args, " ")))
	if err, ok := f.FailNext[method]; ok {
		delete(f.FailNext, method)
		return err
	}
	return nil
}

func (f *Fake) nextHref(collection string) string {
	f.seq++
	return fmt.Sprintf("/api/clouds/1/%s/%d", collection, f.seq)
}

func (f *Fake) Instance(ctx context.Context) (*cloud.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Instance"); err != nil {
		return nil, err
	}
	inst := f.InstanceValue
	return &inst, nil
}

func (f *Fake) VolumeTypes(ctx context.Context) ([]cloud.VolumeType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("VolumeTypes"); err != nil {
		return nil, err
	}
	return append([]cloud.VolumeType(nil), f.Types...), nil
}

func (f *Fake) CreateVolume(ctx context.Context, req cloud.VolumeRequest) (*cloud.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateVolume", req.Name); err != nil {
		return nil, err
	}
	fv := &fakeVolume{
		vol: cloud.Volume{
			Href:               f.nextHref("volumes"),
			Name:               req.Name,
			Description:        req.Description,
			SizeGB:             req.SizeGB,
			ParentSnapshotHref: req.ParentSnapshotHref,
		},
		status: newScript(f.VolumeStatuses),
	}
	fv.vol.Status = fv.status.current()
	f.volumes[fv.vol.Href] = fv
	f.volumeOrder = append(f.volumeOrder, fv.vol.Href)
	v := fv.vol
	return &v, nil
}

func (f *Fake) ShowVolume(ctx context.Context, href string) (*cloud.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ShowVolume", href); err != nil {
		return nil, err
	}
	fv, ok := f.volumes[href]
	if !ok {
		return nil, faults.NotFound(href)
	}
	fv.vol.Status = fv.status.next()
	v := fv.vol
	return &v, nil
}

func (f *Fake) DestroyVolume(ctx context.Context, href string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DestroyVolume", href); err != nil {
		return err
	}
	if _, ok := f.volumes[href]; !ok {
		return faults.NotFound(href)
	}
	delete(f.volumes, href)
	return nil
}

func (f *Fake) CreateAttachment(ctx context.Context, req cloud.AttachmentRequest) (*cloud.Attachment, error) {
	f.mu.Lock()
	if err := f.record("CreateAttachment", req.VolumeHref, req.Device); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	fv, ok := f.volumes[req.VolumeHref]
	if !ok {
		f.mu.Unlock()
		return nil, faults.NotFound(req.VolumeHref)
	}
	device := req.Device
	if f.DeviceFor != nil {
		device = f.DeviceFor(req.Device)
	}
	fa := &fakeAttachment{
		att: cloud.Attachment{
			Href:         f.nextHref("volume_attachments"),
			Device:       device,
			VolumeHref:   req.VolumeHref,
			InstanceHref: req.InstanceHref,
		},
		state: newScript(f.AttachmentStates),
	}
	fa.att.State = fa.state.current()
	fv.status = newScript(f.AttachStatuses)
	f.attachments[fa.att.Href] = fa
	f.attachOrder = append(f.attachOrder, fa.att.Href)
	att := fa.att
	hook := f.OnAttach
	f.mu.Unlock()

	if hook != nil {
		hook(att)
	}
	return &att, nil
}

func (f *Fake) ShowAttachment(ctx context.Context, href string) (*cloud.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ShowAttachment", href); err != nil {
		return nil, err
	}
	fa, ok := f.attachments[href]
	if !ok {
		return nil, faults.NotFound(href)
	}
	fa.att.State = fa.state.next()
	att := fa.att
	return &att, nil
}

func (f *Fake) ListAttachments(ctx context.Context, filters ...cloud.Filter) ([]cloud.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListAttachments", filterArgs(filters)...); err != nil {
		return nil, err
	}
	var out []cloud.Attachment
	for _, href := range f.attachOrder {
		fa, ok := f.attachments[href]
		if ok && cloud.Matches(fa.att.Fields(), filters...) {
			out = append(out, fa.att)
		}
	}
	return out, nil
}

func (f *Fake) DestroyAttachment(ctx context.Context, href string) error {
	f.mu.Lock()
	if err := f.record("DestroyAttachment", href); err != nil {
		f.mu.Unlock()
		return err
	}
	fa, ok := f.attachments[href]
	if !ok {
		f.mu.Unlock()
		return faults.NotFound(href)
	}
	delete(f.attachments, href)
	if fv, ok := f.volumes[fa.att.VolumeHref]; ok {
		fv.status = newScript(f.DetachStatuses)
	}
	att := fa.att
	hook := f.OnDetach
	f.mu.Unlock()

	if hook != nil {
		hook(att)
	}
	return nil
}

func (f *Fake) CreateSnapshot(ctx context.Context, req cloud.SnapshotRequest) (*cloud.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateSnapshot", req.Name); err != nil {
		return nil, err
	}
	fs := &fakeSnapshot{
		snap: cloud.Snapshot{
			Href:             f.nextHref("volume_snapshots"),
			Name:             req.Name,
			Description:      req.Description,
			ParentVolumeHref: req.ParentVolumeHref,
		},
		state: newScript(f.SnapshotStates),
	}
	fs.snap.State = fs.state.current()
	f.snapshots[fs.snap.Href] = fs
	f.snapOrder = append(f.snapOrder, fs.snap.Href)
	s := fs.snap
	return &s, nil
}

func (f *Fake) ShowSnapshot(ctx context.Context, href string) (*cloud.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ShowSnapshot", href); err != nil {
		return nil, err
	}
	fs, ok := f.snapshots[href]
	if !ok {
		return nil, faults.NotFound(href)
	}
	fs.snap.State = fs.state.next()
	s := fs.snap
	return &s, nil
}

func (f *Fake) ListSnapshots(ctx context.Context, filters ...cloud.Filter) ([]cloud.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSnapshots", filterArgs(filters)...); err != nil {
		return nil, err
	}
	var out []cloud.Snapshot
	for _, href := range f.snapOrder {
		fs, ok := f.snapshots[href]
		if ok && cloud.Matches(fs.snap.Fields(), filters...) {
			out = append(out, fs.snap)
		}
	}
	return out, nil
}

func (f *Fake) DestroySnapshot(ctx context.Context, href string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DestroySnapshot", href); err != nil {
		return err
	}
	if _, ok := f.snapshots[href]; !ok {
		return faults.NotFound(href)
	}
	delete(f.snapshots, href)
	return nil
}

func (f *Fake) CreateBackup(ctx context.Context, req cloud.BackupRequest) (*cloud.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateBackup", req.Name, strings.Join(req.AttachmentHrefs, ",")); err != nil {
		return nil, err
	}
	f.seq++
	fb := &fakeBackup{
		backup: cloud.Backup{
			Href:        fmt.Sprintf("/api/backups/%d", f.seq),
			Name:        req.Name,
			Lineage:     req.Lineage,
			Description: req.Description,
		},
		state: newScript(f.BackupStates),
	}
	setBackupState(&fb.backup, fb.state.current())
	f.backups[fb.backup.Href] = fb
	b := fb.backup
	return &b, nil
}

func (f *Fake) ShowBackup(ctx context.Context, href string) (*cloud.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ShowBackup", href); err != nil {
		return nil, err
	}
	fb, ok := f.backups[href]
	if !ok {
		return nil, faults.NotFound(href)
	}
	setBackupState(&fb.backup, fb.state.next())
	b := fb.backup
	return &b, nil
}

func (f *Fake) DestroyBackup(ctx context.Context, href string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DestroyBackup", href); err != nil {
		return err
	}
	if _, ok := f.backups[href]; !ok {
		return faults.NotFound(href)
	}
	delete(f.backups, href)
	return nil
}

func setBackupState(b *cloud.Backup, state string) {
	b.Completed = state == cloud.BackupCompleted
	b.Failed = state == cloud.BackupFailed
}

func filterArgs(filters []cloud.Filter) []string {
	args := make([]string, 0, len(filters))
	for _, f := range filters {
		args = append(args, f.String())
	}
	return args
}

var _ cloud.API = (*Fake)(nil)
