package cloud

// Volume statuses.
const (
	VolumeCreating    = "creating"
	VolumeAvailable   = "available"
	VolumeProvisioned = "provisioned"
	VolumeInUse       = "in-use"
	VolumeDetaching   = "detaching"
	VolumeDeleting    = "deleting"
	VolumeFailed      = "failed"
)

// Attachment states.
const (
	AttachmentAttaching = "attaching"
	AttachmentAttached  = "attached"
	AttachmentDetaching = "detaching"
	AttachmentFailed    = "failed"
)

// Snapshot states.
const (
	SnapshotPending   = "pending"
	SnapshotAvailable = "available"
	SnapshotCompleted = "completed"
	SnapshotFailed    = "failed"
)

// Backup states. Backups report a completed flag rather than a state string;
// BackupStatus folds both into one value.
const (
	BackupPending   = "pending"
	BackupCompleted = "completed"
	BackupFailed    = "failed"
)

// Link is a named relation to another resource.
type Link struct {
	Rel  string `json:"rel" yaml:"rel"`
	Href string `json:"href" yaml:"href"`
}

// Instance is the server the run executes on.
type Instance struct {
	Href      string `json:"href"`
	Name      string `json:"name"`
	CloudHref string `json:"cloud_href"`
	Links     []Link `json:"links"`
}

// Link returns the href of the first link with the given rel, or "".
func (i *Instance) Link(rel string) string {
	for _, l := range i.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// DatacenterHref returns the datacenter the instance lives in, or "".
func (i *Instance) DatacenterHref() string {
	return i.Link("datacenter")
}

// VolumeType is an offering volumes may be created from.
type VolumeType struct {
	Href        string `json:"href"`
	Name        string `json:"name"`
	ResourceUID string `json:"resource_uid"`
	// SizeGB of zero marks a type that accepts any requested size.
	SizeGB int `json:"size"`
}

// Volume is a remote block volume.
type Volume struct {
	Href               string `json:"href"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	Status             string `json:"status"`
	SizeGB             int    `json:"size"`
	ResourceUID        string `json:"resource_uid"`
	ParentSnapshotHref string `json:"parent_volume_snapshot_href,omitempty"`
}

// Attachment binds a volume to an instance at a device.
type Attachment struct {
	Href         string `json:"href"`
	State        string `json:"state"`
	Device       string `json:"device"`
	VolumeHref   string `json:"volume_href"`
	InstanceHref string `json:"instance_href"`
}

// Snapshot is a point-in-time copy of a volume.
type Snapshot struct {
	Href             string `json:"href"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	State            string `json:"state"`
	ParentVolumeHref string `json:"parent_volume_href"`
}

// Backup is a consistency-group snapshot spanning several attachments.
type Backup struct {
	Href        string `json:"href"`
	Name        string `json:"name"`
	Lineage     string `json:"lineage"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Failed      bool   `json:"failed,omitempty"`
}

// Status folds the completed and failed flags into a single status string.
func (b *Backup) Status() string {
	switch {
	case b.Failed:
		return BackupFailed
	case b.Completed:
		return BackupCompleted
	default:
		return BackupPending
	}
}

// VolumeRequest describes a volume to create. ParentSnapshotHref restores the
// volume from a snapshot.
type VolumeRequest struct {
	Name               string
	Description        string
	SizeGB             int
	DatacenterHref     string
	VolumeTypeHref     string
	ParentSnapshotHref string
}

// AttachmentRequest asks for a volume to be attached at a device slot.
type AttachmentRequest struct {
	VolumeHref   string
	InstanceHref string
	Device       string
}

// SnapshotRequest describes a snapshot of a volume.
type SnapshotRequest struct {
	Name             string
	Description      string
	ParentVolumeHref string
}

// BackupRequest describes a backup spanning attachments.
type BackupRequest struct {
	Name            string
	Lineage         string
	Description     string
	AttachmentHrefs []string
}
