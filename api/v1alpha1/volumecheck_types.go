package v1alpha1

// VolumeCheck is one block-storage validation run: the scenario parameters
// (Spec) and, once the run finishes, what happened (Status).
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Platform",type=string,JSONPath=`.status.platform`
type VolumeCheck struct {
	TypeMeta `json:",inline" yaml:",inline"`

	// +optional
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Spec VolumeCheckSpec `json:"spec" yaml:"spec"`

	// +optional
	Status VolumeCheckStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Backends a run can target.
const (
	BackendRightScale = "rightscale"
	BackendLibvirt    = "libvirt"
)

// VolumeCheckSpec defines the run parameters. Everything is optional; the
// loader fills in defaults.
type VolumeCheckSpec struct {
	// Backend is the remote API implementation: rightscale (default) or libvirt.
	// +kubebuilder:validation:Enum=rightscale;libvirt
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Platform overrides the identifier read from CloudFile.
	// +optional
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`

	// CloudFile names the file holding the platform identifier.
	// Defaults to /etc/rightscale.d/cloud.
	// +optional
	CloudFile string `json:"cloudFile,omitempty" yaml:"cloudFile,omitempty"`

	// VolumeSizeGB is the size of every created volume. Defaults to the
	// platform's minimum (100 on rackspace-ng, 10 elsewhere).
	// +optional
	VolumeSizeGB int `json:"volumeSizeGB,omitempty" yaml:"volumeSizeGB,omitempty"`

	// VolumeName is the name of the single volume. Defaults to "QTEST VOLUME";
	// multi-volume names append _<i>.
	// +optional
	VolumeName string `json:"volumeName,omitempty" yaml:"volumeName,omitempty"`

	// SnapshotName defaults to "QTEST SNAPSHOT".
	// +optional
	SnapshotName string `json:"snapshotName,omitempty" yaml:"snapshotName,omitempty"`

	// MountPoint is where the volume under test is mounted. Defaults to /mnt/storage.
	// +optional
	MountPoint string `json:"mountPoint,omitempty" yaml:"mountPoint,omitempty"`

	// FSType is the filesystem created on the volume. Defaults to ext3.
	// +optional
	FSType string `json:"fsType,omitempty" yaml:"fsType,omitempty"`

	// TestFileMiB is the size of the random test file. Defaults to 128.
	// +optional
	TestFileMiB int `json:"testFileMiB,omitempty" yaml:"testFileMiB,omitempty"`

	// MultiVolumeCount is how many volumes the multi-volume stage attaches
	// at once. Defaults to 2.
	// +optional
	MultiVolumeCount int `json:"multiVolumeCount,omitempty" yaml:"multiVolumeCount,omitempty"`

	// StageTimeoutSeconds bounds each stage. Defaults to 900.
	// +optional
	StageTimeoutSeconds int `json:"stageTimeoutSeconds,omitempty" yaml:"stageTimeoutSeconds,omitempty"`

	// PollIntervalSeconds is the remote status polling interval. Defaults to 2.
	// +optional
	PollIntervalSeconds int `json:"pollIntervalSeconds,omitempty" yaml:"pollIntervalSeconds,omitempty"`

	// RootDevice is never probed or removed. Defaults to /dev/sda.
	// +optional
	RootDevice string `json:"rootDevice,omitempty" yaml:"rootDevice,omitempty"`

	// SkipStages names stages not to run (e.g. multi-volume on clouds
	// without backup support).
	// +optional
	SkipStages []string `json:"skipStages,omitempty" yaml:"skipStages,omitempty"`

	// Libvirt configures the libvirt backend.
	// +optional
	Libvirt *LibvirtSpec `json:"libvirt,omitempty" yaml:"libvirt,omitempty"`
}

// LibvirtSpec selects the libvirt domain and pool.
type LibvirtSpec struct {
	// Socket is the daemon socket. Defaults to /var/run/libvirt/libvirt-sock.
	// +optional
	Socket string `json:"socket,omitempty" yaml:"socket,omitempty"`

	// Domain is the domain the run executes in; volumes attach to it.
	Domain string `json:"domain" yaml:"domain"`

	// Pool is the storage pool for run volumes. Defaults to volcheck.
	// +optional
	Pool string `json:"pool,omitempty" yaml:"pool,omitempty"`
}

// VolumeCheckStatus is what the run observed.
type VolumeCheckStatus struct {
	// +kubebuilder:validation:Enum=Pending;Running;Succeeded;Failed
	Phase RunPhase `json:"phase,omitempty" yaml:"phase,omitempty"`

	// RunID identifies the run in logs and backup lineage.
	RunID string `json:"runID,omitempty" yaml:"runID,omitempty"`

	// Platform is the platform the run resolved.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`

	// +optional
	StartTime Time `json:"startTime,omitempty" yaml:"startTime,omitempty"`

	// +optional
	CompletionTime Time `json:"completionTime,omitempty" yaml:"completionTime,omitempty"`

	// Stages in execution order.
	// +optional
	Stages []StageStatus `json:"stages,omitempty" yaml:"stages,omitempty"`

	// OriginalFingerprint is the MD5 of the test file as written.
	// +optional
	OriginalFingerprint string `json:"originalFingerprint,omitempty" yaml:"originalFingerprint,omitempty"`

	// RestoredFingerprint is the MD5 of the test file read from the restored volume.
	// +optional
	RestoredFingerprint string `json:"restoredFingerprint,omitempty" yaml:"restoredFingerprint,omitempty"`

	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// StageStatus records one stage of the run.
type StageStatus struct {
	Name  string     `json:"name" yaml:"name"`
	Phase StagePhase `json:"phase" yaml:"phase"`

	// +optional
	StartTime Time `json:"startTime,omitempty" yaml:"startTime,omitempty"`

	// +optional
	CompletionTime Time `json:"completionTime,omitempty" yaml:"completionTime,omitempty"`

	// Message carries the failure, if any.
	// +optional
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Resources lists the hrefs the stage created.
	// +optional
	Resources []string `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// RunPhase is the lifecycle phase of the whole run.
type RunPhase string

const (
	RunPhasePending   RunPhase = "Pending"
	RunPhaseRunning   RunPhase = "Running"
	RunPhaseSucceeded RunPhase = "Succeeded"
	RunPhaseFailed    RunPhase = "Failed"
)

// StagePhase is the lifecycle phase of one stage.
type StagePhase string

const (
	StagePhasePending   StagePhase = "Pending"
	StagePhaseRunning   StagePhase = "Running"
	StagePhaseSucceeded StagePhase = "Succeeded"
	StagePhaseFailed    StagePhase = "Failed"
	StagePhaseSkipped   StagePhase = "Skipped"
)

// Standard condition types for VolumeCheck resources.
const (
	// ConditionSucceeded is True once every stage passed.
	ConditionSucceeded = "Succeeded"

	// ConditionDataIntact compares the original and restored fingerprints.
	ConditionDataIntact = "DataIntact"

	// ConditionCleanedUp is False when cleanup left resources behind.
	ConditionCleanedUp = "CleanedUp"
)
