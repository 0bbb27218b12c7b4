package v1alpha1

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// GroupName is the API group for volcheck resources.
	GroupName = "volcheck.cofront.xyz"

	// Version is the API version.
	Version = "v1alpha1"

	// VolumeCheckKind is the kind string for VolumeCheck resources.
	VolumeCheckKind = "VolumeCheck"
)

// APIVersion is the full apiVersion string.
func APIVersion() string {
	return GroupName + "/" + Version
}

// NewVolumeCheck creates a VolumeCheck with TypeMeta and ObjectMeta set and
// an empty spec.
func NewVolumeCheck(name string) *VolumeCheck {
	return &VolumeCheck{
		TypeMeta: TypeMeta{
			APIVersion: APIVersion(),
			Kind:       VolumeCheckKind,
		},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: NewTime(time.Now()),
		},
		Status: VolumeCheckStatus{
			Phase: RunPhasePending,
		},
	}
}

// SetDefaultAPIVersion fills in apiVersion and kind when they are missing.
func SetDefaultAPIVersion(vc *VolumeCheck) {
	if vc.APIVersion == "" {
		vc.APIVersion = APIVersion()
	}
	if vc.Kind == "" {
		vc.Kind = VolumeCheckKind
	}
}

// StageTimeout returns the per-stage deadline.
func (vc *VolumeCheck) StageTimeout() time.Duration {
	return time.Duration(vc.Spec.StageTimeoutSeconds) * time.Second
}

// PollInterval returns the remote status polling interval.
func (vc *VolumeCheck) PollInterval() time.Duration {
	return time.Duration(vc.Spec.PollIntervalSeconds) * time.Second
}

// TestFileBytes returns the test file size in bytes.
func (vc *VolumeCheck) TestFileBytes() int64 {
	return int64(vc.Spec.TestFileMiB) * 1024 * 1024
}

// Skips reports whether stage was listed in spec.skipStages. Matching is
// case-insensitive.
func (vc *VolumeCheck) Skips(stage string) bool {
	return slices.ContainsFunc(vc.Spec.SkipStages, func(s string) bool {
		return strings.EqualFold(s, stage)
	})
}

// Stage returns the status entry for a stage, or nil.
func (vc *VolumeCheck) Stage(name string) *StageStatus {
	for i := range vc.Status.Stages {
		if vc.Status.Stages[i].Name == name {
			return &vc.Status.Stages[i]
		}
	}
	return nil
}

// SetPhase sets the run phase.
func (vc *VolumeCheck) SetPhase(phase RunPhase) {
	vc.Status.Phase = phase
}

// GetPhase returns the run phase.
func (vc *VolumeCheck) GetPhase() RunPhase {
	return vc.Status.Phase
}
