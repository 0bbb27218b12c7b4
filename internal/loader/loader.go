// Package loader reads VolumeCheck run definitions from YAML, applies
// defaults and validates them.
package loader

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/naming"
)

// Defaults applied to omitted fields.
const (
	DefaultVolumeName      = "QTEST VOLUME"
	DefaultSnapshotName    = "QTEST SNAPSHOT"
	DefaultMountPoint      = "/mnt/storage"
	DefaultFSType          = "ext3"
	DefaultTestFileMiB     = 128
	DefaultMultiVolume     = 2
	DefaultStageTimeoutSec = 900
	DefaultPollIntervalSec = 2
	DefaultRootDevice      = "/dev/sda"
)

// Default returns a run definition with every default applied, for runs
// started without a file.
func Default() *v1alpha1.VolumeCheck {
	vc := v1alpha1.NewVolumeCheck("volcheck")
	applyDefaults(vc)
	return vc
}

// Option adjusts a parsed VolumeCheck before defaults and validation.
type Option func(vc *v1alpha1.VolumeCheck)

// LoadFromFile loads a VolumeCheck resource from a YAML file.
func LoadFromFile(fs afero.Fs, path string, opts ...Option) (*v1alpha1.VolumeCheck, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadFromYAML(data, opts...)
}

// LoadFromYAML loads a VolumeCheck resource from YAML bytes.
func LoadFromYAML(data []byte, opts ...Option) (*v1alpha1.VolumeCheck, error) {
	var vc v1alpha1.VolumeCheck
	if err := yaml.Unmarshal(data, &vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if vc.APIVersion == "" {
		return nil, fmt.Errorf("missing required field: apiVersion")
	}
	if vc.Kind == "" {
		return nil, fmt.Errorf("missing required field: kind")
	}
	if vc.APIVersion != v1alpha1.APIVersion() {
		return nil, fmt.Errorf("unsupported apiVersion: %s (expected: %s)", vc.APIVersion, v1alpha1.APIVersion())
	}
	if vc.Kind != v1alpha1.VolumeCheckKind {
		return nil, fmt.Errorf("unsupported kind: %s (expected: %s)", vc.Kind, v1alpha1.VolumeCheckKind)
	}

	for _, opt := range opts {
		opt(&vc)
	}
	applyDefaults(&vc)

	if err := validateSpec(&vc); err != nil {
		return nil, faults.ConfigurationFault("validation failed: %v", err)
	}

	return &vc, nil
}

// SaveToFile writes a VolumeCheck, typically a finished run report, as YAML.
func SaveToFile(fs afero.Fs, vc *v1alpha1.VolumeCheck, path string) error {
	v1alpha1.SetDefaultAPIVersion(vc)

	data, err := yaml.Marshal(vc)
	if err != nil {
		return fmt.Errorf("failed to marshal VolumeCheck to YAML: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// ResolvePlatform settles the platform: spec.platform when set, otherwise
// the cloud file. It records the result in status and fills in the
// platform's default volume size.
func ResolvePlatform(fs afero.Fs, vc *v1alpha1.VolumeCheck) (naming.Platform, error) {
	var (
		p   naming.Platform
		err error
	)
	switch {
	case vc.Spec.Platform != "":
		p, err = naming.ParsePlatform(vc.Spec.Platform)
	case vc.Spec.Backend == v1alpha1.BackendLibvirt:
		p = naming.PlatformLibvirt
	default:
		p, err = naming.ReadPlatform(fs, vc.Spec.CloudFile)
	}
	if err != nil {
		return "", faults.ConfigurationFault("cannot determine platform: %v", err)
	}

	if len(naming.Slots(p)) == 0 {
		return "", faults.ConfigurationFault("platform %s has no device slots", p)
	}

	vc.Status.Platform = string(p)
	if vc.Spec.VolumeSizeGB == 0 {
		vc.Spec.VolumeSizeGB = naming.DefaultVolumeSizeGB(p)
	}
	return p, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(vc *v1alpha1.VolumeCheck) {
	s := &vc.Spec
	if s.Backend == "" {
		s.Backend = v1alpha1.BackendRightScale
	}
	if s.CloudFile == "" {
		s.CloudFile = naming.DefaultCloudFile
	}
	if s.VolumeName == "" {
		s.VolumeName = DefaultVolumeName
	}
	if s.SnapshotName == "" {
		s.SnapshotName = DefaultSnapshotName
	}
	if s.MountPoint == "" {
		s.MountPoint = DefaultMountPoint
	}
	if s.FSType == "" {
		s.FSType = DefaultFSType
	}
	if s.TestFileMiB == 0 {
		s.TestFileMiB = DefaultTestFileMiB
	}
	if s.MultiVolumeCount == 0 {
		s.MultiVolumeCount = DefaultMultiVolume
	}
	if s.StageTimeoutSeconds == 0 {
		s.StageTimeoutSeconds = DefaultStageTimeoutSec
	}
	if s.PollIntervalSeconds == 0 {
		s.PollIntervalSeconds = DefaultPollIntervalSec
	}
	if s.RootDevice == "" {
		s.RootDevice = DefaultRootDevice
	}

	if vc.Status.Phase == "" {
		vc.Status.Phase = v1alpha1.RunPhasePending
	}
}

// validateSpec validates the VolumeCheck spec for consistency.
func validateSpec(vc *v1alpha1.VolumeCheck) error {
	s := &vc.Spec

	switch s.Backend {
	case v1alpha1.BackendRightScale:
	case v1alpha1.BackendLibvirt:
		if s.Libvirt == nil || s.Libvirt.Domain == "" {
			return fmt.Errorf("spec.libvirt.domain is required for the libvirt backend")
		}
	default:
		return fmt.Errorf("spec.backend %q must be rightscale or libvirt", s.Backend)
	}

	if s.Platform != "" {
		if _, err := naming.ParsePlatform(s.Platform); err != nil {
			return fmt.Errorf("spec.platform: %w", err)
		}
	}

	if s.VolumeSizeGB < 0 {
		return fmt.Errorf("spec.volumeSizeGB must not be negative")
	}
	if s.TestFileMiB < 0 {
		return fmt.Errorf("spec.testFileMiB must not be negative")
	}
	if s.MultiVolumeCount < 0 {
		return fmt.Errorf("spec.multiVolumeCount must not be negative")
	}
	if s.StageTimeoutSeconds < 0 || s.PollIntervalSeconds < 0 {
		return fmt.Errorf("spec timeouts must not be negative")
	}
	if s.PollIntervalSeconds > s.StageTimeoutSeconds {
		return fmt.Errorf("spec.pollIntervalSeconds (%d) exceeds spec.stageTimeoutSeconds (%d)",
			s.PollIntervalSeconds, s.StageTimeoutSeconds)
	}
	if s.MountPoint == "/" {
		return fmt.Errorf("spec.mountPoint must not be /")
	}

	return nil
}
