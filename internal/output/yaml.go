package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/volcheck/api/v1alpha1"
)

// YAMLFormatter formats reports as YAML.
type YAMLFormatter struct{}

// FormatCheck formats a VolumeCheck as YAML. The output loads back as a run
// definition.
func (f *YAMLFormatter) FormatCheck(vc *v1alpha1.VolumeCheck) (string, error) {
	// Ensure TypeMeta is set
	v1alpha1.SetDefaultAPIVersion(vc)

	data, err := yaml.Marshal(vc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal VolumeCheck %s to YAML: %w", vc.Name, err)
	}
	return string(data), nil
}

// FormatSlots formats a platform's slots as YAML.
func (f *YAMLFormatter) FormatSlots(list SlotList) (string, error) {
	data, err := yaml.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to marshal slots to YAML: %w", err)
	}
	return string(data), nil
}

// FormatDevices formats block devices as YAML.
func (f *YAMLFormatter) FormatDevices(list DeviceList) (string, error) {
	data, err := yaml.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to marshal devices to YAML: %w", err)
	}
	return string(data), nil
}
