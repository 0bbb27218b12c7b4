package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/volcheck/api/v1alpha1"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct{}

// FormatCheck formats a VolumeCheck as JSON.
func (f *JSONFormatter) FormatCheck(vc *v1alpha1.VolumeCheck) (string, error) {
	// Ensure TypeMeta is set
	v1alpha1.SetDefaultAPIVersion(vc)
	return marshalJSON(vc, "VolumeCheck")
}

// FormatSlots formats a platform's slots as a JSON object.
func (f *JSONFormatter) FormatSlots(list SlotList) (string, error) {
	if list.Slots == nil {
		list.Slots = []string{}
	}
	return marshalJSON(list, "slots")
}

// FormatDevices formats block devices as a JSON object.
func (f *JSONFormatter) FormatDevices(list DeviceList) (string, error) {
	if list.Devices == nil {
		list.Devices = []string{}
	}
	return marshalJSON(list, "devices")
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(data) + "\n", nil
}
