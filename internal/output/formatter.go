// Package output renders volcheck run reports in various formats (table,
// YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/volcheck/api/v1alpha1"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format, loadable as a VolumeCheck.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// SlotList is the device slot sequence of one platform.
type SlotList struct {
	Platform string   `json:"platform" yaml:"platform"`
	Slots    []string `json:"slots" yaml:"slots"`
}

// DeviceList is a point-in-time view of the host's block devices.
type DeviceList struct {
	Devices []string `json:"devices" yaml:"devices"`
	// Removed lists orphaned devices deleted while taking the view.
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Formatter formats volcheck reports for output.
type Formatter interface {
	// FormatCheck formats a VolumeCheck and its run status.
	FormatCheck(vc *v1alpha1.VolumeCheck) (string, error)

	// FormatSlots formats a platform's device slots.
	FormatSlots(list SlotList) (string, error)

	// FormatDevices formats the host's block devices.
	FormatDevices(list DeviceList) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
