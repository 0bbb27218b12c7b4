package cloud

import (
	"fmt"
	"strings"
)

// Filter is an equality predicate over a resource field, written field==value.
type Filter struct {
	Field string
	Value string
}

// Eq returns the filter field==value.
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

func (f Filter) String() string {
	return f.Field + "==" + f.Value
}

// ParseFilter parses a field==value expression.
func ParseFilter(s string) (Filter, error) {
	field, value, ok := strings.Cut(s, "==")
	if !ok || field == "" {
		return Filter{}, fmt.Errorf("invalid filter %q: expected field==value", s)
	}
	return Filter{Field: field, Value: value}, nil
}

// Matches reports whether every filter holds for the given field values.
// A field missing from fields never matches.
func Matches(fields map[string]string, filters ...Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

// Fields returns the filterable fields of an attachment.
func (a *Attachment) Fields() map[string]string {
	return map[string]string{
		"href":          a.Href,
		"volume_href":   a.VolumeHref,
		"instance_href": a.InstanceHref,
		"device":        a.Device,
		"state":         a.State,
	}
}

// Fields returns the filterable fields of a snapshot.
func (s *Snapshot) Fields() map[string]string {
	return map[string]string{
		"href":               s.Href,
		"name":               s.Name,
		"parent_volume_href": s.ParentVolumeHref,
		"state":              s.State,
	}
}
