package devices

import (
	"slices"
	"sort"
)

// Snapshot is a sorted, duplicate-free set of device paths captured at one
// instant.
type Snapshot struct {
	paths []string
}

// NewSnapshot builds a snapshot from paths in any order.
func NewSnapshot(paths ...string) Snapshot {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return Snapshot{paths: slices.Compact(sorted)}
}

// Paths returns a copy of the device paths in sorted order.
func (s Snapshot) Paths() []string {
	return append([]string(nil), s.paths...)
}

func (s Snapshot) Len() int {
	return len(s.paths)
}

// Contains reports whether path is in the snapshot.
func (s Snapshot) Contains(path string) bool {
	_, found := slices.BinarySearch(s.paths, path)
	return found
}

// Difference returns the paths in s that are not in other, sorted.
func (s Snapshot) Difference(other Snapshot) []string {
	var diff []string
	for _, p := range s.paths {
		if !other.Contains(p) {
			diff = append(diff, p)
		}
	}
	return diff
}

// Equal reports whether both snapshots hold the same paths.
func (s Snapshot) Equal(other Snapshot) bool {
	return slices.Equal(s.paths, other.paths)
}

// Without returns a copy of s with path removed.
func (s Snapshot) Without(path string) Snapshot {
	out := make([]string, 0, len(s.paths))
	for _, p := range s.paths {
		if p != path {
			out = append(out, p)
		}
	}
	return Snapshot{paths: out}
}
