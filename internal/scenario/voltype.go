package scenario

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/naming"
)

// needsVolumeType reports whether creates on p must name a volume type.
func needsVolumeType(p naming.Platform) bool {
	switch p {
	case naming.PlatformRackspaceNG, naming.PlatformVSphere, naming.PlatformCloudStack:
		return true
	default:
		return false
	}
}

// SelectVolumeType picks the volume type to create sizeGB volumes with.
//
// RackspaceNG and VSphere take the first listed type. CloudStack prefers a
// custom-size type, otherwise the smallest type that fits, with ties going
// to the greatest numeric resource_uid. Other platforms send no type and get
// "".
func SelectVolumeType(p naming.Platform, types []cloud.VolumeType, sizeGB int) (string, error) {
	if !needsVolumeType(p) {
		return "", nil
	}
	if len(types) == 0 {
		return "", faults.ConfigurationFault("platform %s requires a volume type but none are offered", p)
	}

	switch p {
	case naming.PlatformRackspaceNG, naming.PlatformVSphere:
		return types[0].Href, nil
	}

	for _, t := range types {
		if t.SizeGB == 0 {
			return t.Href, nil
		}
	}

	var best *cloud.VolumeType
	for i := range types {
		t := &types[i]
		if t.SizeGB < sizeGB {
			continue
		}
		switch {
		case best == nil, t.SizeGB < best.SizeGB:
			best = t
		case t.SizeGB == best.SizeGB && uidGreater(t.ResourceUID, best.ResourceUID):
			best = t
		}
	}
	if best == nil {
		return "", faults.ConfigurationFault("no volume type holds %d GB", sizeGB)
	}
	return best.Href, nil
}

// uidGreater compares resource uids numerically. Non-numeric uids never win,
// which keeps the earlier listed type.
func uidGreater(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return false
	}
	return na > nb
}

// volumeType returns the type for new volumes, listing the offerings once.
func (s *Session) volumeType(ctx context.Context) (string, error) {
	if !needsVolumeType(s.Platform) {
		return "", nil
	}
	if !s.typesLoaded {
		types, err := s.API.VolumeTypes(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list volume types: %w", err)
		}
		s.volumeTypes = types
		s.typesLoaded = true
	}
	return SelectVolumeType(s.Platform, s.volumeTypes, s.Check.Spec.VolumeSizeGB)
}
