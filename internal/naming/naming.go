// Package naming provides the per-platform device naming conventions used
// when requesting a volume attachment. Each cloud platform exposes a fixed,
// ordered set of slots (a device path, a disk index, a SCSI controller/node
// pair) and volumes are attached to them left to right.
//
// These naming rules are pure and shared by every backend.
package naming

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Platform identifies the cloud a host runs on.
type Platform string

const (
	PlatformGCE         Platform = "gce"
	PlatformCloudStack  Platform = "cloudstack"
	PlatformRackspaceNG Platform = "rackspace-ng"
	PlatformAzure       Platform = "azure"
	PlatformOpenStack   Platform = "openstack"
	PlatformEC2         Platform = "ec2"
	PlatformVSphere     Platform = "vsphere"
	PlatformLibvirt     Platform = "libvirt"
)

// DefaultCloudFile is where the host records its cloud type.
const DefaultCloudFile = "/etc/rightscale.d/cloud"

// vsphereReservedNode is the SCSI node taken by the controller itself.
const vsphereReservedNode = 7

// Platforms lists every platform with a naming rule.
func Platforms() []Platform {
	return []Platform{
		PlatformGCE,
		PlatformCloudStack,
		PlatformRackspaceNG,
		PlatformAzure,
		PlatformOpenStack,
		PlatformEC2,
		PlatformVSphere,
		PlatformLibvirt,
	}
}

// Slots returns the ordered attachment slots for a platform.
// An unknown platform yields an empty slice.
//
// Example: Slots(PlatformEC2) → [/dev/sdj /dev/sdk /dev/sdl /dev/sdm]
func Slots(p Platform) []string {
	switch p {
	case PlatformGCE:
		return numbered("persistent-disk-%d", 1, 15)
	case PlatformCloudStack:
		return numbered("device_id:%d", 1, 15)
	case PlatformRackspaceNG:
		return lettered("/dev/xvd", 'd', 'z')
	case PlatformAzure:
		return numbered("%02d", 0, 15)
	case PlatformOpenStack:
		return lettered("/dev/vd", 'c', 'z')
	case PlatformEC2:
		return lettered("/dev/sd", 'j', 'm')
	case PlatformVSphere:
		var slots []string
		for controller := 0; controller <= 3; controller++ {
			for node := 0; node <= 15; node++ {
				if node == vsphereReservedNode {
					continue
				}
				slots = append(slots, fmt.Sprintf("lsiLogic(%d:%d)", controller, node))
			}
		}
		return slots
	case PlatformLibvirt:
		return lettered("/dev/vd", 'b', 'z')
	default:
		return []string{}
	}
}

// AlternateSlots returns a secondary slot range for platforms that name
// devices two ways. Only EC2 has one (Xen style /dev/xvd{d..h}); Slots never
// merges it in, callers opt in explicitly.
func AlternateSlots(p Platform) []string {
	if p == PlatformEC2 {
		return lettered("/dev/xvd", 'd', 'h')
	}
	return []string{}
}

// ParsePlatform maps a cloud type string to a Platform.
// Matching ignores case and surrounding whitespace.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// ReadPlatform reads the cloud type from the first line of path.
func ReadPlatform(fs afero.Fs, path string) (Platform, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read cloud file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return ParsePlatform(line)
}

// DefaultVolumeSizeGB returns the volume size used when none is configured.
// Rackspace next-gen enforces a 100 GB minimum.
func DefaultVolumeSizeGB(p Platform) int {
	if p == PlatformRackspaceNG {
		return 100
	}
	return 10
}

func numbered(format string, first, last int) []string {
	slots := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		slots = append(slots, fmt.Sprintf(format, i))
	}
	return slots
}

func lettered(prefix string, first, last byte) []string {
	slots := make([]string, 0, int(last-first)+1)
	for c := first; c <= last; c++ {
		slots = append(slots, prefix+string(c))
	}
	return slots
}
