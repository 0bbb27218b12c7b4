package libvirt

import (
	"fmt"
	"path/filepath"
	"strings"

	libvirtxml "libvirt.org/go/libvirtxml"
)

// targetForDevice maps a guest device slot ("/dev/vdb") to the libvirt
// disk target ("vdb").
func targetForDevice(device string) (string, error) {
	target := strings.TrimPrefix(device, "/dev/")
	if target == "" || strings.Contains(target, "/") {
		return "", fmt.Errorf("invalid device slot %q", device)
	}
	return target, nil
}

func deviceForTarget(target string) string {
	return "/dev/" + target
}

// generateDiskXML generates the live-attach XML for a pool volume.
func generateDiskXML(sourcePath, target string) (string, error) {
	disk := &libvirtxml.DomainDisk{
		Device: "disk",
		Driver: &libvirtxml.DomainDiskDriver{
			Name: "qemu",
			Type: "qcow2",
		},
		Source: &libvirtxml.DomainDiskSource{
			File: &libvirtxml.DomainDiskSourceFile{
				File: sourcePath,
			},
		},
		Target: &libvirtxml.DomainDiskTarget{
			Dev: target,
			Bus: "virtio",
		},
	}

	return disk.Marshal()
}

// domainDisk is a file-backed disk found in a domain definition.
type domainDisk struct {
	Target string
	Source string
	def    libvirtxml.DomainDisk
}

// VolumeName is the pool volume backing the disk.
func (d domainDisk) VolumeName() string {
	return filepath.Base(d.Source)
}

// XML renders the disk exactly as the domain reports it, as detach expects.
func (d domainDisk) XML() (string, error) {
	return d.def.Marshal()
}

// parseDomainDisks returns the file-backed disks of a domain XML document.
func parseDomainDisks(domainXML string) ([]domainDisk, error) {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(domainXML); err != nil {
		return nil, fmt.Errorf("failed to parse domain XML: %w", err)
	}
	if dom.Devices == nil {
		return nil, nil
	}

	var disks []domainDisk
	for _, d := range dom.Devices.Disks {
		if d.Target == nil || d.Source == nil || d.Source.File == nil {
			continue
		}
		disks = append(disks, domainDisk{
			Target: d.Target.Dev,
			Source: d.Source.File.File,
			def:    d,
		})
	}
	return disks, nil
}
