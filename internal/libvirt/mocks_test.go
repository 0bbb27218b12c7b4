package libvirt

import (
	"fmt"
	"path"

	"github.com/digitalocean/go-libvirt"
	libvirtxml "libvirt.org/go/libvirtxml"
)

// fakeHypervisor is an in-memory Hypervisor: one domain with live disks and
// directory pools of volumes.
type fakeHypervisor struct {
	domain   string
	disks    []libvirtxml.DomainDisk
	pools    map[string]string            // pool name -> XML
	volumes  map[string]map[string]uint64 // pool name -> volume name -> capacity
	metadata []string

	attachErr error
	detachErr error
	cloneErr  error

	attachCalls int
	detachCalls int
}

func newFakeHypervisor(domain string) *fakeHypervisor {
	return &fakeHypervisor{
		domain:  domain,
		pools:   map[string]string{},
		volumes: map[string]map[string]uint64{},
		disks: []libvirtxml.DomainDisk{{
			Device: "disk",
			Source: &libvirtxml.DomainDiskSource{File: &libvirtxml.DomainDiskSourceFile{File: "/var/lib/libvirt/images/root.qcow2"}},
			Target: &libvirtxml.DomainDiskTarget{Dev: "vda", Bus: "virtio"},
		}},
	}
}

func noStorageVol(name string) error {
	return libvirt.Error{Code: uint32(libvirt.ErrNoStorageVol), Message: "no storage vol with matching name '" + name + "'"}
}

func (f *fakeHypervisor) volumePath(pool, name string) string {
	return path.Join("/var/lib/libvirt/images", pool, name)
}

// Domain

func (f *fakeHypervisor) DomainLookupByName(name string) (libvirt.Domain, error) {
	if name != f.domain {
		return libvirt.Domain{}, libvirt.Error{Code: uint32(libvirt.ErrNoDomain), Message: "domain not found"}
	}
	return libvirt.Domain{Name: name}, nil
}

func (f *fakeHypervisor) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	def := &libvirtxml.Domain{
		Type:    "kvm",
		Name:    f.domain,
		Devices: &libvirtxml.DomainDeviceList{Disks: f.disks},
	}
	return def.Marshal()
}

func (f *fakeHypervisor) DomainAttachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	f.attachCalls++
	if f.attachErr != nil {
		return f.attachErr
	}
	var disk libvirtxml.DomainDisk
	if err := disk.Unmarshal(xml); err != nil {
		return err
	}
	for _, d := range f.disks {
		if d.Target.Dev == disk.Target.Dev {
			return fmt.Errorf("target %s already exists", disk.Target.Dev)
		}
	}
	f.disks = append(f.disks, disk)
	return nil
}

func (f *fakeHypervisor) DomainDetachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	f.detachCalls++
	if f.detachErr != nil {
		return f.detachErr
	}
	var disk libvirtxml.DomainDisk
	if err := disk.Unmarshal(xml); err != nil {
		return err
	}
	for i, d := range f.disks {
		if d.Target.Dev == disk.Target.Dev {
			f.disks = append(f.disks[:i], f.disks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("disk %s not found", disk.Target.Dev)
}

func (f *fakeHypervisor) DomainSetMetadata(dom libvirt.Domain, typ int32, metadata libvirt.OptString, key libvirt.OptString, uri libvirt.OptString, flags libvirt.DomainModificationImpact) error {
	f.metadata = metadata
	return nil
}

func (f *fakeHypervisor) DomainGetMetadata(dom libvirt.Domain, typ int32, uri libvirt.OptString, flags libvirt.DomainModificationImpact) (string, error) {
	if len(f.metadata) == 0 {
		return "", libvirt.Error{Code: uint32(libvirt.ErrNoDomainMetadata), Message: "metadata not found"}
	}
	return f.metadata[0], nil
}

// Storage

func (f *fakeHypervisor) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	if _, ok := f.pools[name]; !ok {
		return libvirt.StoragePool{}, fmt.Errorf("storage pool not found: %s", name)
	}
	return libvirt.StoragePool{Name: name}, nil
}

func (f *fakeHypervisor) StoragePoolDefineXML(xml string, flags uint32) (libvirt.StoragePool, error) {
	var def libvirtxml.StoragePool
	if err := def.Unmarshal(xml); err != nil {
		return libvirt.StoragePool{}, err
	}
	f.pools[def.Name] = xml
	f.volumes[def.Name] = map[string]uint64{}
	return libvirt.StoragePool{Name: def.Name}, nil
}

func (f *fakeHypervisor) StoragePoolCreate(pool libvirt.StoragePool, flags libvirt.StoragePoolCreateFlags) error {
	return nil
}

func (f *fakeHypervisor) StoragePoolBuild(pool libvirt.StoragePool, flags libvirt.StoragePoolBuildFlags) error {
	return nil
}

func (f *fakeHypervisor) StoragePoolSetAutostart(pool libvirt.StoragePool, autostart int32) error {
	return nil
}

func (f *fakeHypervisor) StoragePoolUndefine(pool libvirt.StoragePool) error {
	delete(f.pools, pool.Name)
	return nil
}

func (f *fakeHypervisor) StoragePoolGetInfo(pool libvirt.StoragePool) (uint8, uint64, uint64, uint64, error) {
	return uint8(libvirt.StoragePoolRunning), 0, 0, 0, nil
}

func (f *fakeHypervisor) StoragePoolGetXMLDesc(pool libvirt.StoragePool, flags libvirt.StorageXMLFlags) (string, error) {
	return f.pools[pool.Name], nil
}

func (f *fakeHypervisor) StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error) {
	if _, ok := f.volumes[pool.Name][name]; !ok {
		return libvirt.StorageVol{}, noStorageVol(name)
	}
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (f *fakeHypervisor) StorageVolCreateXML(pool libvirt.StoragePool, xml string, flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error) {
	var def libvirtxml.StorageVolume
	if err := def.Unmarshal(xml); err != nil {
		return libvirt.StorageVol{}, err
	}
	if _, ok := f.volumes[pool.Name][def.Name]; ok {
		return libvirt.StorageVol{}, fmt.Errorf("storage volume already exists: %s", def.Name)
	}
	f.volumes[pool.Name][def.Name] = def.Capacity.Value
	return libvirt.StorageVol{Pool: pool.Name, Name: def.Name}, nil
}

func (f *fakeHypervisor) StorageVolCreateXMLFrom(pool libvirt.StoragePool, xml string, clonevol libvirt.StorageVol, flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error) {
	if f.cloneErr != nil {
		return libvirt.StorageVol{}, f.cloneErr
	}
	return f.StorageVolCreateXML(pool, xml, 0)
}

func (f *fakeHypervisor) StorageVolDelete(vol libvirt.StorageVol, flags libvirt.StorageVolDeleteFlags) error {
	if _, ok := f.volumes[vol.Pool][vol.Name]; !ok {
		return noStorageVol(vol.Name)
	}
	delete(f.volumes[vol.Pool], vol.Name)
	return nil
}

func (f *fakeHypervisor) StorageVolGetPath(vol libvirt.StorageVol) (string, error) {
	return f.volumePath(vol.Pool, vol.Name), nil
}

func (f *fakeHypervisor) StorageVolGetInfo(vol libvirt.StorageVol) (int8, uint64, uint64, error) {
	capacity, ok := f.volumes[vol.Pool][vol.Name]
	if !ok {
		return 0, 0, 0, noStorageVol(vol.Name)
	}
	return 0, capacity, 0, nil
}

func (f *fakeHypervisor) domainRef() libvirt.Domain {
	return libvirt.Domain{Name: f.domain}
}
