package storage

import (
	"context"
	"fmt"

	"github.com/digitalocean/go-libvirt"
	libvirtxml "libvirt.org/go/libvirtxml"
)

// CreateVolume creates a new empty volume in the specified pool.
func (m *Manager) CreateVolume(ctx context.Context, poolName string, spec VolumeSpec) (*VolumeInfo, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid volume spec: %w", err)
	}

	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return nil, fmt.Errorf("pool not found: %w", err)
	}

	volumeXML, err := generateVolumeXML(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to generate volume XML: %w", err)
	}

	vol, err := m.client.StorageVolCreateXML(pool, volumeXML, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create volume: %w", err)
	}

	return m.volumeInfo(poolName, vol)
}

// CloneVolume creates name as a full copy of source. The clone has the
// source's capacity and does not depend on it afterwards.
func (m *Manager) CloneVolume(ctx context.Context, poolName, source, name string, role VolumeRole) (*VolumeInfo, error) {
	pool, src, err := m.lookupVolume(poolName, source)
	if err != nil {
		return nil, err
	}

	_, capacity, _, err := m.client.StorageVolGetInfo(src)
	if err != nil {
		return nil, fmt.Errorf("failed to get source volume info: %w", err)
	}

	volumeXML, err := generateVolumeXML(VolumeSpec{
		Name:       name,
		Role:       role,
		Format:     VolumeFormatQCOW2,
		CapacityGB: max(capacity/(1024*1024*1024), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate volume XML: %w", err)
	}

	vol, err := m.client.StorageVolCreateXMLFrom(pool, volumeXML, src, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to clone volume %s: %w", source, err)
	}

	return m.volumeInfo(poolName, vol)
}

// DeleteVolume deletes a volume from the specified pool.
// Returns ErrVolumeNotFound if it does not exist.
func (m *Manager) DeleteVolume(ctx context.Context, poolName, volumeName string) error {
	_, vol, err := m.lookupVolume(poolName, volumeName)
	if err != nil {
		return err
	}

	if err := m.client.StorageVolDelete(vol, 0); err != nil {
		return fmt.Errorf("failed to delete volume: %w", err)
	}

	return nil
}

// GetVolume returns information about a volume.
// Returns ErrVolumeNotFound if it does not exist.
func (m *Manager) GetVolume(ctx context.Context, poolName, volumeName string) (*VolumeInfo, error) {
	_, vol, err := m.lookupVolume(poolName, volumeName)
	if err != nil {
		return nil, err
	}
	return m.volumeInfo(poolName, vol)
}

func (m *Manager) volumeInfo(poolName string, vol libvirt.StorageVol) (*VolumeInfo, error) {
	path, err := m.client.StorageVolGetPath(vol)
	if err != nil {
		return nil, fmt.Errorf("failed to get volume path: %w", err)
	}

	_, capacity, allocation, err := m.client.StorageVolGetInfo(vol)
	if err != nil {
		return nil, fmt.Errorf("failed to get volume info: %w", err)
	}

	return &VolumeInfo{
		Name:       vol.Name,
		Path:       path,
		Pool:       poolName,
		Capacity:   capacity,
		Allocation: allocation,
	}, nil
}

// generateVolumeXML generates XML for a storage volume.
func generateVolumeXML(spec VolumeSpec) (string, error) {
	capacityBytes := spec.CapacityGB * 1024 * 1024 * 1024

	vol := &libvirtxml.StorageVolume{
		Type: "file",
		Name: spec.Name,
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: capacityBytes,
			Unit:  "B",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{
				Type: string(spec.Format),
			},
			Permissions: &libvirtxml.StorageVolumeTargetPermissions{
				Owner: "107", // qemu user
				Group: "107", // qemu group
				Mode:  "0644",
			},
		},
	}

	xmlBytes, err := vol.Marshal()
	if err != nil {
		return "", err
	}

	return trimXMLHeader(xmlBytes), nil
}
