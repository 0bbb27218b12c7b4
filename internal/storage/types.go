package storage

import "fmt"

const (
	// DefaultPool holds every volume a run creates.
	DefaultPool = "volcheck"

	// DefaultPoolPath is the directory backing DefaultPool.
	DefaultPoolPath = "/var/lib/libvirt/images/volcheck"
)

// PoolType represents the type of storage pool backend.
type PoolType string

const (
	PoolTypeDir PoolType = "dir" // Directory-based storage
)

// VolumeRole is what a volume is used for during a run.
type VolumeRole string

const (
	RoleVolume   VolumeRole = "volume"   // Volume under test
	RoleSnapshot VolumeRole = "snapshot" // Point-in-time copy of a volume
	RoleBackup   VolumeRole = "backup"   // Member of a consistency-group backup
)

// VolumeFormat represents the disk format.
type VolumeFormat string

const (
	VolumeFormatQCOW2 VolumeFormat = "qcow2" // QCOW2 format
	VolumeFormatRaw   VolumeFormat = "raw"   // Raw format
)

// VolumeSpec specifies how to create a storage volume.
type VolumeSpec struct {
	Name       string       // Volume name (e.g., "volcheck-4f1c...")
	Role       VolumeRole   // Volume role
	Format     VolumeFormat // Disk format (qcow2, raw)
	CapacityGB uint64       // Capacity in GB
}

// Validate checks if the volume spec is valid.
func (v *VolumeSpec) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("volume name is required")
	}
	if v.Role == "" {
		return fmt.Errorf("volume role is required")
	}
	if v.Format != VolumeFormatQCOW2 && v.Format != VolumeFormatRaw {
		return fmt.Errorf("invalid volume format: %q (must be qcow2 or raw)", v.Format)
	}
	if v.CapacityGB == 0 {
		return fmt.Errorf("volume capacity must be greater than 0")
	}
	return nil
}

// PoolInfo contains information about a storage pool.
type PoolInfo struct {
	Name       string   // Pool name
	Type       PoolType // Pool type
	Path       string   // Pool path (for dir-based pools)
	UUID       string   // Pool UUID
	State      string   // Pool state (running, stopped, etc.)
	Capacity   uint64   // Total capacity in bytes
	Allocation uint64   // Allocated space in bytes
	Available  uint64   // Available space in bytes
}

// VolumeInfo contains information about a storage volume.
type VolumeInfo struct {
	Name       string // Volume name
	Path       string // Full filesystem path
	Pool       string // Pool name
	Capacity   uint64 // Capacity in bytes
	Allocation uint64 // Allocated space in bytes
}

// CapacityGB returns the volume capacity in whole GB.
func (v *VolumeInfo) CapacityGB() int {
	return int(v.Capacity / (1024 * 1024 * 1024))
}
