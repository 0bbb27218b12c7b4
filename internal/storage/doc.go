// Package storage manages the libvirt storage pool and volumes backing the
// libvirt validation backend.
//
// Volumes under test, their snapshots and backup copies all live in one
// directory pool (volcheck by default). Snapshots and backups are full clones
// made with StorageVolCreateXMLFrom, so they stay valid after the source
// volume is deleted.
//
// Example usage:
//
//	mgr := storage.NewManager(client.Libvirt())
//	if err := mgr.EnsurePool(ctx, storage.DefaultPool, storage.PoolTypeDir, storage.DefaultPoolPath); err != nil {
//	    return err
//	}
//	vol, err := mgr.CreateVolume(ctx, storage.DefaultPool, storage.VolumeSpec{
//	    Name:       "volcheck-0b6f...",
//	    Role:       storage.RoleVolume,
//	    Format:     storage.VolumeFormatQCOW2,
//	    CapacityGB: 10,
//	})
package storage
