// Package libvirt connects to a local libvirt daemon and exposes it as a
// cloud.API backend, so the validation scenarios can run against a plain
// KVM host instead of a cloud.
//
// The backend maps the remote API onto libvirt primitives:
//   - volumes are qcow2 files in a directory storage pool
//   - attachments are live virtio disks on the domain the run executes in
//   - snapshots and backup members are full volume clones
//   - names, descriptions and parent links live in the domain metadata ledger
//
// Hrefs are synthesized from those primitives and stay stable for the life
// of the resource:
//
//	/libvirt/domains/<domain>                    instance
//	/libvirt/domains/<domain>/disks/<target>     attachment
//	/libvirt/pools/<pool>/volumes/<volume>       volume
//	/libvirt/pools/<pool>/snapshots/<volume>     snapshot
//	/libvirt/backups/<id>                        backup
//
// Connection Management:
//
//	client, err := libvirt.Connect("", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	backend, err := libvirt.Open(ctx, client.Libvirt(), libvirt.Config{Domain: "worker-1"}, logger)
//
// Consumer-Side Interfaces:
//
// Hypervisor lists only the calls the backend makes. *libvirt.Libvirt from
// github.com/digitalocean/go-libvirt satisfies it; tests use an in-memory
// fake.
package libvirt
