package lifecycle

import (
	"slices"

	"github.com/jbweber/volcheck/internal/cloud"
)

// StatusDeleted is reported for a resource that disappeared while an
// expectation with AcceptGone was being waited on.
const StatusDeleted = "deleted"

// Expectation names the statuses that end polling for one kind of transition.
type Expectation struct {
	Name     string
	Accepted []string
	Failed   []string
	// Transitional, when set, lists the only statuses worth waiting through.
	// Anything outside Accepted and Transitional is treated as a failure.
	Transitional []string
	// AcceptGone treats a not-found refresh as success.
	AcceptGone bool
}

type verdict int

const (
	pending verdict = iota
	accepted
	failed
)

func (e Expectation) classify(status string) verdict {
	switch {
	case slices.Contains(e.Accepted, status):
		return accepted
	case slices.Contains(e.Failed, status):
		return failed
	case len(e.Transitional) > 0 && !slices.Contains(e.Transitional, status):
		return failed
	default:
		return pending
	}
}

var (
	VolumeCreated = Expectation{
		Name:     "volume created",
		Accepted: []string{cloud.VolumeAvailable, cloud.VolumeProvisioned},
		Failed:   []string{cloud.VolumeFailed},
	}

	VolumeAttached = Expectation{
		Name:     "volume attached",
		Accepted: []string{cloud.AttachmentAttached},
		Failed:   []string{cloud.AttachmentFailed},
	}

	VolumeDetached = Expectation{
		Name:         "volume detached",
		Accepted:     []string{cloud.VolumeAvailable},
		Transitional: []string{cloud.VolumeInUse, cloud.VolumeDetaching},
	}

	SnapshotCompleted = Expectation{
		Name:     "snapshot completed",
		Accepted: []string{cloud.SnapshotAvailable, cloud.SnapshotCompleted},
		Failed:   []string{cloud.SnapshotFailed},
	}

	BackupCompleted = Expectation{
		Name:     "backup completed",
		Accepted: []string{cloud.BackupCompleted},
		Failed:   []string{cloud.BackupFailed},
	}

	VolumeDeleted = Expectation{
		Name:       "volume deleted",
		Accepted:   []string{StatusDeleted},
		Failed:     []string{cloud.VolumeFailed},
		AcceptGone: true,
	}
)
