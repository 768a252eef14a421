package upload

import (
	"time"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

// Attempt is one run of the pipeline for one file. Each stage fills in its
// output and advances State, so a failed attempt shows exactly how far it
// got and which remote resources it left behind.
type Attempt struct {
	ID          string
	ProjectID   string
	FolderID    string
	FileName    string
	ContentType string
	Size        int64
	State       State

	// StorageID is the storage-object URN from Reserve. It threads every
	// later stage and is the id of any orphan.
	StorageID string
	Storage   *dm.StorageObject

	// Grant is single use. It is kept for inspection only; an attempt is
	// never resumed with it.
	Grant *dm.SignedUpload

	Item    *dm.Item
	Version *dm.Version

	StartedAt time.Time
	UpdatedAt time.Time
}

// Orphaned reports whether the attempt reserved storage it never published.
func (a *Attempt) Orphaned() bool {
	return a.State.Orphaned() && a.StorageID != ""
}

// snapshot copies the attempt for hand-off in errors.
func (a *Attempt) snapshot() Attempt {
	return *a
}
