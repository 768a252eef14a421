package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tonimelisma/apsdm-go/internal/urn"
)

// OrphanPolicy decides what happens to the storage object of an aborted
// attempt. It runs after the failure is recorded; its own error is logged
// and does not replace the stage failure.
type OrphanPolicy interface {
	HandleOrphan(ctx context.Context, a *Attempt) error
}

// Policy names accepted by NewOrphanPolicy.
const (
	PolicyKeep   = "keep"
	PolicyDelete = "delete"
)

// KeepOrphans leaves orphaned storage objects in place and logs their ids.
type KeepOrphans struct {
	Logger *slog.Logger
}

// HandleOrphan implements OrphanPolicy.
func (p KeepOrphans) HandleOrphan(_ context.Context, a *Attempt) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Warn("upload left an orphaned storage object",
		slog.String("attempt_id", a.ID),
		slog.String("storage_id", a.StorageID),
		slog.String("state", a.State.String()),
	)

	return nil
}

// DeleteOrphans deletes the orphaned storage object from its bucket.
type DeleteOrphans struct {
	Deleter ObjectDeleter
	Logger  *slog.Logger
}

// HandleOrphan implements OrphanPolicy.
func (p DeleteOrphans) HandleOrphan(ctx context.Context, a *Attempt) error {
	obj, err := urn.Parse(a.StorageID)
	if err != nil {
		return fmt.Errorf("upload: orphan of attempt %s: %w", a.ID, err)
	}

	if err := p.Deleter.DeleteObject(ctx, obj); err != nil {
		return fmt.Errorf("upload: deleting orphan of attempt %s: %w", a.ID, err)
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("deleted orphaned storage object",
		slog.String("attempt_id", a.ID),
		slog.String("storage_id", a.StorageID),
	)

	return nil
}

// NewOrphanPolicy builds the policy for a configuration value. An empty name
// means keep.
func NewOrphanPolicy(name string, deleter ObjectDeleter, logger *slog.Logger) (OrphanPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyKeep:
		return KeepOrphans{Logger: logger}, nil
	case PolicyDelete:
		if deleter == nil {
			return nil, fmt.Errorf("upload: orphan policy %q needs a deleter", name)
		}

		return DeleteOrphans{Deleter: deleter, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("upload: unknown orphan policy %q (want %s or %s)", name, PolicyKeep, PolicyDelete)
	}
}
