package folders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

// visitFunc is called for each folder in depth-first pre-order. Returning
// false stops the walk.
type visitFunc func(f *dm.Folder) bool

// walk visits the tree below rootID, or the top folders and their trees
// when rootID is empty. Failures below the starting point become warnings.
func (n *Navigator) walk(
	ctx context.Context, hubID, projectID, rootID string, visit visitFunc, warnings *[]TraversalWarning,
) error {
	w := &walker{
		nav:       n,
		projectID: projectID,
		visit:     visit,
		warnings:  warnings,
		seen:      make(map[string]bool),
	}

	if rootID == "" {
		top, err := n.api.TopFolders(ctx, hubID, projectID)
		if err != nil {
			return fmt.Errorf("folders: listing top folders of %s: %w", projectID, err)
		}

		for i := range top {
			if !w.enter(ctx, &top[i]) {
				break
			}
		}

		return interrupted(ctx)
	}

	children, err := n.api.Subfolders(ctx, projectID, rootID)
	if err != nil {
		return fmt.Errorf("folders: listing %s: %w", rootID, err)
	}

	w.seen[rootID] = true

	for i := range children {
		if !w.enter(ctx, &children[i]) {
			break
		}
	}

	return interrupted(ctx)
}

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("folders: walk interrupted: %w", err)
	}

	return nil
}

type walker struct {
	nav       *Navigator
	projectID string
	visit     visitFunc
	warnings  *[]TraversalWarning
	seen      map[string]bool
}

// enter visits f and then its subtree. It returns false once the visitor
// asks to stop.
func (w *walker) enter(ctx context.Context, f *dm.Folder) bool {
	if w.seen[f.ID] {
		return true
	}

	w.seen[f.ID] = true

	if !w.visit(f) {
		return false
	}

	if ctx.Err() != nil {
		return false
	}

	children, err := w.nav.api.Subfolders(ctx, w.projectID, f.ID)
	if err != nil {
		w.warn(f, err)
		return true
	}

	for i := range children {
		if !w.enter(ctx, &children[i]) {
			return false
		}
	}

	return true
}

func (w *walker) warn(f *dm.Folder, err error) {
	tw := TraversalWarning{FolderID: f.ID, Name: f.Name, Err: err}
	*w.warnings = append(*w.warnings, tw)

	w.nav.logger.Warn("skipping unreadable folder subtree",
		slog.String("folder_id", f.ID),
		slog.String("name", f.Name),
		slog.String("error", err.Error()),
	)
}
