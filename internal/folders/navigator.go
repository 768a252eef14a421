// Package folders walks and extends a project's folder tree: top folders,
// best-effort recursive listing, lookup by name, and find-or-create of a
// child folder with the parent's extension kind.
package folders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

// API is the slice of the document-management client the navigator uses.
// Satisfied by *dm.Client.
type API interface {
	TopFolders(ctx context.Context, hubID, projectID string) ([]dm.Folder, error)
	GetFolder(ctx context.Context, projectID, folderID string) (*dm.Folder, error)
	Subfolders(ctx context.Context, projectID, folderID string) ([]dm.Folder, error)
	CreateFolder(ctx context.Context, projectID string, req dm.CreateFolderRequest) (*dm.Folder, error)
}

// TraversalWarning records a subtree that could not be listed. The folder
// itself stays in the listing; its descendants are missing.
type TraversalWarning struct {
	FolderID string
	Name     string
	Err      error
}

func (w TraversalWarning) Error() string {
	return fmt.Sprintf("folders: listing %q (%s): %v", w.Name, w.FolderID, w.Err)
}

func (w TraversalWarning) Unwrap() error {
	return w.Err
}

// Listing is the result of a recursive listing. Folders are in depth-first
// pre-order. A non-empty Warnings means the listing is partial.
type Listing struct {
	Folders  []dm.Folder
	Warnings []TraversalWarning
}

// Partial reports whether any subtree was skipped.
func (l *Listing) Partial() bool {
	return len(l.Warnings) > 0
}

// Navigator resolves folders in a project tree.
type Navigator struct {
	api      API
	resolver dm.TypeResolver
	logger   *slog.Logger
}

// NewNavigator creates a Navigator. resolver decides the type of folders
// GetOrCreate makes.
func NewNavigator(api API, resolver dm.TypeResolver, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Navigator{api: api, resolver: resolver, logger: logger}
}

// ListTopFolders returns the entry points of the project's folder tree.
func (n *Navigator) ListTopFolders(ctx context.Context, hubID, projectID string) ([]dm.Folder, error) {
	return n.api.TopFolders(ctx, hubID, projectID)
}

// ListAllFolders lists every folder below rootID, or every folder reachable
// from the top folders when rootID is empty (top folders included). A
// subtree that fails to list is logged, recorded in Warnings and skipped;
// only a failure to list the starting point is returned as an error.
func (n *Navigator) ListAllFolders(ctx context.Context, hubID, projectID, rootID string) (*Listing, error) {
	l := &Listing{}

	err := n.walk(ctx, hubID, projectID, rootID, func(f *dm.Folder) bool {
		l.Folders = append(l.Folders, *f)
		return true
	}, &l.Warnings)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// FindByName returns the first folder, in traversal order, whose name or
// display name equals name after Unicode normalization. Duplicates are not
// detected. Returns an error wrapping dm.ErrNotFound when nothing matches.
func (n *Navigator) FindByName(ctx context.Context, hubID, projectID, name, rootID string) (*dm.Folder, error) {
	want := norm.NFC.String(name)

	var (
		found    *dm.Folder
		warnings []TraversalWarning
	)

	err := n.walk(ctx, hubID, projectID, rootID, func(f *dm.Folder) bool {
		if nameMatches(f, want) {
			match := *f
			found = &match

			return false
		}

		return true
	}, &warnings)
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, fmt.Errorf("folders: no folder named %q (%d subtrees unreadable): %w",
			name, len(warnings), dm.ErrNotFound)
	}

	return found, nil
}

// GetOrCreate returns the child of parentID named name, creating it with the
// kind inherited from the parent when no immediate child matches. Deeper
// descendants are not searched. created reports whether a folder was made.
// Concurrent callers may each create a folder of the same name.
func (n *Navigator) GetOrCreate(ctx context.Context, projectID, parentID, name string) (folder *dm.Folder, created bool, err error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, errors.New("folders: empty folder name")
	}

	children, err := n.api.Subfolders(ctx, projectID, parentID)
	if err != nil {
		return nil, false, fmt.Errorf("folders: listing children of %s: %w", parentID, err)
	}

	want := norm.NFC.String(name)

	for i := range children {
		if nameMatches(&children[i], want) {
			n.logger.Debug("folder exists",
				slog.String("parent_id", parentID),
				slog.String("name", name),
				slog.String("folder_id", children[i].ID),
			)

			return &children[i], false, nil
		}
	}

	parent, err := n.api.GetFolder(ctx, projectID, parentID)
	if err != nil {
		return nil, false, fmt.Errorf("folders: reading parent %s: %w", parentID, err)
	}

	types := n.resolver.ChildTypes(parent.ExtensionType)

	f, err := n.api.CreateFolder(ctx, projectID, dm.CreateFolderRequest{
		ParentID:      parentID,
		Name:          name,
		ExtensionType: types.Folder,
	})
	if err != nil {
		return nil, false, err
	}

	n.logger.Info("created folder",
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.String("folder_id", f.ID),
		slog.String("kind", types.Kind.String()),
	)

	return f, true, nil
}

// EnsurePath applies GetOrCreate to each "/"-separated segment of relPath,
// starting at parentID, and returns the last folder. An empty relPath
// returns the parent itself.
func (n *Navigator) EnsurePath(ctx context.Context, projectID, parentID, relPath string) (*dm.Folder, error) {
	var segments []string

	for _, s := range strings.Split(relPath, "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}

	if len(segments) == 0 {
		return n.api.GetFolder(ctx, projectID, parentID)
	}

	var cur *dm.Folder

	id := parentID

	for _, s := range segments {
		f, _, err := n.GetOrCreate(ctx, projectID, id, s)
		if err != nil {
			return nil, err
		}

		cur = f
		id = f.ID
	}

	return cur, nil
}

func nameMatches(f *dm.Folder, normalized string) bool {
	return norm.NFC.String(f.Name) == normalized || norm.NFC.String(f.DisplayName) == normalized
}
