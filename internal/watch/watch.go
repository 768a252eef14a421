// Package watch uploads files that appear in a local directory. Files are
// uploaded once they stop changing; subdirectories map to folders created
// under the target folder.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

const (
	defaultSettle  = 2 * time.Second
	pendingBacklog = 64
)

// Uploader publishes one local file. Satisfied by *upload.Orchestrator.
type Uploader interface {
	UploadFile(ctx context.Context, projectID, folderID, localPath, name, contentType string) (*dm.Item, error)
}

// FolderEnsurer maps a relative directory to a remote folder, creating it
// if needed. Satisfied by *folders.Navigator.
type FolderEnsurer interface {
	EnsurePath(ctx context.Context, projectID, parentID, relPath string) (*dm.Folder, error)
}

// FsWatcher is the subset of *fsnotify.Watcher the watch loop uses.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error          { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                   { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return fsnotifyWatcher{w: w}, nil
}

// Options configures a Watcher.
type Options struct {
	Root      string // local directory to watch
	ProjectID string
	FolderID  string // remote folder Root maps to

	// Settle is how long a file must go without events before upload.
	// Zero means 2s.
	Settle time.Duration

	// OnUpload, if set, is called after each upload attempt.
	OnUpload func(localPath string, item *dm.Item, err error)
}

// Watcher turns local file creation into uploads.
type Watcher struct {
	up      Uploader
	folders FolderEnsurer
	opts    Options
	logger  *slog.Logger

	newFsWatcher func() (FsWatcher, error)
	nowFunc      func() time.Time
}

// New creates a Watcher.
func New(up Uploader, folders FolderEnsurer, opts Options, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}

	return &Watcher{
		up:           up,
		folders:      folders,
		opts:         opts,
		logger:       logger,
		newFsWatcher: newFsnotifyWatcher,
		nowFunc:      time.Now,
	}
}

// Run watches until ctx is canceled. Existing files are not uploaded; only
// files created or modified after Run starts. Upload failures are logged
// and do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.opts.Root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", w.opts.Root)
	}

	fsw, err := w.newFsWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.opts.Root); err != nil {
		return err
	}

	w.logger.Info("watching directory",
		slog.String("root", w.opts.Root),
		slog.String("folder_id", w.opts.FolderID),
		slog.Duration("settle", w.opts.Settle),
	)

	pending := make(chan string, pendingBacklog)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(pending)
		return w.observe(gctx, fsw, pending)
	})

	g.Go(func() error {
		for path := range pending {
			w.uploadOne(gctx, path)
		}

		return nil
	})

	return g.Wait()
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(fsw FsWatcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if path != dir && skipName(d.Name()) {
			return filepath.SkipDir
		}

		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch: adding %s: %w", path, err)
		}

		return nil
	})
}

// observe collects file events and emits paths that have settled.
func (w *Watcher) observe(ctx context.Context, fsw FsWatcher, pending chan<- string) error {
	lastEvent := make(map[string]time.Time)

	ticker := time.NewTicker(w.opts.Settle / 2) //nolint:mnd // check twice per window
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events():
			if !ok {
				return nil
			}

			w.handleEvent(fsw, ev, lastEvent)

		case err, ok := <-fsw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			now := w.nowFunc()

			for path, t := range lastEvent {
				if now.Sub(t) < w.opts.Settle {
					continue
				}

				delete(lastEvent, path)

				select {
				case pending <- path:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw FsWatcher, ev fsnotify.Event, lastEvent map[string]time.Time) {
	if skipName(filepath.Base(ev.Name)) {
		return
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		delete(lastEvent, ev.Name)
		return
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		w.logger.Debug("stat failed for changed path",
			slog.String("path", ev.Name), slog.String("error", err.Error()))

		return
	}

	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := w.addTree(fsw, ev.Name); err != nil {
				w.logger.Warn("cannot watch new directory",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
		}

		return
	}

	if info.Mode().IsRegular() {
		lastEvent[ev.Name] = w.nowFunc()
	}
}

// uploadOne publishes path into the folder matching its directory.
func (w *Watcher) uploadOne(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	item, err := w.publish(ctx, path)

	if err != nil {
		w.logger.Warn("watched file upload failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	} else {
		w.logger.Info("watched file uploaded",
			slog.String("path", path),
			slog.String("item_id", item.ID),
		)
	}

	if w.opts.OnUpload != nil {
		w.opts.OnUpload(path, item, err)
	}
}

func (w *Watcher) publish(ctx context.Context, path string) (*dm.Item, error) {
	rel, err := filepath.Rel(w.opts.Root, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("watch: relative path of %s: %w", path, err)
	}

	folderID := w.opts.FolderID

	if rel = filepath.ToSlash(rel); rel != "." {
		if w.folders == nil {
			return nil, errors.New("watch: subdirectory uploads need a folder ensurer")
		}

		f, err := w.folders.EnsurePath(ctx, w.opts.ProjectID, folderID, rel)
		if err != nil {
			return nil, err
		}

		folderID = f.ID
	}

	return w.up.UploadFile(ctx, w.opts.ProjectID, folderID, path, "", "")
}

// skipName reports names never uploaded: hidden files and editor or
// download temporaries.
func skipName(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return true
	}

	for _, suffix := range []string{"~", ".tmp", ".swp", ".partial", ".crdownload"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}
