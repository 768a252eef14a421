// Package journal records upload attempts in a local SQLite database so
// aborted uploads and the storage objects they orphaned can be listed later.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tonimelisma/apsdm-go/internal/upload"
)

const (
	sqlBegin = `INSERT INTO upload_attempts
		(id, project_id, folder_id, file_name, content_type, size, state, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlAdvance = `UPDATE upload_attempts SET
		state = ?, storage_id = ?, item_id = ?, version_id = ?, updated_at = ?
		WHERE id = ?`

	sqlFail = `UPDATE upload_attempts SET
		state = ?, storage_id = ?, failed_stage = ?, error = ?, updated_at = ?
		WHERE id = ?`

	sqlSelect = `SELECT id, project_id, folder_id, file_name, content_type, size, state,
		storage_id, item_id, version_id, failed_stage, error, started_at, updated_at
		FROM upload_attempts`

	// Orphans: reserved storage, never published.
	sqlOrphanFilter = ` WHERE storage_id IS NOT NULL AND state != 'published'`

	sqlOrder = ` ORDER BY started_at DESC, id LIMIT ?`
)

// Entry is a recorded upload attempt.
type Entry struct {
	ID          string
	ProjectID   string
	FolderID    string
	FileName    string
	ContentType string
	Size        int64
	State       upload.State
	StorageID   string
	ItemID      string
	VersionID   string
	FailedStage string // empty unless the attempt aborted
	Error       string
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// Orphaned reports whether the attempt left an unpublished storage object.
func (e *Entry) Orphaned() bool {
	return e.StorageID != "" && e.State != upload.StatePublished
}

// Journal is an upload.Recorder backed by SQLite.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ upload.Recorder = (*Journal)(nil)

// Open opens or creates the journal database at dbPath and migrates it.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil { //nolint:mnd // owner-only dir perms
		return nil, fmt.Errorf("journal: creating directory for %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database %s: %w", dbPath, err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("journal opened", slog.String("db_path", dbPath))

	return &Journal{db: db, logger: logger}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin implements upload.Recorder.
func (j *Journal) Begin(ctx context.Context, a *upload.Attempt) error {
	_, err := j.db.ExecContext(ctx, sqlBegin,
		a.ID, a.ProjectID, a.FolderID, a.FileName, a.ContentType, a.Size,
		a.State.String(), toNanos(a.StartedAt), toNanos(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("journal: recording start of %s: %w", a.ID, err)
	}

	return nil
}

// Advance implements upload.Recorder.
func (j *Journal) Advance(ctx context.Context, a *upload.Attempt) error {
	var itemID, versionID string
	if a.Item != nil {
		itemID = a.Item.ID
	}

	if a.Version != nil {
		versionID = a.Version.ID
	}

	return j.update(ctx, a.ID, sqlAdvance,
		a.State.String(), nullString(a.StorageID), nullString(itemID), nullString(versionID),
		toNanos(a.UpdatedAt), a.ID,
	)
}

// Fail implements upload.Recorder.
func (j *Journal) Fail(ctx context.Context, a *upload.Attempt, stage upload.Stage, cause error) error {
	return j.update(ctx, a.ID, sqlFail,
		a.State.String(), nullString(a.StorageID), stage.String(), cause.Error(),
		toNanos(a.UpdatedAt), a.ID,
	)
}

func (j *Journal) update(ctx context.Context, id, query string, args ...any) error {
	res, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("journal: updating %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("journal: updating %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("journal: no attempt %s", id)
	}

	return nil
}

// List returns the most recent attempts, newest first. limit <= 0 means 100.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	return j.query(ctx, sqlSelect+sqlOrder, limit)
}

// ListOrphans returns attempts that reserved storage but never published,
// newest first.
func (j *Journal) ListOrphans(ctx context.Context, limit int) ([]Entry, error) {
	return j.query(ctx, sqlSelect+sqlOrphanFilter+sqlOrder, limit)
}

const defaultListLimit = 100

func (j *Journal) query(ctx context.Context, q string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := j.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: listing attempts: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating attempts: %w", err)
	}

	return out, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                                        Entry
		state                                    string
		storageID, itemID, versionID, stage, msg sql.NullString
		started, updated                         int64
	)

	if err := rows.Scan(
		&e.ID, &e.ProjectID, &e.FolderID, &e.FileName, &e.ContentType, &e.Size, &state,
		&storageID, &itemID, &versionID, &stage, &msg, &started, &updated,
	); err != nil {
		return Entry{}, fmt.Errorf("journal: scanning attempt: %w", err)
	}

	s, err := upload.ParseState(state)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: attempt %s: %w", e.ID, err)
	}

	e.State = s
	e.StorageID = storageID.String
	e.ItemID = itemID.String
	e.VersionID = versionID.String
	e.FailedStage = stage.String
	e.Error = msg.String
	e.StartedAt = time.Unix(0, started)
	e.UpdatedAt = time.Unix(0, updated)

	return e, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
