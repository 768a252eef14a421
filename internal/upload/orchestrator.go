package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/urn"
)

// DefaultMaxSize is the largest payload sent in a single signed PUT.
const DefaultMaxSize int64 = 5 << 30

const defaultContentType = "application/octet-stream"

// ConflictMode decides how Publish treats an item with the same name
// already in the folder.
type ConflictMode int

const (
	// ConflictNewItem always creates a new item.
	ConflictNewItem ConflictMode = iota
	// ConflictNewVersion adds a version to a same-named item when one exists.
	ConflictNewVersion
)

// Options configures an Orchestrator. The zero value is usable.
type Options struct {
	// SignedURLMinutes is the validity requested for the upload grant.
	// Zero means dm.DefaultSignedURLMinutes.
	SignedURLMinutes int

	// MaxSize rejects larger payloads before Reserve. Zero means
	// DefaultMaxSize; negative disables the check.
	MaxSize int64

	Conflict ConflictMode

	// Resolver picks item and version types from the target folder.
	Resolver dm.TypeResolver

	// Orphans handles storage left by aborted attempts. nil keeps them.
	Orphans OrphanPolicy

	// Recorder observes attempt transitions. nil records nothing.
	Recorder Recorder
}

// Request is one file to publish.
type Request struct {
	ProjectID   string
	FolderID    string
	FileName    string
	ContentType string // default application/octet-stream
	Body        io.Reader
	Size        int64
}

// Orchestrator runs upload attempts. It holds no per-upload state and is
// safe for concurrent use when its API and Recorder are.
type Orchestrator struct {
	api     API
	opts    Options
	logger  *slog.Logger
	nowFunc func() time.Time
	newID   func() string
}

// NewOrchestrator creates an Orchestrator driving api.
func NewOrchestrator(api API, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.MaxSize == 0 {
		opts.MaxSize = DefaultMaxSize
	}

	if opts.Orphans == nil {
		opts.Orphans = KeepOrphans{Logger: logger}
	}

	if opts.Resolver.Default == dm.KindUnknown {
		opts.Resolver = dm.NewTypeResolver(dm.KindUnknown)
	}

	return &Orchestrator{
		api:     api,
		opts:    opts,
		logger:  logger,
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}
}

// UploadBytes publishes data as fileName in folderID.
func (o *Orchestrator) UploadBytes(
	ctx context.Context, projectID, folderID, fileName string, data []byte, contentType string,
) (*dm.Item, error) {
	return o.Upload(ctx, Request{
		ProjectID:   projectID,
		FolderID:    folderID,
		FileName:    fileName,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
}

// Upload runs the five stages for req and returns the published item. The
// item's Versions holds the version created by this upload. A stage failure
// is returned as a *FailedError; stages are never retried and earlier stages
// are not rolled back.
func (o *Orchestrator) Upload(ctx context.Context, req Request) (*dm.Item, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	if req.ContentType == "" {
		req.ContentType = defaultContentType
	}

	now := o.nowFunc()
	a := &Attempt{
		ID:          o.newID(),
		ProjectID:   req.ProjectID,
		FolderID:    req.FolderID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		State:       StateNew,
		StartedAt:   now,
		UpdatedAt:   now,
	}

	o.logger.Info("upload starting",
		slog.String("attempt_id", a.ID),
		slog.String("project_id", a.ProjectID),
		slog.String("folder_id", a.FolderID),
		slog.String("name", a.FileName),
		slog.Int64("size", a.Size),
	)

	o.record("begin", func(r Recorder) error { return r.Begin(ctx, a) })

	var obj urn.ObjectID

	stages := []struct {
		stage Stage
		run   func() error
	}{
		{StageReserve, func() error { return o.reserve(ctx, a, &obj) }},
		{StageGrant, func() error { return o.grant(ctx, a, obj) }},
		{StageTransfer, func() error { return o.transfer(ctx, a, req.Body) }},
		{StageFinalize, func() error { return o.finalize(ctx, a, obj) }},
		{StagePublish, func() error { return o.publish(ctx, a) }},
	}

	for _, s := range stages {
		if err := s.run(); err != nil {
			return nil, o.abort(ctx, a, s.stage, err)
		}

		a.State = s.stage.reached()
		a.UpdatedAt = o.nowFunc()

		o.logger.Debug("upload stage complete",
			slog.String("attempt_id", a.ID),
			slog.String("stage", s.stage.String()),
		)

		o.record("advance", func(r Recorder) error { return r.Advance(ctx, a) })
	}

	o.logger.Info("upload published",
		slog.String("attempt_id", a.ID),
		slog.String("item_id", a.Item.ID),
		slog.String("storage_id", a.StorageID),
	)

	return a.Item, nil
}

func (o *Orchestrator) validate(req Request) error {
	switch {
	case req.ProjectID == "":
		return errors.New("upload: project id must not be empty")
	case req.FolderID == "":
		return errors.New("upload: folder id must not be empty")
	case req.FileName == "":
		return errors.New("upload: file name must not be empty")
	case req.Body == nil:
		return errors.New("upload: body must not be nil")
	case req.Size < 0:
		return fmt.Errorf("upload: negative size %d", req.Size)
	case o.opts.MaxSize > 0 && req.Size > o.opts.MaxSize:
		return fmt.Errorf("%w: %q is %d bytes, limit %d", ErrTooLarge, req.FileName, req.Size, o.opts.MaxSize)
	}

	return nil
}

func (o *Orchestrator) reserve(ctx context.Context, a *Attempt, obj *urn.ObjectID) error {
	so, err := o.api.CreateStorage(ctx, a.ProjectID, a.FolderID, a.FileName)
	if err != nil {
		return err
	}

	parsed, err := urn.Parse(so.ID)
	if err != nil {
		return err
	}

	a.Storage = so
	a.StorageID = so.ID
	*obj = parsed

	return nil
}

func (o *Orchestrator) grant(ctx context.Context, a *Attempt, obj urn.ObjectID) error {
	g, err := o.api.SignedUpload(ctx, obj, o.opts.SignedURLMinutes)
	if err != nil {
		return err
	}

	if g.UploadKey == "" {
		return errors.New("upload: grant carried no upload key")
	}

	a.Grant = g

	return nil
}

func (o *Orchestrator) transfer(ctx context.Context, a *Attempt, body io.Reader) error {
	if !a.Grant.ExpiresAt.IsZero() && !o.nowFunc().Before(a.Grant.ExpiresAt) {
		return fmt.Errorf("upload: signed URL expired at %s", a.Grant.ExpiresAt.Format(time.RFC3339))
	}

	return o.api.PutSigned(ctx, a.Grant.URL, a.ContentType, body, a.Size)
}

func (o *Orchestrator) finalize(ctx context.Context, a *Attempt, obj urn.ObjectID) error {
	so, err := o.api.CompleteUpload(ctx, obj, a.Grant.UploadKey)
	if err != nil {
		return err
	}

	// Keep the reserved id: the version must reference the object created
	// in Reserve.
	so.ID = a.StorageID
	a.Storage = so

	return nil
}

func (o *Orchestrator) publish(ctx context.Context, a *Attempt) error {
	folder, err := o.api.GetFolder(ctx, a.ProjectID, a.FolderID)
	if err != nil {
		return err
	}

	types := o.opts.Resolver.ChildTypes(folder.ExtensionType)

	o.logger.Debug("resolved child types",
		slog.String("folder_id", a.FolderID),
		slog.String("kind", types.Kind.String()),
	)

	if o.opts.Conflict == ConflictNewVersion {
		existing, err := o.findItem(ctx, a)
		if err != nil {
			return err
		}

		if existing != nil {
			return o.publishVersion(ctx, a, existing, types)
		}
	}

	item, err := o.api.CreateItem(ctx, a.ProjectID, dm.CreateItemRequest{
		FolderID:  a.FolderID,
		FileName:  a.FileName,
		StorageID: a.StorageID,
		Types:     types,
	})
	if err != nil {
		return err
	}

	a.Item = item

	if len(item.Versions) > 0 {
		v := item.Versions[0]
		a.Version = &v
	}

	return nil
}

// findItem returns the item in the target folder named like the upload, or
// nil.
func (o *Orchestrator) findItem(ctx context.Context, a *Attempt) (*dm.Item, error) {
	contents, err := o.api.FolderContents(ctx, a.ProjectID, a.FolderID)
	if err != nil {
		return nil, err
	}

	for i := range contents.Items {
		if contents.Items[i].DisplayName == a.FileName {
			return &contents.Items[i], nil
		}
	}

	return nil, nil
}

func (o *Orchestrator) publishVersion(ctx context.Context, a *Attempt, item *dm.Item, types dm.ChildTypes) error {
	v, err := o.api.CreateVersion(ctx, a.ProjectID, dm.CreateVersionRequest{
		ItemID:      item.ID,
		FileName:    a.FileName,
		StorageID:   a.StorageID,
		VersionType: types.Version,
	})
	if err != nil {
		return err
	}

	published := *item
	published.TipVersionID = v.ID
	published.Versions = []dm.Version{*v}

	a.Item = &published
	a.Version = v

	return nil
}

// abort records the failure, applies the orphan policy, and builds the
// error returned to the caller.
func (o *Orchestrator) abort(ctx context.Context, a *Attempt, stage Stage, cause error) error {
	a.UpdatedAt = o.nowFunc()

	o.logger.Warn("upload aborted",
		slog.String("attempt_id", a.ID),
		slog.String("stage", stage.String()),
		slog.String("state", a.State.String()),
		slog.String("error", cause.Error()),
	)

	// The caller's context may already be done; bookkeeping outlives it.
	cleanupCtx := context.WithoutCancel(ctx)

	o.record("fail", func(r Recorder) error { return r.Fail(cleanupCtx, a, stage, cause) })

	if a.Orphaned() {
		if err := o.opts.Orphans.HandleOrphan(cleanupCtx, a); err != nil {
			o.logger.Warn("orphan policy failed",
				slog.String("attempt_id", a.ID),
				slog.String("storage_id", a.StorageID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &FailedError{Stage: stage, Attempt: a.snapshot(), Err: cause}
}

func (o *Orchestrator) record(op string, fn func(Recorder) error) {
	if o.opts.Recorder == nil {
		return
	}

	if err := fn(o.opts.Recorder); err != nil {
		o.logger.Warn("recording upload attempt",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
}
