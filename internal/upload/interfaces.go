package upload

import (
	"context"
	"io"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/urn"
)

// API is the slice of the document-management client the orchestrator
// drives. Satisfied by *dm.Client.
type API interface {
	CreateStorage(ctx context.Context, projectID, folderID, name string) (*dm.StorageObject, error)
	SignedUpload(ctx context.Context, obj urn.ObjectID, minutes int) (*dm.SignedUpload, error)
	PutSigned(ctx context.Context, signedURL, contentType string, body io.Reader, size int64) error
	CompleteUpload(ctx context.Context, obj urn.ObjectID, uploadKey string) (*dm.StorageObject, error)
	GetFolder(ctx context.Context, projectID, folderID string) (*dm.Folder, error)
	FolderContents(ctx context.Context, projectID, folderID string) (*dm.Contents, error)
	CreateItem(ctx context.Context, projectID string, req dm.CreateItemRequest) (*dm.Item, error)
	CreateVersion(ctx context.Context, projectID string, req dm.CreateVersionRequest) (*dm.Version, error)
}

// ObjectDeleter removes storage objects. Satisfied by *dm.Client.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, obj urn.ObjectID) error
}

// Recorder observes attempt state. Begin is called once before the first
// stage, Advance after every completed stage, Fail when a stage aborts the
// attempt. Recorder errors are logged and never fail the upload.
type Recorder interface {
	Begin(ctx context.Context, a *Attempt) error
	Advance(ctx context.Context, a *Attempt) error
	Fail(ctx context.Context, a *Attempt, stage Stage, cause error) error
}
