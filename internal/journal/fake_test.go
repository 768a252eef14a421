package journal

import (
	"context"
	"errors"
	"io"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/urn"
)

var errDenied = errors.New("denied")

// failingAPI rejects every call.
type failingAPI struct{}

func (failingAPI) CreateStorage(context.Context, string, string, string) (*dm.StorageObject, error) {
	return nil, errDenied
}

func (failingAPI) SignedUpload(context.Context, urn.ObjectID, int) (*dm.SignedUpload, error) {
	return nil, errDenied
}

func (failingAPI) PutSigned(context.Context, string, string, io.Reader, int64) error {
	return errDenied
}

func (failingAPI) CompleteUpload(context.Context, urn.ObjectID, string) (*dm.StorageObject, error) {
	return nil, errDenied
}

func (failingAPI) GetFolder(context.Context, string, string) (*dm.Folder, error) {
	return nil, errDenied
}

func (failingAPI) FolderContents(context.Context, string, string) (*dm.Contents, error) {
	return nil, errDenied
}

func (failingAPI) CreateItem(context.Context, string, dm.CreateItemRequest) (*dm.Item, error) {
	return nil, errDenied
}

func (failingAPI) CreateVersion(context.Context, string, dm.CreateVersionRequest) (*dm.Version, error) {
	return nil, errDenied
}
