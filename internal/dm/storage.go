package dm

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tonimelisma/apsdm-go/internal/urn"
)

type storageAttributes struct {
	Name string `json:"name"`
}

// CreateStorage reserves a storage object named name in the bucket backing
// folderID. The returned ID is a storage-object URN.
func (c *Client) CreateStorage(ctx context.Context, projectID, folderID, name string) (*StorageObject, error) {
	doc := newDocument(resourceObject{
		Type:       typeObjects,
		Attributes: storageAttributes{Name: name},
		Relationships: map[string]relationship{
			"target": relTo(typeFolders, folderID),
		},
	})

	path := fmt.Sprintf("/data/v1/projects/%s/storage", url.PathEscape(projectID))

	var sr singleResponse
	if err := c.postJSONAPI(ctx, path, doc, &sr); err != nil {
		return nil, fmt.Errorf("dm: creating storage for %q: %w", name, err)
	}

	obj, err := urn.Parse(sr.Data.ID)
	if err != nil {
		return nil, fmt.Errorf("dm: storage response: %w", err)
	}

	c.logger.Info("storage object reserved",
		slog.String("storage_id", sr.Data.ID),
		slog.String("name", name),
	)

	return &StorageObject{
		ID:        sr.Data.ID,
		BucketKey: obj.BucketKey,
		ObjectKey: obj.ObjectKey,
	}, nil
}
