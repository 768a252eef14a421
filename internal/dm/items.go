package dm

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

func (r *resourceResponse) toItem(logger *slog.Logger) Item {
	return Item{
		ID:            r.ID,
		DisplayName:   r.Attributes.DisplayName,
		ParentID:      r.related("parent"),
		TipVersionID:  r.related("tip"),
		ExtensionType: r.Attributes.Extension.Type,
		CreatedAt:     parseTimestamp(r.Attributes.CreateTime, "createTime", r.ID, logger),
		ModifiedAt:    parseTimestamp(r.Attributes.LastModifiedTime, "lastModifiedTime", r.ID, logger),
	}
}

func (r *resourceResponse) toVersion(logger *slog.Logger) Version {
	return Version{
		ID:            r.ID,
		Name:          r.Attributes.Name,
		DisplayName:   r.Attributes.DisplayName,
		ItemID:        r.related("item"),
		StorageID:     r.related("storage"),
		ExtensionType: r.Attributes.Extension.Type,
		VersionNumber: r.Attributes.VersionNumber,
		StorageSize:   r.Attributes.StorageSize,
		FileType:      r.Attributes.FileType,
		CreatedAt:     parseTimestamp(r.Attributes.CreateTime, "createTime", r.ID, logger),
	}
}

// itemFromResponse builds an Item and attaches the versions in included.
func (c *Client) itemFromResponse(sr *singleResponse) *Item {
	item := sr.Data.toItem(c.logger)

	for i := range sr.Included {
		if sr.Included[i].Type == typeVersions {
			item.Versions = append(item.Versions, sr.Included[i].toVersion(c.logger))
		}
	}

	return &item
}

// GetItem fetches an item with its tip version.
func (c *Client) GetItem(ctx context.Context, projectID, itemID string) (*Item, error) {
	path := fmt.Sprintf("/data/v1/projects/%s/items/%s", url.PathEscape(projectID), url.PathEscape(itemID))

	var sr singleResponse
	if err := c.getJSONAPI(ctx, path, &sr); err != nil {
		return nil, fmt.Errorf("dm: getting item %s: %w", itemID, err)
	}

	return c.itemFromResponse(&sr), nil
}

// ItemVersions lists the versions of an item, newest first.
func (c *Client) ItemVersions(ctx context.Context, projectID, itemID string) ([]Version, error) {
	path := fmt.Sprintf("/data/v1/projects/%s/items/%s/versions", url.PathEscape(projectID), url.PathEscape(itemID))

	var lr listResponse
	if err := c.getJSONAPI(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("dm: listing versions of item %s: %w", itemID, err)
	}

	lr.warnIfTruncated(c.logger, path)

	versions := make([]Version, 0, len(lr.Data))
	for i := range lr.Data {
		versions = append(versions, lr.Data[i].toVersion(c.logger))
	}

	return versions, nil
}

// CreateItemRequest describes a new item and its first version. StorageID
// must reference a finalized storage object.
type CreateItemRequest struct {
	FolderID  string
	FileName  string
	StorageID string
	Types     ChildTypes
}

type itemAttributes struct {
	DisplayName string           `json:"displayName"`
	Extension   *extensionObject `json:"extension"`
}

type versionAttributes struct {
	Name      string           `json:"name"`
	Extension *extensionObject `json:"extension"`
}

// versionRefID is the document-local id linking the item's tip to the
// included version.
const versionRefID = "1"

// CreateItem creates an item and its first version in one request: the
// item is the primary data and the version is included, so the service
// treats both as one transaction.
func (c *Client) CreateItem(ctx context.Context, projectID string, req CreateItemRequest) (*Item, error) {
	doc := newDocument(
		resourceObject{
			Type: typeItems,
			Attributes: itemAttributes{
				DisplayName: req.FileName,
				Extension:   newExtension(req.Types.Item),
			},
			Relationships: map[string]relationship{
				"tip":    relTo(typeVersions, versionRefID),
				"parent": relTo(typeFolders, req.FolderID),
			},
		},
		resourceObject{
			Type: typeVersions,
			ID:   versionRefID,
			Attributes: versionAttributes{
				Name:      req.FileName,
				Extension: newExtension(req.Types.Version),
			},
			Relationships: map[string]relationship{
				"storage": relTo(typeObjects, req.StorageID),
			},
		},
	)

	c.logger.Info("creating item",
		slog.String("folder_id", req.FolderID),
		slog.String("name", req.FileName),
		slog.String("item_type", req.Types.Item),
	)

	path := fmt.Sprintf("/data/v1/projects/%s/items", url.PathEscape(projectID))

	var sr singleResponse
	if err := c.postJSONAPI(ctx, path, doc, &sr); err != nil {
		return nil, fmt.Errorf("dm: creating item %q: %w", req.FileName, err)
	}

	return c.itemFromResponse(&sr), nil
}

// CreateVersionRequest describes a new version of an existing item.
type CreateVersionRequest struct {
	ItemID      string
	FileName    string
	StorageID   string
	VersionType string
}

// CreateVersion adds a version to an existing item.
func (c *Client) CreateVersion(ctx context.Context, projectID string, req CreateVersionRequest) (*Version, error) {
	doc := newDocument(resourceObject{
		Type: typeVersions,
		Attributes: versionAttributes{
			Name:      req.FileName,
			Extension: newExtension(req.VersionType),
		},
		Relationships: map[string]relationship{
			"item":    relTo(typeItems, req.ItemID),
			"storage": relTo(typeObjects, req.StorageID),
		},
	})

	c.logger.Info("creating version",
		slog.String("item_id", req.ItemID),
		slog.String("name", req.FileName),
	)

	path := fmt.Sprintf("/data/v1/projects/%s/versions", url.PathEscape(projectID))

	var sr singleResponse
	if err := c.postJSONAPI(ctx, path, doc, &sr); err != nil {
		return nil, fmt.Errorf("dm: creating version of item %s: %w", req.ItemID, err)
	}

	v := sr.Data.toVersion(c.logger)

	return &v, nil
}
