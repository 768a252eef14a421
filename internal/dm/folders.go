package dm

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

func (r *resourceResponse) toFolder(logger *slog.Logger) Folder {
	return Folder{
		ID:            r.ID,
		Name:          r.Attributes.Name,
		DisplayName:   r.Attributes.DisplayName,
		ParentID:      r.related("parent"),
		ExtensionType: r.Attributes.Extension.Type,
		ObjectCount:   r.Attributes.ObjectCount,
		Hidden:        r.Attributes.Hidden,
		CreatedAt:     parseTimestamp(r.Attributes.CreateTime, "createTime", r.ID, logger),
		ModifiedAt:    parseTimestamp(r.Attributes.LastModifiedTime, "lastModifiedTime", r.ID, logger),
	}
}

func folderPath(projectID, folderID string) string {
	return fmt.Sprintf("/data/v1/projects/%s/folders/%s", url.PathEscape(projectID), url.PathEscape(folderID))
}

// GetFolder fetches a folder. The extension type of the result decides the
// kind of anything created beneath it.
func (c *Client) GetFolder(ctx context.Context, projectID, folderID string) (*Folder, error) {
	var sr singleResponse
	if err := c.getJSONAPI(ctx, folderPath(projectID, folderID), &sr); err != nil {
		return nil, fmt.Errorf("dm: getting folder %s: %w", folderID, err)
	}

	f := sr.Data.toFolder(c.logger)

	return &f, nil
}

// FolderContents lists the folders and items directly inside a folder.
// Only the first page is returned.
func (c *Client) FolderContents(ctx context.Context, projectID, folderID string) (*Contents, error) {
	path := folderPath(projectID, folderID) + "/contents"

	var lr listResponse
	if err := c.getJSONAPI(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("dm: listing contents of folder %s: %w", folderID, err)
	}

	lr.warnIfTruncated(c.logger, path)

	out := &Contents{}

	for i := range lr.Data {
		switch lr.Data[i].Type {
		case typeFolders:
			out.Folders = append(out.Folders, lr.Data[i].toFolder(c.logger))
		case typeItems:
			out.Items = append(out.Items, lr.Data[i].toItem(c.logger))
		}
	}

	c.logger.Debug("listed folder contents",
		slog.String("folder_id", folderID),
		slog.Int("folders", len(out.Folders)),
		slog.Int("items", len(out.Items)),
	)

	return out, nil
}

// Subfolders lists only the folders directly inside a folder.
func (c *Client) Subfolders(ctx context.Context, projectID, folderID string) ([]Folder, error) {
	contents, err := c.FolderContents(ctx, projectID, folderID)
	if err != nil {
		return nil, err
	}

	return contents.Folders, nil
}

// SearchFolder finds items by display name in a folder and its subfolders.
func (c *Client) SearchFolder(ctx context.Context, projectID, folderID, displayName string) ([]Item, error) {
	q := url.Values{}
	q.Set("filter[attributes.displayName]", displayName)

	path := folderPath(projectID, folderID) + "/search?" + q.Encode()

	var lr listResponse
	if err := c.getJSONAPI(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("dm: searching folder %s: %w", folderID, err)
	}

	// Search returns versions; each one's item relationship identifies the hit.
	items := make([]Item, 0, len(lr.Data))
	seen := make(map[string]bool)

	for i := range lr.Data {
		r := &lr.Data[i]

		switch r.Type {
		case typeItems:
			if !seen[r.ID] {
				seen[r.ID] = true
				items = append(items, r.toItem(c.logger))
			}
		case typeVersions:
			v := r.toVersion(c.logger)
			if v.ItemID == "" || seen[v.ItemID] {
				continue
			}

			seen[v.ItemID] = true
			items = append(items, Item{
				ID:           v.ItemID,
				DisplayName:  v.DisplayName,
				TipVersionID: v.ID,
				Versions:     []Version{v},
			})
		}
	}

	return items, nil
}

// CreateFolderRequest describes a folder to create. ExtensionType must match
// the parent's kind; see TypeResolver.
type CreateFolderRequest struct {
	ParentID      string
	Name          string
	ExtensionType string
}

type folderAttributes struct {
	Name      string           `json:"name"`
	Extension *extensionObject `json:"extension"`
}

// CreateFolder creates a folder under req.ParentID.
func (c *Client) CreateFolder(ctx context.Context, projectID string, req CreateFolderRequest) (*Folder, error) {
	doc := newDocument(resourceObject{
		Type: typeFolders,
		Attributes: folderAttributes{
			Name:      req.Name,
			Extension: newExtension(req.ExtensionType),
		},
		Relationships: map[string]relationship{
			"parent": relTo(typeFolders, req.ParentID),
		},
	})

	c.logger.Info("creating folder",
		slog.String("parent_id", req.ParentID),
		slog.String("name", req.Name),
		slog.String("extension_type", req.ExtensionType),
	)

	path := fmt.Sprintf("/data/v1/projects/%s/folders", url.PathEscape(projectID))

	var sr singleResponse
	if err := c.postJSONAPI(ctx, path, doc, &sr); err != nil {
		return nil, fmt.Errorf("dm: creating folder %q: %w", req.Name, err)
	}

	f := sr.Data.toFolder(c.logger)

	return &f, nil
}
