package dm

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

func (r *resourceResponse) toHub() Hub {
	return Hub{
		ID:            r.ID,
		Name:          r.Attributes.Name,
		Region:        r.Attributes.Region,
		ExtensionType: r.Attributes.Extension.Type,
	}
}

func (r *resourceResponse) toProject() Project {
	return Project{
		ID:            r.ID,
		Name:          r.Attributes.Name,
		HubID:         r.related("hub"),
		RootFolderID:  r.related("rootFolder"),
		ExtensionType: r.Attributes.Extension.Type,
	}
}

// Hubs lists the hubs the token can access.
func (c *Client) Hubs(ctx context.Context) ([]Hub, error) {
	const path = "/project/v1/hubs"

	var lr listResponse
	if err := c.getJSONAPI(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("dm: listing hubs: %w", err)
	}

	lr.warnIfTruncated(c.logger, path)

	hubs := make([]Hub, 0, len(lr.Data))
	for i := range lr.Data {
		hubs = append(hubs, lr.Data[i].toHub())
	}

	c.logger.Debug("listed hubs", slog.Int("count", len(hubs)))

	return hubs, nil
}

// Projects lists the projects of a hub.
func (c *Client) Projects(ctx context.Context, hubID string) ([]Project, error) {
	path := fmt.Sprintf("/project/v1/hubs/%s/projects", url.PathEscape(hubID))

	var lr listResponse
	if err := c.getJSONAPI(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("dm: listing projects of hub %s: %w", hubID, err)
	}

	lr.warnIfTruncated(c.logger, path)

	projects := make([]Project, 0, len(lr.Data))
	for i := range lr.Data {
		projects = append(projects, lr.Data[i].toProject())
	}

	return projects, nil
}

// Project fetches a single project.
func (c *Client) Project(ctx context.Context, hubID, projectID string) (*Project, error) {
	path := fmt.Sprintf("/project/v1/hubs/%s/projects/%s", url.PathEscape(hubID), url.PathEscape(projectID))

	var sr singleResponse
	if err := c.getJSONAPI(ctx, path, &sr); err != nil {
		return nil, fmt.Errorf("dm: getting project %s: %w", projectID, err)
	}

	p := sr.Data.toProject()

	return &p, nil
}

// TopFolders lists the entry points of a project's folder tree that the
// token can see.
func (c *Client) TopFolders(ctx context.Context, hubID, projectID string) ([]Folder, error) {
	path := fmt.Sprintf("/project/v1/hubs/%s/projects/%s/topFolders", url.PathEscape(hubID), url.PathEscape(projectID))

	var lr listResponse
	if err := c.getJSONAPI(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("dm: listing top folders of project %s: %w", projectID, err)
	}

	folders := make([]Folder, 0, len(lr.Data))
	for i := range lr.Data {
		folders = append(folders, lr.Data[i].toFolder(c.logger))
	}

	return folders, nil
}
