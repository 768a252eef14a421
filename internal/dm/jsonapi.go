package dm

import (
	"encoding/json"
	"log/slog"
	"time"
)

// jsonAPIVersion is the "jsonapi" member sent with every request document.
var jsonAPIVersion = jsonAPIMember{Version: "1.0"}

type jsonAPIMember struct {
	Version string `json:"version"`
}

// document is a JSON:API request body. Included resources are created in the
// same transaction as the primary data.
type document struct {
	JSONAPI  jsonAPIMember    `json:"jsonapi"`
	Data     resourceObject   `json:"data"`
	Included []resourceObject `json:"included,omitempty"`
}

func newDocument(data resourceObject, included ...resourceObject) document {
	return document{JSONAPI: jsonAPIVersion, Data: data, Included: included}
}

type resourceObject struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    any                     `json:"attributes,omitempty"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

type relationship struct {
	Data resourceIdentifier `json:"data"`
}

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func relTo(typ, id string) relationship {
	return relationship{Data: resourceIdentifier{Type: typ, ID: id}}
}

// extensionObject is the "extension" attribute. Type carries the kind.
type extensionObject struct {
	Type    string         `json:"type"`
	Version string         `json:"version"`
	Data    map[string]any `json:"data,omitempty"`
}

const extensionVersion = "1.0"

func newExtension(typ string) *extensionObject {
	return &extensionObject{Type: typ, Version: extensionVersion}
}

// Resource type names.
const (
	typeHubs     = "hubs"
	typeProjects = "projects"
	typeFolders  = "folders"
	typeItems    = "items"
	typeVersions = "versions"
	typeObjects  = "objects"
)

// Response side. Relationship data stays raw because to-many relationships
// carry arrays or only links; only to-one identifiers are read.

type singleResponse struct {
	Data     resourceResponse   `json:"data"`
	Included []resourceResponse `json:"included"`
}

type listResponse struct {
	Data     []resourceResponse `json:"data"`
	Included []resourceResponse `json:"included"`
	Links    struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"links"`
}

type resourceResponse struct {
	Type          string                          `json:"type"`
	ID            string                          `json:"id"`
	Attributes    resourceAttributes              `json:"attributes"`
	Relationships map[string]relationshipResponse `json:"relationships"`
}

type resourceAttributes struct {
	Name             string          `json:"name"`
	DisplayName      string          `json:"displayName"`
	CreateTime       string          `json:"createTime"`
	LastModifiedTime string          `json:"lastModifiedTime"`
	ObjectCount      int             `json:"objectCount"`
	Hidden           bool            `json:"hidden"`
	VersionNumber    int             `json:"versionNumber"`
	StorageSize      int64           `json:"storageSize"`
	FileType         string          `json:"fileType"`
	Region           string          `json:"region"`
	Extension        extensionObject `json:"extension"`
}

type relationshipResponse struct {
	Data json.RawMessage `json:"data"`
}

// related returns the id of a to-one relationship, or "" when absent or
// not a single identifier.
func (r *resourceResponse) related(name string) string {
	rel, ok := r.Relationships[name]
	if !ok || len(rel.Data) == 0 {
		return ""
	}

	var ri resourceIdentifier
	if err := json.Unmarshal(rel.Data, &ri); err != nil {
		return ""
	}

	return ri.ID
}

// warnIfTruncated logs when a collection has further pages. Pages beyond the
// first are not followed.
func (l *listResponse) warnIfTruncated(logger *slog.Logger, path string) {
	if l.Links.Next != nil && l.Links.Next.Href != "" {
		logger.Warn("collection has more pages than returned",
			slog.String("path", path),
			slog.Int("returned", len(l.Data)),
		)
	}
}

// parseTimestamp parses an RFC3339 timestamp, returning the zero time for
// empty or malformed values.
func parseTimestamp(raw, field, id string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp",
			slog.String("field", field),
			slog.String("id", id),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t
}
