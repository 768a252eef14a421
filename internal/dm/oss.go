package dm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonimelisma/apsdm-go/internal/urn"
)

// DefaultSignedURLMinutes is the validity requested for signed upload URLs.
const DefaultSignedURLMinutes = 30

// Bounds accepted by the signed upload endpoint.
const (
	minSignedURLMinutes = 1
	maxSignedURLMinutes = 60
)

const contentTypeOctetStream = "application/octet-stream"

func objectPath(obj urn.ObjectID) string {
	return fmt.Sprintf("/oss/v2/buckets/%s/objects/%s", obj.EscapedBucketKey(), obj.EscapedObjectKey())
}

type signedUploadResponse struct {
	UploadKey        string   `json:"uploadKey"`
	URLs             []string `json:"urls"`
	URLExpiration    string   `json:"urlExpiration"`
	UploadExpiration string   `json:"uploadExpiration"`
}

// SignedUpload requests a single-part signed upload URL for obj, valid for
// minutes (DefaultSignedURLMinutes when zero). The grant cannot be renewed;
// once it expires the upload must start over with a new storage object.
func (c *Client) SignedUpload(ctx context.Context, obj urn.ObjectID, minutes int) (*SignedUpload, error) {
	if minutes == 0 {
		minutes = DefaultSignedURLMinutes
	}

	if minutes < minSignedURLMinutes || minutes > maxSignedURLMinutes {
		return nil, fmt.Errorf("dm: signed URL validity %d minutes outside %d-%d",
			minutes, minSignedURLMinutes, maxSignedURLMinutes)
	}

	path := fmt.Sprintf("%s/signeds3upload?minutesExpiration=%d", objectPath(obj), minutes)

	var sur signedUploadResponse
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &sur); err != nil {
		return nil, fmt.Errorf("dm: requesting signed upload for %s: %w", obj, err)
	}

	if len(sur.URLs) == 0 || sur.UploadKey == "" {
		return nil, fmt.Errorf("dm: signed upload response for %s missing url or upload key", obj)
	}

	su := &SignedUpload{
		URL:              sur.URLs[0],
		UploadKey:        sur.UploadKey,
		ExpiresInMinutes: minutes,
	}

	if t, err := time.Parse(time.RFC3339, sur.URLExpiration); err == nil {
		su.ExpiresAt = t
	}

	// Never log the URL: it is a bearer credential for the object.
	c.logger.Debug("signed upload granted",
		slog.String("bucket", obj.BucketKey),
		slog.Int("minutes", minutes),
	)

	return su, nil
}

// PutSigned uploads body to a signed URL in a single PUT. The request
// carries no Authorization header; the URL itself authorizes it, and object
// storage rejects requests that carry a second credential.
func (c *Client) PutSigned(ctx context.Context, signedURL, contentType string, body io.Reader, size int64) error {
	if contentType == "" {
		contentType = contentTypeOctetStream
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return fmt.Errorf("dm: creating signed upload request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	c.logger.Info("uploading to signed URL",
		slog.Int64("size", size),
		slog.String("content_type", contentType),
	)

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return fmt.Errorf("dm: signed upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	return nil
}

type completeUploadRequest struct {
	UploadKey string `json:"uploadKey"`
}

type completeUploadResponse struct {
	BucketKey   string `json:"bucketKey"`
	ObjectID    string `json:"objectId"`
	ObjectKey   string `json:"objectKey"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Location    string `json:"location"`
}

// CompleteUpload finalizes a signed upload. uploadKey must be the key
// returned with the grant; an empty key would leave the upload open.
func (c *Client) CompleteUpload(ctx context.Context, obj urn.ObjectID, uploadKey string) (*StorageObject, error) {
	if uploadKey == "" {
		return nil, fmt.Errorf("dm: completing upload of %s: empty upload key", obj)
	}

	path := objectPath(obj) + "/signeds3upload"

	var cur completeUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, path, contentTypeJSON, completeUploadRequest{UploadKey: uploadKey}, &cur); err != nil {
		return nil, fmt.Errorf("dm: completing upload of %s: %w", obj, err)
	}

	c.logger.Info("upload finalized",
		slog.String("storage_id", obj.String()),
		slog.Int64("size", cur.Size),
	)

	id := cur.ObjectID
	if id == "" {
		id = obj.String()
	}

	return &StorageObject{
		ID:        id,
		BucketKey: obj.BucketKey,
		ObjectKey: obj.ObjectKey,
		Size:      cur.Size,
		Location:  cur.Location,
	}, nil
}

// DeleteObject removes an object from storage.
func (c *Client) DeleteObject(ctx context.Context, obj urn.ObjectID) error {
	if err := c.doJSON(ctx, http.MethodDelete, objectPath(obj), "", nil, nil); err != nil {
		return fmt.Errorf("dm: deleting object %s: %w", obj, err)
	}

	c.logger.Info("storage object deleted", slog.String("storage_id", obj.String()))

	return nil
}
