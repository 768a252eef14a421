package upload

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

// ContentTypeFor guesses a content type from a file name's extension,
// falling back to application/octet-stream.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}

	return defaultContentType
}

// UploadFile publishes the local file at localPath. name defaults to the
// file's base name and contentType to a guess from its extension.
func (o *Orchestrator) UploadFile(
	ctx context.Context, projectID, folderID, localPath, name, contentType string,
) (*dm.Item, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("upload: opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("upload: stat %s: %w", localPath, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("upload: %s is not a regular file", localPath)
	}

	if name == "" {
		name = filepath.Base(localPath)
	}

	if contentType == "" {
		contentType = ContentTypeFor(name)
	}

	return o.Upload(ctx, Request{
		ProjectID:   projectID,
		FolderID:    folderID,
		FileName:    name,
		ContentType: contentType,
		Body:        f,
		Size:        info.Size(),
	})
}
