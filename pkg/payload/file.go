package payload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is a resolved attachment ready for multipart encoding.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Resolver turns a local file handle (path or file:// URI) into attachment
// content. Implementations run at submission time so drafts can hold cheap
// handles while the user edits.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (File, error)
}

// OSResolver reads attachments from the local filesystem. The filename is the
// handle's last path segment and the content type is inferred from the
// extension, defaulting to application/octet-stream.
type OSResolver struct{}

// Resolve implements Resolver.
func (OSResolver) Resolve(ctx context.Context, handle string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	trimmed := strings.TrimSpace(handle)
	if trimmed == "" {
		return File{}, errors.New("payload: file handle is empty")
	}

	localPath := trimmed
	if strings.HasPrefix(trimmed, "file://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return File{}, fmt.Errorf("payload: parse file uri: %w", err)
		}
		localPath = parsed.Path
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return File{}, fmt.Errorf("payload: read attachment: %w", err)
	}

	name := path.Base(filepath.ToSlash(localPath))
	return File{
		Name:        name,
		ContentType: contentTypeFor(name),
		Content:     content,
	}, nil
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
