package media

import (
	"context"
	"io"
)

// BlobStore is the object-storage collaborator behind uploads and the
// download proxy.
type BlobStore interface {
	// Put streams an object; size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens an object for reading, honoring an optional byte-range header
	// ("bytes=START-END"). contentRange is empty when no range was applied.
	Get(ctx context.Context, key, rangeHeader string) (rc io.ReadCloser, contentLen int64, contentRange, contentType string, err error)
	Delete(ctx context.Context, key string) error
	// PublicURL returns the stable URL clients use to reach the object.
	PublicURL(key string) string
}

// UploadResult is what note creation persists: the stable file URL plus the
// storage-internal identifiers, and an optional thumbnail. Thumbnail fields
// are empty whenever derivation failed or was skipped; that is never an error.
type UploadResult struct {
	FileURL      string                 `json:"fileUrl"`
	FileType     string                 `json:"fileType"`
	FileKey      string                 `json:"fileKey,omitempty"`
	ThumbnailURL string                 `json:"thumbnailUrl,omitempty"`
	ThumbnailKey string                 `json:"thumbnailKey,omitempty"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}
