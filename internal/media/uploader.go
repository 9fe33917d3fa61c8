package media

import (
	"context"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/noteshare-io/noteshare/internal/types"
)

// acceptedTypes are the declared MIME types allowed through the adapter
var acceptedTypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

// Uploader sends PDF binaries to the blob store and eagerly derives a
// first-page thumbnail. Thumbnail derivation is best effort: any failure
// leaves the thumbnail fields empty and never fails the upload.
type Uploader struct {
	Blobs  BlobStore
	Raster Rasterizer
	// DisableLocalRaster skips thumbnail work entirely, for environments that
	// disallow local file operations.
	DisableLocalRaster bool
	// Timeout bounds each storage call; zero means 30s.
	Timeout time.Duration
}

func (u *Uploader) callTimeout() time.Duration {
	if u.Timeout > 0 {
		return u.Timeout
	}
	return 30 * time.Second
}

// Upload validates the declared MIME type, stores the binary, and attempts
// the thumbnail. The returned result always has FileURL and FileKey set on
// success; thumbnail fields may be empty.
func (u *Uploader) Upload(ctx context.Context, r io.Reader, filename, declaredType string) (UploadResult, error) {
	declaredType = strings.ToLower(strings.TrimSpace(declaredType))
	if !acceptedTypes[declaredType] {
		return UploadResult{}, types.ValidationError("Only PDF uploads are accepted")
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	id := uuid.NewString()
	fileKey := "notes/" + id + ext

	result := UploadResult{
		FileType: declaredType,
		FileKey:  fileKey,
		Meta: map[string]interface{}{
			"originalName": filename,
		},
	}

	if u.DisableLocalRaster {
		// No local file work allowed: stream straight through, no thumbnail.
		putCtx, cancel := context.WithTimeout(ctx, u.callTimeout())
		defer cancel()
		if err := u.Blobs.Put(putCtx, fileKey, r, -1, declaredType); err != nil {
			log.Printf("Upload to storage failed for %s: %v", fileKey, err)
			return UploadResult{}, types.UpstreamError("File upload failed")
		}
		result.FileURL = u.Blobs.PublicURL(fileKey)
		return result, nil
	}

	// Spool to a temp file so the same bytes can be uploaded and rasterized.
	// The temp file is removed on every exit path.
	tmp, err := os.CreateTemp("", "noteshare-*.pdf")
	if err != nil {
		log.Printf("Upload temp file failed: %v", err)
		return UploadResult{}, types.UpstreamError("File upload failed")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Printf("Upload spool failed: %v", err)
		return UploadResult{}, types.UpstreamError("File upload failed")
	}
	result.Meta["size"] = size

	src, err := os.Open(tmpPath)
	if err != nil {
		log.Printf("Upload spool reopen failed: %v", err)
		return UploadResult{}, types.UpstreamError("File upload failed")
	}
	putCtx, cancel := context.WithTimeout(ctx, u.callTimeout())
	err = u.Blobs.Put(putCtx, fileKey, src, size, declaredType)
	cancel()
	src.Close()
	if err != nil {
		log.Printf("Upload to storage failed for %s: %v", fileKey, err)
		return UploadResult{}, types.UpstreamError("File upload failed")
	}
	result.FileURL = u.Blobs.PublicURL(fileKey)

	thumbURL, thumbKey := u.deriveThumbnail(ctx, tmpPath, id)
	result.ThumbnailURL = thumbURL
	result.ThumbnailKey = thumbKey

	return result, nil
}

// deriveThumbnail renders page one to a PNG and uploads it. Returns empty
// strings on any failure; the caller treats that as "no thumbnail".
func (u *Uploader) deriveThumbnail(ctx context.Context, pdfPath, id string) (string, string) {
	if u.Raster == nil {
		return "", ""
	}

	pngTmp, err := os.CreateTemp("", "noteshare-thumb-*.png")
	if err != nil {
		log.Printf("Thumbnail temp file failed: %v", err)
		return "", ""
	}
	pngPath := pngTmp.Name()
	pngTmp.Close()
	defer os.Remove(pngPath)

	if err := u.Raster.RenderPage(pdfPath, pngPath, 0); err != nil {
		log.Printf("Thumbnail rasterization failed: %v", err)
		return "", ""
	}

	src, err := os.Open(pngPath)
	if err != nil {
		log.Printf("Thumbnail open failed: %v", err)
		return "", ""
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		log.Printf("Thumbnail stat failed: %v", err)
		return "", ""
	}

	thumbKey := "thumbs/" + id + ".png"
	putCtx, cancel := context.WithTimeout(ctx, u.callTimeout())
	defer cancel()
	if err := u.Blobs.Put(putCtx, thumbKey, src, info.Size(), "image/png"); err != nil {
		log.Printf("Thumbnail upload failed: %v", err)
		return "", ""
	}

	return u.Blobs.PublicURL(thumbKey), thumbKey
}
