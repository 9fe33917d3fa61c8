package media

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures the object-storage client
type MinioConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PublicURL string
}

// MinioStore is the S3-compatible BlobStore implementation
type MinioStore struct {
	cl        *minio.Client
	bucket    string
	publicURL string
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioStore{
		cl:        cl,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// parseRange interprets a "bytes=START-END" header against an object of
// totalSize bytes. Open-ended ("bytes=A-") and suffix ("bytes=-N") forms are
// supported; end is clamped to the last byte. ok is false for malformed or
// unsatisfiable ranges, in which case callers serve the full body.
func parseRange(rangeHeader string, totalSize int64) (start, end int64, ok bool) {
	if !strings.HasPrefix(rangeHeader, "bytes=") || totalSize <= 0 {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(rangeHeader, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	switch {
	case parts[0] != "" && parts[1] != "":
		if a, e1 := strconv.ParseInt(parts[0], 10, 64); e1 == nil {
			if b, e2 := strconv.ParseInt(parts[1], 10, 64); e2 == nil && a >= 0 && b >= a {
				start, end, ok = a, b, true
			}
		}

	case parts[0] != "" && parts[1] == "":
		if a, e := strconv.ParseInt(parts[0], 10, 64); e == nil && a >= 0 {
			start, end, ok = a, totalSize-1, true
		}

	case parts[0] == "" && parts[1] != "":
		if n, e := strconv.ParseInt(parts[1], 10, 64); e == nil && n > 0 {
			if n > totalSize {
				n = totalSize
			}
			start, end, ok = totalSize-n, totalSize-1, true
		}
	}

	if !ok || start >= totalSize {
		return 0, 0, false
	}
	if end >= totalSize {
		end = totalSize - 1
	}
	return start, end, true
}

// Get opens the object, applying a "bytes=START-END" range when requested.
// Malformed or unsatisfiable ranges fall back to the full body.
func (s *MinioStore) Get(ctx context.Context, key, rangeHeader string) (io.ReadCloser, int64, string, string, error) {
	info, err := s.cl.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, "", "", err
	}
	totalSize := info.Size
	contentType := info.ContentType

	start, end, useRange := parseRange(rangeHeader, totalSize)

	opts := minio.GetObjectOptions{}
	contentLen := totalSize
	contentRange := ""
	if useRange {
		// SetRange takes inclusive bounds [start, end]
		if e := opts.SetRange(start, end); e != nil {
			return nil, 0, "", "", e
		}
		contentLen = end - start + 1
		contentRange = fmt.Sprintf("bytes %d-%d/%d", start, end, totalSize)
	}

	obj, err := s.cl.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, 0, "", "", err
	}

	return obj, contentLen, contentRange, contentType, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) PublicURL(key string) string {
	return s.publicURL + "/" + key
}
