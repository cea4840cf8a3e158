// Package media stores uploaded files in a public Google Cloud Storage bucket.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

type Object struct {
	Filename    string
	Path        string
	PublicURL   string
	Size        int64
	ContentType string
}

type GCSStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSStore uses application default credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, now: time.Now}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// ObjectName prefixes the client's file name with the upload time so repeated
// uploads of the same file never collide.
func ObjectName(original string, now time.Time) (filename, objectPath string) {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	filename = now.UTC().Format("20060102_150405") + "_" + base
	return filename, "media/" + filename
}

func (s *GCSStore) PublicURL(objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectPath)
}

// Upload streams r into the bucket with a public-read ACL.
func (s *GCSStore) Upload(ctx context.Context, original, contentType string, r io.Reader) (Object, error) {
	filename, objectPath := ObjectName(original, s.now())
	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.PredefinedACL = "publicRead"

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("gcs close failed: %w", err)
	}
	return Object{
		Filename:    filename,
		Path:        objectPath,
		PublicURL:   s.PublicURL(objectPath),
		Size:        n,
		ContentType: contentType,
	}, nil
}
