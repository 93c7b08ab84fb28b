// Package gcsuploader archives uploaded documents in Google Cloud Storage.
package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// GCSFileStore writes and reads documents in one bucket.
// It assumes Application Default Credentials are configured.
type GCSFileStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSFileStore creates a store for bucket.
func NewGCSFileStore(ctx context.Context, bucket string) (*GCSFileStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSFileStore: bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSFileStore: create storage client: %w", err)
	}
	return &GCSFileStore{client: client, bucket: bucket, now: time.Now}, nil
}

// Close closes the storage client.
func (s *GCSFileStore) Close() error {
	return s.client.Close()
}

// Archive stores an uploaded document under the application's prefix and
// returns its gs:// URI.
func (s *GCSFileStore) Archive(ctx context.Context, applicationID, category, fileName string, data []byte) (string, error) {
	object := ObjectName(applicationID, category, fileName, s.now())
	if err := s.write(ctx, object, ContentType(fileName), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("Archive: %w", err)
	}
	return "gs://" + s.bucket + "/" + object, nil
}

// UploadFile uploads a local file under objectName and returns its URI. An
// empty objectName uses the file's base name.
func (s *GCSFileStore) UploadFile(ctx context.Context, objectName, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	if objectName == "" {
		objectName = path.Base(filePath)
	}
	if err := s.write(ctx, objectName, ContentType(filePath), f); err != nil {
		return "", fmt.Errorf("UploadFile: %w", err)
	}
	return "gs://" + s.bucket + "/" + objectName, nil
}

func (s *GCSFileStore) write(ctx context.Context, object, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Fetch downloads the object behind a gs:// URI.
func (s *GCSFileStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}
