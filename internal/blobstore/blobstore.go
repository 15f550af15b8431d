// Package blobstore wraps the S3-compatible object store spec.md §6.5
// requires for uploaded documents. Built on supabase-community/storage-go,
// which the teacher's go.mod already pulled in transitively through
// supabase-go's bundled Storage client (internal/database/supabase.go); here
// it is promoted to a direct dependency and used on its own, the way the
// teacher wraps go-redis/go-redis directly in internal/infra/redis_adapter.go
// rather than through a bigger umbrella client.
package blobstore

import (
	"bytes"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"
)

// Store is the blob-store client documents are uploaded to and read from.
type Store struct {
	client *storage_go.Client
	bucket string
}

func New(endpoint, apiKey, bucket string) *Store {
	return &Store{
		client: storage_go.NewClient(endpoint, apiKey, nil),
		bucket: bucket,
	}
}

// Put uploads content at key (application_id/document_id/filename, per
// spec.md §6.5) and returns the stored path.
func (s *Store) Put(key string, content []byte, contentType string) (string, error) {
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(content), storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: upload %s: %w", key, err)
	}
	return key, nil
}

// Get downloads the object at key.
func (s *Store) Get(key string) ([]byte, error) {
	reader, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("blobstore: download %s: %w", key, err)
	}
	return reader, nil
}

// SignedURL returns a time-limited download URL for key, used by the
// document-review UI instead of proxying file bytes through the API.
func (s *Store) SignedURL(key string, expiresInSec int) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, key, expiresInSec)
	if err != nil {
		return "", fmt.Errorf("blobstore: sign url for %s: %w", key, err)
	}
	return resp.SignedURL, nil
}

// Delete removes the object at key (used when a rejected document is
// resubmitted and the original is superseded).
func (s *Store) Delete(key string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{key})
	if err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", key, err)
	}
	return nil
}

// ReadAll is a small helper for callers handed an io.Reader (e.g. a
// multipart upload) that need a []byte for Put.
func ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
