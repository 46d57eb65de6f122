// Package storage archives points table snapshots to S3-compatible object storage.
package storage

import "context"

type UploadResult struct {
	Key      string
	Location string
	ETag     string
	Size     int64
}

// FileUploader stores whole objects; snapshots are small enough to upload from memory.
type FileUploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (*UploadResult, error)
	GetPublicURL(key string) string
}
