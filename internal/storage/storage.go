// Package storage abstracts the object store holding source PDFs and
// preprocessed artifacts. Implementations share one bucket-defaulting
// policy: uploads and existence checks default to the preprocessed bucket,
// downloads pick the preprocessed bucket for slash-containing non-PDF keys
// and the PDF bucket otherwise.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested object is absent. Exists treats
// it as a normal negative result; everywhere else it is an error.
var ErrNotFound = errors.New("storage: object not found")

// Backend is the capability set the pipeline relies on. An empty bucket
// argument selects the policy default.
type Backend interface {
	// Upload stores a local file under objectName and returns the object name.
	Upload(ctx context.Context, localPath, objectName, bucket string) (string, error)

	// Download fetches objectName into localPath, creating parent
	// directories, and returns localPath.
	Download(ctx context.Context, objectName, localPath, bucket string) (string, error)

	// Exists reports whether objectName is present.
	Exists(ctx context.Context, objectName, bucket string) (bool, error)
}

// Buckets carries the two well-known bucket names the policy chooses from.
type Buckets struct {
	PDF          string
	Preprocessed string
}

// UploadBucket resolves the target bucket for an upload.
func (b Buckets) UploadBucket(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return b.Preprocessed
}

// ExistsBucket resolves the target bucket for an existence check.
func (b Buckets) ExistsBucket(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return b.Preprocessed
}

// DownloadBucket resolves the source bucket for a download. Keys like
// "doc1/text.txt" live in the preprocessed bucket; "doc.pdf" and
// "folder/doc.pdf" live in the PDF bucket.
func (b Buckets) DownloadBucket(objectName, bucket string) string {
	if bucket != "" {
		return bucket
	}
	if strings.Contains(objectName, "/") && !strings.HasSuffix(strings.ToLower(objectName), ".pdf") {
		return b.Preprocessed
	}
	return b.PDF
}
