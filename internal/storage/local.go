package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage is a filesystem stand-in for the object store, used in
// development and tests. The bucket becomes the first path element under
// the base directory; an empty bucket maps to "default".
type LocalStorage struct {
	baseDir string
	buckets Buckets
}

// NewLocalStorage roots a local backend at baseDir.
func NewLocalStorage(baseDir string, buckets Buckets) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{baseDir: baseDir, buckets: buckets}, nil
}

func (l *LocalStorage) path(bucket, objectName string) string {
	if bucket == "" {
		bucket = "default"
	}
	return filepath.Join(l.baseDir, bucket, filepath.FromSlash(objectName))
}

func (l *LocalStorage) Upload(ctx context.Context, localPath, objectName, bucket string) (string, error) {
	dest := l.path(l.buckets.UploadBucket(bucket), objectName)
	if err := copyFile(localPath, dest); err != nil {
		return "", err
	}
	return objectName, nil
}

func (l *LocalStorage) Download(ctx context.Context, objectName, localPath, bucket string) (string, error) {
	src := l.path(l.buckets.DownloadBucket(objectName, bucket), objectName)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	if err := copyFile(src, localPath); err != nil {
		return "", err
	}
	return localPath, nil
}

func (l *LocalStorage) Exists(ctx context.Context, objectName, bucket string) (bool, error) {
	_, err := os.Stat(l.path(l.buckets.ExistsBucket(bucket), objectName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
