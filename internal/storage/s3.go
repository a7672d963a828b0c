package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
)

// S3Storage talks to an S3-compatible object store (MinIO in the default
// deployment) with path-style addressing.
type S3Storage struct {
	client  *s3.Client
	buckets Buckets
}

// NewS3Storage builds a backend from OSS settings. The endpoint may carry
// an http:// or https:// scheme; plain host:port defaults to http.
func NewS3Storage(ctx context.Context, cfg config.OSSConfig) (*S3Storage, error) {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client: client,
		buckets: Buckets{
			PDF:          cfg.PDFBucket,
			Preprocessed: cfg.PreprocessedBucket,
		},
	}, nil
}

// Upload stores a local file, creating the bucket if it does not exist yet.
func (s *S3Storage) Upload(ctx context.Context, localPath, objectName, bucket string) (string, error) {
	target := s.buckets.UploadBucket(bucket)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if err := s.ensureBucket(ctx, target); err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(target),
		Key:         aws.String(objectName),
		Body:        f,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s/%s: %w", target, objectName, err)
	}
	logging.Op().Debug("uploaded object", "bucket", target, "object", objectName)
	return objectName, nil
}

// Download fetches an object into localPath.
func (s *S3Storage) Download(ctx context.Context, objectName, localPath, bucket string) (string, error) {
	source := s.buckets.DownloadBucket(objectName, bucket)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(source),
		Key:    aws.String(objectName),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", fmt.Errorf("%w: %s/%s", ErrNotFound, source, objectName)
		}
		return "", fmt.Errorf("get %s/%s: %w", source, objectName, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.ReadFrom(out.Body); err != nil {
		return "", fmt.Errorf("write %s: %w", localPath, err)
	}
	return localPath, nil
}

// Exists reports object presence via HeadObject; 404 is a negative result,
// not an error.
func (s *S3Storage) Exists(ctx context.Context, objectName, bucket string) (bool, error) {
	target := s.buckets.ExistsBucket(bucket)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(target),
		Key:    aws.String(objectName),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return false, nil
		}
		return false, fmt.Errorf("head %s/%s: %w", target, objectName, err)
	}
	return true, nil
}

func (s *S3Storage) ensureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	logging.Op().Info("created bucket", "bucket", bucket)
	return nil
}
