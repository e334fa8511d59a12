package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/logging"
)

// s3API is the subset of *s3.Client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements StorageInterface for S3/MinIO storage.
// Objects are keyed "<folder>/<name>".
type S3Storage struct {
	client  s3API
	bucket  string
	maxSize int64
}

// NewS3Storage creates a new S3/MinIO storage instance
func NewS3Storage(ctx context.Context, cfg *appconfig.StorageConfig) (*S3Storage, error) {
	if cfg.S3.Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.S3.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := s3Endpoint(cfg.S3)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3.PathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3Storage(client, cfg), nil
}

func newS3Storage(client s3API, cfg *appconfig.StorageConfig) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  cfg.S3.Bucket,
		maxSize: cfg.MaxFileSize,
	}
}

// s3Endpoint returns the custom endpoint URL, or "" for AWS itself
func s3Endpoint(cfg appconfig.S3StorageConfig) string {
	ep := cfg.Endpoint
	if ep == "" || strings.Contains(ep, "://") {
		return ep
	}
	if cfg.UseSSL {
		return "https://" + ep
	}
	return "http://" + ep
}

// Put uploads the object. The body is buffered so the SDK can sign a known length.
func (s *S3Storage) Put(ctx context.Context, folder, name string, upload *Upload) error {
	key := path.Join(folder, name)

	buf := new(bytes.Buffer)
	limitReader := &limitedReader{
		reader:  upload.Reader,
		maxSize: s.maxSize,
	}
	if _, err := io.Copy(buf, limitReader); err != nil {
		if errors.Is(err, errFileTooLarge) {
			return FileTooLargeError{Size: limitReader.bytesRead, MaxSize: s.maxSize}
		}
		return &WriteError{Path: key, Err: err}
	}

	putCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String(upload.ContentType),
		ContentLength: aws.Int64(int64(buf.Len())),
		Metadata: map[string]string{
			"original-name": upload.Filename,
		},
	})
	if err != nil {
		return &WriteError{Path: key, Err: err}
	}

	logging.InfoCtx(ctx, "File uploaded to S3", "storage", map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
		"size":   buf.Len(),
	})
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, folder, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(folder, name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
