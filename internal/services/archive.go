package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"alfredoptarigan/resumatch/internal/config"
)

const (
	ArchiveDriverNone  = "none"
	ArchiveDriverLocal = "local"
	ArchiveDriverS3    = "s3"
)

// ResumeArchive keeps the original uploaded document next to its analysis.
type ResumeArchive interface {
	// Store saves data and returns its object key. An empty key means nothing was stored.
	Store(ctx context.Context, userID, filename string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

func NewResumeArchive(ctx context.Context, cfg config.StorageConfig) (ResumeArchive, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", ArchiveDriverNone:
		return noopArchive{}, nil
	case ArchiveDriverLocal:
		return NewLocalArchive(cfg.UploadPath)
	case ArchiveDriverS3:
		return NewS3Archive(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func archiveKey(userID, filename string) string {
	return path.Join(userID, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
}

func contentTypeFor(filename string) string {
	format, _ := DetectFormat(filename)
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

type noopArchive struct{}

func (noopArchive) Store(ctx context.Context, userID, filename string, data []byte) (string, error) {
	return "", nil
}

func (noopArchive) Remove(ctx context.Context, key string) error {
	return nil
}

type localArchive struct {
	root string
}

func NewLocalArchive(root string) (ResumeArchive, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("upload path is required for the local storage driver")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localArchive{root: root}, nil
}

func (l *localArchive) Store(ctx context.Context, userID, filename string, data []byte) (string, error) {
	key := archiveKey(userID, filename)
	dst := filepath.Join(l.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return key, nil
}

func (l *localArchive) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Archive struct {
	client objectStore
	bucket string
}

// NewS3Archive works against AWS S3 or any S3-compatible endpoint (R2, MinIO).
func NewS3Archive(ctx context.Context, cfg config.S3Config) (ResumeArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required for the s3 storage driver")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Archive{client: client, bucket: cfg.Bucket}, nil
}

func (s *s3Archive) Store(ctx context.Context, userID, filename string, data []byte) (string, error) {
	key := archiveKey(userID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentTypeFor(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

func (s *s3Archive) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
