package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/config"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleter interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores image assets in an S3-compatible bucket.
type S3Storage struct {
	uploader uploader
	deleter  deleter
	bucket   string
	prefix   string
	baseURL  string
}

// NewS3Storage configures a client and uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return newS3Storage(up, client, cfg), nil
}

func newS3Storage(up uploader, del deleter, cfg config.ObjectStoreConfig) *S3Storage {
	return &S3Storage{
		uploader: up,
		deleter:  del,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.KeyPrefix, "/"),
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}
}

// Store uploads file and returns its public location. The local file is
// removed on every path.
func (s *S3Storage) Store(ctx context.Context, file LocalFile) (models.AssetRef, error) {
	logger := logging.FromContext(ctx)
	defer func() {
		if err := Discard(file); err != nil {
			logger.Warn("failed to remove staged upload", "path", file.Path, "error", err)
		}
	}()

	if strings.TrimSpace(file.Path) == "" {
		return models.AssetRef{}, apperr.New(apperr.ErrInvalidArgument, "no file was provided")
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return models.AssetRef{}, fmt.Errorf("open staged upload: %w", err)
	}
	defer f.Close()

	key := s.objectKey(file)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return models.AssetRef{}, apperr.Wrap(apperr.ErrDispatch, "failed to upload file", fmt.Errorf("s3 storage upload %s: %w", key, err))
	}

	return models.AssetRef{URL: s.publicURL(key), PublicID: key}, nil
}

// Remove deletes the object identified by publicID.
func (s *S3Storage) Remove(ctx context.Context, publicID string) error {
	key := strings.TrimLeft(publicID, "/")
	if key == "" {
		return errors.New("s3 storage: empty key")
	}
	_, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) objectKey(file LocalFile) string {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(file.Path))
	}
	name := uuid.NewString() + ext
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Storage) publicURL(key string) string {
	if s.baseURL == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}
