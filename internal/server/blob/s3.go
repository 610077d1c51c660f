package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/logging"
)

// S3Config carries credentials and location of the S3-compatible backend
// (MinIO in the default deployment).
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store keeps uploads as objects named owner/filename. Filenames pass the
// same validation as the disk backend; key traversal is impossible because
// object keys are flat, so no extra containment check is needed.
type S3Store struct {
	client *s3.Client
	bucket string
	logger logging.Logger
}

func NewS3Store(ctx context.Context, cfg S3Config, logger logging.Logger) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With("module", "blob"),
	}, nil
}

func (s *S3Store) key(owner, name string) (string, error) {
	if err := ValidateFilename(owner); err != nil {
		return "", err
	}
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

func (s *S3Store) Write(ctx context.Context, owner, name string, data []byte) error {
	key, err := s.key(owner, name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Read(ctx context.Context, owner, name string) ([]byte, error) {
	key, err := s.key(owner, name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Rename(ctx context.Context, owner, oldName, newName string) error {
	oldKey, err := s.key(owner, oldName)
	if err != nil {
		return err
	}
	newKey, err := s.key(owner, newName)
	if err != nil {
		return err
	}

	source := url.PathEscape(s.bucket + "/" + oldKey)
	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &s.bucket,
		Key:        &newKey,
		CopySource: &source,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("copy object %s: %w", oldKey, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &oldKey,
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", oldKey, err)
	}
	return nil
}

func (s *S3Store) Remove(ctx context.Context, owner, name string) error {
	key, err := s.key(owner, name)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("head object %s: %w", key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
