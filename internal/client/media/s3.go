// Package media uploads post attachments. The API client uploads through the
// feed server; S3Uploader writes straight to an S3 compatible bucket.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/google/uuid"
)

// Uploader stores one attachment and returns the id posts refer to it by.
// client.API satisfies it.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (models.Media, error)
}

type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint, e.g. a MinIO address. Path style
	// addressing is used when it is set.
	Endpoint  string
	AccessKey string
	SecretKey string
}

type S3Uploader struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

// NewS3Uploader loads the default AWS configuration for cfg.Region. Static
// credentials replace the default chain when AccessKey is set.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &S3Uploader{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// Upload puts r under media/<yyyy>/<mm>/<dd>/<uuid><ext> and returns the key
// as the media id.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader) (models.Media, error) {
	body, ok := r.(io.ReadSeeker)
	if !ok {
		// request signing needs to hash the payload, so it must be seekable
		data, err := io.ReadAll(r)
		if err != nil {
			return models.Media{}, fmt.Errorf("read %s: %w", name, err)
		}
		body = bytes.NewReader(data)
	}

	key := u.key(name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return models.Media{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return models.Media{ID: key}, nil
}

func (u *S3Uploader) key(name string) string {
	d := u.now().UTC()
	return fmt.Sprintf("media/%04d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.NewString(), path.Ext(name))
}
