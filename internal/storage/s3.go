package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3Storage uploads report exports to a bucket.
type S3Storage struct {
	client s3iface.S3API
	bucket string
}

func NewS3Storage(cfg config.ArchiveConfig) (*S3Storage, error) {
	s3Config := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.Endpoint != ""),
	}
	if cfg.Endpoint != "" {
		s3Config.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		s3Config.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, err
	}
	return &S3Storage{client: s3.New(sess), bucket: cfg.Bucket}, nil
}

func (s *S3Storage) Upload(ctx context.Context, key string, data io.Reader) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(data),
		ContentType: aws.String(xlsxContentType),
	})
	return err
}
