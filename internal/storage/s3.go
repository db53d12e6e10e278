package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3Options configures an S3 or S3-compatible bucket
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage reads from an S3 bucket and issues presigned GET links
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	logger    *zap.Logger
}

// NewS3Storage creates an S3 client. Static credentials are used when given,
// otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, opts S3Options, logger *zap.Logger) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 storage initialized",
		zap.String("bucket", opts.Bucket),
		zap.String("region", opts.Region),
		zap.String("endpoint", opts.Endpoint),
	)

	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		logger:    logger,
	}, nil
}

// Open streams an object
func (s *S3Storage) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return out.Body, nil
}

// PresignURL returns a presigned GET URL valid for ttl
func (s *S3Storage) PresignURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return req.URL, nil
}
