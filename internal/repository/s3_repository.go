package repository

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	s3config "fetalscan/internal/config"
)

// ArchiveRepository keeps a copy of every scan sent for inference.
type ArchiveRepository interface {
	UploadFile(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

type s3Repository struct {
	client *s3.Client
	cfg    *s3config.S3Config
	log    *zap.Logger
}

func NewS3Repository(ctx context.Context, cfg *s3config.S3Config, log *zap.Logger) (ArchiveRepository, error) {
	endpoint := endpointURL(cfg)

	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if endpoint != "" {
			return aws.Endpoint{
				URL:               endpoint,
				HostnameImmutable: true,
				Source:            aws.EndpointSourceCustom,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	repo := &s3Repository{
		client: client,
		cfg:    cfg,
		log:    log,
	}

	if err := repo.ensureBucketExists(ctx); err != nil {
		log.Warn("Failed to ensure bucket exists", zap.Error(err))
	}

	return repo, nil
}

// endpointURL adds the scheme to host:port endpoints such as the MinIO default.
func endpointURL(cfg *s3config.S3Config) string {
	if cfg.Endpoint == "" || strings.Contains(cfg.Endpoint, "://") {
		return cfg.Endpoint
	}
	if cfg.UseSSL {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}

func (r *s3Repository) ensureBucketExists(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.cfg.BucketName),
	})

	if err == nil {
		r.log.Info("Bucket already exists", zap.String("bucket", r.cfg.BucketName))
		return nil
	}

	r.log.Info("Creating bucket", zap.String("bucket", r.cfg.BucketName))

	input := &s3.CreateBucketInput{
		Bucket: aws.String(r.cfg.BucketName),
	}
	// us-east-1 rejects an explicit location constraint.
	if r.cfg.Region != "" && r.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(r.cfg.Region),
		}
	}

	if _, err := r.client.CreateBucket(ctx, input); err != nil {
		return err
	}

	r.log.Info("Bucket created successfully", zap.String("bucket", r.cfg.BucketName))
	return nil
}

func (r *s3Repository) UploadFile(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.cfg.BucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})

	if err != nil {
		r.log.Error("Failed to upload file to S3",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	r.log.Info("File uploaded to S3",
		zap.String("key", key),
		zap.Int64("size", size))

	return nil
}
