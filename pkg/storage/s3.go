package storage

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Store implements ObjectStore using the AWS SDK
type S3Store struct {
	client *s3.Client
	config UploadConfig
	logger *zap.Logger
}

// NewS3Store creates a new S3-backed object store
func NewS3Store(ctx context.Context, uploadConfig UploadConfig, logger *zap.Logger) (*S3Store, error) {
	if uploadConfig.Timeout == 0 {
		uploadConfig.Timeout = 5 * time.Minute
	}
	if uploadConfig.Concurrency == 0 {
		uploadConfig.Concurrency = 10
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(uploadConfig.AWSRegion),
	}

	if uploadConfig.AWSProfile != "" {
		opts = append(opts, config.WithSharedConfigProfile(uploadConfig.AWSProfile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, NewStorageError("aws_config", "", err)
	}

	// Override endpoint if specified (for S3-compatible services like R2)
	s3Options := []func(*s3.Options){}
	if uploadConfig.AWSEndpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(uploadConfig.AWSEndpoint)
			o.UsePathStyle = true // Required for custom endpoints
		})
	}

	client := s3.NewFromConfig(awsConfig, s3Options...)

	logger.Info("S3 store initialized",
		zap.String("bucket", uploadConfig.Bucket),
		zap.String("region", uploadConfig.AWSRegion),
		zap.String("endpoint", uploadConfig.AWSEndpoint))

	return &S3Store{
		client: client,
		config: uploadConfig,
		logger: logger,
	}, nil
}

// Put uploads a local file to the configured bucket under key
func (s *S3Store) Put(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("put_object", localPath, err)
	}
	defer file.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   file,
	}

	s.logger.Debug("Uploading to S3",
		zap.String("local", localPath),
		zap.String("bucket", s.config.Bucket),
		zap.String("key", key))

	if _, err := s.client.PutObject(uploadCtx, input); err != nil {
		return NewStorageError("put_object", localPath, err)
	}

	s.logger.Info("Uploaded to S3",
		zap.String("local", localPath),
		zap.String("bucket", s.config.Bucket),
		zap.String("key", key))

	return nil
}

// Close closes any resources used by the store
func (s *S3Store) Close() error {
	s.logger.Debug("Closing S3 store")
	return nil
}
