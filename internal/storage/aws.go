package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by AWSStorage.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AWSStorage stores objects in a single S3 bucket.
type AWSStorage struct {
	s3Client S3API
	bucket   string
}

// LoadAWSConfig resolves AWS credentials. Static keys win over a named
// profile; with neither the default chain is used (IAM role on ECS).
func LoadAWSConfig(ctx context.Context, region, profile, accessKey, secretKey string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	switch {
	case accessKey != "" && secretKey != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	case profile != "":
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewAWSStorage creates an S3-backed store.
func NewAWSStorage(ctx context.Context, bucket, region, profile, accessKey, secretKey string) (*AWSStorage, error) {
	cfg, err := LoadAWSConfig(ctx, region, profile, accessKey, secretKey)
	if err != nil {
		return nil, err
	}
	return NewAWSStorageWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewAWSStorageWithClient wraps an existing S3 client.
func NewAWSStorageWithClient(client S3API, bucket string) *AWSStorage {
	return &AWSStorage{s3Client: client, bucket: bucket}
}

// Open streams an object. A missing key returns ErrNotFound.
func (s *AWSStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	return result.Body, nil
}

// Put writes an object.
func (s *AWSStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}
