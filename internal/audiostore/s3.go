/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audiostore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// S3Config configures the S3 store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // For S3-compatible services (MinIO, etc.)
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
	URLTTL          time.Duration
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 uploads clips to a bucket and hands out presigned GET URLs.
type S3 struct {
	client  s3API
	presign func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	cfg     S3Config
	logger  zerolog.Logger

	mu   sync.Mutex
	keys map[string]string // presigned URL -> object key
}

// NewS3 builds an S3 store from static or default credentials.
func NewS3(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 30 * time.Minute
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	presigner := s3.NewPresignClient(client)

	store := newS3(client, cfg, logger)
	store.presign = func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
		req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return store, nil
}

func newS3(client s3API, cfg S3Config, logger zerolog.Logger) *S3 {
	return &S3{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "audiostore").Str("backend", "s3").Logger(),
		keys:   make(map[string]string),
	}
}

// Put uploads data and returns a presigned URL valid for the configured TTL.
func (s *S3) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyAudio
	}
	key := strings.TrimLeft(s.cfg.Prefix+uuid.NewString()+extensionFor(mimeType), "/")

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload narration: %w", err)
	}

	url, err := s.presign(ctx, s.cfg.Bucket, key, s.cfg.URLTTL)
	if err != nil {
		return "", fmt.Errorf("presign narration: %w", err)
	}

	s.mu.Lock()
	s.keys[url] = key
	s.mu.Unlock()

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("narration uploaded")
	return url, nil
}

// Revoke deletes the object behind url. Unknown URLs are ignored.
func (s *S3) Revoke(ctx context.Context, url string) error {
	s.mu.Lock()
	key, ok := s.keys[url]
	delete(s.keys, url)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete narration: %w", err)
	}
	return nil
}
