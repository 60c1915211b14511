// Package s3 implements the block.Store contract on top of Amazon S3
// or an S3-compatible endpoint. Objects are keyed by project, vault
// and storage-id so a single bucket can host every tenant's blocks
// without collision (§3 "Ownership").
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/sujala/deuce/internal/logger"
	"github.com/sujala/deuce/pkg/store/block"
)

// retryConfig mirrors the exponential-backoff knobs the block storage
// driver retries transient S3 errors with.
type retryConfig struct {
	maxRetries        uint
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// Config configures Store.
type Config struct {
	// Client is a pre-configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket every block object is written to.
	Bucket string

	// KeyPrefix is prepended to every object key, e.g. "deuce/".
	KeyPrefix string

	MaxRetries        uint
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Store is an S3-backed implementation of block.Store.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	retry     retryConfig
}

// New validates cfg and verifies bucket access, returning a ready Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 block store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 block store: bucket is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("s3 block store: access bucket %q: %w", cfg.Bucket, err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = 100 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 2 * time.Second
	}
	backoffMultiplier := cfg.BackoffMultiplier
	if backoffMultiplier == 0 {
		backoffMultiplier = 2.0
	}

	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		retry: retryConfig{
			maxRetries:        maxRetries,
			initialBackoff:    initialBackoff,
			maxBackoff:        maxBackoff,
			backoffMultiplier: backoffMultiplier,
		},
	}, nil
}

func (s *Store) objectKey(project, vault, storageID string) string {
	key := project + "/" + vault + "/" + storageID
	if s.keyPrefix != "" {
		return s.keyPrefix + key
	}
	return key
}

func (s *Store) calculateBackoff(attempt int) time.Duration {
	backoff := float64(s.retry.initialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= s.retry.backoffMultiplier
	}
	if backoff > float64(s.retry.maxBackoff) {
		backoff = float64(s.retry.maxBackoff)
	}
	return time.Duration(backoff)
}

// Put uploads data under a fresh UUID storage-id.
func (s *Store) Put(ctx context.Context, project, vault string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	storageID := uuid.NewString()
	key := s.objectKey(project, vault, storageID)

	var lastErr error
	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.calculateBackoff(attempt - 1)
			logger.Debug("s3 block put: retrying", logger.KeyAttempt, attempt, logger.KeyBackoff, backoff, logger.KeyObjectKey, key)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if lastErr == nil {
			return storageID, nil
		}
		if !isRetryableError(lastErr) {
			break
		}
	}
	return "", fmt.Errorf("s3 block store: put %s: %w", key, lastErr)
}

// Open downloads the object and returns a reader over it.
func (s *Store) Open(ctx context.Context, project, vault, storageID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := s.objectKey(project, vault, storageID)

	var result *s3.GetObjectOutput
	var lastErr error
	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.calculateBackoff(attempt - 1)
			logger.Debug("s3 block open: retrying", logger.KeyAttempt, attempt, logger.KeyBackoff, backoff, logger.KeyObjectKey, key)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, lastErr = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if lastErr == nil {
			return result.Body, nil
		}
		if isNotFoundError(lastErr) {
			return nil, block.ErrNotFound
		}
		if !isRetryableError(lastErr) {
			break
		}
	}
	return nil, fmt.Errorf("s3 block store: open %s: %w", key, lastErr)
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, project, vault, storageID string) error {
	key := s.objectKey(project, vault, storageID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("s3 block store: delete %s: %w", key, err)
	}
	return nil
}

// Exists issues a HeadObject to check for the object's presence.
func (s *Store) Exists(ctx context.Context, project, vault, storageID string) (bool, error) {
	key := s.objectKey(project, vault, storageID)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFoundError(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3 block store: head %s: %w", key, err)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"ProvisionedThroughputExceededException", "InternalError", "ServiceUnavailable":
			return true
		}
		return false
	}
	return false
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "404" {
			return true
		}
	}

	errStr := err.Error()
	return strings.Contains(errStr, "StatusCode: 404") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "NoSuchKey")
}

var _ block.Store = (*Store)(nil)
