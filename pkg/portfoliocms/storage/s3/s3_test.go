package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

func offlineConfig() Config {
	return Config{
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	}
}

// TestS3Backend_BasicConfiguration tests the configuration and creation of S3 backend
func TestS3Backend_BasicConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(ctx, Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(ctx, offlineConfig())
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
		assert.Equal(t, "public, max-age=31536000, immutable", backend.config.CacheControl)
	})

	t.Run("CustomPresignDuration", func(t *testing.T) {
		cfg := offlineConfig()
		cfg.PresignDuration = 7200
		backend, err := New(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, backend.presignDuration)
	})
}

func TestS3Backend_PreviewURL(t *testing.T) {
	ctx := context.Background()

	t.Run("Presigned", func(t *testing.T) {
		backend, err := New(ctx, offlineConfig())
		require.NoError(t, err)

		url, err := backend.GetPreviewURL(ctx, "homepage/a.png")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/test-bucket/homepage/a.png?"), url)
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.Contains(t, url, "X-Amz-Expires=3600")
	})

	t.Run("PublicBaseURL", func(t *testing.T) {
		cfg := offlineConfig()
		cfg.PublicBaseURL = "https://cdn.example.com/"
		backend, err := New(ctx, cfg)
		require.NoError(t, err)

		url, err := backend.GetPreviewURL(ctx, "homepage/a.png")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/homepage/a.png", url)
	})
}

func TestS3Backend_IsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"typed no such key", &types.NoSuchKey{}, true},
		{"typed not found", fmt.Errorf("head: %w", &types.NotFound{}), true},
		{"api error code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestS3Backend_SSE(t *testing.T) {
	cfg := offlineConfig()
	cfg.EnableSSE = true
	cfg.SSEAlgorithm = "aws:kms"
	cfg.SSEKMSKeyID = "key-1"
	backend, err := New(context.Background(), cfg)
	require.NoError(t, err)

	input := backend.putInput(portfoliocms.UploadParams{ObjectKey: "homepage/a.png", MimeType: "image/png"}, nil)
	assert.Equal(t, types.ServerSideEncryptionAwsKms, input.ServerSideEncryption)
	assert.Equal(t, "key-1", *input.SSEKMSKeyId)
	assert.Equal(t, "image/png", *input.ContentType)
	assert.Equal(t, "public, max-age=31536000, immutable", *input.CacheControl)
}

// TestS3Backend_Integration tests actual S3/MinIO operations
// This test requires a running MinIO instance or S3 credentials
func TestS3Backend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 bucket,
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err, "Failed to create S3 backend")

	objectKey := fmt.Sprintf("homepage/integration-%d.txt", time.Now().UnixNano())
	data := []byte("Hello from S3 integration test!")

	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader(data), portfoliocms.UploadParams{
		ObjectKey: objectKey,
		MimeType:  "text/plain",
	}))

	meta, err := backend.GetObjectMeta(ctx, objectKey)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Equal(t, "text/plain", meta.ContentType)

	reader, err := backend.Download(ctx, objectKey)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, backend.Delete(ctx, objectKey))
	_, err = backend.GetObjectMeta(ctx, objectKey)
	assert.ErrorIs(t, err, portfoliocms.ErrObjectNotFound)
	_, err = backend.Download(ctx, objectKey)
	assert.ErrorIs(t, err, portfoliocms.ErrObjectNotFound)
}
