package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func archiveConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:         true,
		Endpoint:        "http://localhost:9000",
		Bucket:          "invoice-archive",
		AccessKeyID:     "archive-key",
		SecretAccessKey: "archive-secret",
		UsePathStyle:    true,
	}
}

func TestNewS3Archive_RequiresSettings(t *testing.T) {
	_, err := NewS3Archive(nil)
	assert.ErrorContains(t, err, "configuration is required")

	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"access key", func(c *config.StorageConfig) { c.AccessKeyID = "" }, "access key is required"},
		{"secret", func(c *config.StorageConfig) { c.SecretAccessKey = "" }, "secret key is required"},
		{"endpoint without host", func(c *config.StorageConfig) { c.Endpoint = "http://" }, "invalid storage endpoint"},
		{"endpoint scheme", func(c *config.StorageConfig) { c.Endpoint = "ftp://files.local" }, "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := archiveConfig()
			tt.mutate(cfg)
			_, err := NewS3Archive(cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewS3Archive_Expiry(t *testing.T) {
	a, err := NewS3Archive(archiveConfig())
	require.NoError(t, err)
	assert.Equal(t, "invoice-archive", a.Bucket())
	assert.Equal(t, defaultPresignExpiry, a.expiry)

	cfg := archiveConfig()
	cfg.PresignExpiry = time.Hour
	a, err = NewS3Archive(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, a.expiry)

	a, err = NewS3Archive(cfg, WithPresignExpiration(5*time.Minute), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, a.expiry)

	a, err = NewS3Archive(cfg, WithPresignExpiration(0))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, a.expiry)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"":                         "",
		"  ":                       "",
		"minio.internal:9000/":     "https://minio.internal:9000",
		"http://localhost:9000":    "http://localhost:9000",
		"https://s3.example.com//": "https://s3.example.com",
	}
	for in, want := range tests {
		got, err := normalizeEndpoint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestS3Archive_GenerateDownloadURL(t *testing.T) {
	a, err := NewS3Archive(archiveConfig())
	require.NoError(t, err)
	ctx := context.Background()

	before := time.Now()
	link, expiresAt, err := a.GenerateDownloadURL(ctx, "invoices/2024/INV-2024-00001.pdf", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/invoice-archive/invoices/2024/INV-2024-00001.pdf", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.WithinDuration(t, before.Add(10*time.Minute), expiresAt, 5*time.Second)

	link, _, err = a.GenerateDownloadURL(ctx, "invoices/2024/INV-2024-00002.pdf", 0)
	require.NoError(t, err)
	u, err = url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}

func TestS3Archive_EmptyKey(t *testing.T) {
	a, err := NewS3Archive(archiveConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = a.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorContains(t, err, "storage key is required")
	assert.ErrorContains(t, a.Upload(ctx, "", []byte("%PDF-1.4"), "application/pdf"), "storage key is required")
}
