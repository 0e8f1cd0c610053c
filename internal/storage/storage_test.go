package storage

import (
	"context"
	"strings"
	"testing"

	"siteadmin/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("/blobs/")

	var fractions []float64
	info, err := s.Put(ctx, "documents/1700000000000_price list.pdf", strings.NewReader("hello world"), PutObjectOptions{
		Size:        11,
		ContentType: "application/pdf",
		Progress:    func(f float64) { fractions = append(fractions, f) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size)
	assert.NotEmpty(t, info.ETag)
	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])

	u, err := s.URL(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, "/blobs/documents/1700000000000_price%20list.pdf", u)

	data, _, ok := s.Open(info.Key)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(data))

	require.NoError(t, s.Delete(ctx, info.Key))
	assert.ErrorIs(t, s.Delete(ctx, info.Key), ErrObjectNotFound)

	_, err = s.URL(ctx, info.Key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Empty(t, s.Keys())
}

func TestProgressTracker(t *testing.T) {
	assert.Nil(t, newProgressTracker(0, func(float64) {}))
	assert.Nil(t, newProgressTracker(10, nil))

	var last float64
	pt := newProgressTracker(10, func(f float64) { last = f })

	n, err := pt.Write(make([]byte, 4))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.4, last, 1e-9)

	_, _ = pt.Read(make([]byte, 4))
	assert.InDelta(t, 0.8, last, 1e-9)

	_, _ = pt.Write(make([]byte, 8))
	assert.Equal(t, 1.0, last)
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "team-images/1_Jo%20Smith%3F.png", escapeKey("team-images/1_Jo Smith?.png"))
}

func TestValidateMinIOConfig(t *testing.T) {
	valid := config.MinIOConfig{
		Endpoint:      "minio:9000",
		AccessKey:     "access",
		SecretKey:     "secret",
		Bucket:        "site",
		PublicBaseURL: "https://cdn.example.com",
	}
	require.NoError(t, validateMinIOConfig(valid))

	tests := []struct {
		name   string
		mutate func(*config.MinIOConfig)
		want   string
	}{
		{"no endpoint", func(c *config.MinIOConfig) { c.Endpoint = "" }, "endpoint"},
		{"no secret", func(c *config.MinIOConfig) { c.SecretKey = "" }, "credentials"},
		{"no bucket", func(c *config.MinIOConfig) { c.Bucket = "" }, "bucket"},
		{"no public base", func(c *config.MinIOConfig) { c.PublicBaseURL = "" }, "MINIO_PUBLIC_BASE_URL"},
		{"relative public base", func(c *config.MinIOConfig) { c.PublicBaseURL = "cdn.example.com" }, "absolute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, validateMinIOConfig(cfg), tt.want)
		})
	}
}

func TestNewMinIO_RequiresPublicBase(t *testing.T) {
	_, err := NewMinIO(context.Background(), config.MinIOConfig{
		Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s", Bucket: "site",
	})
	assert.ErrorContains(t, err, "public base URL is required")
}

func TestMinIOStorage_URLIsPermanent(t *testing.T) {
	m := &minioStorage{bucket: "site", publicBase: "https://cdn.example.com"}

	u, err := m.URL(context.Background(), "documents/1709647629000_price list.pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/site/documents/1709647629000_price%20list.pdf", u)
}
