package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"siteadmin/internal/config"
)

const gcsPublicHost = "https://storage.googleapis.com"

// gcsStorage implements Storage on a Google Cloud Storage bucket whose
// objects are publicly readable.
type gcsStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCS creates a Cloud Storage client. An empty credentials file falls back
// to application default credentials.
func NewGCS(ctx context.Context, cfg config.GCSConfig) (Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsStorage{client: client, bucket: cfg.Bucket}, nil
}

func (g *gcsStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = opt.ContentType
	w.Metadata = opt.Metadata
	w.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(w, withProgress(r, opt)); err != nil {
		_ = w.Close()
		return ObjectInfo{}, fmt.Errorf("copy to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("close gcs writer: %w", err)
	}

	attrs := w.Attrs()
	return ObjectInfo{
		Key:          key,
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ContentType:  attrs.ContentType,
		LastModified: time.Now(),
		Metadata:     attrs.Metadata,
	}, nil
}

func (g *gcsStorage) URL(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, g.bucket, escapeKey(key)), nil
}

func (g *gcsStorage) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return err
}
