package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"go.uber.org/zap"

	"siteadmin/internal/idgen"
	"siteadmin/internal/repository"
	"siteadmin/internal/storage"
)

// Upload is a file received from an editor form.
type Upload struct {
	Reader      io.Reader `json:"-" validate:"required"`
	Filename    string    `json:"filename" validate:"required"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size" validate:"gte=0"`
}

// UploadTracker holds per-form upload state. A form has at most one upload in
// flight; its progress is the last reported percentage.
type UploadTracker struct {
	mu     sync.Mutex
	active map[string]float64
}

func NewUploadTracker() *UploadTracker {
	return &UploadTracker{active: make(map[string]float64)}
}

// Begin marks the form busy or returns ErrUploadInProgress.
func (t *UploadTracker) Begin(form string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.active[form]; busy {
		return ErrUploadInProgress
	}
	t.active[form] = 0
	return nil
}

// Report records progress as a fraction in [0,1]. Forms not in flight are ignored.
func (t *UploadTracker) Report(form string, fraction float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.active[form]; !busy {
		return
	}
	t.active[form] = math.Max(0, math.Min(1, fraction)) * 100
}

func (t *UploadTracker) End(form string) {
	t.mu.Lock()
	delete(t.active, form)
	t.mu.Unlock()
}

// Progress returns the rounded percentage and whether an upload is in flight.
func (t *UploadTracker) Progress(form string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, busy := t.active[form]
	if !busy {
		return 0, false
	}
	return int(math.Round(p)), true
}

type uploader struct {
	store    storage.Storage
	tracker  *UploadTracker
	clock    *idgen.Clock
	maxBytes int64
	metrics  *Metrics
	log      *zap.Logger
}

type storedBlob struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// checkSize rejects an empty payload as a validation error on field and a
// payload over the limit with ErrTooLarge.
func (u *uploader) checkSize(field string, size int64) error {
	if size <= 0 {
		return &ValidationError{Fields: map[string]string{field: "is required"}}
	}
	if u.maxBytes > 0 && size > u.maxBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

// put streams the upload under prefix and resolves its URL. When the URL
// cannot be resolved the blob is removed again.
func (u *uploader) put(ctx context.Context, editor, form, prefix string, up *Upload) (storedBlob, error) {
	key := blobKey(prefix, u.clock.NextMillis(), up.Filename)
	info, err := u.store.Put(ctx, key, up.Reader, storage.PutObjectOptions{
		Size:        up.Size,
		ContentType: up.ContentType,
		Metadata:    map[string]string{"original-filename": up.Filename},
		Progress:    func(f float64) { u.tracker.Report(form, f) },
	})
	if err != nil {
		u.metrics.upload(editor, "failed")
		return storedBlob{}, fmt.Errorf("upload to storage: %w", err)
	}

	url, err := u.store.URL(ctx, key)
	if err != nil {
		u.metrics.upload(editor, "failed")
		u.deleteBlob(ctx, editor, key)
		return storedBlob{}, fmt.Errorf("resolve url: %w", err)
	}

	size := up.Size
	if size <= 0 {
		size = info.Size
	}
	ct := up.ContentType
	if ct == "" {
		ct = info.ContentType
	}
	u.tracker.Report(form, 1)
	return storedBlob{Key: key, URL: url, Size: size, ContentType: ct}, nil
}

// deleteBlob removes key without failing the caller.
func (u *uploader) deleteBlob(ctx context.Context, editor, key string) {
	if key == "" {
		return
	}
	err := u.store.Delete(context.WithoutCancel(ctx), key)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrObjectNotFound):
		u.log.Info("blob already gone", zap.String("editor", editor), zap.String("key", key))
	default:
		u.metrics.blobDeleteFailed(editor)
		u.log.Warn("blob delete failed", zap.String("editor", editor), zap.String("key", key), zap.Error(err))
	}
}

// removeRecord deletes the blob referenced by the record at p, then the
// record itself. The record is removed even when the blob is not.
func (b base) removeRecord(ctx context.Context, editor, p string) error {
	var ref struct {
		StoragePath string `json:"storagePath"`
	}
	snap, err := b.repo.Get(ctx, p)
	if err != nil {
		b.log.Warn("read before delete failed", zap.String("path", p), zap.Error(err))
	} else if snap.Exists() {
		if err := snap.Decode(&ref); err != nil {
			b.log.Warn("record has no readable storage path", zap.String("path", p), zap.Error(err))
		}
	}

	b.up.deleteBlob(ctx, editor, ref.StoragePath)

	if _, err := b.repo.Mutate(ctx, p, repository.Remove()); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	b.log.Info("record removed", zap.String("editor", editor), zap.String("path", p))
	return nil
}

// toggle flips a boolean field after confirming the record exists.
func (b base) toggle(ctx context.Context, p, field string, current bool) (bool, error) {
	snap, err := b.repo.Get(ctx, p)
	if err != nil {
		return current, fmt.Errorf("load %s: %w", p, err)
	}
	if !snap.Exists() {
		return current, ErrNotFound
	}
	next := !current
	if _, err := b.repo.Mutate(ctx, p, repository.Update(map[string]any{field: next})); err != nil {
		return current, fmt.Errorf("update %s: %w", p, err)
	}
	return next, nil
}
