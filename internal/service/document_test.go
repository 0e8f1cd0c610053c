package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
	"siteadmin/internal/repository/memory"
	repoMocks "siteadmin/internal/repository/mocks"
	"siteadmin/internal/storage"
	storageMocks "siteadmin/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewDocumentService(f.deps)

	doc, err := svc.Upload(ctx, "documents", newUpload("price-list.pdf", "application/pdf", strings.Repeat("x", 2048)))
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "price-list.pdf", doc.Name)
	assert.Equal(t, "application/pdf", doc.Type)
	assert.Equal(t, "2.00 KB", doc.Size)
	assert.Equal(t, "3/5/2024, 2:07:09 PM", doc.UploadedAt)
	assert.True(t, doc.IsVisible)
	assert.True(t, strings.HasPrefix(doc.StoragePath, "documents/"))
	assert.True(t, strings.HasSuffix(doc.StoragePath, "_price-list.pdf"))
	assert.Equal(t, "http://blobs.test/"+doc.StoragePath, doc.URL)

	data, _, ok := f.store.Open(doc.StoragePath)
	require.True(t, ok, "blob must exist")
	assert.Len(t, data, 2048)

	stored, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, *doc, *stored)

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, busy := f.tracker.Progress("documents")
	assert.False(t, busy, "form is released after the upload")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.uploads.WithLabelValues(editorDocuments, "success")))
}

func TestDocumentService_Upload_RejectsBeforeTouchingCollaborators(t *testing.T) {
	f := newFixture(t)
	repo := new(repoMocks.MockRepository)
	store := new(storageMocks.MockStorage)
	svc := NewDocumentService(f.with(repo, store))

	tests := []struct {
		name string
		up   Upload
		want error
	}{
		{"no file", Upload{Filename: "a.pdf"}, ErrValidation},
		{"no name", newUpload("  ", "application/pdf", "abc"), ErrValidation},
		{"too large", Upload{Reader: strings.NewReader(""), Filename: "big.pdf", Size: 2 << 20}, ErrTooLarge},
		{"empty file", newUpload("empty.pdf", "application/pdf", ""), ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), "documents", tt.up)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var ve *ValidationError
	_, err := svc.Upload(context.Background(), "documents", newUpload("empty.pdf", "application/pdf", ""))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["file"])

	repo.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Upload_SecondUploadOnBusyFormIsRejected(t *testing.T) {
	f := newFixture(t)
	svc := NewDocumentService(f.deps)
	require.NoError(t, f.tracker.Begin("documents"))

	_, err := svc.Upload(context.Background(), "documents", newUpload("a.pdf", "application/pdf", "abc"))

	assert.ErrorIs(t, err, ErrUploadInProgress)
	assert.Empty(t, f.store.Keys())
	_, busy := f.tracker.Progress("documents")
	assert.True(t, busy, "the in-flight upload keeps the form")
}

func TestDocumentService_Upload_ReportsProgress(t *testing.T) {
	f := newFixture(t)
	store := new(storageMocks.MockStorage)
	var seen int
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(
		func(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			opt.Progress(0.5)
			seen, _ = f.tracker.Progress("documents")
			return storage.ObjectInfo{Key: key, Size: 3}
		}, nil)
	store.On("URL", mock.Anything, mock.Anything).Return("https://cdn.test/doc", nil)
	svc := NewDocumentService(f.with(f.repo, store))

	doc, err := svc.Upload(context.Background(), "documents", newUpload("a.pdf", "application/pdf", "abc"))

	require.NoError(t, err)
	assert.Equal(t, 50, seen)
	assert.Equal(t, "https://cdn.test/doc", doc.URL)
	store.AssertExpectations(t)
}

func TestDocumentService_Upload_MetadataFailureRemovesBlob(t *testing.T) {
	f := newFixture(t)
	repo := &faultyRepo{Repository: f.repo, failPath: model.PathDocuments, err: errors.New("permission denied")}
	svc := NewDocumentService(f.with(repo, f.store))

	_, err := svc.Upload(context.Background(), "documents", newUpload("a.pdf", "application/pdf", "abc"))

	assert.ErrorContains(t, err, "save document: permission denied")
	assert.Empty(t, f.store.Keys(), "no orphaned blob")
}

func TestDocumentService_Upload_RelayOutageKeepsRecordAndBlob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	broker := repository.NewBroker(nil)
	repo := memory.NewNodeRepository(broker, memory.WithNotifier(downRelay{}))
	svc := NewDocumentService(f.with(repo, f.store))

	doc, err := svc.Upload(ctx, "documents", newUpload("a.pdf", "application/pdf", "abc"))
	require.NoError(t, err)

	_, _, ok := f.store.Open(doc.StoragePath)
	assert.True(t, ok, "blob behind the record is kept")
	docs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, int64(1), broker.RelayFailures())

	require.NoError(t, svc.Delete(ctx, doc.ID))
	assert.Empty(t, f.store.Keys())
}

func TestDocumentService_SetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewDocumentService(f.deps)
	doc, err := svc.Upload(ctx, "documents", newUpload("a.pdf", "application/pdf", "abc"))
	require.NoError(t, err)
	other, err := svc.Upload(ctx, "documents", newUpload("b.pdf", "application/pdf", "def"))
	require.NoError(t, err)

	next, err := svc.SetVisibility(ctx, doc.ID, doc.IsVisible)
	require.NoError(t, err)
	assert.False(t, next)
	got, _ := svc.Get(ctx, doc.ID)
	assert.False(t, got.IsVisible)

	next, err = svc.SetVisibility(ctx, doc.ID, next)
	require.NoError(t, err)
	assert.True(t, next)
	got, _ = svc.Get(ctx, doc.ID)
	assert.Equal(t, *doc, *got, "toggling twice restores the record")

	untouched, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, *other, *untouched, "other records are not affected")

	_, err = svc.SetVisibility(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SetVisibility(ctx, "a/b", true)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record and blob", func(t *testing.T) {
		f := newFixture(t)
		svc := NewDocumentService(f.deps)
		doc, err := svc.Upload(ctx, "documents", newUpload("a.pdf", "application/pdf", "abc"))
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, doc.ID))

		_, err = svc.Get(ctx, doc.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, f.store.Keys())
	})

	t.Run("blob already gone", func(t *testing.T) {
		f := newFixture(t)
		svc := NewDocumentService(f.deps)
		doc, err := svc.Upload(ctx, "documents", newUpload("a.pdf", "application/pdf", "abc"))
		require.NoError(t, err)
		require.NoError(t, f.store.Delete(ctx, doc.StoragePath))

		require.NoError(t, svc.Delete(ctx, doc.ID))

		_, err = svc.Get(ctx, doc.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage refuses", func(t *testing.T) {
		f := newFixture(t)
		doc, err := NewDocumentService(f.deps).Upload(ctx, "documents", newUpload("a.pdf", "application/pdf", "abc"))
		require.NoError(t, err)

		store := new(storageMocks.MockStorage)
		store.On("Delete", mock.Anything, doc.StoragePath).Return(errors.New("permission denied"))
		svc := NewDocumentService(f.with(f.repo, store))

		require.NoError(t, svc.Delete(ctx, doc.ID))
		_, err = svc.Get(ctx, doc.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		store.AssertExpectations(t)
	})

	t.Run("missing record is a no-op", func(t *testing.T) {
		f := newFixture(t)
		assert.NoError(t, NewDocumentService(f.deps).Delete(ctx, "missing"))
	})
}

func TestDocumentService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewDocumentService(f.deps)

	for _, name := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		_, err := svc.Upload(ctx, "documents", newUpload(name, "application/pdf", "abc"))
		require.NoError(t, err)
	}

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "third.pdf", docs[0].Name)
	assert.Equal(t, "first.pdf", docs[2].Name)
}

type downRelay struct{}

func (downRelay) Publish(context.Context, string) error { return errors.New("redis down") }
