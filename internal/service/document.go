package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

// DocumentService manages the public downloads under site_documents.
type DocumentService interface {
	Upload(ctx context.Context, form string, up Upload) (*model.Document, error)
	// List returns the documents newest first.
	List(ctx context.Context) ([]model.Document, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	// SetVisibility stores the negation of current and returns it.
	SetVisibility(ctx context.Context, id string, current bool) (bool, error)
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	base
}

func NewDocumentService(d Deps) DocumentService {
	return &documentService{base: newBase(d)}
}

func (s *documentService) Upload(ctx context.Context, form string, up Upload) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer func() { finish(span, err) }()

	up.Filename = strings.TrimSpace(up.Filename)
	if err := validateStruct(up); err != nil {
		s.up.metrics.upload(editorDocuments, "rejected")
		return nil, err
	}
	if err := s.up.checkSize("file", up.Size); err != nil {
		s.up.metrics.upload(editorDocuments, "rejected")
		return nil, err
	}
	if err := s.up.tracker.Begin(form); err != nil {
		return nil, err
	}
	defer s.up.tracker.End(form)

	blob, err := s.up.put(ctx, editorDocuments, form, model.BlobPrefixDocuments, &up)
	if err != nil {
		return nil, err
	}

	rec := model.Document{
		Name:        up.Filename,
		URL:         blob.URL,
		Type:        blob.ContentType,
		Size:        formatKB(blob.Size),
		UploadedAt:  s.now().In(s.loc).Format(uploadedAtLayout),
		IsVisible:   true,
		StoragePath: blob.Key,
	}
	res, err := s.repo.Mutate(ctx, model.PathDocuments, repository.Push(rec))
	if err != nil {
		s.up.metrics.upload(editorDocuments, "failed")
		s.up.deleteBlob(ctx, editorDocuments, blob.Key)
		return nil, fmt.Errorf("save document: %w", err)
	}
	rec.ID = res.Key

	s.up.metrics.upload(editorDocuments, "success")
	s.log.Info("document uploaded", zap.String("id", rec.ID), zap.String("key", blob.Key), zap.Int64("size", blob.Size))
	return &rec, nil
}

func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	snap, err := s.repo.Get(ctx, model.PathDocuments)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	children := snap.Children()
	out := make([]model.Document, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		var d model.Document
		if err := decodeChild(children[i], &d); err != nil {
			s.log.Warn("skipping unreadable document", zap.String("id", children[i].Key), zap.Error(err))
			continue
		}
		d.ID = children[i].Key
		out = append(out, d)
	}
	return out, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	p, err := recordPath(model.PathDocuments, id)
	if err != nil {
		return nil, err
	}
	var d model.Document
	if err := s.load(ctx, p, &d); err != nil {
		return nil, err
	}
	d.ID = id
	return &d, nil
}

func (s *documentService) SetVisibility(ctx context.Context, id string, current bool) (bool, error) {
	p, err := recordPath(model.PathDocuments, id)
	if err != nil {
		return current, err
	}
	return s.toggle(ctx, p, "isVisible", current)
}

func (s *documentService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete")
	defer func() { finish(span, err) }()

	p, err := recordPath(model.PathDocuments, id)
	if err != nil {
		return err
	}
	return s.removeRecord(ctx, editorDocuments, p)
}
