package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

// FileInput is the file catalog upload form.
type FileInput struct {
	Name        string  `json:"fileName" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,oneof=Marketing Finance HR Technical"`
	Description string  `json:"description" validate:"max=2000"`
	File        *Upload `json:"file" validate:"required"`
}

// FileService manages the categorized catalog under files.
type FileService interface {
	Upload(ctx context.Context, form string, in FileInput) (*model.File, error)
	// List returns the files newest first.
	List(ctx context.Context) ([]model.File, error)
	Get(ctx context.Context, id string) (*model.File, error)
	SetShowOnSite(ctx context.Context, id string, current bool) (bool, error)
	Delete(ctx context.Context, id string) error
}

type fileService struct {
	base
}

func NewFileService(d Deps) FileService {
	return &fileService{base: newBase(d)}
}

func (s *fileService) Upload(ctx context.Context, form string, in FileInput) (f *model.File, err error) {
	ctx, span := tracer.Start(ctx, "FileService.Upload")
	defer func() { finish(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		s.up.metrics.upload(editorFiles, "rejected")
		return nil, err
	}
	if err := s.up.checkSize("file", in.File.Size); err != nil {
		s.up.metrics.upload(editorFiles, "rejected")
		return nil, err
	}
	if err := s.up.tracker.Begin(form); err != nil {
		return nil, err
	}
	defer s.up.tracker.End(form)

	blob, err := s.up.put(ctx, editorFiles, form, model.BlobPrefixFiles, in.File)
	if err != nil {
		return nil, err
	}

	rec := model.File{
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		Size:        formatMB(blob.Size),
		UploadDate:  s.now().In(s.loc).Format(uploadDateLayout),
		FileURL:     blob.URL,
		ShowOnSite:  true,
		StoragePath: blob.Key,
	}
	res, err := s.repo.Mutate(ctx, model.PathFiles, repository.Push(rec))
	if err != nil {
		s.up.metrics.upload(editorFiles, "failed")
		s.up.deleteBlob(ctx, editorFiles, blob.Key)
		return nil, fmt.Errorf("save file: %w", err)
	}
	rec.ID = res.Key

	s.up.metrics.upload(editorFiles, "success")
	s.log.Info("file uploaded",
		zap.String("id", rec.ID),
		zap.String("category", rec.Category),
		zap.String("key", blob.Key),
	)
	return &rec, nil
}

func (s *fileService) List(ctx context.Context) ([]model.File, error) {
	snap, err := s.repo.Get(ctx, model.PathFiles)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	children := snap.Children()
	out := make([]model.File, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		var f model.File
		if err := decodeChild(children[i], &f); err != nil {
			s.log.Warn("skipping unreadable file", zap.String("id", children[i].Key), zap.Error(err))
			continue
		}
		f.ID = children[i].Key
		out = append(out, f)
	}
	return out, nil
}

func (s *fileService) Get(ctx context.Context, id string) (*model.File, error) {
	p, err := recordPath(model.PathFiles, id)
	if err != nil {
		return nil, err
	}
	var f model.File
	if err := s.load(ctx, p, &f); err != nil {
		return nil, err
	}
	f.ID = id
	return &f, nil
}

func (s *fileService) SetShowOnSite(ctx context.Context, id string, current bool) (bool, error) {
	p, err := recordPath(model.PathFiles, id)
	if err != nil {
		return current, err
	}
	return s.toggle(ctx, p, "showOnSite", current)
}

func (s *fileService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "FileService.Delete")
	defer func() { finish(span, err) }()

	p, err := recordPath(model.PathFiles, id)
	if err != nil {
		return err
	}
	return s.removeRecord(ctx, editorFiles, p)
}
