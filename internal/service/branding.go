package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

// BrandingService manages the site logo.
type BrandingService interface {
	Get(ctx context.Context) (*model.SiteIdentity, error)
	// UploadLogo stores the new logo, points site_identity at it and then
	// removes the previous logo blob.
	UploadLogo(ctx context.Context, form string, up Upload) (*model.SiteIdentity, error)
}

type brandingService struct {
	base
}

func NewBrandingService(d Deps) BrandingService {
	return &brandingService{base: newBase(d)}
}

func (s *brandingService) Get(ctx context.Context) (*model.SiteIdentity, error) {
	snap, err := s.repo.Get(ctx, model.PathSiteIdentity)
	if err != nil {
		return nil, fmt.Errorf("load site identity: %w", err)
	}
	var id model.SiteIdentity
	if err := snap.Decode(&id); err != nil {
		return nil, fmt.Errorf("decode site identity: %w", err)
	}
	return &id, nil
}

func (s *brandingService) UploadLogo(ctx context.Context, form string, up Upload) (id *model.SiteIdentity, err error) {
	ctx, span := tracer.Start(ctx, "BrandingService.UploadLogo")
	defer func() { finish(span, err) }()

	up.Filename = strings.TrimSpace(up.Filename)
	if err := validateStruct(up); err != nil {
		s.up.metrics.upload(editorBranding, "rejected")
		return nil, err
	}
	if !isImage(up.ContentType) {
		s.up.metrics.upload(editorBranding, "rejected")
		return nil, &ValidationError{Fields: map[string]string{"logo": "must be an image"}}
	}
	if err := s.up.checkSize("logo", up.Size); err != nil {
		s.up.metrics.upload(editorBranding, "rejected")
		return nil, err
	}
	if err := s.up.tracker.Begin(form); err != nil {
		return nil, err
	}
	defer s.up.tracker.End(form)

	prev, err := s.Get(ctx)
	if err != nil {
		s.log.Warn("previous logo unknown; it will not be cleaned up", zap.Error(err))
		prev = &model.SiteIdentity{}
	}

	blob, err := s.up.put(ctx, editorBranding, form, model.BlobPrefixBranding, &up)
	if err != nil {
		return nil, err
	}

	next := model.SiteIdentity{
		LogoURL:     blob.URL,
		StoragePath: blob.Key,
		UpdatedAt:   s.now().UTC().Format(time.RFC3339),
	}
	fields := map[string]any{
		"logoUrl":     next.LogoURL,
		"storagePath": next.StoragePath,
		"updatedAt":   next.UpdatedAt,
	}
	if _, err := s.repo.Mutate(ctx, model.PathSiteIdentity, repository.Update(fields)); err != nil {
		s.up.metrics.upload(editorBranding, "failed")
		s.up.deleteBlob(ctx, editorBranding, blob.Key)
		return nil, fmt.Errorf("update site identity: %w", err)
	}
	s.up.metrics.upload(editorBranding, "success")

	if prev.StoragePath != "" && prev.StoragePath != blob.Key {
		s.up.deleteBlob(ctx, editorBranding, prev.StoragePath)
	}

	s.log.Info("logo replaced", zap.String("key", blob.Key), zap.String("previous", prev.StoragePath))
	return &next, nil
}
