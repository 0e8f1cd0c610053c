package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

// TeamMemberInput is the roster form. Image is optional on both create and update.
type TeamMemberInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Role     string  `json:"role" validate:"required,max=200"`
	Bio      string  `json:"bio" validate:"max=5000"`
	Creds    string  `json:"creds" validate:"max=500"`
	LinkedIn string  `json:"linkedin" validate:"omitempty,url,max=500"`
	Image    *Upload `json:"image" validate:"omitempty"`
}

func (in *TeamMemberInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Creds = strings.TrimSpace(in.Creds)
	in.LinkedIn = strings.TrimSpace(in.LinkedIn)
}

// TeamService manages the roster under team_members.
type TeamService interface {
	// List returns members in key order, which is creation order.
	List(ctx context.Context) ([]model.TeamMember, error)
	Get(ctx context.Context, id string) (*model.TeamMember, error)
	Create(ctx context.Context, form string, in TeamMemberInput) (*model.TeamMember, error)
	Update(ctx context.Context, form, id string, in TeamMemberInput) (*model.TeamMember, error)
	Delete(ctx context.Context, id string) error
}

type teamService struct {
	base
}

func NewTeamService(d Deps) TeamService {
	return &teamService{base: newBase(d)}
}

func (s *teamService) checkImage(in TeamMemberInput) error {
	if in.Image == nil {
		return nil
	}
	if !isImage(in.Image.ContentType) {
		return &ValidationError{Fields: map[string]string{"image": "must be an image"}}
	}
	return s.up.checkSize("image", in.Image.Size)
}

func (s *teamService) List(ctx context.Context) ([]model.TeamMember, error) {
	snap, err := s.repo.Get(ctx, model.PathTeamMembers)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	children := snap.Children()
	out := make([]model.TeamMember, 0, len(children))
	for _, c := range children {
		var m model.TeamMember
		if err := decodeChild(c, &m); err != nil {
			s.log.Warn("skipping unreadable team member", zap.String("id", c.Key), zap.Error(err))
			continue
		}
		m.ID = c.Key
		out = append(out, m)
	}
	return out, nil
}

func (s *teamService) Get(ctx context.Context, id string) (*model.TeamMember, error) {
	p, err := recordPath(model.PathTeamMembers, id)
	if err != nil {
		return nil, err
	}
	var m model.TeamMember
	if err := s.load(ctx, p, &m); err != nil {
		return nil, err
	}
	m.ID = id
	return &m, nil
}

func (s *teamService) Create(ctx context.Context, form string, in TeamMemberInput) (m *model.TeamMember, err error) {
	ctx, span := tracer.Start(ctx, "TeamService.Create")
	defer func() { finish(span, err) }()

	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkImage(in); err != nil {
		return nil, err
	}
	if err := s.up.tracker.Begin(form); err != nil {
		return nil, err
	}
	defer s.up.tracker.End(form)

	id := "member_" + strconv.FormatInt(s.up.clock.NextMillis(), 10)
	rec := model.TeamMember{
		Name:     in.Name,
		Role:     in.Role,
		Bio:      in.Bio,
		Creds:    in.Creds,
		LinkedIn: in.LinkedIn,
	}
	if in.Image != nil {
		blob, err := s.up.put(ctx, editorTeam, form, model.BlobPrefixTeam, in.Image)
		if err != nil {
			return nil, err
		}
		rec.ImageURL = blob.URL
		rec.StoragePath = blob.Key
	}

	if _, err := s.repo.Mutate(ctx, repository.Join(model.PathTeamMembers, id), repository.Set(rec)); err != nil {
		if in.Image != nil {
			s.up.metrics.upload(editorTeam, "failed")
		}
		s.up.deleteBlob(ctx, editorTeam, rec.StoragePath)
		return nil, fmt.Errorf("save team member: %w", err)
	}
	if in.Image != nil {
		s.up.metrics.upload(editorTeam, "success")
	}
	rec.ID = id

	s.log.Info("team member created", zap.String("id", id))
	return &rec, nil
}

// Update replaces the editable fields of an existing member. A new image
// replaces the old one; the old blob is removed first.
func (s *teamService) Update(ctx context.Context, form, id string, in TeamMemberInput) (m *model.TeamMember, err error) {
	ctx, span := tracer.Start(ctx, "TeamService.Update")
	defer func() { finish(span, err) }()

	p, err := recordPath(model.PathTeamMembers, id)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkImage(in); err != nil {
		return nil, err
	}

	var rec model.TeamMember
	if err := s.load(ctx, p, &rec); err != nil {
		return nil, err
	}

	if err := s.up.tracker.Begin(form); err != nil {
		return nil, err
	}
	defer s.up.tracker.End(form)

	var newBlob string
	if in.Image != nil {
		s.up.deleteBlob(ctx, editorTeam, rec.StoragePath)
		blob, err := s.up.put(ctx, editorTeam, form, model.BlobPrefixTeam, in.Image)
		if err != nil {
			return nil, err
		}
		rec.ImageURL = blob.URL
		rec.StoragePath = blob.Key
		newBlob = blob.Key
	}
	rec.Name = in.Name
	rec.Role = in.Role
	rec.Bio = in.Bio
	rec.Creds = in.Creds
	rec.LinkedIn = in.LinkedIn

	fields := map[string]any{
		"name":        rec.Name,
		"role":        rec.Role,
		"bio":         rec.Bio,
		"creds":       rec.Creds,
		"linkedin":    rec.LinkedIn,
		"image_url":   rec.ImageURL,
		"storagePath": rec.StoragePath,
	}
	if _, err := s.repo.Mutate(ctx, p, repository.Update(fields)); err != nil {
		if newBlob != "" {
			s.up.metrics.upload(editorTeam, "failed")
		}
		s.up.deleteBlob(ctx, editorTeam, newBlob)
		return nil, fmt.Errorf("update team member: %w", err)
	}
	if newBlob != "" {
		s.up.metrics.upload(editorTeam, "success")
	}
	rec.ID = id

	s.log.Info("team member updated", zap.String("id", id), zap.Bool("image_replaced", newBlob != ""))
	return &rec, nil
}

func (s *teamService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "TeamService.Delete")
	defer func() { finish(span, err) }()

	p, err := recordPath(model.PathTeamMembers, id)
	if err != nil {
		return err
	}
	return s.removeRecord(ctx, editorTeam, p)
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
