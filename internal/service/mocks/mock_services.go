package mocks

import (
	"context"

	"siteadmin/internal/model"
	"siteadmin/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, form string, up service.Upload) (*model.Document, error) {
	args := m.Called(ctx, form, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) SetVisibility(ctx context.Context, id string, current bool) (bool, error) {
	args := m.Called(ctx, id, current)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, form string, in service.FileInput) (*model.File, error) {
	args := m.Called(ctx, form, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context) ([]model.File, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}

func (m *MockFileService) Get(ctx context.Context, id string) (*model.File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) SetShowOnSite(ctx context.Context, id string, current bool) (bool, error) {
	args := m.Called(ctx, id, current)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) List(ctx context.Context) ([]model.TeamMember, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TeamMember), args.Error(1)
}

func (m *MockTeamService) Get(ctx context.Context, id string) (*model.TeamMember, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *MockTeamService) Create(ctx context.Context, form string, in service.TeamMemberInput) (*model.TeamMember, error) {
	args := m.Called(ctx, form, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *MockTeamService) Update(ctx context.Context, form, id string, in service.TeamMemberInput) (*model.TeamMember, error) {
	args := m.Called(ctx, form, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *MockTeamService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Get(ctx context.Context) (*model.ContactView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactView), args.Error(1)
}

func (m *MockContactService) SaveContact(ctx context.Context, info model.ContactInfo) error {
	args := m.Called(ctx, info)
	return args.Error(0)
}

func (m *MockContactService) SaveHours(ctx context.Context, hours model.BusinessHours) error {
	args := m.Called(ctx, hours)
	return args.Error(0)
}

func (m *MockContactService) SaveAll(ctx context.Context, v model.ContactView) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

type MockBrandingService struct {
	mock.Mock
}

func (m *MockBrandingService) Get(ctx context.Context) (*model.SiteIdentity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteIdentity), args.Error(1)
}

func (m *MockBrandingService) UploadLogo(ctx context.Context, form string, up service.Upload) (*model.SiteIdentity, error) {
	args := m.Called(ctx, form, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteIdentity), args.Error(1)
}
