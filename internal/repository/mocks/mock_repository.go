package mocks

import (
	"context"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, path string) (repository.Snapshot, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(repository.Snapshot), args.Error(1)
}

func (m *MockRepository) Subscribe(ctx context.Context, path string) (*repository.Subscription, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Subscription), args.Error(1)
}

func (m *MockRepository) Mutate(ctx context.Context, path string, op repository.Operation) (repository.Result, error) {
	args := m.Called(ctx, path, op)
	return args.Get(0).(repository.Result), args.Error(1)
}

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Admin), args.Error(1)
}

func (m *MockAdminRepository) Upsert(ctx context.Context, admin *model.Admin) (*model.Admin, error) {
	args := m.Called(ctx, admin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Admin), args.Error(1)
}
