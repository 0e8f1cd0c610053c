package mocks

import (
	"context"

	"siteadmin/internal/auth"

	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockService) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockService) Verify(ctx context.Context, token string) (*auth.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

// Observe emits the configured session once and closes.
func (m *MockService) Observe(ctx context.Context, token string) <-chan *auth.Session {
	args := m.Called(ctx, token)
	ch := make(chan *auth.Session, 1)
	if s, ok := args.Get(0).(*auth.Session); ok {
		ch <- s
	} else {
		ch <- nil
	}
	close(ch)
	return ch
}

func (m *MockService) EnsureAdmin(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}
