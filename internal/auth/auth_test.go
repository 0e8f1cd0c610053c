package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"siteadmin/internal/repository"
	"siteadmin/internal/repository/memory"
	repoMocks "siteadmin/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, admins repository.AdminRepository, ttl time.Duration) Service {
	t.Helper()
	tokens, err := NewTokenManager(testSecret, ttl)
	require.NoError(t, err)
	return NewService(admins, tokens, NewMemoryRevocations(), zap.NewNop())
}

func seededService(t *testing.T) Service {
	t.Helper()
	svc := newTestService(t, memory.NewAdminRepository(), time.Hour)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "owner@example.com", "s3cret-pass"))
	return svc
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := seededService(t)

	t.Run("valid credentials", func(t *testing.T) {
		sess, err := svc.SignIn(ctx, "  Owner@Example.com ", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", sess.Email)
		assert.NotEmpty(t, sess.UID)
		assert.NotEmpty(t, sess.Token)
		assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "owner@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "stranger@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("blank fields", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "", "")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestSignIn_BackendFailureIsNotACredentialError(t *testing.T) {
	admins := new(repoMocks.MockAdminRepository)
	admins.On("FindByEmail", mock.Anything, "owner@example.com").Return(nil, errors.New("connection refused"))
	svc := newTestService(t, admins, time.Hour)

	_, err := svc.SignIn(context.Background(), "owner@example.com", "pw")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredential)
	admins.AssertExpectations(t)
}

func TestVerifyAndSignOut(t *testing.T) {
	ctx := context.Background()
	svc := seededService(t)

	sess, err := svc.SignIn(ctx, "owner@example.com", "s3cret-pass")
	require.NoError(t, err)

	got, err := svc.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UID, got.UID)

	require.NoError(t, svc.SignOut(ctx, sess.Token))

	_, err = svc.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, svc.SignOut(ctx, "garbage"))

	_, err = svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.Verify(ctx, sess.Token+"x")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestObserve(t *testing.T) {
	ctx := context.Background()

	t.Run("no session emits nil and closes", func(t *testing.T) {
		svc := seededService(t)
		ch := svc.Observe(ctx, "")

		assert.Nil(t, <-ch)
		_, open := <-ch
		assert.False(t, open)
	})

	t.Run("sign-out ends the session", func(t *testing.T) {
		svc := seededService(t)
		sess, err := svc.SignIn(ctx, "owner@example.com", "s3cret-pass")
		require.NoError(t, err)

		ch := svc.Observe(ctx, sess.Token)
		first := <-ch
		require.NotNil(t, first)
		assert.Equal(t, sess.UID, first.UID)

		require.NoError(t, svc.SignOut(ctx, sess.Token))

		select {
		case s := <-ch:
			assert.Nil(t, s)
		case <-time.After(time.Second):
			t.Fatal("sign-out was not observed")
		}
	})

	t.Run("expiry ends the session", func(t *testing.T) {
		svc := newTestService(t, memory.NewAdminRepository(), 1500*time.Millisecond)
		require.NoError(t, svc.EnsureAdmin(ctx, "owner@example.com", "s3cret-pass"))
		sess, err := svc.SignIn(ctx, "owner@example.com", "s3cret-pass")
		require.NoError(t, err)

		ch := svc.Observe(ctx, sess.Token)
		require.NotNil(t, <-ch)

		select {
		case s := <-ch:
			assert.Nil(t, s)
		case <-time.After(3 * time.Second):
			t.Fatal("expiry was not observed")
		}
	})

	t.Run("cancel closes without a value", func(t *testing.T) {
		svc := seededService(t)
		sess, err := svc.SignIn(ctx, "owner@example.com", "s3cret-pass")
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		ch := svc.Observe(cctx, sess.Token)
		require.NotNil(t, <-ch)
		cancel()

		_, open := <-ch
		assert.False(t, open)
	})
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	admins := memory.NewAdminRepository()
	svc := newTestService(t, admins, time.Hour)

	require.NoError(t, svc.EnsureAdmin(ctx, "owner@example.com", "first"))
	first, err := admins.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.PasswordHash, "$2a$"))

	require.NoError(t, svc.EnsureAdmin(ctx, "owner@example.com", "first"))
	same, _ := admins.FindByEmail(ctx, "owner@example.com")
	assert.Equal(t, first.PasswordHash, same.PasswordHash)

	require.NoError(t, svc.EnsureAdmin(ctx, "owner@example.com", "second"))
	_, err = svc.SignIn(ctx, "owner@example.com", "second")
	assert.NoError(t, err)

	assert.Error(t, svc.EnsureAdmin(ctx, "", "pw"))
}

func TestEnsureAdmin_SaveFailure(t *testing.T) {
	admins := new(repoMocks.MockAdminRepository)
	admins.On("FindByEmail", mock.Anything, "owner@example.com").Return(nil, repository.ErrNotFound)
	admins.On("Upsert", mock.Anything, mock.AnythingOfType("*model.Admin")).Return(nil, errors.New("read-only"))
	svc := newTestService(t, admins, time.Hour)

	err := svc.EnsureAdmin(context.Background(), "owner@example.com", "pw")
	assert.ErrorContains(t, err, "save admin: read-only")

	admins.AssertExpectations(t)
}
