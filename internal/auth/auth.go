// Package auth signs administrators in with email and password and tracks
// their sessions. Sessions are HS256 JWTs; sign-out revokes the token ID.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

var (
	// ErrInvalidCredential means the email/password pair was rejected.
	ErrInvalidCredential = errors.New("auth/invalid-credential")
	// ErrNoSession means the token is missing, expired, malformed or revoked.
	ErrNoSession = errors.New("no session")
)

// Session is an authenticated administrator.
type Session struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"-"`
	TokenID   string    `json:"-"`
}

// Service is the authentication collaborator.
type Service interface {
	// SignIn returns ErrInvalidCredential for a rejected pair; any other
	// error means the check itself could not be performed.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignOut revokes the token. Signing out an invalid token is a no-op.
	SignOut(ctx context.Context, token string) error
	// Verify resolves a token to its session or ErrNoSession.
	Verify(ctx context.Context, token string) (*Session, error)
	// Observe emits the current session state immediately (nil when signed
	// out), then nil once the session ends by sign-out or expiry. The channel
	// closes after the final value or when ctx is done.
	Observe(ctx context.Context, token string) <-chan *Session
	// EnsureAdmin creates the admin or resets its password.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type service struct {
	admins  repository.AdminRepository
	tokens  *TokenManager
	revoked RevocationStore
	log     *zap.Logger

	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func NewService(admins repository.AdminRepository, tokens *TokenManager, revoked RevocationStore, log *zap.Logger) Service {
	return &service{
		admins:   admins,
		tokens:   tokens,
		revoked:  revoked,
		log:      log,
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredential
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	token, claims, err := s.tokens.Issue(admin.ID, admin.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info("admin signed in", zap.String("uid", admin.ID))
	return &Session{
		UID:       admin.ID,
		Email:     admin.Email,
		ExpiresAt: claims.ExpiresAt.Time,
		Token:     token,
		TokenID:   claims.ID,
	}, nil
}

func (s *service) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrNoSession
	}
	return &Session{
		UID:       claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
		Token:     token,
		TokenID:   claims.ID,
	}, nil
}

func (s *service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.mu.Lock()
	for ch := range s.watchers[claims.ID] {
		close(ch)
	}
	delete(s.watchers, claims.ID)
	s.mu.Unlock()

	s.log.Info("admin signed out", zap.String("uid", claims.Subject))
	return nil
}

func (s *service) Observe(ctx context.Context, token string) <-chan *Session {
	out := make(chan *Session, 1)

	sess, err := s.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			s.log.Warn("session check failed", zap.Error(err))
		}
		out <- nil
		close(out)
		return out
	}
	out <- sess

	ended := s.watch(sess.TokenID)
	go func() {
		defer close(out)
		defer s.unwatch(sess.TokenID, ended)

		expiry := time.NewTimer(time.Until(sess.ExpiresAt))
		defer expiry.Stop()

		select {
		case <-ctx.Done():
			return
		case <-expiry.C:
		case <-ended:
		}
		select {
		case out <- nil:
		case <-ctx.Done():
		}
	}()
	return out
}

func (s *service) watch(tokenID string) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	if s.watchers[tokenID] == nil {
		s.watchers[tokenID] = make(map[chan struct{}]struct{})
	}
	s.watchers[tokenID][ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *service) unwatch(tokenID string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.watchers[tokenID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(s.watchers, tokenID)
		}
	}
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return errors.New("admin email and password are required")
	}

	existing, err := s.admins.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) == nil {
			return nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin, err := s.admins.Upsert(ctx, &model.Admin{Email: email, PasswordHash: string(hash)})
	if err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	s.log.Info("admin account ensured", zap.String("uid", admin.ID), zap.String("email", admin.Email))
	return nil
}
