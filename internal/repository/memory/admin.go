package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

// AdminRepository keeps admin accounts in memory, keyed by lowercased email.
type AdminRepository struct {
	mu     sync.RWMutex
	admins map[string]model.Admin
}

func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]model.Admin)}
}

func (r *AdminRepository) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.admins[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AdminRepository) Upsert(_ context.Context, admin *model.Admin) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(admin.Email)
	stored, ok := r.admins[key]
	if !ok {
		stored = model.Admin{ID: uuid.NewString(), Email: key, CreatedAt: time.Now().UTC()}
	}
	stored.PasswordHash = admin.PasswordHash
	r.admins[key] = stored
	return &stored, nil
}
