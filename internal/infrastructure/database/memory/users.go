package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/predictpesa/predictpesa-api/internal/domain/user"
)

// UserRepository implements user.Repository.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	byEmail map[string]string
}

// NewUserRepository returns an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	email := strings.ToLower(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return user.ErrEmailExists
	}
	c := *u
	r.byID[u.ID] = &c
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, user.ErrNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *UserRepository) Update(_ context.Context, u *user.User) error {
	email := strings.ToLower(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	if owner, taken := r.byEmail[email]; taken && owner != u.ID {
		return user.ErrEmailExists
	}
	delete(r.byEmail, strings.ToLower(old.Email))
	c := *u
	r.byID[u.ID] = &c
	r.byEmail[email] = u.ID
	return nil
}
