package users

import (
	"context"
	"sync"
	"time"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/server/models"
)

// MemoryRepository is a map-backed Repository used in tests and local runs.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.byID[user.ID] = *user
	return user, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := u
	return &out, nil
}

// Delete removes a user. Test helper.
func (r *MemoryRepository) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
