package tokens

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/server/models"
)

// MemoryRepository is a map-backed Repository used in tests and local runs.
// A single mutex serializes all access, which also serializes concurrent
// rotations the way the database's row locks would.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.TokenRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.TokenRecord)}
}

func (r *MemoryRepository) Create(_ context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	rec.ID = r.nextID
	rec.CreatedAt = now
	rec.UpdatedAt = now

	r.byID[rec.ID] = cloneToken(rec)
	return rec, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneToken(&rec)
	return &out, nil
}

func (r *MemoryRepository) FindByParentID(_ context.Context, parentID int64) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.byID {
		if rec.ParentTokenID != nil && *rec.ParentTokenID == parentID {
			out := cloneToken(&rec)
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.TokenRecord
	for _, rec := range r.byID {
		if rec.UserID == userID {
			c := cloneToken(&rec)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) UpdateExpiresAt(_ context.Context, id int64, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if expiresAt != nil {
		t := *expiresAt
		rec.ExpiresAt = &t
	} else {
		rec.ExpiresAt = nil
	}
	rec.UpdatedAt = time.Now()
	r.byID[id] = rec
	return nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.byID {
		if rec.UserID == userID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored records. Test helper.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func cloneToken(rec *models.TokenRecord) models.TokenRecord {
	out := *rec
	out.Abilities = append([]string(nil), rec.Abilities...)
	if rec.ParentTokenID != nil {
		id := *rec.ParentTokenID
		out.ParentTokenID = &id
	}
	if rec.ExpiresAt != nil {
		t := *rec.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}
