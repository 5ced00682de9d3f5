// Package tokens declares the repository contract for persisted token
// records and provides Postgres and in-memory implementations.
package tokens

import (
	"context"
	"time"

	"github.com/tileschb/larang-api/internal/server/models"
)

// Repository defines storage operations for token records. Implementations
// must return apperrors.ErrNotFound when a lookup misses.
//
// Cascade semantics live in the service layer as explicit two-step
// lookup-then-delete; the repository only deletes what it is told to.
type Repository interface {
	// Create persists a new record and fills in its generated fields.
	Create(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error)

	// FindByID looks up a record by primary key.
	FindByID(ctx context.Context, id int64) (*models.TokenRecord, error)

	// FindByParentID returns the refresh record linked to the given auth
	// record, if any.
	FindByParentID(ctx context.Context, parentID int64) (*models.TokenRecord, error)

	// ListByUser returns every record owned by the user, oldest first.
	ListByUser(ctx context.Context, userID int64) ([]*models.TokenRecord, error)

	// UpdateExpiresAt overwrites a record's expiry. This is the only mutation
	// a stored token ever receives.
	UpdateExpiresAt(ctx context.Context, id int64, expiresAt *time.Time) error

	// DeleteByID removes a record. The boolean reports whether a row was
	// actually deleted, letting callers detect a concurrent deletion.
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// DeleteByUser removes every record owned by the user and returns the
	// number of rows deleted.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
