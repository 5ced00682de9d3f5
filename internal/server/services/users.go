package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/server/auth"
	"github.com/tileschb/larang-api/internal/server/models"
	"github.com/tileschb/larang-api/internal/server/repositories/repomanager"
)

// UserService provides registration and credential verification. Password
// checking is a single opaque verify(plaintext, hash) capability backed by
// bcrypt; the token engine never sees passwords.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	return &UserService{db: db, repomanager: m}
}

// Register creates a new user with a hashed password.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Validation(map[string]any{
			"email": []string{"The email has already been taken."},
		})
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash}
	user, err = repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login verifies the email/password pair. Any mismatch, including an unknown
// email, yields the same INVALID_CREDENTIALS failure so callers cannot tell
// which half was wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, apperrors.InvalidCredentials()
	}
	return user, nil
}

// GetByID returns the user with the given id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}
