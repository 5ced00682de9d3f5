package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/server/repositories/repomanager"
)

func TestRegister_HashesPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := repomanager.NewMemoryRepositoryManager()
	s := NewUserService(db, m)

	user, err := s.Register(context.Background(), "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("user id not assigned")
	}
	if user.PasswordHash == "s3cret-pass" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := repomanager.NewMemoryRepositoryManager()
	s := NewUserService(db, m)

	if _, err := s.Register(context.Background(), "Alice", "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, err := s.Register(context.Background(), "Alice Again", "alice@example.com", "another-pass")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeValidation {
		t.Fatalf("want VALIDATION_ERROR, got %v", err)
	}
	if _, ok := appErr.Details["email"]; !ok {
		t.Fatalf("details must name the email field: %v", appErr.Details)
	}
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := repomanager.NewMemoryRepositoryManager()
	s := NewUserService(db, m)

	if _, err := s.Register(context.Background(), "Bob", "bob@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	user, err := s.Login(context.Background(), "bob@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if user.Email != "bob@example.com" {
		t.Fatalf("wrong user: %+v", user)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := repomanager.NewMemoryRepositoryManager()
	s := NewUserService(db, m)

	if _, err := s.Register(context.Background(), "Bob", "bob@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, errWrongPass := s.Login(context.Background(), "bob@example.com", "not-the-pass")
	_, errUnknown := s.Login(context.Background(), "nobody@example.com", "s3cret-pass")

	for _, err := range []error{errWrongPass, errUnknown} {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeInvalidCredentials {
			t.Fatalf("want INVALID_CREDENTIALS, got %v", err)
		}
		if appErr.Message != "Invalid credentials provided." {
			t.Fatalf("unexpected message: %q", appErr.Message)
		}
	}
}
