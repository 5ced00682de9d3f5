package repomanager

import (
	"context"
	"database/sql"

	"github.com/tileschb/larang-api/internal/dbx"
	"github.com/tileschb/larang-api/internal/server/repositories/tokens"
	"github.com/tileschb/larang-api/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out shared in-memory repositories and
// ignores the database handle it is given. Used in tests, where transactions
// are provided by sqlmock and the repositories keep their own state.
type MemoryRepositoryManager struct {
	users  *users.MemoryRepository
	tokens *tokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryRepository(),
		tokens: tokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Tokens(dbx.DBTX) tokens.Repository {
	return m.tokens
}

// TokenStore exposes the underlying token repository for test inspection.
func (m *MemoryRepositoryManager) TokenStore() *tokens.MemoryRepository {
	return m.tokens
}

// UserStore exposes the underlying user repository for test inspection.
func (m *MemoryRepositoryManager) UserStore() *users.MemoryRepository {
	return m.users
}
