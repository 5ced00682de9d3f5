// Package repomanager wires repositories to a database handle. Repositories
// are created per call against a DBTX, so the same code path works with a
// plain connection or inside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/tileschb/larang-api/internal/dbx"
	"github.com/tileschb/larang-api/internal/server/repositories/tokens"
	"github.com/tileschb/larang-api/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
}
