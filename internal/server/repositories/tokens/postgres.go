package tokens

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/dbx"
	"github.com/tileschb/larang-api/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `id, user_id, token_hash, type, abilities, parent_token_id, expires_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	abilities, err := json.Marshal(rec.Abilities)
	if err != nil {
		return nil, errors.Wrap(err, "tokensRepo.Create.Marshal")
	}

	query :=
		`INSERT INTO tokens (user_id, token_hash, type, abilities, parent_token_id, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.TokenHash, string(rec.Type), abilities,
		nullableID(rec.ParentTokenID), nullableTime(rec.ExpiresAt),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		return nil, errors.Wrap(err, "tokensRepo.Create.Scan")
	}

	return rec, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "tokensRepo.FindByID")
}

func (r *PostgresRepository) FindByParentID(ctx context.Context, parentID int64) (*models.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE parent_token_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, parentID), "tokensRepo.FindByParentID")
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "tokensRepo.ListByUser.Query")
	}
	defer rows.Close()

	var out []*models.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "tokensRepo.ListByUser.Scan")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "tokensRepo.ListByUser.Rows")
	}
	return out, nil
}

func (r *PostgresRepository) UpdateExpiresAt(ctx context.Context, id int64, expiresAt *time.Time) error {
	query := `UPDATE tokens SET expires_at = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, nullableTime(expiresAt))
	if err != nil {
		return errors.Wrap(err, "tokensRepo.UpdateExpiresAt.Exec")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "tokensRepo.DeleteByID.Exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "tokensRepo.DeleteByID.RowsAffected")
	}
	return n > 0, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "tokensRepo.DeleteByUser.Exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "tokensRepo.DeleteByUser.RowsAffected")
	}
	return n, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row, op string) (*models.TokenRecord, error) {
	rec, err := scanToken(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, op+".Scan")
	}
	return rec, nil
}

func scanToken(scan func(dest ...any) error) (*models.TokenRecord, error) {
	var (
		rec       models.TokenRecord
		typ       string
		abilities []byte
		parentID  sql.NullInt64
		expiresAt sql.NullTime
	)

	err := scan(&rec.ID, &rec.UserID, &rec.TokenHash, &typ, &abilities,
		&parentID, &expiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// CHAR(64) columns come back space-padded on some drivers.
	rec.TokenHash = strings.TrimRight(rec.TokenHash, " ")
	rec.Type = models.TokenType(typ)
	if err := json.Unmarshal(abilities, &rec.Abilities); err != nil {
		return nil, err
	}
	if parentID.Valid {
		rec.ParentTokenID = &parentID.Int64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	return &rec, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
