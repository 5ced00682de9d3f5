// Package services contains server-side business logic. This file implements
// TokenService, the token pair lifecycle engine: issuing, rotating and
// revoking linked access/refresh token pairs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/dbx"
	"github.com/tileschb/larang-api/internal/server/auth"
	"github.com/tileschb/larang-api/internal/server/config"
	"github.com/tileschb/larang-api/internal/server/models"
	"github.com/tileschb/larang-api/internal/server/repositories/repomanager"
)

// TokenPair bundles the plaintexts of a freshly issued pair. This is the only
// moment either plaintext is observable; the store keeps hashes only.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// TokenService issues, rotates and revokes access/refresh token pairs.
// Every operation touching more than one record runs inside a single
// transaction: an observer sees either the old pair or the new one, never a
// half-written state.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Resolve maps a presented "<id>|<secret>" plaintext to its stored record:
// parse, primary-key lookup, constant-time hash comparison. It deliberately
// does not check expiry or type; call sites apply those policies, because an
// auth token must never authenticate the rotation endpoint and vice versa.
func (s *TokenService) Resolve(ctx context.Context, plain string) (*models.TokenRecord, error) {
	id, secret, err := auth.ParsePlaintext(plain)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	rec, err := s.repomanager.Tokens(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching token: %w", err)
	}

	if !auth.SecretMatches(rec.TokenHash, secret) {
		return nil, apperrors.ErrInvalidToken
	}

	return rec, nil
}

// IssuePair creates a linked auth/refresh pair for the user in one
// transaction. A nil ability list defaults to full access ("*"); an
// explicitly empty list is rejected.
func (s *TokenService) IssuePair(ctx context.Context, userID int64, abilities []string) (*TokenPair, error) {
	if abilities == nil {
		abilities = []string{"*"}
	}
	if len(abilities) == 0 {
		return nil, fmt.Errorf("abilities must be a non-empty list")
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var issueErr error
		pair, issueErr = s.issuePair(ctx, tx, userID, abilities)
		return issueErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// RefreshPair rotates a pair: the presented refresh token and its auth token
// are deleted and a new pair with the original auth abilities is issued, all
// in one transaction. A failed rotation rolls back completely, leaving the
// original pair valid. Malformed, unknown, wrong-type and expired tokens all
// fail with ErrInvalidToken.
func (s *TokenService) RefreshPair(ctx context.Context, refreshPlain string) (*TokenPair, error) {
	rec, err := s.Resolve(ctx, refreshPlain)
	if err != nil {
		return nil, err
	}
	if !rec.IsRefresh() || rec.Expired() || rec.ParentTokenID == nil {
		return nil, apperrors.ErrInvalidToken
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tokens(tx)

		authRec, err := repo.FindByID(ctx, *rec.ParentTokenID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrInvalidToken
			}
			return fmt.Errorf("error searching auth token: %w", err)
		}

		// Delete the refresh record first. When two rotations race on the
		// same token, the store serializes them here: the loser deletes
		// zero rows and the whole rotation fails.
		deleted, err := repo.DeleteByID(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			return apperrors.ErrInvalidToken
		}
		if _, err := repo.DeleteByID(ctx, authRec.ID); err != nil {
			return fmt.Errorf("error deleting auth token: %w", err)
		}

		pair, err = s.issuePair(ctx, tx, rec.UserID, authRec.Abilities)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RevokePair deletes both halves of the pair the presented token belongs to.
func (s *TokenService) RevokePair(ctx context.Context, plain string) error {
	rec, err := s.Resolve(ctx, plain)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.cascadeDelete(ctx, tx, rec)
	})
}

// RevokeOthers deletes every pair owned by the presented token's user except
// the presented pair itself.
func (s *TokenService) RevokeOthers(ctx context.Context, plain string) error {
	rec, err := s.Resolve(ctx, plain)
	if err != nil {
		return err
	}

	// Walk to the pair's auth record id.
	keepAuthID := rec.ID
	if rec.IsRefresh() {
		if rec.ParentTokenID == nil {
			return apperrors.ErrInvalidToken
		}
		keepAuthID = *rec.ParentTokenID
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tokens(tx)

		list, err := repo.ListByUser(ctx, rec.UserID)
		if err != nil {
			return fmt.Errorf("error listing tokens: %w", err)
		}
		for _, t := range list {
			if !t.IsAuth() || t.ID == keepAuthID {
				continue
			}
			if err := s.cascadeDelete(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// RevokeAll deletes every token record owned by the user.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Tokens(tx).DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error deleting tokens: %w", err)
		}
		return nil
	})
}

// --- helpers below ---

// issuePair creates the two linked records against the given handle. The
// caller owns the transaction.
func (s *TokenService) issuePair(ctx context.Context, tx dbx.DBTX, userID int64, abilities []string) (*TokenPair, error) {
	repo := s.repomanager.Tokens(tx)
	now := time.Now()

	accessExpiresAt := now.Add(s.accessTokenValidityDuration)
	accessSecret := auth.NewSecret()
	authRec := &models.TokenRecord{
		UserID:    userID,
		TokenHash: auth.HashSecret(accessSecret),
		Type:      models.TokenTypeAuth,
		Abilities: abilities,
		ExpiresAt: &accessExpiresAt,
	}
	if _, err := repo.Create(ctx, authRec); err != nil {
		return nil, fmt.Errorf("error creating auth token: %w", err)
	}

	refreshExpiresAt := now.Add(s.refreshTokenValidityDuration)
	refreshSecret := auth.NewSecret()
	refreshRec := &models.TokenRecord{
		UserID:        userID,
		TokenHash:     auth.HashSecret(refreshSecret),
		Type:          models.TokenTypeRefresh,
		Abilities:     []string{models.RefreshTokenAbility},
		ParentTokenID: &authRec.ID,
		ExpiresAt:     &refreshExpiresAt,
	}
	if _, err := repo.Create(ctx, refreshRec); err != nil {
		return nil, fmt.Errorf("error creating refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:     auth.FormatPlaintext(authRec.ID, accessSecret),
		RefreshToken:    auth.FormatPlaintext(refreshRec.ID, refreshSecret),
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

// cascadeDelete removes both halves of the pair rec belongs to: a two-step
// lookup-then-delete in either direction of the parent link.
func (s *TokenService) cascadeDelete(ctx context.Context, tx dbx.DBTX, rec *models.TokenRecord) error {
	repo := s.repomanager.Tokens(tx)

	if rec.IsAuth() {
		child, err := repo.FindByParentID(ctx, rec.ID)
		switch {
		case err == nil:
			if _, err := repo.DeleteByID(ctx, child.ID); err != nil {
				return fmt.Errorf("error deleting refresh token: %w", err)
			}
		case !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("error searching refresh token: %w", err)
		}
	} else if rec.ParentTokenID != nil {
		if _, err := repo.DeleteByID(ctx, *rec.ParentTokenID); err != nil {
			return fmt.Errorf("error deleting auth token: %w", err)
		}
	}

	if _, err := repo.DeleteByID(ctx, rec.ID); err != nil {
		return fmt.Errorf("error deleting token: %w", err)
	}
	return nil
}
