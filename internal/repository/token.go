package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backend/internal/crypto"
	"backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// TokenRepository keeps at most one refresh token per user. The user_id
// primary key enforces the single slot; Issue replaces the previous record
// inside one transaction, so the moment a new token exists the old one
// stops validating.
type TokenRepository interface {
	Issue(ctx context.Context, userID uuid.UUID, refreshToken string) error
	Verify(ctx context.Context, userID uuid.UUID, refreshToken string) (bool, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

type tokenRepository struct {
	db     *sqlx.DB
	hasher *crypto.Hasher
	log    *logrus.Logger
}

func NewTokenRepository(db *sqlx.DB, hasher *crypto.Hasher, log *logrus.Logger) TokenRepository {
	return &tokenRepository{db: db, hasher: hasher, log: log}
}

func (r *tokenRepository) Issue(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	hashed, err := r.hasher.Hash(refreshToken)
	if err != nil {
		return fmt.Errorf("failed to hash refresh token: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM token_info WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO token_info (user_id, refresh_token) VALUES ($1, $2)`, userID, hashed); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *tokenRepository) Verify(ctx context.Context, userID uuid.UUID, refreshToken string) (bool, error) {
	var info models.RefreshTokenInfo
	query := `SELECT user_id, refresh_token, created FROM token_info WHERE user_id = $1`
	err := r.db.GetContext(ctx, &info, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.hasher.Verify(refreshToken, info.RefreshToken), nil
}

// Revoke is idempotent; revoking a user with no stored token is a no-op.
func (r *tokenRepository) Revoke(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM token_info WHERE user_id = $1`, userID)
	return err
}
