package repository

import (
	"context"
	"database/sql"
	"errors"

	"backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound signals a lookup miss.
	ErrNotFound = errors.New("record not found")
	// ErrUserDisabled signals that the account exists but is disabled.
	// Disabled accounts are never updated or resurrected by the upsert.
	ErrUserDisabled = errors.New("user account is disabled")
)

type UserRepository interface {
	UpsertByExtID(ctx context.Context, extID, username string, givenName, familyName, fullName *string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewUserRepository(db *sqlx.DB, log *logrus.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

// UpsertByExtID creates the user on first login and refreshes the mutable
// name fields on every following one. The whole decision runs in a single
// statement so concurrent logins for the same ext_id race on the unique
// constraint, not on a check-then-act gap. The DO UPDATE is gated on
// disabled = false; zero rows back means the account is disabled.
func (r *userRepository) UpsertByExtID(ctx context.Context, extID, username string, givenName, familyName, fullName *string) (*models.User, error) {
	query := `
		INSERT INTO "user" (id, ext_id, username, given_name, family_name, full_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ext_id) DO UPDATE
		SET username    = EXCLUDED.username,
		    given_name  = EXCLUDED.given_name,
		    family_name = EXCLUDED.family_name,
		    full_name   = EXCLUDED.full_name
		WHERE "user".disabled = false
		RETURNING id, ext_id, disabled, superuser, created, username, given_name, family_name, full_name`

	var user models.User
	err := r.db.QueryRowxContext(ctx, query, uuid.New(), extID, username, givenName, familyName, fullName).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		r.log.WithField("ext_id", extID).Warn("Login attempt for disabled account")
		return nil, ErrUserDisabled
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT id, ext_id, disabled, superuser, created, username, given_name, family_name, full_name FROM "user" WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
