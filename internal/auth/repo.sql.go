package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoiron/shoiron/internal/rbac"
)

// Repository abstracts credential storage for the service.
type Repository interface {
	CredentialByEmail(ctx context.Context, email string) (*Credential, error)
	SetPassword(ctx context.Context, userID int64, hash string, mustChange bool, expiresAt *time.Time) error
}

// PGRepository implements Repository over postgres.
type PGRepository struct {
	Pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{Pool: pool}
}

// CredentialByEmail loads a live profile and its password hash by email.
// Returns rbac.ErrNotFound when no live user matches.
func (r *PGRepository) CredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	profile, err := rbac.FetchProfileByEmail(ctx, r.Pool, email)
	if err != nil {
		return nil, err
	}
	var hash string
	err = r.Pool.QueryRow(ctx, `SELECT password_hash FROM dashboard_users WHERE id = $1`, profile.ID).Scan(&hash)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch password hash: %w", err)
	}
	return &Credential{Profile: profile, PasswordHash: hash}, nil
}

// SetPassword stores a new password hash together with the forced-change
// flag and its expiry in one statement.
func (r *PGRepository) SetPassword(ctx context.Context, userID int64, hash string, mustChange bool, expiresAt *time.Time) error {
	_, err := r.Pool.Exec(ctx, `UPDATE dashboard_users
		SET password_hash = $2, must_change_password = $3, temp_password_expires_at = $4, updated_at = now()
		WHERE id = $1`, userID, hash, mustChange, expiresAt)
	if err != nil {
		return fmt.Errorf("auth: set password: %w", err)
	}
	return nil
}
