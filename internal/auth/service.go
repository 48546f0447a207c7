// Package auth implements dashboard session authentication: login, the
// forced password-change flow and temporary password issuance by email.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shoiron/shoiron/internal/mailer"
	"github.com/shoiron/shoiron/internal/rbac"
)

const tempPasswordLength = 12

const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service implements the authentication flows.
type Service struct {
	repo            Repository
	mailer          mailer.Sender
	tempPasswordTTL time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, sender mailer.Sender, tempPasswordTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:            repo,
		mailer:          sender,
		tempPasswordTTL: tempPasswordTTL,
		logger:          logger,
		now:             time.Now,
	}
}

// Login verifies credentials and the account state. Unknown email and wrong
// password fail identically so the endpoint does not leak which emails have
// accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*rbac.Profile, error) {
	cred, err := s.repo.CredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	profile := cred.Profile
	if !profile.IsActive {
		return nil, ErrUserInactive
	}
	if profile.Role == nil || profile.Role.DeletedAt != nil || !profile.Role.IsActive {
		return nil, ErrRoleInactive
	}
	if profile.HasExpiredTempPassword(s.now()) {
		return nil, ErrTempPasswordExpired
	}
	return profile, nil
}

// ChangePassword stores a fresh hash and clears the forced-change state.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.SetPassword(ctx, userID, string(hash), false, nil)
}

// ForgotPassword issues a temporary password for the account, if one exists.
// The email is sent before any state changes; a delivery failure leaves the
// current password untouched. Returns whether an account matched.
func (s *Service) ForgotPassword(ctx context.Context, email string) (bool, error) {
	cred, err := s.repo.CredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("auth: forgot password: %w", err)
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return true, fmt.Errorf("auth: generate temp password: %w", err)
	}

	body := fmt.Sprintf(
		"Your temporary password: %s\n\nIt is valid for %d minutes. You will be asked to choose a new password after signing in.",
		tempPassword, int(s.tempPasswordTTL.Minutes()),
	)
	if err := s.mailer.Send(cred.Profile.Email, "Temporary password", body); err != nil {
		return true, fmt.Errorf("auth: send temp password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return true, fmt.Errorf("auth: hash temp password: %w", err)
	}
	expiresAt := s.now().Add(s.tempPasswordTTL)
	if err := s.repo.SetPassword(ctx, cred.Profile.ID, string(hash), true, &expiresAt); err != nil {
		return true, err
	}
	if s.logger != nil {
		s.logger.Info("temporary password issued", slog.Int64("user_id", cred.Profile.ID))
	}
	return true, nil
}

func generateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	out := make([]byte, tempPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
