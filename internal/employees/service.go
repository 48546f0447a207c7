package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/rbac"
)

// Service implements employee management. Mutations that can remove admin
// capability recount the remaining admins inside the same transaction.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// List returns one page of employees with the total match count.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Employee, int, error) {
	return listEmployees(ctx, s.pool, query)
}

// Get loads one employee regardless of trash state.
func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	profile, err := rbac.FetchProfile(ctx, s.pool, id)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromProfile(profile), nil
}

// Create registers a new dashboard user under a live role.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Employee, error) {
	in.Email = normalizeEmail(in.Email)

	role, err := rbac.FetchRole(ctx, s.pool, in.RoleID)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return nil, ErrRoleUnavailable
		}
		return nil, err
	}
	if role.DeletedAt != nil {
		return nil, ErrRoleUnavailable
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("employees: hash password: %w", err)
	}

	var id int64
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		taken, err := emailInUse(ctx, tx, in.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		id, err = insertEmployee(ctx, tx, in, string(hash))
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("employee created", slog.Int64("id", id))
	}
	return s.Get(ctx, id)
}

// Update applies a partial update. Self-deactivation is rejected before
// anything else; demotions that would leave zero active admins are rejected
// inside the transaction.
func (s *Service) Update(ctx context.Context, actorID, id int64, in UpdateInput) (*Employee, error) {
	if in.IsActive != nil && !*in.IsActive && id == actorID {
		return nil, ErrSelfDeactivate
	}

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		profile, err := rbac.FetchProfile(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		wasAdminCapable := profile.AdminCapable()

		if in.RoleID != nil {
			role, err := rbac.FetchRole(ctx, tx, *in.RoleID)
			if err != nil {
				if errors.Is(err, rbac.ErrNotFound) {
					return ErrRoleUnavailable
				}
				return err
			}
			if role.DeletedAt != nil {
				return ErrRoleUnavailable
			}
			profile.Role = role
		}
		if in.FullName != nil {
			profile.FullName = *in.FullName
		}
		if in.IsActive != nil {
			profile.IsActive = *in.IsActive
		}
		if in.Email != nil {
			email := normalizeEmail(*in.Email)
			taken, err := emailInUse(ctx, tx, email, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
			profile.Email = email
		}

		if wasAdminCapable && !profile.AdminCapable() {
			snapshot, err := rbac.FetchActiveProfiles(ctx, tx)
			if err != nil {
				return err
			}
			if rbac.CountActiveAdminCapable(snapshot, id) == 0 {
				return ErrLastAdmin
			}
		}

		var roleID *int64
		if profile.Role != nil {
			roleID = &profile.Role.ID
		}
		return updateEmployee(ctx, tx, id, profile.FullName, profile.Email, roleID, profile.IsActive)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete moves a live employee to the trash and deactivates the account.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return ErrSelfDelete
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		profile, err := rbac.FetchProfile(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if profile.DeletedAt != nil {
			return ErrNotFound
		}
		if err := s.guardRemoval(ctx, tx, profile); err != nil {
			return err
		}
		return softDeleteEmployee(ctx, tx, id, time.Now())
	})
}

// Restore brings a trashed employee back as active.
func (s *Service) Restore(ctx context.Context, id int64) (*Employee, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		profile, err := rbac.FetchProfile(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if profile.DeletedAt == nil {
			return ErrNotFound
		}
		return restoreEmployee(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// HardDelete removes the row, and with it the authentication identity.
func (s *Service) HardDelete(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return ErrSelfDelete
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		profile, err := rbac.FetchProfile(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := s.guardRemoval(ctx, tx, profile); err != nil {
			return err
		}
		return hardDeleteEmployee(ctx, tx, id)
	})
}

// ResetPassword sets a new password chosen by an admin and clears any
// forced-change state.
func (s *Service) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	profile, err := rbac.FetchProfile(ctx, s.pool, id)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if profile.DeletedAt != nil {
		return ErrNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("employees: hash password: %w", err)
	}
	return setEmployeePassword(ctx, s.pool, id, string(hash))
}

// guardRemoval rejects removing the last active admin-capable account.
func (s *Service) guardRemoval(ctx context.Context, q db.Querier, profile *rbac.Profile) error {
	if !profile.AdminCapable() {
		return nil
	}
	snapshot, err := rbac.FetchActiveProfiles(ctx, q)
	if err != nil {
		return err
	}
	if rbac.CountActiveAdminCapable(snapshot, profile.ID) == 0 {
		return ErrLastAdmin
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
