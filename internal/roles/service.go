package roles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/rbac"
)

// Service implements role management. Demotions and removals that would
// leave no admin-capable principal recount inside the mutation's transaction.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// List returns one page of roles with their matrices and member counts.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Role, int, error) {
	return listRoles(ctx, s.pool, query)
}

// Get loads one role with its live members.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	role, err := getRole(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	members, err := listMembers(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	role.Members = members
	return role, nil
}

// Create inserts a role with its full matrix and optionally assigns
// employees to it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Role, error) {
	var id int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		taken, err := roleNameTaken(ctx, tx, in.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrNameTaken
		}
		id, err = insertRole(ctx, tx, in.Name, in.IsActive)
		if err != nil {
			return err
		}
		if err := rbac.UpsertPermissionRows(ctx, tx, id, in.Permissions); err != nil {
			return err
		}
		return assignMembers(ctx, tx, id, in.EmployeeIDs)
	})
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("role created", slog.Int64("id", id), slog.String("name", in.Name))
	}
	return s.Get(ctx, id)
}

// Update applies a partial update to a live role. Demoting the role out of
// admin capability is rejected when its members include the only remaining
// active admins.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Role, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		role, err := rbac.FetchRole(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if role.DeletedAt != nil {
			return ErrTrashed
		}

		nextActive, nextMatrix := nextState(role, in)
		if role.AdminCapable() && !(nextActive && nextMatrix.AllGranted()) {
			if err := s.guardDemotion(ctx, tx, id); err != nil {
				return err
			}
		}

		name := role.Name
		if in.Name != nil {
			taken, err := roleNameTaken(ctx, tx, *in.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrNameTaken
			}
			name = *in.Name
		}
		if err := updateRole(ctx, tx, id, name, nextActive); err != nil {
			return err
		}
		if in.Permissions != nil {
			if err := rbac.UpsertPermissionRows(ctx, tx, id, *in.Permissions); err != nil {
				return err
			}
		}
		if in.EmployeeIDs != nil {
			if err := replaceMembers(ctx, tx, id, *in.EmployeeIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete moves a live role to the trash and deactivates it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		role, err := rbac.FetchRole(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if role.DeletedAt != nil {
			return ErrNotFound
		}
		if role.AdminCapable() {
			if err := s.guardDemotion(ctx, tx, id); err != nil {
				return err
			}
		}
		return softDeleteRole(ctx, tx, id, time.Now())
	})
}

// Restore brings a trashed role back. It stays inactive until explicitly
// re-enabled.
func (s *Service) Restore(ctx context.Context, id int64) (*Role, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		role, err := rbac.FetchRole(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if role.DeletedAt == nil {
			return ErrNotFound
		}
		return restoreRole(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// HardDelete removes the role row; live members keep their accounts with a
// null role.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		role, err := rbac.FetchRole(ctx, tx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if role.AdminCapable() {
			if err := s.guardDemotion(ctx, tx, id); err != nil {
				return err
			}
		}
		return hardDeleteRole(ctx, tx, id)
	})
}

// guardDemotion rejects removing admin capability from a role whose active
// members are the only remaining admins.
func (s *Service) guardDemotion(ctx context.Context, q db.Querier, roleID int64) error {
	snapshot, err := rbac.FetchActiveProfiles(ctx, q)
	if err != nil {
		return err
	}
	if rbac.CountActiveMembersOfRole(snapshot, roleID) == 0 {
		return nil
	}
	if rbac.CountActiveAdminCapableOutsideRole(snapshot, roleID) <= 0 {
		return ErrLastAdminRole
	}
	return nil
}
