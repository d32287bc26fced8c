package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/permbase/permbase/internal/rbac"
)

// ErrNameRequired indicates an empty role name.
var ErrNameRequired = errors.New("roles: role name required")

// ErrNotRestorable indicates a restore on a role that does not soft-delete.
var ErrNotRestorable = errors.New("roles: role does not support restore")

// Store is the persistence contract used by the service.
type Store interface {
	ListRoles(ctx context.Context, includeDeleted bool, limit, offset int) ([]Role, error)
	CountRoles(ctx context.Context, includeDeleted bool) (int, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string, softDeletes bool) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	SoftDeleteRole(ctx context.Context, id int64) (Role, error)
	HardDeleteRole(ctx context.Context, id int64) error
	RestoreRole(ctx context.Context, id int64) (Role, error)
}

// Service orchestrates role CRUD and notifies the lifecycle observer
// around every mutation. The observer is registered at construction; a nil
// observer disables notifications.
type Service struct {
	store    Store
	observer rbac.LifecycleObserver
}

// NewService constructs a Service with its lifecycle observer.
func NewService(store Store, observer rbac.LifecycleObserver) *Service {
	return &Service{store: store, observer: observer}
}

// ListRoles returns a page of roles, optionally including soft-deleted ones.
func (s *Service) ListRoles(ctx context.Context, includeDeleted bool, limit, offset int) ([]Role, error) {
	return s.store.ListRoles(ctx, includeDeleted, limit, offset)
}

// CountRoles returns the total matching the listing filter.
func (s *Service) CountRoles(ctx context.Context, includeDeleted bool) (int, error) {
	return s.store.CountRoles(ctx, includeDeleted)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// CreateRole inserts a role and fires the saved event.
func (s *Service) CreateRole(ctx context.Context, name, description string, softDeletes bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	role, err := s.store.CreateRole(ctx, name, strings.TrimSpace(description), softDeletes)
	if err != nil {
		return Role{}, err
	}
	if err := s.notifySaved(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates a role and fires the saved event.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	role, err := s.store.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	if err := s.notifySaved(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role. Soft-deleting roles keep their associations
// and can be restored; the rest get a hard delete preceded by association
// cleanup through the deleting event.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if s.observer != nil {
		if err := s.observer.RoleDeleting(ctx, role.rbacRole()); err != nil {
			return err
		}
	}
	if role.SoftDeletes {
		if _, err := s.store.SoftDeleteRole(ctx, id); err != nil {
			return err
		}
	} else {
		if err := s.store.HardDeleteRole(ctx, id); err != nil {
			return err
		}
	}
	if s.observer != nil {
		return s.observer.RoleDeleted(ctx, role.rbacRole())
	}
	return nil
}

// RestoreRole brings a soft-deleted role back, permissions intact, and
// fires the restored event.
func (s *Service) RestoreRole(ctx context.Context, id int64) (Role, error) {
	current, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if !current.SoftDeletes {
		return Role{}, ErrNotRestorable
	}
	role, err := s.store.RestoreRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if s.observer != nil {
		if err := s.observer.RoleRestored(ctx, role.rbacRole()); err != nil {
			return Role{}, err
		}
	}
	return role, nil
}

func (s *Service) notifySaved(ctx context.Context, role Role) error {
	if s.observer == nil {
		return nil
	}
	return s.observer.RoleSaved(ctx, role.rbacRole())
}
