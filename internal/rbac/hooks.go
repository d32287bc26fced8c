package rbac

import (
	"context"
	"log/slog"
)

// LifecycleObserver receives role mutation events. The role service calls
// these around every save, delete and restore.
type LifecycleObserver interface {
	RoleSaved(ctx context.Context, role Role) error
	RoleDeleting(ctx context.Context, role Role) error
	RoleDeleted(ctx context.Context, role Role) error
	RoleRestored(ctx context.Context, role Role) error
}

// Hooks binds cache invalidation and association cleanup to role lifecycle
// events, and exposes the permission mutations directly. Every mutation
// runs the store operation first and invalidates the role's cache entry as
// its final step; store errors propagate before any invalidation happens.
type Hooks struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

// NewHooks constructs Hooks. The host registers the instance as the
// lifecycle observer on its role service.
func NewHooks(store Store, cache *Cache, logger *slog.Logger) *Hooks {
	return &Hooks{store: store, cache: cache, logger: logger}
}

// RoleSaved invalidates the role's cache entry after any save.
func (h *Hooks) RoleSaved(ctx context.Context, role Role) error {
	return h.invalidate(ctx, role.ID, "saved")
}

// RoleDeleting runs before a role is removed. Irreversible deletions get
// their user and permission links detached; soft-deleting roles keep their
// associations so a restore brings the permission set back.
func (h *Hooks) RoleDeleting(ctx context.Context, role Role) error {
	if role.SoftDeletes {
		return nil
	}
	if err := h.store.DetachAllUsers(ctx, role.ID); err != nil {
		return err
	}
	return h.store.DetachAllPermissions(ctx, role.ID)
}

// RoleDeleted invalidates the role's cache entry after deletion.
func (h *Hooks) RoleDeleted(ctx context.Context, role Role) error {
	return h.invalidate(ctx, role.ID, "deleted")
}

// RoleRestored invalidates the role's cache entry after a soft-deleted
// role comes back.
func (h *Hooks) RoleRestored(ctx context.Context, role Role) error {
	return h.invalidate(ctx, role.ID, "restored")
}

// SyncPermissions replaces the role's permission set with refs and
// invalidates the cache entry once.
func (h *Hooks) SyncPermissions(ctx context.Context, role Role, refs []PermissionRef) (SyncResult, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id, err := ResolvePermissionID(ref)
		if err != nil {
			return SyncResult{}, err
		}
		ids = append(ids, id)
	}
	result, err := h.store.SyncPermissions(ctx, role.ID, ids)
	if err != nil {
		return result, err
	}
	return result, h.invalidate(ctx, role.ID, "sync")
}

// AttachPermission links one permission and invalidates the cache entry.
func (h *Hooks) AttachPermission(ctx context.Context, role Role, ref PermissionRef) error {
	id, err := ResolvePermissionID(ref)
	if err != nil {
		return err
	}
	if err := h.store.AttachPermission(ctx, role.ID, id); err != nil {
		return err
	}
	return h.invalidate(ctx, role.ID, "attach")
}

// AttachPermissions attaches each ref in order. Attaches are sequential,
// not a transactional batch; the first failure stops the walk, leaving
// earlier attaches in place. The cache entry is invalidated either way.
func (h *Hooks) AttachPermissions(ctx context.Context, role Role, refs []PermissionRef) error {
	for _, ref := range refs {
		if err := h.AttachPermission(ctx, role, ref); err != nil {
			return err
		}
	}
	return nil
}

// DetachPermission removes one link and invalidates the cache entry.
func (h *Hooks) DetachPermission(ctx context.Context, role Role, ref PermissionRef) error {
	id, err := ResolvePermissionID(ref)
	if err != nil {
		return err
	}
	if err := h.store.DetachPermission(ctx, role.ID, id); err != nil {
		return err
	}
	return h.invalidate(ctx, role.ID, "detach")
}

// DetachPermissions removes the given refs. A nil slice detaches the
// role's full current set: it is a read-then-detach convenience, not an
// atomic clear, and a concurrent attach may survive it.
func (h *Hooks) DetachPermissions(ctx context.Context, role Role, refs []PermissionRef) error {
	if refs == nil {
		current, err := h.store.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return err
		}
		refs = make([]PermissionRef, 0, len(current))
		for _, p := range current {
			refs = append(refs, ByRecord(p))
		}
	}
	for _, ref := range refs {
		if err := h.DetachPermission(ctx, role, ref); err != nil {
			return err
		}
	}
	// A role with nothing attached still gets its entry dropped.
	if len(refs) == 0 {
		return h.invalidate(ctx, role.ID, "detach")
	}
	return nil
}

func (h *Hooks) invalidate(ctx context.Context, roleID int64, event string) error {
	if err := h.cache.Invalidate(ctx, roleID); err != nil {
		return err
	}
	if h.logger != nil {
		h.logger.Debug("permission cache invalidated",
			slog.Int64("role_id", roleID), slog.String("event", event))
	}
	return nil
}
