package rbac

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestHooks(t *testing.T) (*Hooks, *Matcher, *memoryStore, *miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := newMemoryStore()
	cache := NewCache(client, "", func() time.Duration { return time.Minute })
	return NewHooks(store, cache, nil), NewMatcher(store, cache), store, mr, cache
}

func TestAttachInvalidatesStaleDenial(t *testing.T) {
	hooks, matcher, store, _, _ := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1}

	// Cache a denial first.
	ok, err := matcher.HasPermission(ctx, role.ID, "perm.9")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, hooks.AttachPermission(ctx, role, ByID(9)))

	ok, err = matcher.HasPermission(ctx, role.ID, "perm.9")
	require.NoError(t, err)
	require.True(t, ok, "attach must invalidate the cached denial")
	require.Equal(t, 2, store.listCalls)
}

func TestDetachInvalidates(t *testing.T) {
	hooks, matcher, _, _, _ := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1}

	require.NoError(t, hooks.AttachPermission(ctx, role, ByID(5)))
	ok, err := matcher.HasPermission(ctx, role.ID, "perm.5")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, hooks.DetachPermission(ctx, role, ByID(5)))
	ok, err = matcher.HasPermission(ctx, role.ID, "perm.5")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSyncPermissionsDiff(t *testing.T) {
	hooks, _, store, mr, cache := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1}

	require.NoError(t, store.AttachPermission(ctx, role.ID, 1))
	require.NoError(t, store.AttachPermission(ctx, role.ID, 2))

	// Populate the cache so the sync has something to invalidate.
	_, err := cache.Get(ctx, role.ID, func(ctx context.Context) ([]Permission, error) {
		return store.ListRolePermissions(ctx, role.ID)
	})
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.Key(role.ID)))

	result, err := hooks.SyncPermissions(ctx, role, []PermissionRef{ByID(2), ByID(3)})
	require.NoError(t, err)
	require.Equal(t, []int64{3}, result.Attached)
	require.Equal(t, []int64{1}, result.Detached)
	require.Equal(t, []int64{2}, result.Kept)

	perms, err := store.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	require.False(t, mr.Exists(cache.Key(role.ID)), "sync must drop the cache entry")
}

func TestSyncPermissionsEmptyClearsAll(t *testing.T) {
	hooks, _, store, _, _ := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1}

	require.NoError(t, store.AttachPermission(ctx, role.ID, 1))
	require.NoError(t, store.AttachPermission(ctx, role.ID, 2))

	result, err := hooks.SyncPermissions(ctx, role, nil)
	require.NoError(t, err)
	require.Len(t, result.Detached, 2)

	perms, err := store.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestSyncRejectsInvalidRef(t *testing.T) {
	hooks, _, _, _, _ := newTestHooks(t)
	_, err := hooks.SyncPermissions(context.Background(), Role{ID: 1}, []PermissionRef{{}})
	require.ErrorIs(t, err, ErrInvalidPermissionRef)
}

func TestDetachPermissionsNilDetachesAll(t *testing.T) {
	hooks, _, store, _, _ := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1}

	require.NoError(t, store.AttachPermission(ctx, role.ID, 1))
	require.NoError(t, store.AttachPermission(ctx, role.ID, 2))

	require.NoError(t, hooks.DetachPermissions(ctx, role, nil))

	perms, err := store.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestAttachPermissionsSequential(t *testing.T) {
	hooks, _, store, _, _ := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1}

	require.NoError(t, store.AttachPermission(ctx, role.ID, 2))

	// The walk stops at the duplicate; the attach before it survives.
	err := hooks.AttachPermissions(ctx, role, []PermissionRef{ByID(1), ByID(2), ByID(3)})
	require.ErrorIs(t, err, ErrAlreadyAttached)

	perms, err := store.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
}

func TestRoleDeletingHardDeleteCleansAssociations(t *testing.T) {
	hooks, _, store, mr, cache := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1, SoftDeletes: false}

	require.NoError(t, store.AttachPermission(ctx, role.ID, 1))
	require.NoError(t, store.AttachPermission(ctx, role.ID, 2))
	require.NoError(t, store.AssignUser(ctx, role.ID, 10))
	require.NoError(t, store.AssignUser(ctx, role.ID, 11))
	require.NoError(t, store.AssignUser(ctx, role.ID, 12))

	require.NoError(t, hooks.RoleDeleting(ctx, role))
	require.NoError(t, hooks.RoleDeleted(ctx, role))

	perms, err := store.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
	require.Empty(t, store.users[role.ID])
	require.False(t, mr.Exists(cache.Key(role.ID)))
}

func TestRoleDeletingSoftDeleteKeepsAssociations(t *testing.T) {
	hooks, _, store, mr, cache := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1, SoftDeletes: true}

	require.NoError(t, store.AttachPermission(ctx, role.ID, 1))
	require.NoError(t, store.AssignUser(ctx, role.ID, 10))

	_, err := cache.Get(ctx, role.ID, func(ctx context.Context) ([]Permission, error) {
		return store.ListRolePermissions(ctx, role.ID)
	})
	require.NoError(t, err)

	require.NoError(t, hooks.RoleDeleting(ctx, role))
	require.NoError(t, hooks.RoleDeleted(ctx, role))

	perms, err := store.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1, "soft delete keeps permission links for restore")
	require.Len(t, store.users[role.ID], 1)
	require.False(t, mr.Exists(cache.Key(role.ID)), "cache entry goes either way")
}

func TestSavedAndRestoredInvalidate(t *testing.T) {
	hooks, _, store, mr, cache := newTestHooks(t)
	ctx := context.Background()
	role := Role{ID: 1, SoftDeletes: true}

	populate := func() {
		_, err := cache.Get(ctx, role.ID, func(ctx context.Context) ([]Permission, error) {
			return store.ListRolePermissions(ctx, role.ID)
		})
		require.NoError(t, err)
		require.True(t, mr.Exists(cache.Key(role.ID)))
	}

	populate()
	require.NoError(t, hooks.RoleSaved(ctx, role))
	require.False(t, mr.Exists(cache.Key(role.ID)))

	populate()
	require.NoError(t, hooks.RoleRestored(ctx, role))
	require.False(t, mr.Exists(cache.Key(role.ID)))
}
