package rbac

import "context"

// Matcher answers permission checks for a role, always reading the role's
// permission set through the cache. A check that fails with an error is
// never a grant.
type Matcher struct {
	store Store
	cache *Cache
}

// NewMatcher constructs a Matcher.
func NewMatcher(store Store, cache *Cache) *Matcher {
	return &Matcher{store: store, cache: cache}
}

// Permissions returns the role's current permission set via the cache.
func (m *Matcher) Permissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return m.cache.Get(ctx, roleID, func(ctx context.Context) ([]Permission, error) {
		return m.store.ListRolePermissions(ctx, roleID)
	})
}

// HasPermission reports whether any permission held by the role matches the
// requested pattern.
func (m *Matcher) HasPermission(ctx context.Context, roleID int64, pattern string) (bool, error) {
	perms, err := m.Permissions(ctx, roleID)
	if err != nil {
		return false, err
	}
	return matchAny(perms, pattern), nil
}

// HasAnyPermission reports whether at least one requested pattern matches,
// short-circuiting on the first hit. An empty request is false.
func (m *Matcher) HasAnyPermission(ctx context.Context, roleID int64, patterns ...string) (bool, error) {
	perms, err := m.Permissions(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, pattern := range patterns {
		if matchAny(perms, pattern) {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether every requested pattern matches,
// short-circuiting on the first miss. An empty request is true.
func (m *Matcher) HasAllPermissions(ctx context.Context, roleID int64, patterns ...string) (bool, error) {
	perms, err := m.Permissions(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, pattern := range patterns {
		if !matchAny(perms, pattern) {
			return false, nil
		}
	}
	return true, nil
}

func matchAny(perms []Permission, pattern string) bool {
	for _, p := range perms {
		if MatchPattern(pattern, p.Name) {
			return true
		}
	}
	return false
}
