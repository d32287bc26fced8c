package rbac

import (
	"context"
	"fmt"
	"sort"
)

// memoryStore is an in-memory Store plus RoleFinder used across the
// package tests. Call counters let tests assert cache behavior.
type memoryStore struct {
	roles     map[int64]Role
	perms     map[int64][]Permission
	users     map[int64][]int64
	listCalls int
	listErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		roles: make(map[int64]Role),
		perms: make(map[int64][]Permission),
		users: make(map[int64][]int64),
	}
}

func (s *memoryStore) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := append([]Permission(nil), s.perms[roleID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStore) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	for _, p := range s.perms[roleID] {
		if p.ID == permissionID {
			return fmt.Errorf("%w: permission %d", ErrAlreadyAttached, permissionID)
		}
	}
	s.perms[roleID] = append(s.perms[roleID], Permission{ID: permissionID, Name: fmt.Sprintf("perm.%d", permissionID)})
	return nil
}

func (s *memoryStore) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	kept := s.perms[roleID][:0]
	for _, p := range s.perms[roleID] {
		if p.ID != permissionID {
			kept = append(kept, p)
		}
	}
	s.perms[roleID] = kept
	return nil
}

func (s *memoryStore) SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (SyncResult, error) {
	var result SyncResult
	existing := make(map[int64]struct{})
	for _, p := range s.perms[roleID] {
		existing[p.ID] = struct{}{}
	}
	desired := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, dup := desired[id]; dup {
			continue
		}
		desired[id] = struct{}{}
		if _, ok := existing[id]; ok {
			result.Kept = append(result.Kept, id)
			continue
		}
		if err := s.AttachPermission(ctx, roleID, id); err != nil {
			return result, err
		}
		result.Attached = append(result.Attached, id)
	}
	for id := range existing {
		if _, ok := desired[id]; !ok {
			if err := s.DetachPermission(ctx, roleID, id); err != nil {
				return result, err
			}
			result.Detached = append(result.Detached, id)
		}
	}
	return result, nil
}

func (s *memoryStore) DetachAllPermissions(ctx context.Context, roleID int64) error {
	delete(s.perms, roleID)
	return nil
}

func (s *memoryStore) DetachAllUsers(ctx context.Context, roleID int64) error {
	delete(s.users, roleID)
	return nil
}

func (s *memoryStore) AssignUser(ctx context.Context, roleID, userID int64) error {
	s.users[roleID] = append(s.users[roleID], userID)
	return nil
}

func (s *memoryStore) RemoveUser(ctx context.Context, roleID, userID int64) error {
	kept := s.users[roleID][:0]
	for _, id := range s.users[roleID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	s.users[roleID] = kept
	return nil
}

func (s *memoryStore) ListRoleIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.roles))
	for id, role := range s.roles {
		if role.DeletedAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memoryStore) FindRole(ctx context.Context, id int64) (Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: id %d", ErrUnknownRole, id)
	}
	return role, nil
}

func (s *memoryStore) setPermissions(roleID int64, names ...string) {
	perms := make([]Permission, 0, len(names))
	for i, name := range names {
		perms = append(perms, Permission{ID: int64(i + 1), Name: name})
	}
	s.perms[roleID] = perms
}
