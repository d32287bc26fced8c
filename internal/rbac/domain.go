package rbac

import (
	"errors"
	"time"
)

// ErrInvalidPermissionRef indicates a permission reference that carries no
// usable identity. Callers must construct refs via ByID or ByRecord.
var ErrInvalidPermissionRef = errors.New("rbac: invalid permission reference")

// ErrAlreadyAttached indicates the role already holds the permission.
var ErrAlreadyAttached = errors.New("rbac: permission already attached")

// ErrUnknownRole indicates the referenced role does not exist.
var ErrUnknownRole = errors.New("rbac: unknown role")

// ErrUnknownPermission indicates the referenced permission does not exist.
var ErrUnknownPermission = errors.New("rbac: unknown permission")

// Role is the aggregate whose permission set is cached and matched against.
// SoftDeletes reports whether deleting the role is reversible; irreversible
// roles get their associations detached before removal.
type Role struct {
	ID          int64
	Name        string
	Description string
	SoftDeletes bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Permission is an atomic named capability. Stored names are literal;
// wildcard syntax only appears in check-time query patterns.
type Permission struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PermissionRef is a closed variant identifying a permission either by raw
// ID or by a full record.
type PermissionRef struct {
	id     int64
	record *Permission
}

// ByID references a permission by its raw identifier.
func ByID(id int64) PermissionRef {
	return PermissionRef{id: id}
}

// ByRecord references a permission by a fetched record.
func ByRecord(p Permission) PermissionRef {
	return PermissionRef{record: &p}
}

// ResolvePermissionID extracts the identifier from a reference. A zero ref,
// or a record ref without an ID, fails with ErrInvalidPermissionRef.
func ResolvePermissionID(ref PermissionRef) (int64, error) {
	if ref.record != nil {
		if ref.record.ID == 0 {
			return 0, ErrInvalidPermissionRef
		}
		return ref.record.ID, nil
	}
	if ref.id == 0 {
		return 0, ErrInvalidPermissionRef
	}
	return ref.id, nil
}

// SyncResult reports the diff applied by a permission sync.
type SyncResult struct {
	Attached []int64 `json:"attached"`
	Detached []int64 `json:"detached"`
	Kept     []int64 `json:"kept"`
}
