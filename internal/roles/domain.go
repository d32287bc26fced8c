package roles

import (
	"time"

	"github.com/permbase/permbase/internal/rbac"
)

// Role represents a named permission grouping. SoftDeletes marks whether
// deletion is reversible for this role; irreversible roles lose their user
// and permission associations when removed.
type Role struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SoftDeletes bool       `json:"soft_deletes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (r Role) rbacRole() rbac.Role {
	return rbac.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		SoftDeletes: r.SoftDeletes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
	}
}
