package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/permbase/permbase/internal/platform/db"
)

// Store is the persistence boundary for role associations.
type Store interface {
	ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (SyncResult, error)
	DetachAllPermissions(ctx context.Context, roleID int64) error
	DetachAllUsers(ctx context.Context, roleID int64) error
	AssignUser(ctx context.Context, roleID, userID int64) error
	RemoveUser(ctx context.Context, roleID, userID int64) error
	ListRoleIDs(ctx context.Context) ([]int64, error)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides PostgreSQL backed persistence for role associations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRolePermissions returns the role's permissions ordered by name.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// AttachPermission links a permission to a role.
func (r *Repository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
		roleID, permissionID)
	return classifyLinkError(err)
}

// DetachPermission removes a role-permission link. Detaching a link that
// does not exist is not an error.
func (r *Repository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	return err
}

// SyncPermissions replaces the role's permission set with permissionIDs,
// attaching missing links and detaching unlisted ones inside one
// transaction. An empty desired set removes every link.
func (r *Repository) SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (SyncResult, error) {
	var result SyncResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT permission_id FROM role_permissions WHERE role_id = $1`, roleID)
		if err != nil {
			return err
		}
		existing := make(map[int64]struct{})
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			existing[id] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
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
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
				roleID, id); err != nil {
				return classifyLinkError(err)
			}
			result.Attached = append(result.Attached, id)
		}
		for id := range existing {
			if _, ok := desired[id]; ok {
				continue
			}
			if _, err := tx.Exec(ctx,
				`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
				roleID, id); err != nil {
				return err
			}
			result.Detached = append(result.Detached, id)
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

// DetachAllPermissions removes every permission link for the role.
func (r *Repository) DetachAllPermissions(ctx context.Context, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID)
	return err
}

// DetachAllUsers removes every user link for the role.
func (r *Repository) DetachAllUsers(ctx context.Context, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_users WHERE role_id = $1`, roleID)
	return err
}

// AssignUser links a user to the role.
func (r *Repository) AssignUser(ctx context.Context, roleID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_users (role_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, userID)
	return classifyLinkError(err)
}

// RemoveUser removes a role-user link.
func (r *Repository) RemoveUser(ctx context.Context, roleID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_users WHERE role_id = $1 AND user_id = $2`,
		roleID, userID)
	return err
}

// FindRole fetches a role row. Missing roles yield ErrUnknownRole.
func (r *Repository) FindRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, soft_deletes, created_at, updated_at, deleted_at
		FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.SoftDeletes,
			&role.CreatedAt, &role.UpdatedAt, &role.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: id %d", ErrUnknownRole, id)
		}
		return Role{}, err
	}
	return role, nil
}

// ListRoleIDs returns IDs of all live (not soft-deleted) roles.
func (r *Repository) ListRoleIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM roles WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// classifyLinkError wraps constraint violations in domain sentinels so
// handlers can map them to statuses. The driver error stays in the chain.
func classifyLinkError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, pgErr.Detail)
	case pgForeignKeyViolation:
		if pgErr.ConstraintName == "role_permissions_role_id_fkey" || pgErr.ConstraintName == "role_users_role_id_fkey" {
			return fmt.Errorf("%w: %s", ErrUnknownRole, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", ErrUnknownPermission, pgErr.Detail)
	}
	return err
}
