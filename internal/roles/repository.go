package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested role does not exist.
var ErrNotFound = errors.New("roles: not found")

const roleColumns = `id, name, description, soft_deletes, created_at, updated_at, deleted_at`

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns a page of roles ordered by ID. Soft-deleted roles are
// included only when includeDeleted is set.
func (r *Repository) ListRoles(ctx context.Context, includeDeleted bool, limit, offset int) ([]Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE deleted_at IS NULL ORDER BY id LIMIT $1 OFFSET $2`
	if includeDeleted {
		query = `SELECT ` + roleColumns + ` FROM roles ORDER BY id LIMIT $1 OFFSET $2`
	}
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountRoles returns the number of roles matching the listing filter.
func (r *Repository) CountRoles(ctx context.Context, includeDeleted bool) (int, error) {
	query := `SELECT count(*) FROM roles WHERE deleted_at IS NULL`
	if includeDeleted {
		query = `SELECT count(*) FROM roles`
	}
	var total int
	if err := r.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// GetRole fetches a role by ID, soft-deleted rows included.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string, softDeletes bool) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, soft_deletes)
		VALUES ($1, $2, $3)
		RETURNING `+roleColumns, name, description, softDeletes)
	return scanRole(row)
}

// UpdateRole updates name and description of an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+roleColumns, id, name, description)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// SoftDeleteRole marks the role deleted, keeping the row and associations.
func (r *Repository) SoftDeleteRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+roleColumns, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// HardDeleteRole removes the role row. Returns ErrNotFound when nothing
// was deleted.
func (r *Repository) HardDeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreRole clears the deletion mark on a soft-deleted role.
func (r *Repository) RestoreRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING `+roleColumns, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.SoftDeletes,
		&role.CreatedAt, &role.UpdatedAt, &role.DeletedAt)
	return role, err
}
