package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed role/permission resolution.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveRoleAssignments returns the actor's assignments joined with role
// data. Inactive and already-expired assignments are filtered server-side;
// the resolver re-checks expiry at evaluation time.
func (r *Repository) ListActiveRoleAssignments(ctx context.Context, actorID int64) ([]AssignedRole, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ra.id, ra.role_id, ro.name, ro.level, ro.is_active, ra.is_active, ra.expires_at
		FROM role_assignments ra
		JOIN roles ro ON ro.id = ra.role_id
		WHERE ra.user_id = $1
		  AND ra.is_active
		  AND (ra.expires_at IS NULL OR ra.expires_at > NOW())
		ORDER BY ro.level DESC`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []AssignedRole
	for rows.Next() {
		var a AssignedRole
		if err := rows.Scan(&a.AssignmentID, &a.RoleID, &a.RoleName, &a.Level, &a.RoleActive, &a.IsActive, &a.ExpiresAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// EffectivePermissions returns the deduplicated permission names reachable
// from the actor's active, non-expired role assignments.
func (r *Repository) EffectivePermissions(ctx context.Context, actorID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_name = p.name
		JOIN role_assignments ra ON ra.role_id = rp.role_id
		JOIN roles ro ON ro.id = ra.role_id
		WHERE ra.user_id = $1
		  AND ra.is_active
		  AND ro.is_active
		  AND p.is_active
		  AND (ra.expires_at IS NULL OR ra.expires_at > NOW())
		ORDER BY p.name`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
