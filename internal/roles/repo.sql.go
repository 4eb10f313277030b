package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by level descending.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, display_name, level, is_active, created_at, updated_at
		FROM roles
		ORDER BY level DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Level, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, display_name, level, is_active, created_at, updated_at
		FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.DisplayName, &role.Level, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrRoleNotFound
	}
	if err != nil {
		return Role{}, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, display_name, level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		role.Name, role.DisplayName, role.Level, role.IsActive,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, fmt.Errorf("insert role: %w", err)
	}
	return role, nil
}

// ListAssignments returns the actor's assignments, newest first.
func (r *Repository) ListAssignments(ctx context.Context, actorID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ra.id, ra.user_id, ra.role_id, ro.name, ra.assigned_by, ra.is_active, ra.expires_at, ra.created_at
		FROM role_assignments ra
		JOIN roles ro ON ro.id = ra.role_id
		WHERE ra.user_id = $1
		ORDER BY ra.created_at DESC`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.ActorID, &a.RoleID, &a.RoleName, &a.AssignedBy, &a.IsActive, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// CreateAssignment grants a role to an actor.
func (r *Repository) CreateAssignment(ctx context.Context, actorID, roleID int64, assignedBy *int64, expiresAt *time.Time) (Assignment, error) {
	a := Assignment{ActorID: actorID, RoleID: roleID, AssignedBy: assignedBy, ExpiresAt: expiresAt, IsActive: true}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO role_assignments (user_id, role_id, assigned_by, is_active, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, NOW(), NOW())
		RETURNING id, created_at`,
		actorID, roleID, assignedBy, expiresAt,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

// DeactivateAssignment revokes an assignment and returns the affected actor.
func (r *Repository) DeactivateAssignment(ctx context.Context, id int64) (int64, error) {
	var actorID int64
	err := r.pool.QueryRow(ctx, `
		UPDATE role_assignments
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING user_id`, id,
	).Scan(&actorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAssignmentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("deactivate assignment: %w", err)
	}
	return actorID, nil
}
