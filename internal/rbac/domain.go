package rbac

import "time"

// Role represents a high-level permission grouping. Level orders seniority;
// a higher level outranks a lower one.
type Role struct {
	ID          int64
	Name        string
	DisplayName string
	Level       int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability named "module.action".
type Permission struct {
	Name     string
	Module   string
	Action   string
	IsActive bool
}

// RoleAssignment links an actor to a role. Inactive or expired assignments
// never contribute to the actor's effective permissions or level.
type RoleAssignment struct {
	ID         int64
	ActorID    int64
	RoleID     int64
	AssignedBy *int64
	IsActive   bool
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AssignedRole is the resolved join of an assignment and its role, as loaded
// for a single actor.
type AssignedRole struct {
	AssignmentID int64
	RoleID       int64
	RoleName     string
	Level        int
	RoleActive   bool
	IsActive     bool
	ExpiresAt    *time.Time
}

// EffectiveAt reports whether the assignment contributes at the given instant.
func (a AssignedRole) EffectiveAt(now time.Time) bool {
	if !a.IsActive || !a.RoleActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}
