package roles

import "time"

// Role is a named permission bundle with a management level.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Level       int       `json:"level"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assignment binds a role to an actor.
type Assignment struct {
	ID         int64      `json:"id"`
	ActorID    int64      `json:"actor_id"`
	RoleID     int64      `json:"role_id"`
	RoleName   string     `json:"role_name"`
	AssignedBy *int64     `json:"assigned_by,omitempty"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
