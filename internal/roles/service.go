package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ViniciusChelli/Seletto-sub001/internal/rbac"
)

var (
	// ErrRoleNotFound indicates an unknown role id.
	ErrRoleNotFound = errors.New("role not found")
	// ErrAssignmentNotFound indicates an unknown or already revoked assignment.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrInvalidRole indicates malformed role input.
	ErrInvalidRole = errors.New("invalid role")
	// ErrLevelTooHigh indicates an attempt to manage at or above one's own level.
	ErrLevelTooHigh = errors.New("role level exceeds granter level")
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	ListAssignments(ctx context.Context, actorID int64) ([]Assignment, error)
	CreateAssignment(ctx context.Context, actorID, roleID int64, assignedBy *int64, expiresAt *time.Time) (Assignment, error)
	DeactivateAssignment(ctx context.Context, id int64) (int64, error)
}

// Refresher re-resolves permissions for an actor's live sessions.
// *rbac.Service satisfies it.
type Refresher interface {
	RefreshActor(ctx context.Context, actorID int64) error
}

// Service handles role management logic.
type Service struct {
	repo      RepositoryPort
	refresher Refresher
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, refresher Refresher) *Service {
	return &Service{repo: repo, refresher: refresher}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRole validates and inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, displayName string, level int) (Role, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return Role{}, fmt.Errorf("%w: name required", ErrInvalidRole)
	}
	if level < 0 || level > 100 {
		return Role{}, fmt.Errorf("%w: level must be within [0,100]", ErrInvalidRole)
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = name
	}
	return s.repo.CreateRole(ctx, Role{Name: name, DisplayName: strings.TrimSpace(displayName), Level: level, IsActive: true})
}

// ListAssignments returns an actor's role assignments.
func (s *Service) ListAssignments(ctx context.Context, actorID int64) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx, actorID)
}

// Grant assigns a role to an actor. The granter may only hand out roles
// strictly below their own level. Live sessions of the target actor are
// re-resolved before this returns, so the grant is visible on the next
// guarded request.
func (s *Service) Grant(ctx context.Context, actorID, roleID int64, granterID int64, granterLevel int, expiresAt *time.Time) (Assignment, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return Assignment{}, err
	}
	if role.Level >= granterLevel {
		return Assignment{}, ErrLevelTooHigh
	}
	assignment, err := s.repo.CreateAssignment(ctx, actorID, roleID, &granterID, expiresAt)
	if err != nil {
		return Assignment{}, err
	}
	s.refresh(ctx, actorID)
	return assignment, nil
}

// Revoke deactivates an assignment and re-resolves the affected actor.
func (s *Service) Revoke(ctx context.Context, assignmentID int64) error {
	actorID, err := s.repo.DeactivateAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	s.refresh(ctx, actorID)
	return nil
}

func (s *Service) refresh(ctx context.Context, actorID int64) {
	if s.refresher == nil {
		return
	}
	_ = s.refresher.RefreshActor(ctx, actorID)
}

var _ Refresher = (*rbac.Service)(nil)
