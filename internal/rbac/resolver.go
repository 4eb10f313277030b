package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrResolution indicates that the role/permission lookup failed. The
// resolver fails closed: until a successful load, every query answers false.
var ErrResolution = errors.New("rbac: resolution failed")

// State tracks the resolver lifecycle for a session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateError
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// Store loads role assignments and the server-computed transitive permission
// closure for an actor.
type Store interface {
	ListActiveRoleAssignments(ctx context.Context, actorID int64) ([]AssignedRole, error)
	EffectivePermissions(ctx context.Context, actorID int64) ([]string, error)
}

// snapshot is the immutable resolved view swapped in atomically. Readers
// always observe either the previous or the next complete snapshot.
type snapshot struct {
	state       State
	permissions map[string]struct{}
	roles       map[string]AssignedRole
	highest     int
	loadedAt    time.Time
}

var emptySnapshot = snapshot{state: StateUninitialized}

// Resolver owns the effective permission set for one authenticated session.
// Single writer (LoadForActor/Refresh), many readers (guard checks).
type Resolver struct {
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	actorID atomic.Int64

	mu      sync.Mutex // serialises loads
	current atomic.Pointer[snapshot]
}

// NewResolver constructs an uninitialized resolver.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	r := &Resolver{store: store, logger: logger, now: time.Now}
	empty := emptySnapshot
	r.current.Store(&empty)
	return r
}

// LoadForActor fetches assignments and permissions for the actor. On failure
// the resolver transitions to the error state with empty sets and returns an
// error wrapping ErrResolution.
func (r *Resolver) LoadForActor(ctx context.Context, actorID int64) error {
	r.actorID.Store(actorID)
	return r.load(ctx, actorID)
}

// Refresh recomputes the effective set for the current actor. Callers must
// invoke it after any role-assignment mutation they performed so the change
// is visible on the next guard check.
func (r *Resolver) Refresh(ctx context.Context) error {
	actorID := r.actorID.Load()
	if actorID == 0 {
		return fmt.Errorf("%w: no actor loaded", ErrResolution)
	}
	return r.load(ctx, actorID)
}

func (r *Resolver) load(ctx context.Context, actorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loading := snapshot{state: StateLoading}
	r.current.Store(&loading)

	assignments, err := r.store.ListActiveRoleAssignments(ctx, actorID)
	if err != nil {
		return r.failLoad(actorID, "list assignments", err)
	}
	permissions, err := r.store.EffectivePermissions(ctx, actorID)
	if err != nil {
		return r.failLoad(actorID, "effective permissions", err)
	}

	now := r.now()
	roles := make(map[string]AssignedRole, len(assignments))
	highest := 0
	for _, a := range assignments {
		if !a.EffectiveAt(now) {
			continue
		}
		roles[a.RoleName] = a
		if a.Level > highest {
			highest = a.Level
		}
	}
	perms := make(map[string]struct{}, len(permissions))
	if len(roles) > 0 {
		for _, p := range permissions {
			perms[p] = struct{}{}
		}
	}

	next := snapshot{
		state:       StateReady,
		permissions: perms,
		roles:       roles,
		highest:     highest,
		loadedAt:    now,
	}
	r.current.Store(&next)
	return nil
}

func (r *Resolver) failLoad(actorID int64, op string, err error) error {
	failed := snapshot{state: StateError}
	r.current.Store(&failed)
	if r.logger != nil {
		r.logger.Error("rbac load failed", slog.Int64("actor", actorID), slog.String("op", op), slog.Any("error", err))
	}
	return fmt.Errorf("%w: %s: %v", ErrResolution, op, err)
}

// State reports the current lifecycle state.
func (r *Resolver) State() State {
	return r.current.Load().state
}

// ActorID returns the actor this resolver was loaded for, 0 if none.
func (r *Resolver) ActorID() int64 {
	return r.actorID.Load()
}

// HasPermission reports whether the effective set contains the exact name.
// While loading or in error state it answers false.
func (r *Resolver) HasPermission(name string) bool {
	snap := r.current.Load()
	if snap.state != StateReady {
		return false
	}
	_, ok := snap.permissions[name]
	return ok
}

// HasRole reports whether an active, non-expired assignment resolves to a
// role with the given name.
func (r *Resolver) HasRole(name string) bool {
	snap := r.current.Load()
	if snap.state != StateReady {
		return false
	}
	_, ok := snap.roles[name]
	return ok
}

// HighestLevel returns the maximum level among effective assigned roles, or 0.
func (r *Resolver) HighestLevel() int {
	snap := r.current.Load()
	if snap.state != StateReady {
		return 0
	}
	return snap.highest
}

// PermissionNames returns a copy of the effective permission names.
func (r *Resolver) PermissionNames() []string {
	snap := r.current.Load()
	if snap.state != StateReady {
		return nil
	}
	names := make([]string, 0, len(snap.permissions))
	for name := range snap.permissions {
		names = append(names, name)
	}
	return names
}
