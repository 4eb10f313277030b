package rbac

import "fmt"

// Verdict is the outcome of an access guard evaluation.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictDeny
	VerdictPending
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictPending:
		return "pending"
	default:
		return "deny"
	}
}

// Decision carries the verdict plus a human-readable reason for denials.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Allowed reports whether the decision permits the operation.
func (d Decision) Allowed() bool { return d.Verdict == VerdictAllow }

// Mode selects the combinator for multi-role checks.
type Mode int

const (
	// ModeAny allows when at least one listed role is held. An empty role
	// list denies: no role can satisfy an empty disjunction.
	ModeAny Mode = iota
	// ModeAll requires every listed role. An empty role list vacuously allows.
	ModeAll
)

var (
	allow   = Decision{Verdict: VerdictAllow}
	pending = Decision{Verdict: VerdictPending, Reason: "authorization data still loading"}
)

func deny(reason string) Decision {
	return Decision{Verdict: VerdictDeny, Reason: reason}
}

// DecidePermission evaluates a single permission against the resolver.
// Resolution failures and loading windows never produce Allow.
func (r *Resolver) DecidePermission(name string) Decision {
	switch r.State() {
	case StateUninitialized, StateLoading:
		return pending
	case StateError:
		return deny("permission data unavailable")
	}
	if r.HasPermission(name) {
		return allow
	}
	return deny(fmt.Sprintf("missing permission: %s", name))
}

// DecideRoles evaluates a role set with the given combinator mode.
func (r *Resolver) DecideRoles(mode Mode, roles ...string) Decision {
	switch r.State() {
	case StateUninitialized, StateLoading:
		return pending
	case StateError:
		return deny("role data unavailable")
	}
	if mode == ModeAll {
		for _, role := range roles {
			if !r.HasRole(role) {
				return deny(fmt.Sprintf("missing role: %s", role))
			}
		}
		return allow
	}
	if len(roles) == 0 {
		return deny("no roles requested")
	}
	for _, role := range roles {
		if r.HasRole(role) {
			return allow
		}
	}
	return deny(fmt.Sprintf("none of the required roles held: %v", roles))
}

// CanManage reports whether this actor outranks the other actor's highest
// level. Equal levels do not grant management rights.
func (r *Resolver) CanManage(other *Resolver) bool {
	if other == nil {
		return false
	}
	return r.HighestLevel() > other.HighestLevel()
}
