package security

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Reactor manages the suspicious-activity and incident lifecycles. Every
// transition is validated against the state machine, written through the
// store, and only then applied to the aggregator's snapshot.
type Reactor struct {
	store Store
	agg   *Aggregator
	now   func() time.Time
}

// NewReactor constructs the lifecycle manager.
func NewReactor(store Store, agg *Aggregator) *Reactor {
	return &Reactor{store: store, agg: agg, now: time.Now}
}

// CanTransitionActivity reports whether an activity may move between the two
// statuses. Open signals may be marked false positive without passing through
// investigation; terminal states never reopen.
func CanTransitionActivity(from, to ActivityStatus) bool {
	switch from {
	case ActivityOpen:
		return to == ActivityInvestigating || to == ActivityFalsePositive
	case ActivityInvestigating:
		return to == ActivityResolved || to == ActivityFalsePositive
	}
	return false
}

// CanTransitionIncident reports whether an incident may move between the two
// statuses. The lifecycle only moves forward; open incidents may be closed
// directly as an administrative override.
func CanTransitionIncident(from, to IncidentStatus) bool {
	switch from {
	case IncidentOpen:
		return to == IncidentInvestigating || to == IncidentClosed
	case IncidentInvestigating:
		return to == IncidentContained
	case IncidentContained:
		return to == IncidentResolved
	case IncidentResolved:
		return to == IncidentClosed
	}
	return false
}

// StartInvestigation moves an open activity to investigating and records the
// investigator.
func (r *Reactor) StartInvestigation(ctx context.Context, id, investigatorID int64, notes string) (SuspiciousActivity, error) {
	return r.transitionActivity(ctx, id, ActivityInvestigating, func(activity *SuspiciousActivity) {
		now := r.now()
		activity.Investigator = &investigatorID
		activity.InvestigatedAt = &now
		if strings.TrimSpace(notes) != "" {
			activity.Notes = notes
		}
	})
}

// ResolveActivity moves an investigated activity to resolved.
func (r *Reactor) ResolveActivity(ctx context.Context, id int64, resolutionNotes string) (SuspiciousActivity, error) {
	if strings.TrimSpace(resolutionNotes) == "" {
		return SuspiciousActivity{}, fmt.Errorf("%w: resolution notes required", ErrValidation)
	}
	return r.transitionActivity(ctx, id, ActivityResolved, func(activity *SuspiciousActivity) {
		now := r.now()
		activity.ResolutionNotes = resolutionNotes
		activity.ResolvedAt = &now
	})
}

// MarkFalsePositive dismisses an activity. Allowed from open directly, or
// from investigating.
func (r *Reactor) MarkFalsePositive(ctx context.Context, id int64, notes string) (SuspiciousActivity, error) {
	return r.transitionActivity(ctx, id, ActivityFalsePositive, func(activity *SuspiciousActivity) {
		now := r.now()
		if strings.TrimSpace(notes) != "" {
			activity.ResolutionNotes = notes
		}
		activity.ResolvedAt = &now
	})
}

func (r *Reactor) transitionActivity(ctx context.Context, id int64, to ActivityStatus, mutate func(*SuspiciousActivity)) (SuspiciousActivity, error) {
	activity, err := r.store.GetActivity(ctx, id)
	if err != nil {
		return SuspiciousActivity{}, fmt.Errorf("%w: activity %d", ErrNotFound, id)
	}
	if !CanTransitionActivity(activity.Status, to) {
		return SuspiciousActivity{}, fmt.Errorf("%w: activity %s -> %s", ErrTransition, activity.Status, to)
	}
	activity.Status = to
	mutate(&activity)
	confirmed, err := r.store.UpdateActivity(ctx, activity)
	if err != nil {
		return SuspiciousActivity{}, fmt.Errorf("%w: update activity: %v", ErrMutation, err)
	}
	r.agg.confirm(func(s *Snapshot) {
		s.Activities = prependOrReplaceActivity(s.Activities, confirmed)
	})
	return confirmed, nil
}

// ReportIncidentInput carries caller input for a new incident.
type ReportIncidentInput struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	Type            string   `json:"type" validate:"required"`
	Severity        string   `json:"severity" validate:"required"`
	AffectedSystems []string `json:"affected_systems"`
	AffectedActors  []int64  `json:"affected_actors"`
}

// ReportIncident opens a new incident.
func (r *Reactor) ReportIncident(ctx context.Context, input ReportIncidentInput) (SecurityIncident, error) {
	severity, err := ParseSeverity(input.Severity)
	if err != nil {
		return SecurityIncident{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return SecurityIncident{}, fmt.Errorf("%w: incident title required", ErrValidation)
	}
	if strings.TrimSpace(input.Type) == "" {
		return SecurityIncident{}, fmt.Errorf("%w: incident type required", ErrValidation)
	}
	now := r.now()
	incident := SecurityIncident{
		Number:          fmt.Sprintf("INC-%s", now.Format("20060102-150405")),
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Type:            strings.TrimSpace(input.Type),
		Severity:        severity,
		Status:          IncidentOpen,
		DiscoveredAt:    now,
		AffectedSystems: input.AffectedSystems,
		AffectedActors:  input.AffectedActors,
	}
	confirmed, err := r.store.CreateIncident(ctx, incident)
	if err != nil {
		return SecurityIncident{}, fmt.Errorf("%w: create incident: %v", ErrMutation, err)
	}
	r.agg.confirm(func(s *Snapshot) {
		s.Incidents = prependOrReplaceIncident(s.Incidents, confirmed)
	})
	return confirmed, nil
}

// AdvanceIncident moves an incident to the target status, stamping the
// matching lifecycle timestamp.
func (r *Reactor) AdvanceIncident(ctx context.Context, id int64, target IncidentStatus, resolution string) (SecurityIncident, error) {
	incident, err := r.store.GetIncident(ctx, id)
	if err != nil {
		return SecurityIncident{}, fmt.Errorf("%w: incident %d", ErrNotFound, id)
	}
	if !CanTransitionIncident(incident.Status, target) {
		return SecurityIncident{}, fmt.Errorf("%w: incident %s -> %s", ErrTransition, incident.Status, target)
	}
	now := r.now()
	incident.Status = target
	switch target {
	case IncidentContained:
		incident.ContainedAt = &now
	case IncidentResolved:
		if strings.TrimSpace(resolution) == "" {
			return SecurityIncident{}, fmt.Errorf("%w: resolution required", ErrValidation)
		}
		incident.Resolution = resolution
		incident.ResolvedAt = &now
	case IncidentClosed:
		incident.ClosedAt = &now
		if strings.TrimSpace(resolution) != "" {
			incident.Resolution = resolution
		}
	}
	confirmed, err := r.store.UpdateIncident(ctx, incident)
	if err != nil {
		return SecurityIncident{}, fmt.Errorf("%w: update incident: %v", ErrMutation, err)
	}
	r.agg.confirm(func(s *Snapshot) {
		s.Incidents = prependOrReplaceIncident(s.Incidents, confirmed)
	})
	return confirmed, nil
}
