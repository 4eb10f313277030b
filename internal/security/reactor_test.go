package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triageFixture(t *testing.T) (*fakeStore, *Aggregator, *Reactor) {
	t.Helper()
	now := time.Now()
	store := newFakeStore()
	store.backups = []BackupLog{freshBackup(now)}
	store.activities = []SuspiciousActivity{
		{ID: 1, Type: "brute_force", Severity: SeverityCritical, Confidence: 0.8, Status: ActivityOpen, CreatedAt: now},
		{ID: 2, Type: "scraping", Severity: SeverityLow, Confidence: 0.3, Status: ActivityInvestigating, CreatedAt: now},
		{ID: 3, Type: "geo_anomaly", Severity: SeverityLow, Confidence: 0.3, Status: ActivityResolved, CreatedAt: now},
	}
	store.incidents = []SecurityIncident{
		{ID: 10, Number: "INC-1", Title: "credential leak", Type: "breach", Severity: SeverityHigh, Status: IncidentOpen, DiscoveredAt: now},
		{ID: 11, Number: "INC-2", Title: "ransom note", Type: "breach", Severity: SeverityCritical, Status: IncidentContained, DiscoveredAt: now},
		{ID: 12, Number: "INC-3", Title: "old case", Type: "breach", Severity: SeverityLow, Status: IncidentClosed, DiscoveredAt: now},
	}
	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))
	return store, agg, NewReactor(store, agg)
}

func TestActivityOpenToFalsePositiveDirect(t *testing.T) {
	_, agg, reactor := triageFixture(t)

	activity, err := reactor.MarkFalsePositive(context.Background(), 1, "misconfigured scanner")
	require.NoError(t, err)
	assert.Equal(t, ActivityFalsePositive, activity.Status)
	assert.NotNil(t, activity.ResolvedAt)

	snap := agg.Snapshot()
	for _, a := range snap.Activities {
		if a.ID == 1 {
			assert.Equal(t, ActivityFalsePositive, a.Status)
		}
	}
	assert.Equal(t, 85, snap.Posture.Score, "dismissed critical signal stops deducting")
}

func TestActivityInvestigationFlow(t *testing.T) {
	_, agg, reactor := triageFixture(t)

	activity, err := reactor.StartInvestigation(context.Background(), 1, 42, "looking into it")
	require.NoError(t, err)
	assert.Equal(t, ActivityInvestigating, activity.Status)
	require.NotNil(t, activity.Investigator)
	assert.Equal(t, int64(42), *activity.Investigator)

	resolved, err := reactor.ResolveActivity(context.Background(), 2, "rate limited the source")
	require.NoError(t, err)
	assert.Equal(t, ActivityResolved, resolved.Status)
	assert.Equal(t, "rate limited the source", resolved.ResolutionNotes)

	assert.Equal(t, 85, agg.Posture().Score, "open incident still deducts")
}

func TestActivityTerminalStatesNeverReopen(t *testing.T) {
	_, _, reactor := triageFixture(t)

	_, err := reactor.StartInvestigation(context.Background(), 3, 42, "")
	require.ErrorIs(t, err, ErrTransition)

	_, err = reactor.ResolveActivity(context.Background(), 3, "again")
	require.ErrorIs(t, err, ErrTransition)
}

func TestResolveRequiresNotes(t *testing.T) {
	_, _, reactor := triageFixture(t)

	_, err := reactor.ResolveActivity(context.Background(), 2, "   ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestResolveSkippingInvestigationRejected(t *testing.T) {
	_, _, reactor := triageFixture(t)

	_, err := reactor.ResolveActivity(context.Background(), 1, "done")
	require.ErrorIs(t, err, ErrTransition)
}

func TestIncidentForwardLifecycle(t *testing.T) {
	_, agg, reactor := triageFixture(t)

	incident, err := reactor.AdvanceIncident(context.Background(), 10, IncidentInvestigating, "")
	require.NoError(t, err)
	assert.Equal(t, IncidentInvestigating, incident.Status)

	_, err = reactor.AdvanceIncident(context.Background(), 11, IncidentResolved, "restored from backup")
	require.NoError(t, err)

	snap := agg.Snapshot()
	for _, i := range snap.Incidents {
		if i.ID == 11 {
			assert.NotNil(t, i.ResolvedAt)
			assert.Equal(t, "restored from backup", i.Resolution)
		}
	}
}

func TestIncidentOpenMayCloseDirectly(t *testing.T) {
	_, _, reactor := triageFixture(t)

	incident, err := reactor.AdvanceIncident(context.Background(), 10, IncidentClosed, "duplicate report")
	require.NoError(t, err)
	assert.Equal(t, IncidentClosed, incident.Status)
	assert.NotNil(t, incident.ClosedAt)
}

func TestIncidentNeverMovesBackward(t *testing.T) {
	_, _, reactor := triageFixture(t)

	_, err := reactor.AdvanceIncident(context.Background(), 11, IncidentInvestigating, "")
	require.ErrorIs(t, err, ErrTransition)

	_, err = reactor.AdvanceIncident(context.Background(), 12, IncidentOpen, "")
	require.ErrorIs(t, err, ErrTransition)
}

func TestIncidentResolutionRequired(t *testing.T) {
	_, _, reactor := triageFixture(t)

	_, err := reactor.AdvanceIncident(context.Background(), 11, IncidentResolved, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestReportIncidentOpensAndPrepends(t *testing.T) {
	_, agg, reactor := triageFixture(t)
	before := agg.Posture().Score

	incident, err := reactor.ReportIncident(context.Background(), ReportIncidentInput{
		Title: "api keys pasted in chat", Type: "disclosure", Severity: "high",
	})
	require.NoError(t, err)
	assert.Equal(t, IncidentOpen, incident.Status)
	assert.NotEmpty(t, incident.Number)

	snap := agg.Snapshot()
	assert.Equal(t, incident.ID, snap.Incidents[0].ID)
	assert.Equal(t, before-15, snap.Posture.Score)
}

func TestTransitionWriteFailureLeavesSnapshotUnchanged(t *testing.T) {
	store, agg, reactor := triageFixture(t)
	before := agg.Snapshot()

	store.failWrite = errors.New("db gone")
	_, err := reactor.MarkFalsePositive(context.Background(), 1, "noise")
	require.ErrorIs(t, err, ErrMutation)
	assert.Same(t, before, agg.Snapshot())
}

func TestCanTransitionTables(t *testing.T) {
	assert.True(t, CanTransitionActivity(ActivityOpen, ActivityInvestigating))
	assert.True(t, CanTransitionActivity(ActivityOpen, ActivityFalsePositive))
	assert.False(t, CanTransitionActivity(ActivityOpen, ActivityResolved))
	assert.False(t, CanTransitionActivity(ActivityFalsePositive, ActivityOpen))

	assert.True(t, CanTransitionIncident(IncidentResolved, IncidentClosed))
	assert.False(t, CanTransitionIncident(IncidentClosed, IncidentOpen))
	assert.False(t, CanTransitionIncident(IncidentInvestigating, IncidentResolved))
}
