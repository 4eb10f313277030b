package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusChelli/Seletto-sub001/internal/audit"
)

type fakeStore struct {
	policies   []SecurityPolicy
	whitelist  []WhitelistEntry
	blacklist  []BlacklistEntry
	activities []SuspiciousActivity
	incidents  []SecurityIncident
	backups    []BackupLog

	failList  map[Collection]error
	failWrite error

	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{failList: make(map[Collection]error), nextID: 100}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) ListPolicies(ctx context.Context, limit int) ([]SecurityPolicy, error) {
	return f.policies, f.failList[CollectionPolicies]
}

func (f *fakeStore) ListWhitelist(ctx context.Context, limit int) ([]WhitelistEntry, error) {
	return f.whitelist, f.failList[CollectionWhitelist]
}

func (f *fakeStore) ListBlacklist(ctx context.Context, limit int) ([]BlacklistEntry, error) {
	return f.blacklist, f.failList[CollectionBlacklist]
}

func (f *fakeStore) ListActivities(ctx context.Context, limit int) ([]SuspiciousActivity, error) {
	return f.activities, f.failList[CollectionActivities]
}

func (f *fakeStore) ListIncidents(ctx context.Context, limit int) ([]SecurityIncident, error) {
	return f.incidents, f.failList[CollectionIncidents]
}

func (f *fakeStore) ListBackups(ctx context.Context, limit int) ([]BackupLog, error) {
	return f.backups, f.failList[CollectionBackups]
}

func (f *fakeStore) CreatePolicy(ctx context.Context, policy SecurityPolicy) (SecurityPolicy, error) {
	if f.failWrite != nil {
		return SecurityPolicy{}, f.failWrite
	}
	policy.ID = f.id()
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = policy.CreatedAt
	return policy, nil
}

func (f *fakeStore) SetPolicyEnabled(ctx context.Context, id int64, enabled bool) (SecurityPolicy, error) {
	if f.failWrite != nil {
		return SecurityPolicy{}, f.failWrite
	}
	for _, p := range f.policies {
		if p.ID == id {
			p.Enabled = enabled
			return p, nil
		}
	}
	return SecurityPolicy{}, ErrNotFound
}

func (f *fakeStore) AddWhitelistEntry(ctx context.Context, entry WhitelistEntry) (WhitelistEntry, error) {
	if f.failWrite != nil {
		return WhitelistEntry{}, f.failWrite
	}
	entry.ID = f.id()
	entry.CreatedAt = time.Now()
	return entry, nil
}

func (f *fakeStore) RemoveWhitelistEntry(ctx context.Context, id int64) error { return f.failWrite }

func (f *fakeStore) AddBlacklistEntry(ctx context.Context, entry BlacklistEntry) (BlacklistEntry, error) {
	if f.failWrite != nil {
		return BlacklistEntry{}, f.failWrite
	}
	entry.ID = f.id()
	entry.CreatedAt = time.Now()
	return entry, nil
}

func (f *fakeStore) RemoveBlacklistEntry(ctx context.Context, id int64) error { return f.failWrite }

func (f *fakeStore) StartBackup(ctx context.Context, backup BackupLog) (BackupLog, error) {
	if f.failWrite != nil {
		return BackupLog{}, f.failWrite
	}
	backup.ID = f.id()
	backup.CreatedAt = time.Now()
	return backup, nil
}

func (f *fakeStore) FinishBackup(ctx context.Context, id int64, status BackupStatus, sizeBytes int64, completedAt time.Time) (BackupLog, error) {
	if f.failWrite != nil {
		return BackupLog{}, f.failWrite
	}
	for _, b := range f.backups {
		if b.ID == id {
			b.Status = status
			b.SizeBytes = sizeBytes
			b.CompletedAt = &completedAt
			return b, nil
		}
	}
	return BackupLog{}, ErrNotFound
}

func (f *fakeStore) GetActivity(ctx context.Context, id int64) (SuspiciousActivity, error) {
	for _, a := range f.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return SuspiciousActivity{}, ErrNotFound
}

func (f *fakeStore) UpdateActivity(ctx context.Context, activity SuspiciousActivity) (SuspiciousActivity, error) {
	if f.failWrite != nil {
		return SuspiciousActivity{}, f.failWrite
	}
	return activity, nil
}

func (f *fakeStore) CreateIncident(ctx context.Context, incident SecurityIncident) (SecurityIncident, error) {
	if f.failWrite != nil {
		return SecurityIncident{}, f.failWrite
	}
	incident.ID = f.id()
	incident.CreatedAt = time.Now()
	incident.UpdatedAt = incident.CreatedAt
	return incident, nil
}

func (f *fakeStore) GetIncident(ctx context.Context, id int64) (SecurityIncident, error) {
	for _, i := range f.incidents {
		if i.ID == id {
			return i, nil
		}
	}
	return SecurityIncident{}, ErrNotFound
}

func (f *fakeStore) UpdateIncident(ctx context.Context, incident SecurityIncident) (SecurityIncident, error) {
	if f.failWrite != nil {
		return SecurityIncident{}, f.failWrite
	}
	return incident, nil
}

type fakeAuditSource struct {
	entries []audit.Entry
	err     error
}

func (f *fakeAuditSource) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	return f.entries, f.err
}

func validPolicy(id int64, enabled bool) SecurityPolicy {
	return SecurityPolicy{ID: id, Name: "login lockout", Type: PolicyAccessControl, Severity: SeverityHigh, Enabled: enabled}
}

func freshBackup(now time.Time) BackupLog {
	done := now.Add(-time.Hour)
	return BackupLog{ID: 1, Type: BackupFull, Scope: "orders", Status: BackupCompleted, StartedAt: now.Add(-2 * time.Hour), CompletedAt: &done}
}

func TestLoadAllCombinesCollections(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.policies = []SecurityPolicy{validPolicy(1, true)}
	store.backups = []BackupLog{freshBackup(now)}
	store.whitelist = []WhitelistEntry{{ID: 1, Address: "10.0.0.1"}}

	agg := NewAggregator(store, &fakeAuditSource{entries: []audit.Entry{{ID: 1, Action: "policy.toggle", Entity: "security_policy", EntityID: "1"}}}, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))

	snap := agg.Snapshot()
	assert.Len(t, snap.Policies, 1)
	assert.Len(t, snap.Whitelist, 1)
	assert.Len(t, snap.AuditTrail, 1)
	assert.Empty(t, snap.LoadErrors)
	assert.Equal(t, 100, snap.Posture.Score)
	assert.Equal(t, ThreatLow, snap.Posture.Level)
}

func TestLoadAllKeepsOldDataOnPartialFailure(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.policies = []SecurityPolicy{validPolicy(1, true)}
	store.backups = []BackupLog{freshBackup(now)}

	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))
	require.Len(t, agg.Snapshot().Policies, 1)

	store.failList[CollectionPolicies] = errors.New("db down")
	store.policies = nil
	err := agg.LoadAll(context.Background())
	require.Error(t, err)

	snap := agg.Snapshot()
	assert.Len(t, snap.Policies, 1, "previous data survives a failed reload")
	assert.True(t, snap.Failed(CollectionPolicies))
	assert.False(t, snap.Failed(CollectionBackups))
}

func TestFailedBackupsCollectionSkipsStalePenalty(t *testing.T) {
	store := newFakeStore()
	store.failList[CollectionBackups] = errors.New("backup store unreachable")

	agg := NewAggregator(store, nil, testLogger(), 50)
	_ = agg.LoadAll(context.Background())

	assert.Equal(t, 100, agg.Posture().Score, "unloadable backups must not look stale")
}

func TestLoadAllQuarantinesMalformedRows(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.backups = []BackupLog{freshBackup(now)}
	store.activities = []SuspiciousActivity{
		{ID: 1, Type: "brute_force", Severity: SeverityLow, Confidence: 0.4, Status: ActivityResolved},
		{ID: 2, Type: "", Severity: SeverityLow, Confidence: 0.4, Status: ActivityOpen},
		{ID: 3, Type: "scraping", Severity: SeverityLow, Confidence: 7, Status: ActivityOpen},
	}

	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))

	snap := agg.Snapshot()
	require.Len(t, snap.Activities, 1)
	assert.Equal(t, int64(1), snap.Activities[0].ID)
	assert.Equal(t, 100, snap.Posture.Score, "malformed open rows never reach the score engine")
}

func TestCreatePolicyPrependsConfirmedRecord(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.policies = []SecurityPolicy{validPolicy(1, true)}
	store.backups = []BackupLog{freshBackup(now)}

	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))

	created, err := agg.CreatePolicy(context.Background(), CreatePolicyInput{
		Name: "session hardening", Type: "access-control", Severity: "medium", Enabled: true,
	})
	require.NoError(t, err)

	snap := agg.Snapshot()
	require.Len(t, snap.Policies, 2)
	assert.Equal(t, created.ID, snap.Policies[0].ID, "confirmed record is prepended")
	assert.Equal(t, int64(1), snap.Policies[1].ID)
}

func TestMutationFailureLeavesSnapshotUnchanged(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.policies = []SecurityPolicy{validPolicy(1, true)}
	store.backups = []BackupLog{freshBackup(now)}

	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))
	before := agg.Snapshot()

	store.failWrite = errors.New("write refused")
	_, err := agg.CreatePolicy(context.Background(), CreatePolicyInput{
		Name: "mfa", Type: "access-control", Severity: "high", Enabled: true,
	})
	require.ErrorIs(t, err, ErrMutation)
	assert.Same(t, before, agg.Snapshot(), "no local change without remote confirmation")
}

func TestInvalidInputRejectedBeforeStoreCall(t *testing.T) {
	store := newFakeStore()
	store.failWrite = errors.New("store must not be reached")

	agg := NewAggregator(store, nil, testLogger(), 50)
	_, err := agg.AddBlacklistEntry(context.Background(), AddIPInput{Address: "not-an-ip", Reason: "abuse"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = agg.CreatePolicy(context.Background(), CreatePolicyInput{Name: "x", Type: "bogus", Severity: "high"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDualListedAddressesSurfaced(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.backups = []BackupLog{freshBackup(now)}
	store.whitelist = []WhitelistEntry{{ID: 1, Address: "10.0.0.9"}}
	store.blacklist = []BlacklistEntry{{ID: 2, Address: "10.0.0.9", Reason: "abuse", ThreatLevel: SeverityHigh, Permanent: true, IsActive: true}}

	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))

	assert.Equal(t, []string{"10.0.0.9"}, agg.Snapshot().DualListed)
}

func TestRealtimeEventMatchesDirectMutation(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.backups = []BackupLog{freshBackup(now)}

	agg := NewAggregator(store, nil, testLogger(), 50)
	require.NoError(t, agg.LoadAll(context.Background()))

	pushed := SuspiciousActivity{ID: 7, Type: "geo_anomaly", Severity: SeverityCritical, Confidence: 0.9, Status: ActivityOpen, CreatedAt: now}
	require.NoError(t, agg.ApplyRemoteActivity(pushed))

	snap := agg.Snapshot()
	require.Len(t, snap.Activities, 1)
	assert.Equal(t, pushed.ID, snap.Activities[0].ID)
	assert.Equal(t, 75, snap.Posture.Score, "pushed rows recompute posture like HTTP writes")

	pushed.Status = ActivityInvestigating
	require.NoError(t, agg.ApplyRemoteActivity(pushed))
	snap = agg.Snapshot()
	require.Len(t, snap.Activities, 1, "same id replaces in place")
	assert.Equal(t, ActivityInvestigating, snap.Activities[0].Status)
}

func TestRealtimeRejectsMalformedEvent(t *testing.T) {
	store := newFakeStore()
	agg := NewAggregator(store, nil, testLogger(), 50)

	err := agg.ApplyRemoteActivity(SuspiciousActivity{ID: 1, Type: "", Severity: SeverityLow, Status: ActivityOpen})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, agg.Snapshot().Activities)
}

func TestPostureListenerNotified(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.backups = []BackupLog{freshBackup(now)}

	agg := NewAggregator(store, nil, testLogger(), 50)
	var seen []Posture
	agg.OnPosture(func(p Posture) { seen = append(seen, p) })

	require.NoError(t, agg.LoadAll(context.Background()))
	require.NotEmpty(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1].Score)
}
