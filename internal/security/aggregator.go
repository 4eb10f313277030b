package security

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ViniciusChelli/Seletto-sub001/internal/audit"
)

// Collection identifies one of the aggregated security collections.
type Collection string

const (
	CollectionPolicies   Collection = "policies"
	CollectionWhitelist  Collection = "whitelist"
	CollectionBlacklist  Collection = "blacklist"
	CollectionActivities Collection = "activities"
	CollectionIncidents  Collection = "incidents"
	CollectionBackups    Collection = "backups"
	CollectionAudit      Collection = "audit"
)

// Snapshot is the immutable combined view published by the aggregator.
// Readers hold it as a value; the aggregator swaps in a fresh pointer on
// every confirmed change.
type Snapshot struct {
	Policies   []SecurityPolicy     `json:"policies"`
	Whitelist  []WhitelistEntry     `json:"whitelist"`
	Blacklist  []BlacklistEntry     `json:"blacklist"`
	Activities []SuspiciousActivity `json:"activities"`
	Incidents  []SecurityIncident   `json:"incidents"`
	Backups    []BackupLog          `json:"backups"`
	AuditTrail []audit.Entry        `json:"audit_trail"`

	// LoadErrors records collections whose last load failed. Scoring omits
	// their contribution entirely, which silently optimises the score; the
	// aggregator logs each occurrence for that reason.
	LoadErrors map[Collection]string `json:"load_errors,omitempty"`

	// DualListed surfaces addresses present in both IP lists. The overlap is
	// allowed but suspicious, so it is exposed for audit instead of being
	// resolved by precedence.
	DualListed []string `json:"dual_listed,omitempty"`

	Posture Posture `json:"posture"`
}

// Failed reports whether the collection's last load failed.
func (s *Snapshot) Failed(c Collection) bool {
	if s == nil || s.LoadErrors == nil {
		return false
	}
	_, ok := s.LoadErrors[c]
	return ok
}

func (s *Snapshot) clone() *Snapshot {
	next := *s
	if s.LoadErrors != nil {
		next.LoadErrors = make(map[Collection]string, len(s.LoadErrors))
		for k, v := range s.LoadErrors {
			next.LoadErrors[k] = v
		}
	}
	return &next
}

// Store is the external persistence collaborator for the six collections.
// Every list is ordered newest first and bounded by limit.
type Store interface {
	ListPolicies(ctx context.Context, limit int) ([]SecurityPolicy, error)
	ListWhitelist(ctx context.Context, limit int) ([]WhitelistEntry, error)
	ListBlacklist(ctx context.Context, limit int) ([]BlacklistEntry, error)
	ListActivities(ctx context.Context, limit int) ([]SuspiciousActivity, error)
	ListIncidents(ctx context.Context, limit int) ([]SecurityIncident, error)
	ListBackups(ctx context.Context, limit int) ([]BackupLog, error)

	CreatePolicy(ctx context.Context, policy SecurityPolicy) (SecurityPolicy, error)
	SetPolicyEnabled(ctx context.Context, id int64, enabled bool) (SecurityPolicy, error)
	AddWhitelistEntry(ctx context.Context, entry WhitelistEntry) (WhitelistEntry, error)
	RemoveWhitelistEntry(ctx context.Context, id int64) error
	AddBlacklistEntry(ctx context.Context, entry BlacklistEntry) (BlacklistEntry, error)
	RemoveBlacklistEntry(ctx context.Context, id int64) error
	StartBackup(ctx context.Context, backup BackupLog) (BackupLog, error)
	FinishBackup(ctx context.Context, id int64, status BackupStatus, sizeBytes int64, completedAt time.Time) (BackupLog, error)

	GetActivity(ctx context.Context, id int64) (SuspiciousActivity, error)
	UpdateActivity(ctx context.Context, activity SuspiciousActivity) (SuspiciousActivity, error)
	CreateIncident(ctx context.Context, incident SecurityIncident) (SecurityIncident, error)
	GetIncident(ctx context.Context, id int64) (SecurityIncident, error)
	UpdateIncident(ctx context.Context, incident SecurityIncident) (SecurityIncident, error)
}

// AuditSource supplies the newest audit entries for the dashboard feed.
type AuditSource interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// PostureListener observes every recomputed posture.
type PostureListener func(Posture)

// Aggregator holds the latest confirmed snapshot of the security collections.
// Single writer, many readers; local state only ever reflects confirmed
// remote state.
type Aggregator struct {
	store    Store
	auditSrc AuditSource
	logger   *slog.Logger
	limit    int
	now      func() time.Time

	mu          sync.Mutex // serialises writers
	current     atomic.Pointer[Snapshot]
	generations map[Collection]uint64
	listeners   []PostureListener
}

// NewAggregator constructs an aggregator with an empty snapshot.
func NewAggregator(store Store, auditSrc AuditSource, logger *slog.Logger, pageLimit int) *Aggregator {
	if pageLimit <= 0 || pageLimit > 100 {
		pageLimit = 50
	}
	a := &Aggregator{
		store:       store,
		auditSrc:    auditSrc,
		logger:      logger,
		limit:       pageLimit,
		now:         time.Now,
		generations: make(map[Collection]uint64),
	}
	empty := &Snapshot{}
	empty.Posture = ComputeScore(empty, a.now())
	a.current.Store(empty)
	return a
}

// OnPosture registers a listener invoked after every recomputation.
func (a *Aggregator) OnPosture(fn PostureListener) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// Snapshot returns the latest published snapshot.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.current.Load()
}

// Posture returns the latest computed posture.
func (a *Aggregator) Posture() Posture {
	return a.current.Load().Posture
}

// PageLimit exposes the configured collection page size.
func (a *Aggregator) PageLimit() int {
	return a.limit
}

type loadResult struct {
	collection Collection
	generation uint64
	apply      func(*Snapshot)
	err        error
}

// LoadAll issues the seven collection loads concurrently and publishes a
// single combined snapshot once all complete. A failed collection leaves its
// previous data in place and is recorded in LoadErrors; it never blocks the
// others. Superseded loads are discarded by generation (last-issued wins).
func (a *Aggregator) LoadAll(ctx context.Context) error {
	collections := []Collection{
		CollectionPolicies, CollectionWhitelist, CollectionBlacklist,
		CollectionActivities, CollectionIncidents, CollectionBackups, CollectionAudit,
	}

	a.mu.Lock()
	generations := make(map[Collection]uint64, len(collections))
	for _, c := range collections {
		a.generations[c]++
		generations[c] = a.generations[c]
	}
	a.mu.Unlock()

	results := make([]loadResult, len(collections))
	group, ctx := errgroup.WithContext(ctx)
	for i, c := range collections {
		i, c := i, c
		group.Go(func() error {
			results[i] = a.loadCollection(ctx, c, generations[c])
			return nil
		})
	}
	_ = group.Wait()

	a.mu.Lock()
	next := a.current.Load().clone()
	if next.LoadErrors == nil {
		next.LoadErrors = make(map[Collection]string)
	}
	var firstErr error
	for _, result := range results {
		if a.generations[result.collection] != result.generation {
			continue // superseded by a newer load
		}
		if result.err != nil {
			next.LoadErrors[result.collection] = result.err.Error()
			if a.logger != nil {
				a.logger.Error("collection load failed, score contribution omitted",
					slog.String("collection", string(result.collection)), slog.Any("error", result.err))
			}
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		delete(next.LoadErrors, result.collection)
		result.apply(next)
	}
	a.publishLocked(next)
	a.mu.Unlock()
	return firstErr
}

// ReloadCollection refreshes a single collection.
func (a *Aggregator) ReloadCollection(ctx context.Context, c Collection) error {
	a.mu.Lock()
	a.generations[c]++
	generation := a.generations[c]
	a.mu.Unlock()

	result := a.loadCollection(ctx, c, generation)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generations[c] != generation {
		return nil // superseded
	}
	next := a.current.Load().clone()
	if next.LoadErrors == nil {
		next.LoadErrors = make(map[Collection]string)
	}
	if result.err != nil {
		next.LoadErrors[c] = result.err.Error()
		if a.logger != nil {
			a.logger.Error("collection reload failed, score contribution omitted",
				slog.String("collection", string(c)), slog.Any("error", result.err))
		}
		a.publishLocked(next)
		return result.err
	}
	delete(next.LoadErrors, c)
	result.apply(next)
	a.publishLocked(next)
	return nil
}

func (a *Aggregator) loadCollection(ctx context.Context, c Collection, generation uint64) loadResult {
	result := loadResult{collection: c, generation: generation}
	switch c {
	case CollectionPolicies:
		data, err := a.store.ListPolicies(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.Policies = a.validPolicies(data) }
	case CollectionWhitelist:
		data, err := a.store.ListWhitelist(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.Whitelist = a.validWhitelist(data) }
	case CollectionBlacklist:
		data, err := a.store.ListBlacklist(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.Blacklist = a.validBlacklist(data) }
	case CollectionActivities:
		data, err := a.store.ListActivities(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.Activities = a.validActivities(data) }
	case CollectionIncidents:
		data, err := a.store.ListIncidents(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.Incidents = a.validIncidents(data) }
	case CollectionBackups:
		data, err := a.store.ListBackups(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.Backups = a.validBackups(data) }
	case CollectionAudit:
		if a.auditSrc == nil {
			result.apply = func(s *Snapshot) {}
			return result
		}
		data, err := a.auditSrc.Recent(ctx, a.limit)
		result.err = err
		result.apply = func(s *Snapshot) { s.AuditTrail = data }
	}
	return result
}

// publishLocked recomputes derived state and swaps the snapshot in. Callers
// hold a.mu.
func (a *Aggregator) publishLocked(next *Snapshot) {
	next.DualListed = dualListed(next.Whitelist, next.Blacklist, a.now())
	next.Posture = ComputeScore(next, a.now())
	a.current.Store(next)
	for _, listener := range a.listeners {
		listener(next.Posture)
	}
}

// confirm applies a store-confirmed change to the in-memory snapshot. Every
// mutation and realtime event funnels through here so the mutate-after-
// confirm invariant holds uniformly.
func (a *Aggregator) confirm(apply func(*Snapshot)) {
	a.mu.Lock()
	next := a.current.Load().clone()
	apply(next)
	a.publishLocked(next)
	a.mu.Unlock()
}

// CreatePolicyInput carries caller input for a new policy.
type CreatePolicyInput struct {
	Name          string         `json:"name" validate:"required"`
	Type          string         `json:"type" validate:"required"`
	Severity      string         `json:"severity" validate:"required"`
	Enabled       bool           `json:"enabled"`
	AutoEnforce   bool           `json:"auto_enforce"`
	Notify        bool           `json:"notify"`
	Configuration map[string]any `json:"configuration"`
}

// CreatePolicy persists a new policy and, only on success, prepends it to the
// snapshot.
func (a *Aggregator) CreatePolicy(ctx context.Context, input CreatePolicyInput) (SecurityPolicy, error) {
	policyType, err := ParsePolicyType(input.Type)
	if err != nil {
		return SecurityPolicy{}, err
	}
	severity, err := ParseSeverity(input.Severity)
	if err != nil {
		return SecurityPolicy{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return SecurityPolicy{}, fmt.Errorf("%w: policy name required", ErrValidation)
	}
	policy := SecurityPolicy{
		Name:          strings.TrimSpace(input.Name),
		Type:          policyType,
		Severity:      severity,
		Enabled:       input.Enabled,
		AutoEnforce:   input.AutoEnforce,
		Notify:        input.Notify,
		Configuration: input.Configuration,
	}
	confirmed, err := a.store.CreatePolicy(ctx, policy)
	if err != nil {
		return SecurityPolicy{}, fmt.Errorf("%w: create policy: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		s.Policies = prependOrReplacePolicy(s.Policies, confirmed)
	})
	return confirmed, nil
}

// TogglePolicy flips the enabled flag through the store and applies the
// confirmed record.
func (a *Aggregator) TogglePolicy(ctx context.Context, id int64) (SecurityPolicy, error) {
	var existing *SecurityPolicy
	policies := a.Snapshot().Policies
	for i := range policies {
		if policies[i].ID == id {
			existing = &policies[i]
			break
		}
	}
	if existing == nil {
		return SecurityPolicy{}, fmt.Errorf("%w: policy %d", ErrNotFound, id)
	}
	confirmed, err := a.store.SetPolicyEnabled(ctx, id, !existing.Enabled)
	if err != nil {
		return SecurityPolicy{}, fmt.Errorf("%w: toggle policy: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		s.Policies = prependOrReplacePolicy(s.Policies, confirmed)
	})
	return confirmed, nil
}

// AddIPInput carries caller input for an IP list entry.
type AddIPInput struct {
	Address     string `json:"address" validate:"required"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
	ThreatLevel string `json:"threat_level"`
	Permanent   bool   `json:"permanent"`
	ExpiresAt   string `json:"expires_at"`
}

// AddWhitelistEntry persists and applies a new allow entry.
func (a *Aggregator) AddWhitelistEntry(ctx context.Context, input AddIPInput) (WhitelistEntry, error) {
	entry := WhitelistEntry{Address: strings.TrimSpace(input.Address), Description: input.Description}
	if err := entry.Validate(); err != nil {
		return WhitelistEntry{}, err
	}
	confirmed, err := a.store.AddWhitelistEntry(ctx, entry)
	if err != nil {
		return WhitelistEntry{}, fmt.Errorf("%w: add whitelist entry: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		s.Whitelist = prependOrReplaceWhitelist(s.Whitelist, confirmed)
	})
	return confirmed, nil
}

// RemoveWhitelistEntry deletes an allow entry and drops it from the snapshot.
func (a *Aggregator) RemoveWhitelistEntry(ctx context.Context, id int64) error {
	if err := a.store.RemoveWhitelistEntry(ctx, id); err != nil {
		return fmt.Errorf("%w: remove whitelist entry: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		filtered := make([]WhitelistEntry, 0, len(s.Whitelist))
		for _, e := range s.Whitelist {
			if e.ID != id {
				filtered = append(filtered, e)
			}
		}
		s.Whitelist = filtered
	})
	return nil
}

// AddBlacklistEntry persists and applies a new deny entry.
func (a *Aggregator) AddBlacklistEntry(ctx context.Context, input AddIPInput) (BlacklistEntry, error) {
	level := Severity(input.ThreatLevel)
	if input.ThreatLevel == "" {
		level = SeverityMedium
	}
	entry := BlacklistEntry{
		Address:     strings.TrimSpace(input.Address),
		Reason:      strings.TrimSpace(input.Reason),
		ThreatLevel: level,
		Permanent:   input.Permanent,
		IsActive:    true,
	}
	if input.ExpiresAt != "" {
		expires, err := time.Parse(time.RFC3339, input.ExpiresAt)
		if err != nil {
			return BlacklistEntry{}, fmt.Errorf("%w: malformed expires_at", ErrValidation)
		}
		entry.ExpiresAt = &expires
	}
	if err := entry.Validate(); err != nil {
		return BlacklistEntry{}, err
	}
	confirmed, err := a.store.AddBlacklistEntry(ctx, entry)
	if err != nil {
		return BlacklistEntry{}, fmt.Errorf("%w: add blacklist entry: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		s.Blacklist = prependOrReplaceBlacklist(s.Blacklist, confirmed)
	})
	return confirmed, nil
}

// RemoveBlacklistEntry deletes a deny entry and drops it from the snapshot.
func (a *Aggregator) RemoveBlacklistEntry(ctx context.Context, id int64) error {
	if err := a.store.RemoveBlacklistEntry(ctx, id); err != nil {
		return fmt.Errorf("%w: remove blacklist entry: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		filtered := make([]BlacklistEntry, 0, len(s.Blacklist))
		for _, e := range s.Blacklist {
			if e.ID != id {
				filtered = append(filtered, e)
			}
		}
		s.Blacklist = filtered
	})
	return nil
}

// StartBackupInput carries caller input for a backup run.
type StartBackupInput struct {
	Type       string `json:"type" validate:"required"`
	Scope      string `json:"scope" validate:"required"`
	Encrypted  bool   `json:"encrypted"`
	Compressed bool   `json:"compressed"`
}

// StartBackup records an in-progress backup run.
func (a *Aggregator) StartBackup(ctx context.Context, input StartBackupInput) (BackupLog, error) {
	backupType, err := ParseBackupType(input.Type)
	if err != nil {
		return BackupLog{}, err
	}
	if strings.TrimSpace(input.Scope) == "" {
		return BackupLog{}, fmt.Errorf("%w: backup scope required", ErrValidation)
	}
	backup := BackupLog{
		Type:       backupType,
		Scope:      strings.TrimSpace(input.Scope),
		Status:     BackupInProgress,
		Encrypted:  input.Encrypted,
		Compressed: input.Compressed,
		StartedAt:  a.now(),
	}
	confirmed, err := a.store.StartBackup(ctx, backup)
	if err != nil {
		return BackupLog{}, fmt.Errorf("%w: start backup: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		s.Backups = prependOrReplaceBackup(s.Backups, confirmed)
	})
	return confirmed, nil
}

// FinishBackup moves a backup run to a terminal status.
func (a *Aggregator) FinishBackup(ctx context.Context, id int64, status BackupStatus, sizeBytes int64) (BackupLog, error) {
	switch status {
	case BackupCompleted, BackupFailed, BackupCancelled:
	default:
		return BackupLog{}, fmt.Errorf("%w: %q is not a terminal backup status", ErrValidation, status)
	}
	confirmed, err := a.store.FinishBackup(ctx, id, status, sizeBytes, a.now())
	if err != nil {
		return BackupLog{}, fmt.Errorf("%w: finish backup: %v", ErrMutation, err)
	}
	a.confirm(func(s *Snapshot) {
		s.Backups = prependOrReplaceBackup(s.Backups, confirmed)
	})
	return confirmed, nil
}

// ApplyRemoteActivity merges a pushed suspicious-activity row through the
// same confirmed-mutation reducer as HTTP mutations.
func (a *Aggregator) ApplyRemoteActivity(activity SuspiciousActivity) error {
	if err := activity.Validate(); err != nil {
		if a.logger != nil {
			a.logger.Warn("quarantined malformed activity event", slog.Int64("id", activity.ID), slog.Any("error", err))
		}
		return err
	}
	a.confirm(func(s *Snapshot) {
		s.Activities = prependOrReplaceActivity(s.Activities, activity)
	})
	return nil
}

// ApplyRemoteIncident merges a pushed incident row.
func (a *Aggregator) ApplyRemoteIncident(incident SecurityIncident) error {
	if err := incident.Validate(); err != nil {
		if a.logger != nil {
			a.logger.Warn("quarantined malformed incident event", slog.Int64("id", incident.ID), slog.Any("error", err))
		}
		return err
	}
	a.confirm(func(s *Snapshot) {
		s.Incidents = prependOrReplaceIncident(s.Incidents, incident)
	})
	return nil
}

// Boundary validation: malformed store rows are dropped and logged, never
// propagated into the score engine.

func (a *Aggregator) validPolicies(in []SecurityPolicy) []SecurityPolicy {
	out := in[:0:0]
	for _, p := range in {
		if err := p.Validate(); err != nil {
			a.quarantine("policy", p.ID, err)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (a *Aggregator) validWhitelist(in []WhitelistEntry) []WhitelistEntry {
	out := in[:0:0]
	for _, e := range in {
		if err := e.Validate(); err != nil {
			a.quarantine("whitelist entry", e.ID, err)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (a *Aggregator) validBlacklist(in []BlacklistEntry) []BlacklistEntry {
	out := in[:0:0]
	for _, e := range in {
		if err := e.Validate(); err != nil {
			a.quarantine("blacklist entry", e.ID, err)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (a *Aggregator) validActivities(in []SuspiciousActivity) []SuspiciousActivity {
	out := in[:0:0]
	for _, activity := range in {
		if err := activity.Validate(); err != nil {
			a.quarantine("activity", activity.ID, err)
			continue
		}
		out = append(out, activity)
	}
	return out
}

func (a *Aggregator) validIncidents(in []SecurityIncident) []SecurityIncident {
	out := in[:0:0]
	for _, incident := range in {
		if err := incident.Validate(); err != nil {
			a.quarantine("incident", incident.ID, err)
			continue
		}
		out = append(out, incident)
	}
	return out
}

func (a *Aggregator) validBackups(in []BackupLog) []BackupLog {
	out := in[:0:0]
	for _, backup := range in {
		if err := backup.Validate(); err != nil {
			a.quarantine("backup", backup.ID, err)
			continue
		}
		out = append(out, backup)
	}
	return out
}

func (a *Aggregator) quarantine(kind string, id int64, err error) {
	if a.logger != nil {
		a.logger.Warn("quarantined malformed store row", slog.String("kind", kind), slog.Int64("id", id), slog.Any("error", err))
	}
}

func dualListed(whitelist []WhitelistEntry, blacklist []BlacklistEntry, now time.Time) []string {
	if len(whitelist) == 0 || len(blacklist) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(whitelist))
	for _, e := range whitelist {
		allowed[e.Address] = struct{}{}
	}
	var overlap []string
	for _, e := range blacklist {
		if !e.ActiveAt(now) {
			continue
		}
		if _, ok := allowed[e.Address]; ok {
			overlap = append(overlap, e.Address)
		}
	}
	return overlap
}

// prepend-or-replace reducers, keyed by id.

func prependOrReplacePolicy(list []SecurityPolicy, record SecurityPolicy) []SecurityPolicy {
	for i := range list {
		if list[i].ID == record.ID {
			next := make([]SecurityPolicy, len(list))
			copy(next, list)
			next[i] = record
			return next
		}
	}
	return append([]SecurityPolicy{record}, list...)
}

func prependOrReplaceWhitelist(list []WhitelistEntry, record WhitelistEntry) []WhitelistEntry {
	for i := range list {
		if list[i].ID == record.ID {
			next := make([]WhitelistEntry, len(list))
			copy(next, list)
			next[i] = record
			return next
		}
	}
	return append([]WhitelistEntry{record}, list...)
}

func prependOrReplaceBlacklist(list []BlacklistEntry, record BlacklistEntry) []BlacklistEntry {
	for i := range list {
		if list[i].ID == record.ID {
			next := make([]BlacklistEntry, len(list))
			copy(next, list)
			next[i] = record
			return next
		}
	}
	return append([]BlacklistEntry{record}, list...)
}

func prependOrReplaceActivity(list []SuspiciousActivity, record SuspiciousActivity) []SuspiciousActivity {
	for i := range list {
		if list[i].ID == record.ID {
			next := make([]SuspiciousActivity, len(list))
			copy(next, list)
			next[i] = record
			return next
		}
	}
	return append([]SuspiciousActivity{record}, list...)
}

func prependOrReplaceIncident(list []SecurityIncident, record SecurityIncident) []SecurityIncident {
	for i := range list {
		if list[i].ID == record.ID {
			next := make([]SecurityIncident, len(list))
			copy(next, list)
			next[i] = record
			return next
		}
	}
	return append([]SecurityIncident{record}, list...)
}

func prependOrReplaceBackup(list []BackupLog, record BackupLog) []BackupLog {
	for i := range list {
		if list[i].ID == record.ID {
			next := make([]BackupLog, len(list))
			copy(next, list)
			next[i] = record
			return next
		}
	}
	return append([]BackupLog{record}, list...)
}
