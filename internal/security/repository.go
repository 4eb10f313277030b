package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	pool *pgxpool.Pool
}

// NewSQLStore wraps a connection pool.
func NewSQLStore(pool *pgxpool.Pool) *SQLStore {
	return &SQLStore{pool: pool}
}

func (s *SQLStore) ListPolicies(ctx context.Context, limit int) ([]SecurityPolicy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, enabled, severity, auto_enforce, notify, configuration, created_at, updated_at
		FROM security_policies
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []SecurityPolicy
	for rows.Next() {
		var p SecurityPolicy
		var config []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Enabled, &p.Severity, &p.AutoEnforce, &p.Notify, &config, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		if len(config) > 0 {
			_ = json.Unmarshal(config, &p.Configuration)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *SQLStore) ListWhitelist(ctx context.Context, limit int) ([]WhitelistEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, address, COALESCE(description, ''), created_at
		FROM security_ip_whitelist
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	defer rows.Close()

	var entries []WhitelistEntry
	for rows.Next() {
		var e WhitelistEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) ListBlacklist(ctx context.Context, limit int) ([]BlacklistEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, address, reason, threat_level, incident_count, permanent, expires_at, is_active, created_at
		FROM security_ip_blacklist
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	var entries []BlacklistEntry
	for rows.Next() {
		var e BlacklistEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.Reason, &e.ThreatLevel, &e.IncidentCount, &e.Permanent, &e.ExpiresAt, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) ListActivities(ctx context.Context, limit int) ([]SuspiciousActivity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, actor_id, type, severity, confidence, status, investigator_id,
		       COALESCE(notes, ''), COALESCE(resolution_notes, ''),
		       created_at, investigated_at, resolved_at
		FROM suspicious_activities
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []SuspiciousActivity
	for rows.Next() {
		var a SuspiciousActivity
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Type, &a.Severity, &a.Confidence, &a.Status, &a.Investigator,
			&a.Notes, &a.ResolutionNotes, &a.CreatedAt, &a.InvestigatedAt, &a.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *SQLStore) ListIncidents(ctx context.Context, limit int) ([]SecurityIncident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, number, title, COALESCE(description, ''), type, severity, status,
		       discovered_at, contained_at, resolved_at, closed_at,
		       affected_systems, affected_actors, cost_estimate, COALESCE(resolution, ''),
		       created_at, updated_at
		FROM security_incidents
		ORDER BY discovered_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []SecurityIncident
	for rows.Next() {
		var i SecurityIncident
		if err := rows.Scan(&i.ID, &i.Number, &i.Title, &i.Description, &i.Type, &i.Severity, &i.Status,
			&i.DiscoveredAt, &i.ContainedAt, &i.ResolvedAt, &i.ClosedAt,
			&i.AffectedSystems, &i.AffectedActors, &i.CostEstimate, &i.Resolution,
			&i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}

func (s *SQLStore) ListBackups(ctx context.Context, limit int) ([]BackupLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, scope, status, size_bytes, encrypted, compressed, started_at, completed_at, created_at
		FROM backup_logs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []BackupLog
	for rows.Next() {
		var b BackupLog
		if err := rows.Scan(&b.ID, &b.Type, &b.Scope, &b.Status, &b.SizeBytes, &b.Encrypted, &b.Compressed, &b.StartedAt, &b.CompletedAt, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

func (s *SQLStore) CreatePolicy(ctx context.Context, policy SecurityPolicy) (SecurityPolicy, error) {
	config, err := json.Marshal(policy.Configuration)
	if err != nil {
		return SecurityPolicy{}, fmt.Errorf("encode configuration: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO security_policies (name, type, enabled, severity, auto_enforce, notify, configuration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		policy.Name, policy.Type, policy.Enabled, policy.Severity, policy.AutoEnforce, policy.Notify, config,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	if err != nil {
		return SecurityPolicy{}, fmt.Errorf("insert policy: %w", err)
	}
	return policy, nil
}

func (s *SQLStore) SetPolicyEnabled(ctx context.Context, id int64, enabled bool) (SecurityPolicy, error) {
	var p SecurityPolicy
	var config []byte
	err := s.pool.QueryRow(ctx, `
		UPDATE security_policies
		SET enabled = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, type, enabled, severity, auto_enforce, notify, configuration, created_at, updated_at`,
		id, enabled,
	).Scan(&p.ID, &p.Name, &p.Type, &p.Enabled, &p.Severity, &p.AutoEnforce, &p.Notify, &config, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SecurityPolicy{}, fmt.Errorf("%w: policy %d", ErrNotFound, id)
	}
	if err != nil {
		return SecurityPolicy{}, fmt.Errorf("update policy: %w", err)
	}
	if len(config) > 0 {
		_ = json.Unmarshal(config, &p.Configuration)
	}
	return p, nil
}

func (s *SQLStore) AddWhitelistEntry(ctx context.Context, entry WhitelistEntry) (WhitelistEntry, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO security_ip_whitelist (address, description, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at`,
		entry.Address, entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return WhitelistEntry{}, fmt.Errorf("insert whitelist entry: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) RemoveWhitelistEntry(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM security_ip_whitelist WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete whitelist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: whitelist entry %d", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) AddBlacklistEntry(ctx context.Context, entry BlacklistEntry) (BlacklistEntry, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO security_ip_blacklist (address, reason, threat_level, permanent, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, incident_count, created_at`,
		entry.Address, entry.Reason, entry.ThreatLevel, entry.Permanent, entry.ExpiresAt, entry.IsActive,
	).Scan(&entry.ID, &entry.IncidentCount, &entry.CreatedAt)
	if err != nil {
		return BlacklistEntry{}, fmt.Errorf("insert blacklist entry: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) RemoveBlacklistEntry(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM security_ip_blacklist WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blacklist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: blacklist entry %d", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) StartBackup(ctx context.Context, backup BackupLog) (BackupLog, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO backup_logs (type, scope, status, encrypted, compressed, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`,
		backup.Type, backup.Scope, backup.Status, backup.Encrypted, backup.Compressed, backup.StartedAt,
	).Scan(&backup.ID, &backup.CreatedAt)
	if err != nil {
		return BackupLog{}, fmt.Errorf("insert backup: %w", err)
	}
	return backup, nil
}

func (s *SQLStore) FinishBackup(ctx context.Context, id int64, status BackupStatus, sizeBytes int64, completedAt time.Time) (BackupLog, error) {
	var b BackupLog
	err := s.pool.QueryRow(ctx, `
		UPDATE backup_logs
		SET status = $2, size_bytes = $3, completed_at = $4
		WHERE id = $1 AND status = 'in_progress'
		RETURNING id, type, scope, status, size_bytes, encrypted, compressed, started_at, completed_at, created_at`,
		id, status, sizeBytes, completedAt,
	).Scan(&b.ID, &b.Type, &b.Scope, &b.Status, &b.SizeBytes, &b.Encrypted, &b.Compressed, &b.StartedAt, &b.CompletedAt, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BackupLog{}, fmt.Errorf("%w: in-progress backup %d", ErrNotFound, id)
	}
	if err != nil {
		return BackupLog{}, fmt.Errorf("finish backup: %w", err)
	}
	return b, nil
}

func (s *SQLStore) GetActivity(ctx context.Context, id int64) (SuspiciousActivity, error) {
	var a SuspiciousActivity
	err := s.pool.QueryRow(ctx, `
		SELECT id, actor_id, type, severity, confidence, status, investigator_id,
		       COALESCE(notes, ''), COALESCE(resolution_notes, ''),
		       created_at, investigated_at, resolved_at
		FROM suspicious_activities
		WHERE id = $1`, id,
	).Scan(&a.ID, &a.ActorID, &a.Type, &a.Severity, &a.Confidence, &a.Status, &a.Investigator,
		&a.Notes, &a.ResolutionNotes, &a.CreatedAt, &a.InvestigatedAt, &a.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SuspiciousActivity{}, fmt.Errorf("%w: activity %d", ErrNotFound, id)
	}
	if err != nil {
		return SuspiciousActivity{}, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

func (s *SQLStore) UpdateActivity(ctx context.Context, activity SuspiciousActivity) (SuspiciousActivity, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE suspicious_activities
		SET status = $2, investigator_id = $3, notes = $4, resolution_notes = $5,
		    investigated_at = $6, resolved_at = $7
		WHERE id = $1`,
		activity.ID, activity.Status, activity.Investigator, activity.Notes, activity.ResolutionNotes,
		activity.InvestigatedAt, activity.ResolvedAt)
	if err != nil {
		return SuspiciousActivity{}, fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return SuspiciousActivity{}, fmt.Errorf("%w: activity %d", ErrNotFound, activity.ID)
	}
	return activity, nil
}

func (s *SQLStore) CreateIncident(ctx context.Context, incident SecurityIncident) (SecurityIncident, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO security_incidents (number, title, description, type, severity, status,
			discovered_at, affected_systems, affected_actors, cost_estimate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		incident.Number, incident.Title, incident.Description, incident.Type, incident.Severity, incident.Status,
		incident.DiscoveredAt, incident.AffectedSystems, incident.AffectedActors, incident.CostEstimate,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return SecurityIncident{}, fmt.Errorf("insert incident: %w", err)
	}
	return incident, nil
}

func (s *SQLStore) GetIncident(ctx context.Context, id int64) (SecurityIncident, error) {
	var i SecurityIncident
	err := s.pool.QueryRow(ctx, `
		SELECT id, number, title, COALESCE(description, ''), type, severity, status,
		       discovered_at, contained_at, resolved_at, closed_at,
		       affected_systems, affected_actors, cost_estimate, COALESCE(resolution, ''),
		       created_at, updated_at
		FROM security_incidents
		WHERE id = $1`, id,
	).Scan(&i.ID, &i.Number, &i.Title, &i.Description, &i.Type, &i.Severity, &i.Status,
		&i.DiscoveredAt, &i.ContainedAt, &i.ResolvedAt, &i.ClosedAt,
		&i.AffectedSystems, &i.AffectedActors, &i.CostEstimate, &i.Resolution,
		&i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SecurityIncident{}, fmt.Errorf("%w: incident %d", ErrNotFound, id)
	}
	if err != nil {
		return SecurityIncident{}, fmt.Errorf("get incident: %w", err)
	}
	return i, nil
}

func (s *SQLStore) UpdateIncident(ctx context.Context, incident SecurityIncident) (SecurityIncident, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE security_incidents
		SET status = $2, contained_at = $3, resolved_at = $4, closed_at = $5, resolution = $6, updated_at = NOW()
		WHERE id = $1`,
		incident.ID, incident.Status, incident.ContainedAt, incident.ResolvedAt, incident.ClosedAt, incident.Resolution)
	if err != nil {
		return SecurityIncident{}, fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return SecurityIncident{}, fmt.Errorf("%w: incident %d", ErrNotFound, incident.ID)
	}
	incident.UpdatedAt = time.Now()
	return incident, nil
}
