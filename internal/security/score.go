package security

import "time"

// Scoring constants. The deduction table and threat mapping are the engine's
// numeric contract; changing any value changes the externally visible score.
const (
	penaltyOpenIncident     = 15
	penaltyCriticalActivity = 20
	penaltyOpenActivity     = 5
	penaltyBlacklistEntry   = 2
	penaltyStaleBackup      = 10
	creditPerPolicy         = 2
	creditPolicyCap         = 20
	creditPerWhitelist      = 1
	creditWhitelistCap      = 10

	backupFreshnessWindow = 24 * time.Hour
)

// Posture is the derived score/threat-level pair, never persisted.
type Posture struct {
	Score      int         `json:"score"`
	Level      ThreatLevel `json:"level"`
	ComputedAt time.Time   `json:"computed_at"`
}

// ComputeScore derives the posture from the current snapshot. Pure and
// idempotent over the full snapshot; no incremental scoring. A collection
// whose load failed contributes nothing, including the stale-backup penalty
// for an unloadable backups collection.
func ComputeScore(snap *Snapshot, now time.Time) Posture {
	score := 100

	for _, incident := range snap.Incidents {
		if incident.Status == IncidentOpen || incident.Status == IncidentInvestigating {
			score -= penaltyOpenIncident
		}
	}

	// A critical open activity takes both the critical-specific and the
	// generic open deduction.
	for _, activity := range snap.Activities {
		if activity.Severity == SeverityCritical && activity.Status == ActivityOpen {
			score -= penaltyCriticalActivity
		}
		if activity.Status == ActivityOpen {
			score -= penaltyOpenActivity
		}
	}

	for _, entry := range snap.Blacklist {
		if entry.ActiveAt(now) {
			score -= penaltyBlacklistEntry
		}
	}

	if !snap.Failed(CollectionBackups) && !hasFreshBackup(snap.Backups, now) {
		score -= penaltyStaleBackup
	}

	policyCredit := 0
	for _, policy := range snap.Policies {
		if policy.Enabled {
			policyCredit += creditPerPolicy
		}
	}
	if policyCredit > creditPolicyCap {
		policyCredit = creditPolicyCap
	}
	score += policyCredit

	whitelistCredit := len(snap.Whitelist) * creditPerWhitelist
	if whitelistCredit > creditWhitelistCap {
		whitelistCredit = creditWhitelistCap
	}
	score += whitelistCredit

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Posture{Score: score, Level: threatLevelFor(score), ComputedAt: now}
}

func threatLevelFor(score int) ThreatLevel {
	switch {
	case score >= 90:
		return ThreatLow
	case score >= 70:
		return ThreatMedium
	case score >= 50:
		return ThreatHigh
	default:
		return ThreatCritical
	}
}

func hasFreshBackup(backups []BackupLog, now time.Time) bool {
	for _, backup := range backups {
		if backup.CompletedWithin(backupFreshnessWindow, now) {
			return true
		}
	}
	return false
}
