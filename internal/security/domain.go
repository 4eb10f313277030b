package security

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Sentinel errors for the security domain.
var (
	// ErrValidation indicates malformed caller input, rejected before any
	// remote call.
	ErrValidation = errors.New("security: invalid input")
	// ErrMutation indicates a confirmed write to the security store failed.
	// Local state is left untouched.
	ErrMutation = errors.New("security: mutation failed")
	// ErrTransition indicates a lifecycle transition is not permitted.
	ErrTransition = errors.New("security: transition not permitted")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("security: not found")
)

// PolicyType classifies a security policy.
type PolicyType string

const (
	PolicyAccessControl  PolicyType = "access-control"
	PolicyDataProtection PolicyType = "data-protection"
	PolicyAudit          PolicyType = "audit"
	PolicyBackup         PolicyType = "backup"
	PolicyMonitoring     PolicyType = "monitoring"
)

// ParsePolicyType validates a policy type slug.
func ParsePolicyType(raw string) (PolicyType, error) {
	switch PolicyType(raw) {
	case PolicyAccessControl, PolicyDataProtection, PolicyAudit, PolicyBackup, PolicyMonitoring:
		return PolicyType(raw), nil
	}
	return "", fmt.Errorf("%w: unknown policy type %q", ErrValidation, raw)
}

// Severity grades a signal.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity slug.
func ParseSeverity(raw string) (Severity, error) {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(raw), nil
	}
	return "", fmt.Errorf("%w: unknown severity %q", ErrValidation, raw)
}

// ThreatLevel is the four-tier classification derived from the posture score.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ActivityStatus tracks the suspicious-activity lifecycle.
type ActivityStatus string

const (
	ActivityOpen          ActivityStatus = "open"
	ActivityInvestigating ActivityStatus = "investigating"
	ActivityResolved      ActivityStatus = "resolved"
	ActivityFalsePositive ActivityStatus = "false_positive"
)

// Terminal reports whether no further transition is allowed.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityResolved || s == ActivityFalsePositive
}

// IncidentStatus tracks the incident lifecycle.
type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentContained     IncidentStatus = "contained"
	IncidentResolved      IncidentStatus = "resolved"
	IncidentClosed        IncidentStatus = "closed"
)

// ParseIncidentStatus validates an incident status slug.
func ParseIncidentStatus(raw string) (IncidentStatus, error) {
	switch IncidentStatus(raw) {
	case IncidentOpen, IncidentInvestigating, IncidentContained, IncidentResolved, IncidentClosed:
		return IncidentStatus(raw), nil
	}
	return "", fmt.Errorf("%w: unknown incident status %q", ErrValidation, raw)
}

// BackupType classifies a backup run.
type BackupType string

const (
	BackupFull         BackupType = "full"
	BackupIncremental  BackupType = "incremental"
	BackupDifferential BackupType = "differential"
)

// ParseBackupType validates a backup type slug.
func ParseBackupType(raw string) (BackupType, error) {
	switch BackupType(raw) {
	case BackupFull, BackupIncremental, BackupDifferential:
		return BackupType(raw), nil
	}
	return "", fmt.Errorf("%w: unknown backup type %q", ErrValidation, raw)
}

// BackupStatus tracks a backup run's lifecycle.
type BackupStatus string

const (
	BackupInProgress BackupStatus = "in_progress"
	BackupCompleted  BackupStatus = "completed"
	BackupFailed     BackupStatus = "failed"
	BackupCancelled  BackupStatus = "cancelled"
)

// SecurityPolicy configures one enforcement rule.
type SecurityPolicy struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Type          PolicyType     `json:"type"`
	Enabled       bool           `json:"enabled"`
	Severity      Severity       `json:"severity"`
	AutoEnforce   bool           `json:"auto_enforce"`
	Notify        bool           `json:"notify"`
	Configuration map[string]any `json:"configuration,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Validate checks a policy record at the store boundary.
func (p SecurityPolicy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: policy name required", ErrValidation)
	}
	if _, err := ParsePolicyType(string(p.Type)); err != nil {
		return err
	}
	if _, err := ParseSeverity(string(p.Severity)); err != nil {
		return err
	}
	return nil
}

// WhitelistEntry allows an address or CIDR range.
type WhitelistEntry struct {
	ID          int64     `json:"id"`
	Address     string    `json:"address"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the address shape.
func (e WhitelistEntry) Validate() error {
	return validateAddress(e.Address)
}

// BlacklistEntry denies an address or CIDR range.
type BlacklistEntry struct {
	ID            int64      `json:"id"`
	Address       string     `json:"address"`
	Reason        string     `json:"reason"`
	ThreatLevel   Severity   `json:"threat_level"`
	IncidentCount int        `json:"incident_count"`
	Permanent     bool       `json:"permanent"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Validate checks a blacklist record at the store boundary.
func (e BlacklistEntry) Validate() error {
	if err := validateAddress(e.Address); err != nil {
		return err
	}
	if strings.TrimSpace(e.Reason) == "" {
		return fmt.Errorf("%w: blacklist reason required", ErrValidation)
	}
	if _, err := ParseSeverity(string(e.ThreatLevel)); err != nil {
		return err
	}
	return nil
}

// ActiveAt reports whether the entry is currently enforced.
func (e BlacklistEntry) ActiveAt(now time.Time) bool {
	if !e.IsActive {
		return false
	}
	if e.Permanent {
		return true
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// SuspiciousActivity is a detection-produced signal awaiting triage.
type SuspiciousActivity struct {
	ID              int64          `json:"id"`
	ActorID         *int64         `json:"actor_id,omitempty"`
	Type            string         `json:"type"`
	Severity        Severity       `json:"severity"`
	Confidence      float64        `json:"confidence"`
	Status          ActivityStatus `json:"status"`
	Investigator    *int64         `json:"investigator,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	InvestigatedAt  *time.Time     `json:"investigated_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

// Validate checks an activity record at the store boundary.
func (a SuspiciousActivity) Validate() error {
	if strings.TrimSpace(a.Type) == "" {
		return fmt.Errorf("%w: activity type required", ErrValidation)
	}
	if _, err := ParseSeverity(string(a.Severity)); err != nil {
		return err
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1]", ErrValidation)
	}
	switch a.Status {
	case ActivityOpen, ActivityInvestigating, ActivityResolved, ActivityFalsePositive:
	default:
		return fmt.Errorf("%w: unknown activity status %q", ErrValidation, a.Status)
	}
	return nil
}

// SecurityIncident is a confirmed security event under management.
type SecurityIncident struct {
	ID              int64          `json:"id"`
	Number          string         `json:"number"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Type            string         `json:"type"`
	Severity        Severity       `json:"severity"`
	Status          IncidentStatus `json:"status"`
	DiscoveredAt    time.Time      `json:"discovered_at"`
	ContainedAt     *time.Time     `json:"contained_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
	AffectedSystems []string       `json:"affected_systems,omitempty"`
	AffectedActors  []int64        `json:"affected_actors,omitempty"`
	CostEstimate    int64          `json:"cost_estimate"`
	Resolution      string         `json:"resolution,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate checks an incident record at the store boundary.
func (i SecurityIncident) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("%w: incident title required", ErrValidation)
	}
	if _, err := ParseSeverity(string(i.Severity)); err != nil {
		return err
	}
	if _, err := ParseIncidentStatus(string(i.Status)); err != nil {
		return err
	}
	return nil
}

// BackupLog records one backup run.
type BackupLog struct {
	ID          int64        `json:"id"`
	Type        BackupType   `json:"type"`
	Scope       string       `json:"scope"`
	Status      BackupStatus `json:"status"`
	SizeBytes   int64        `json:"size_bytes"`
	Encrypted   bool         `json:"encrypted"`
	Compressed  bool         `json:"compressed"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Validate checks a backup record at the store boundary.
func (b BackupLog) Validate() error {
	if _, err := ParseBackupType(string(b.Type)); err != nil {
		return err
	}
	switch b.Status {
	case BackupInProgress, BackupCompleted, BackupFailed, BackupCancelled:
	default:
		return fmt.Errorf("%w: unknown backup status %q", ErrValidation, b.Status)
	}
	return nil
}

// CompletedWithin reports whether the backup finished successfully inside the
// given window ending at now.
func (b BackupLog) CompletedWithin(window time.Duration, now time.Time) bool {
	if b.Status != BackupCompleted || b.CompletedAt == nil {
		return false
	}
	return b.CompletedAt.After(now.Add(-window))
}

func validateAddress(raw string) error {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return fmt.Errorf("%w: ip address required", ErrValidation)
	}
	if _, _, err := net.ParseCIDR(addr); err == nil {
		return nil
	}
	if net.ParseIP(addr) == nil {
		return fmt.Errorf("%w: malformed ip address %q", ErrValidation, raw)
	}
	return nil
}
