package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "email:send"
	// TaskTypePostureScan refreshes the security snapshot and raises alerts.
	TaskTypePostureScan = "security:posture_scan"
	// TaskTypeBackupSweep fails backup runs stuck in progress.
	TaskTypeBackupSweep = "security:backup_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// PostureScanPayload configures a posture scan run.
type PostureScanPayload struct {
	// AlertBelow raises an email alert when the refreshed score drops under
	// this value. Zero disables alerting.
	AlertBelow int `json:"alert_below"`
}

// NewPostureScanTask constructs a posture scan task.
func NewPostureScanTask(payload PostureScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePostureScan, data), nil
}

// BackupSweepPayload configures the stuck-backup sweep.
type BackupSweepPayload struct {
	// StuckAfterMinutes marks in-progress runs older than this as failed.
	StuckAfterMinutes int `json:"stuck_after_minutes"`
}

// NewBackupSweepTask constructs a backup sweep task.
func NewBackupSweepTask(payload BackupSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBackupSweep, data), nil
}
