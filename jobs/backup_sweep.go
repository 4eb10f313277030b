package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/ViniciusChelli/Seletto-sub001/internal/jobs"
	"github.com/ViniciusChelli/Seletto-sub001/internal/security"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

const backupLockTTL = 2 * time.Minute

// BackupSweepJob fails backup runs that have been in progress for too long so
// the freshness check stops counting them as pending work.
type BackupSweepJob struct {
	Agg     *security.Aggregator
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBackupSweepJob initialises the sweep handler.
func NewBackupSweepJob(agg *security.Aggregator, redisClient *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *BackupSweepJob {
	return &BackupSweepJob{Agg: agg, Redis: redisClient, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle executes the sweep.
func (j *BackupSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BackupSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.StuckAfterMinutes <= 0 {
		payload.StuckAfterMinutes = 360
	}
	cutoff := j.clock().Add(-time.Duration(payload.StuckAfterMinutes) * time.Minute)

	tracker := j.Metrics.Track(TaskTypeBackupSweep)

	if err := j.Agg.ReloadCollection(ctx, security.CollectionBackups); err != nil {
		return tracker.End(err)
	}

	var firstErr error
	for _, backup := range j.Agg.Snapshot().Backups {
		if backup.Status != security.BackupInProgress || !backup.StartedAt.Before(cutoff) {
			continue
		}
		if j.Redis != nil {
			ok, err := j.Redis.SetNX(ctx, shared.BackupLockKey(backup.Scope), "1", backupLockTTL).Result()
			if err != nil || !ok {
				continue
			}
		}
		if _, err := j.Agg.FinishBackup(ctx, backup.ID, security.BackupFailed, 0); err != nil {
			j.Logger.Error("fail stuck backup", slog.Int64("id", backup.ID), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.Logger.Warn("backup marked failed after exceeding run window",
			slog.Int64("id", backup.ID), slog.String("scope", backup.Scope))
	}
	return tracker.End(firstErr)
}
