package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/ViniciusChelli/Seletto-sub001/internal/jobs"
	"github.com/ViniciusChelli/Seletto-sub001/internal/security"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

const postureScanLockTTL = 5 * time.Minute

// Alerter enqueues alert mail; *Client satisfies it.
type Alerter interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// PostureScanJob periodically refreshes the security snapshot and raises an
// alert when the score drops below the configured floor.
type PostureScanJob struct {
	Agg       *security.Aggregator
	Redis     *redis.Client
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Alerter   Alerter
	Recipient string
}

// NewPostureScanJob initialises the posture scan handler.
func NewPostureScanJob(agg *security.Aggregator, redisClient *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics, alerter Alerter, recipient string) *PostureScanJob {
	return &PostureScanJob{Agg: agg, Redis: redisClient, Logger: logger, Metrics: metrics, Alerter: alerter, Recipient: recipient}
}

// Handle executes the posture scan.
func (j *PostureScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PostureScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	// Only one scan may run across all workers.
	if j.Redis != nil {
		ok, err := j.Redis.SetNX(ctx, shared.PostureScanLockKey(), "1", postureScanLockTTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			j.Logger.Info("posture scan already running, skipping")
			return nil
		}
		defer j.Redis.Del(context.WithoutCancel(ctx), shared.PostureScanLockKey())
	}

	tracker := j.Metrics.Track(TaskTypePostureScan)
	err := j.Agg.LoadAll(ctx)
	if err != nil {
		j.Logger.Warn("posture scan finished with partial data", slog.Any("error", err))
	}

	posture := j.Agg.Posture()
	j.Logger.Info("posture scan complete",
		slog.Int("score", posture.Score),
		slog.String("level", string(posture.Level)))

	if payload.AlertBelow > 0 && posture.Score < payload.AlertBelow && j.Alerter != nil && j.Recipient != "" {
		_, alertErr := j.Alerter.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      j.Recipient,
			Subject: fmt.Sprintf("Security posture dropped to %d (%s)", posture.Score, posture.Level),
			Body: fmt.Sprintf("The security posture score is %d, threat level %s, computed at %s.",
				posture.Score, posture.Level, posture.ComputedAt.Format(time.RFC3339)),
		})
		if alertErr != nil {
			j.Logger.Error("enqueue posture alert", slog.Any("error", alertErr))
		}
	}
	return tracker.End(err)
}
