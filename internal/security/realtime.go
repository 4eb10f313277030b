package security

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RealtimeFeed subscribes to the security event channels and merges pushed
// rows into the aggregator through the same confirmed-mutation path as HTTP
// writes. A nil client disables the feed.
type RealtimeFeed struct {
	client *redis.Client
	agg    *Aggregator
	logger *slog.Logger
	prefix string
}

// NewRealtimeFeed constructs the feed. prefix is the channel namespace, e.g.
// "seletto:security".
func NewRealtimeFeed(client *redis.Client, agg *Aggregator, logger *slog.Logger, prefix string) *RealtimeFeed {
	return &RealtimeFeed{client: client, agg: agg, logger: logger, prefix: prefix}
}

// ActivityChannel is the pub/sub channel carrying suspicious-activity rows.
func (f *RealtimeFeed) ActivityChannel() string { return f.prefix + ":activities" }

// IncidentChannel is the pub/sub channel carrying incident rows.
func (f *RealtimeFeed) IncidentChannel() string { return f.prefix + ":incidents" }

// Run blocks consuming events until the context is cancelled. Malformed
// payloads are logged and skipped; the subscription stays up.
func (f *RealtimeFeed) Run(ctx context.Context) error {
	if f.client == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := f.client.Subscribe(ctx, f.ActivityChannel(), f.IncidentChannel())
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.dispatch(msg)
		}
	}
}

func (f *RealtimeFeed) dispatch(msg *redis.Message) {
	switch msg.Channel {
	case f.ActivityChannel():
		var activity SuspiciousActivity
		if err := json.Unmarshal([]byte(msg.Payload), &activity); err != nil {
			f.logger.Warn("dropped undecodable activity event", slog.Any("error", err))
			return
		}
		_ = f.agg.ApplyRemoteActivity(activity)
	case f.IncidentChannel():
		var incident SecurityIncident
		if err := json.Unmarshal([]byte(msg.Payload), &incident); err != nil {
			f.logger.Warn("dropped undecodable incident event", slog.Any("error", err))
			return
		}
		_ = f.agg.ApplyRemoteIncident(incident)
	}
}

// PublishActivity pushes an activity row onto the feed. Detection jobs use
// this to notify running dashboards.
func (f *RealtimeFeed) PublishActivity(ctx context.Context, activity SuspiciousActivity) error {
	if f.client == nil {
		return nil
	}
	payload, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.ActivityChannel(), payload).Err()
}

// PublishIncident pushes an incident row onto the feed.
func (f *RealtimeFeed) PublishIncident(ctx context.Context, incident SecurityIncident) error {
	if f.client == nil {
		return nil
	}
	payload, err := json.Marshal(incident)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.IncidentChannel(), payload).Err()
}
