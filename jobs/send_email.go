package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ViniciusChelli/Seletto-sub001/internal/jobs"
)

// SMTPConfig holds delivery settings for outbound mail.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// SendEmailJob delivers queued transactional mail over SMTP.
type SendEmailJob struct {
	Config  SMTPConfig
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics

	// send is swappable in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewSendEmailJob initialises the mail handler.
func NewSendEmailJob(cfg SMTPConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendEmailJob {
	return &SendEmailJob{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeSendEmail)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		j.Config.From, payload.To, payload.Subject, payload.Body))
	addr := fmt.Sprintf("%s:%d", j.Config.Host, j.Config.Port)
	err := j.send(addr, j.Config.From, []string{payload.To}, msg)
	if err != nil {
		j.Logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
	}
	return tracker.End(err)
}
