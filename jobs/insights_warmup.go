package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/krishilink/krishilink/internal/insights"
)

// TaskInsightsWarmup pre-computes the admin dashboard snapshot.
const TaskInsightsWarmup = "insights:warmup"

// InsightsWarmupPayload is currently empty; it exists so the task payload
// can grow without changing the task type.
type InsightsWarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewInsightsWarmupTask constructs an Asynq task.
func NewInsightsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(InsightsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightsWarmup, data), nil
}

// InsightsWarmupJob refreshes the cached dashboard snapshot.
type InsightsWarmupJob struct {
	Insights *insights.Service
	Logger   *slog.Logger
}

// NewInsightsWarmupJob wires dependencies for the warmup handler.
func NewInsightsWarmupJob(svc *insights.Service, logger *slog.Logger) *InsightsWarmupJob {
	return &InsightsWarmupJob{Insights: svc, Logger: logger}
}

// Handle processes warmup tasks.
func (j *InsightsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Insights == nil {
		return errors.New("insights warmup: handler not configured")
	}
	var payload InsightsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	snap, err := j.Insights.Refresh(ctx)
	if err != nil {
		j.Logger.Error("insights warmup failed", slog.Any("error", err))
		return err
	}
	j.Logger.Info("insights warmup complete",
		slog.String("reason", payload.Reason),
		slog.Int64("members", snap.TotalMembers),
		slog.Int64("pending_verifications", snap.PendingVerifications))
	return nil
}
