package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hydrobill/hydrobill/internal/jobs"
)

// OverdueMarker flags open bills whose due date passed.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// MarkOverdueJob runs the nightly overdue sweep.
type MarkOverdueJob struct {
	Bills     OverdueMarker
	Dashboard CacheInvalidator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewMarkOverdueJob wires dependencies for the sweep handler.
func NewMarkOverdueJob(bills OverdueMarker, dashboard CacheInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *MarkOverdueJob {
	return &MarkOverdueJob{
		Bills:     bills,
		Dashboard: dashboard,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskBillsMarkOverdue tasks.
func (j *MarkOverdueJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Bills == nil {
		return errors.New("mark overdue: handler not configured")
	}
	var payload MarkOverduePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("mark overdue payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskBillsMarkOverdue)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskBillsMarkOverdue))
	n, err := j.Bills.MarkOverdue(ctx, asOf)
	if err != nil {
		logger.Error("mark overdue bills", slog.Any("error", err))
		return err
	}
	if n > 0 && j.Dashboard != nil {
		if err := j.Dashboard.Invalidate(ctx); err != nil {
			logger.Warn("invalidate dashboard", slog.Any("error", err))
		}
	}
	logger.Info("overdue sweep finished", slog.Int("flagged", n), slog.Time("as_of", asOf))
	return nil
}

func (j *MarkOverdueJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
