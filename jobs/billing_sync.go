package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/hydrobill/hydrobill/internal/billingcycle"
	jobmetrics "github.com/hydrobill/hydrobill/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// BulkSyncer is the part of the billing cycle synchronizer the job drives.
type BulkSyncer interface {
	CreateForAllCustomers(ctx context.Context) billingcycle.Summary
}

// CacheInvalidator drops derived data after a job changes the underlying rows.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// BillingSyncJob runs CreateForAllCustomers on the worker.
type BillingSyncJob struct {
	Sync      BulkSyncer
	Dashboard CacheInvalidator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewBillingSyncJob wires dependencies for the bulk sync handler.
func NewBillingSyncJob(sync BulkSyncer, dashboard CacheInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *BillingSyncJob {
	return &BillingSyncJob{Sync: sync, Dashboard: dashboard, Logger: logger, Metrics: metrics}
}

// Handle processes TaskBillingSyncAll tasks. Any per-customer failure fails the
// task so Asynq retries it; the rule is idempotent per customer.
func (j *BillingSyncJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sync == nil {
		return errors.New("billing sync: handler not configured")
	}
	var payload BillingSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("billing sync payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskBillingSyncAll)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger).With(
		slog.String("job", TaskBillingSyncAll),
		slog.String("source", payload.Source),
		slog.Int64("requested_by", payload.RequestedBy),
	)
	logger.Info("starting bulk billing sync")

	summary := j.Sync.CreateForAllCustomers(ctx)
	if j.Dashboard != nil && summary.Created+summary.Updated > 0 {
		if err := j.Dashboard.Invalidate(ctx); err != nil {
			logger.Warn("invalidate dashboard", slog.Any("error", err))
		}
	}
	if summary.Errors > 0 {
		for _, f := range summary.Failures {
			logger.Warn("customer not synchronised", slog.Int64("customer_id", f.CustomerID), slog.String("reason", f.Message))
		}
		return fmt.Errorf("billing sync: %d of %d customers failed", summary.Errors, summary.Total)
	}
	logger.Info("completed bulk billing sync",
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated))
	return nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
