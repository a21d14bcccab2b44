package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hydrobill/hydrobill/internal/app"
	"github.com/hydrobill/hydrobill/internal/billingcycle"
	"github.com/hydrobill/hydrobill/internal/bills"
	"github.com/hydrobill/hydrobill/internal/dashboard"
	jobmetrics "github.com/hydrobill/hydrobill/internal/jobs"
	"github.com/hydrobill/hydrobill/internal/platform/cache"
	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/shared"
	"github.com/hydrobill/hydrobill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	synchronizer := billingcycle.NewSynchronizer(billingcycle.NewPGStore(pool), logger, metrics)
	billService := bills.NewService(bills.NewRepository(pool), billingcycle.NewTxHook(synchronizer), shared.NewAuditLogger(), logger, cfg.BillDueDays)
	dashboardService := dashboard.NewService(dashboard.NewSource(pool), dashboard.NewCache(redisClient, cfg.DashboardCacheTTL))

	syncJob := jobs.NewBillingSyncJob(synchronizer, dashboardService, logger, metrics)
	overdueJob := jobs.NewMarkOverdueJob(billService, dashboardService, logger, metrics)

	overdueTask, err := jobs.NewMarkOverdueTask(jobs.MarkOverduePayload{})
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cache.QueueOpt(cfg.Redis()),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBillingSyncAll, Handler: syncJob.Handle},
			{Type: jobs.TaskBillsMarkOverdue, Handler: overdueJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueCron, Task: overdueTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("worker metrics listening", slog.String("addr", cfg.WorkerMetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
