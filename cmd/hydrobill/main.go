package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrobill/hydrobill/cmd/hydrobill/cli"
	"github.com/hydrobill/hydrobill/internal/announcements"
	"github.com/hydrobill/hydrobill/internal/app"
	"github.com/hydrobill/hydrobill/internal/auth"
	"github.com/hydrobill/hydrobill/internal/billingcycle"
	"github.com/hydrobill/hydrobill/internal/bills"
	"github.com/hydrobill/hydrobill/internal/customers"
	"github.com/hydrobill/hydrobill/internal/dashboard"
	jobmetrics "github.com/hydrobill/hydrobill/internal/jobs"
	"github.com/hydrobill/hydrobill/internal/observability"
	"github.com/hydrobill/hydrobill/internal/payments"
	"github.com/hydrobill/hydrobill/internal/platform/cache"
	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/rates"
	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/readings"
	"github.com/hydrobill/hydrobill/internal/shared"
	"github.com/hydrobill/hydrobill/internal/staff"
	"github.com/hydrobill/hydrobill/internal/tickets"
	"github.com/hydrobill/hydrobill/internal/view"
	"github.com/hydrobill/hydrobill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == cli.SyncCommandName {
		code := runSync(ctx, cfg, logger, dbpool, os.Args[2:])
		dbpool.Close()
		os.Exit(code)
	}
	defer dbpool.Close()

	serve(ctx, stop, cfg, logger, dbpool)
}

func runSync(ctx context.Context, cfg *app.Config, logger *slog.Logger, pool *pgxpool.Pool, args []string) int {
	client := jobs.NewClient(cache.QueueOpt(cfg.Redis()))
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	command := &cli.SyncCLI{
		Sync:     billingcycle.NewSynchronizer(billingcycle.NewPGStore(pool), logger, nil),
		Enqueuer: client,
		Logger:   logger,
		Out:      os.Stdout,
	}
	return command.Run(ctx, args)
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger, dbpool *pgxpool.Pool) {
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

	store, closeStore, err := app.NewStore(ctx, cfg)
	if err != nil {
		logger.Error("init storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("storage close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	auditLogger := shared.NewAuditLogger()

	staffService := staff.NewService(staff.NewRepository(dbpool), store, logger)
	rbacMiddleware := rbac.Middleware{Loader: staffService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	synchronizer := billingcycle.NewSynchronizer(billingcycle.NewPGStore(dbpool), logger, jobMetrics)
	cycleHook := billingcycle.NewTxHook(synchronizer)

	customerRepo := customers.NewRepository(dbpool)
	customerService := customers.NewService(customerRepo, cycleHook, auditLogger)

	rateService := rates.NewService(rates.NewRepository(dbpool))
	readingService := readings.NewService(readings.NewRepository(dbpool), customerRepo, rateService, logger)
	billService := bills.NewService(bills.NewRepository(dbpool), cycleHook, auditLogger, logger, cfg.BillDueDays)
	paymentService := payments.NewService(payments.NewRepository(dbpool), store, auditLogger, logger)
	ticketService := tickets.NewService(tickets.NewRepository(dbpool), logger)
	announcementService := announcements.NewService(announcements.NewRepository(dbpool))
	dashboardService := dashboard.NewService(dashboard.NewSource(dbpool), dashboard.NewCache(redisClient, cfg.DashboardCacheTTL))

	queueOpts := cache.QueueOpt(cfg.Redis())
	queueClient := jobs.NewClient(queueOpts)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(queueOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Templates:           templates,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		RBACMiddleware:      rbacMiddleware,
		Metrics:             metrics,
		AuthHandler:         authHandler,
		StaffHandler:        staff.NewHandler(logger, staffService, rbacMiddleware),
		CustomerHandler:     customers.NewHandler(logger, customerService, rbacMiddleware),
		RateHandler:         rates.NewHandler(logger, rateService, rbacMiddleware),
		ReadingHandler:      readings.NewHandler(logger, readingService, rbacMiddleware),
		BillHandler:         bills.NewHandler(logger, billService, rbacMiddleware),
		CycleHandler:        billingcycle.NewHandler(logger, synchronizer, rbacMiddleware, queueClient),
		PaymentHandler:      payments.NewHandler(logger, paymentService, rbacMiddleware),
		TicketHandler:       tickets.NewHandler(logger, ticketService, rbacMiddleware),
		AnnouncementHandler: announcements.NewHandler(logger, announcementService, rbacMiddleware),
		DashboardHandler:    dashboard.NewHandler(logger, dashboardService, templates, csrfManager),
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
