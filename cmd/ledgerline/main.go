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

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/bank"
	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/balances"
	"github.com/ledgerline/ledgerline/internal/ledger/dedup"
	"github.com/ledgerline/ledgerline/internal/ledger/importer"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/jobs"
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
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	accountRepo := coa.NewRepository(dbpool)
	accountService := coa.NewService(accountRepo)
	accountsHandler := coa.NewHandler(logger, accountService)

	ledgerRepo := ledger.NewRepository(dbpool)
	bankRepo := bank.NewRepository(dbpool)

	detector := dedup.NewDetector(ledgerRepo, dedup.Config{
		WindowDays:         cfg.DedupWindowDays,
		AmountTolerance:    cfg.DedupAmountTolerance,
		AmountWeight:       cfg.DedupAmountWeight,
		DateWeight:         cfg.DedupDateWeight,
		DuplicateThreshold: cfg.DedupThreshold,
	})

	balanceCache := balances.NewCache(redisClient, cfg.BalanceCacheTTL)
	balanceService := balances.NewService(logger, ledgerRepo, accountService, bankRepo, balanceCache)
	balancesHandler := balances.NewHandler(logger, balanceService)

	transactionsHandler := ledger.NewHandler(logger, ledgerRepo, balanceCache)

	processor := importer.NewProcessor(importer.ProcessorConfig{
		Logger:   logger,
		Ledger:   ledgerRepo,
		Roles:    accountService,
		Banks:    bankRepo,
		Detector: detector,
		Balances: balanceCache,
		Metrics:  metrics,
		Defaults: importer.Options{
			BatchSize:    cfg.ImportBatchSize,
			MaxRetries:   cfg.ImportMaxRetries,
			RetryBackoff: cfg.ImportRetryBackoff,
			BatchTimeout: cfg.ImportBatchTimeout,
		},
	})

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	importHandler := importer.NewHandler(logger, processor, queueClient, cfg.ImportInlineMaxRows)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AccountsHandler:     accountsHandler,
		TransactionsHandler: transactionsHandler,
		ImportHandler:       importHandler,
		BalancesHandler:     balancesHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
