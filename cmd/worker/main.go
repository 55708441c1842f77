package main

import (
	"context"
	"log/slog"
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
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
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

	accountRepo := coa.NewRepository(pool)
	accountService := coa.NewService(accountRepo)
	ledgerRepo := ledger.NewRepository(pool)
	bankRepo := bank.NewRepository(pool)

	detector := dedup.NewDetector(ledgerRepo, dedup.Config{
		WindowDays:         cfg.DedupWindowDays,
		AmountTolerance:    cfg.DedupAmountTolerance,
		AmountWeight:       cfg.DedupAmountWeight,
		DateWeight:         cfg.DedupDateWeight,
		DuplicateThreshold: cfg.DedupThreshold,
	})
	balanceCache := balances.NewCache(redisClient, cfg.BalanceCacheTTL)

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

	importLock := shared.NewImportLock(redisClient, 30*time.Minute)
	importJob := jobs.NewLedgerImportJob(processor, importLock, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeLedgerImport, Handler: importJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
