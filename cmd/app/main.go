package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-media-relay/internal/application"
	"telegram-media-relay/internal/config"
	"telegram-media-relay/internal/domain/ports/adapter"
	"telegram-media-relay/internal/infra/adapters/fetch"
	"telegram-media-relay/internal/infra/adapters/relay"
	pg "telegram-media-relay/internal/infra/db/postgres"
	"telegram-media-relay/internal/infra/logging"
	"telegram-media-relay/internal/infra/messages"
	"telegram-media-relay/internal/infra/metrics"
	red "telegram-media-relay/internal/infra/redis"
	"telegram-media-relay/internal/infra/sched"
	"telegram-media-relay/internal/infra/secrets"
	tele "telegram-media-relay/internal/infra/telegram"
	"telegram-media-relay/internal/infra/web"
	"telegram-media-relay/internal/infra/worker"
	"telegram-media-relay/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, noop collaborators")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Str("version", version).Str("commit", commit).Msg("Starting telegram-media-relay")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Secrets ----
	if cfg.Bot.Token == "" && cfg.Secrets.Path != "" {
		provider := secrets.NewFileProvider(cfg.Secrets.Path)
		vals, err := provider.Read("telegram/bot")
		if err != nil {
			logger.Fatal().Err(err).Msg("bot token not found in secrets")
		}
		cfg.Bot.Token = vals["token"]
	}
	if cfg.Bot.Token == "" {
		logger.Fatal().Msg("bot token is empty")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema bootstrap failed")
	}
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()
	leader := red.NewLeaderLock(redisClient, "scheduler:leader", cfg.Queue.LeaderTTL)
	pacer := red.NewPacer(redisClient, cfg.Pacing.Spacing)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	queueRepo := pg.NewQueueRepo(pool, tm)
	processedRepo := pg.NewProcessedRepo(pool)
	statusRepo := pg.NewStatusRecordRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	// ---- Collaborators ----
	// The fetch and relay connectors are separate services; the noop
	// implementations stand in when they are not configured.
	var downloader adapter.Downloader = fetch.NewNoopDownloader()
	var uploader adapter.Uploader = relay.NewNoopUploader()
	if cfg.Downloader.Enabled && !cfg.Runtime.Dev {
		logger.Warn().Msg("downloader.enabled set but no connector is built in; using noop")
	}
	if cfg.Uploader.Enabled && !cfg.Runtime.Dev {
		logger.Warn().Msg("uploader.enabled set but no connector is built in; using noop")
	}

	// ---- Use cases ----
	queueUC := usecase.NewQueueUseCase(queueRepo, processedRepo, downloader, pacer, logger)
	processUC := usecase.NewProcessUseCase(queueRepo, downloader, uploader, cfg.Queue.CallTimeout, logger)
	reconcileUC := usecase.NewReconcileUseCase(queueRepo, tm, cfg.Reconcile.Grace, cfg.Reconcile.PageSize, logger)
	userUC := usecase.NewUserUseCase(userRepo, cfg.Bot.AdminIDs, logger)
	statsUC := usecase.NewStatsUseCase(queueRepo, processedRepo, userRepo, logger)

	// ---- Telegram ----
	catalog, err := messages.NewCatalog(messages.TemplatesFS)
	if err != nil {
		logger.Fatal().Err(err).Msg("reply catalog failed to load")
	}

	pool2 := worker.NewPool(cfg.Bot.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	var bot adapter.TelegramBotAdapter
	var realBot *tele.RealTelegramBotAdapter
	if cfg.Runtime.Dev {
		bot = tele.NewNoopBotAdapter()
	} else {
		realBot, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, pool2, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram bot failed to start")
		}
		bot = realBot
	}

	digestUC := usecase.NewDigestUseCase(queueRepo, processedRepo, statusRepo, userRepo, bot, usecase.DigestConfig{
		RenewAfter:  cfg.Digest.RenewAfter,
		EditWindow:  cfg.Digest.EditWindow,
		ClaimPoll:   cfg.Digest.ClaimPoll,
		ClaimStale:  cfg.Digest.ClaimStale,
		SyncTimeout: cfg.Digest.SyncTimeout,
		WindowSize:  cfg.Digest.WindowSize,
	}, logger)

	facade := application.NewBotFacade(queueUC, userUC, digestUC, statsUC, catalog, logger)
	if realBot != nil {
		realBot.SetFacade(facade)
	}

	if strings.ToLower(cfg.Bot.Mode) != "" && strings.ToLower(cfg.Bot.Mode) != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented; falling back to polling")
	}
	if realBot != nil {
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Workers ----
	queueWorker := sched.NewQueueWorker(cfg.Queue.Tick, processUC, digestUC, leader, logger)
	go func() { _ = queueWorker.Run(ctx) }()

	reconcileInterval := cfg.Reconcile.Interval
	if reconcileInterval <= 0 {
		reconcileInterval = 24 * time.Hour // startup run is the one that matters
	}
	reconcileWorker := sched.NewReconcileWorker(reconcileInterval, reconcileUC, logger)
	go func() { _ = reconcileWorker.Run(ctx) }()

	digestWorker := sched.NewDigestWorker(cfg.Digest.Interval, digestUC, logger)
	go func() { _ = digestWorker.Run(ctx) }()

	// ---- Admin web server ----
	server := web.NewServer(&cfg.Admin, statsUC, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("admin web server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin web server shutdown failed")
	}
	if realBot != nil {
		realBot.StopPolling()
	}
}
