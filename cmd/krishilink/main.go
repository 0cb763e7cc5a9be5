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

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/krishilink/krishilink/internal/app"
	"github.com/krishilink/krishilink/internal/auth"
	"github.com/krishilink/krishilink/internal/catalog"
	"github.com/krishilink/krishilink/internal/insights"
	"github.com/krishilink/krishilink/internal/ledger"
	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/platform/db"
	"github.com/krishilink/krishilink/internal/settlement"
	"github.com/krishilink/krishilink/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "krishilink_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)

	memberRepo := members.NewRepository(pool)
	memberService := members.NewService(memberRepo, auditLogger, logger)
	memberHandler := members.NewHandler(logger, memberService)

	authService := auth.NewService(memberService, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, memberService, auditLogger, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, memberService, catalogService, auditLogger, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	settlementRepo := settlement.NewRepository(pool)
	settlementService := settlement.NewService(settlementRepo, auditLogger, logger)
	settlementHandler := settlement.NewHandler(logger, settlementService)

	insightsRepo := insights.NewRepository(pool)
	insightsService := insights.NewService(insightsRepo, redisClient, cfg.InsightsTTL, logger)
	insightsHandler := insights.NewHandler(logger, insightsService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		Members:           memberService,
		AuthHandler:       authHandler,
		MemberHandler:     memberHandler,
		CatalogHandler:    catalogHandler,
		LedgerHandler:     ledgerHandler,
		SettlementHandler: settlementHandler,
		InsightsHandler:   insightsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
