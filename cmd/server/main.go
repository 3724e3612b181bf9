package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/killthisworld/vybrix/config"
	"github.com/killthisworld/vybrix/internal/api"
	"github.com/killthisworld/vybrix/internal/api/handler"
	"github.com/killthisworld/vybrix/internal/mailer"
	"github.com/killthisworld/vybrix/internal/matching"
	"github.com/killthisworld/vybrix/internal/repository"
	"github.com/killthisworld/vybrix/internal/service"
	"github.com/killthisworld/vybrix/pkg/cache"
	"github.com/killthisworld/vybrix/pkg/database"
	"github.com/killthisworld/vybrix/pkg/logger"
	"github.com/killthisworld/vybrix/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if err := logger.Init(cfg.Server.Mode); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	if cfg.Telemetry.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Telemetry.SentryDSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracer, err := tracing.Init(context.Background(), "vybrix", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing init failed", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		os.Exit(1)
	}

	rdb, err := cache.InitRedis(cfg)
	if err != nil {
		// 没有 redis 时退化运行：无周期锁、无状态缓存
		logger.Warn("redis unavailable, running without locks and caches", zap.Error(err))
		rdb = nil
	}

	userRepo := repository.NewUserRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	mail := mailer.NewClient(cfg.Mailer.APIKey, cfg.Mailer.FromEmail, cfg.Mailer.FromName)
	notifier := service.NewNotifier(userRepo, mail, cfg.Mailer.QueueSize)
	stopNotifier := notifier.Start(cfg.Mailer.Workers)

	engineCfg := matching.DefaultConfig()
	engineCfg.SentimentWeight = cfg.Matching.SentimentWeight
	engineCfg.IntentWeight = cfg.Matching.IntentWeight
	engineCfg.EnergyWeight = cfg.Matching.EnergyWeight
	engineCfg.MinAcceptableScore = cfg.Matching.MinAcceptableScore
	engineCfg.SecondBestThreshold = cfg.Matching.SecondBestThreshold
	engineCfg.Workers = cfg.Matching.ScoreWorkers
	engineCfg.Seed = time.Now().UnixNano()
	engine := matching.NewEngine(engineCfg)

	matchSvc := service.NewMatchService(msgRepo, engine, rdb, notifier)
	msgSvc := service.NewMessageService(userRepo, msgRepo, rdb, cfg)

	scheduler := service.NewMatchScheduler(matchSvc, cfg.Matching.CycleInterval)
	stopScheduler := scheduler.Start()

	h := handler.New(msgSvc, matchSvc)
	r := api.NewRouter(cfg, h)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	go func() {
		logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server listen failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = stopScheduler(ctx)
	_ = stopNotifier(ctx)
	_ = shutdownTracer(ctx)
}
