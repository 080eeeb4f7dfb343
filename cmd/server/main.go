package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/swimmeet-console/internal/backend"
	"github.com/iliyamo/swimmeet-console/internal/config"
	"github.com/iliyamo/swimmeet-console/internal/database"
	"github.com/iliyamo/swimmeet-console/internal/handler"
	applog "github.com/iliyamo/swimmeet-console/internal/logging"
	"github.com/iliyamo/swimmeet-console/internal/meet"
	"github.com/iliyamo/swimmeet-console/internal/middleware"
	"github.com/iliyamo/swimmeet-console/internal/queue"
	"github.com/iliyamo/swimmeet-console/internal/repository"
	"github.com/iliyamo/swimmeet-console/internal/router"
	queue_publisher "github.com/iliyamo/swimmeet-console/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins
	cfg := config.Load()

	logger, err := applog.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	schedule, err := config.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		logger.Fatal("load schedule", zap.Error(err))
	}

	be, closeBackend := openBackend(cfg, logger)
	defer closeBackend()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier meet.Notifier
	if cfg.AMQPURL != "" {
		pub := queue_publisher.NewPublisher(cfg.AMQPURL, logger.Named("publisher"))
		defer pub.Close()
		notifier = pub
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: "logs", Log: logger.Named("consumer")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("lane consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("RABBITMQ_URL not set; lane changesets are not published")
	}

	svc := meet.NewService(be, notifier, schedule, logger.Named("meet"), cfg.BackendTimeout)
	h := handler.NewMeetHandler(svc, logger.Named("http"))

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; cache and rate limit disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}
	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(logger.Named("access")))
	router.RegisterRoutes(e, h)
	router.RegisterMeet(e, h, router.Middlewares{
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:      middleware.NewRedisCache(cacheCfg, rdb, logger),
		Invalidate: middleware.InvalidateEvent(cacheCfg, rdb, logger),
		AfterWrite: middleware.EventInvalidator(cacheCfg, rdb, logger.Named("cache")),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("backend", cfg.BackendMode))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	svc.Wait() // let pending lane writes reach the backend
	logger.Info("stopped")
}

// openBackend selects the meet backend named by BACKEND_MODE.
func openBackend(cfg config.Config, logger *zap.Logger) (meet.Backend, func()) {
	switch cfg.BackendMode {
	case config.BackendMySQL:
		db, err := database.Open(cfg)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		return repository.NewMeetRepo(db), func() { _ = db.Close() }
	default:
		return backend.New(cfg.BackendURL, cfg.BackendTimeout), func() {}
	}
}
