package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/payrollnotify/internal/notification/application"
	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
	"github.com/wyfcoding/payrollnotify/internal/notification/infrastructure/composer"
	"github.com/wyfcoding/payrollnotify/internal/notification/infrastructure/lock"
	"github.com/wyfcoding/payrollnotify/internal/notification/infrastructure/messaging"
	"github.com/wyfcoding/payrollnotify/internal/notification/infrastructure/payroll"
	"github.com/wyfcoding/payrollnotify/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/payrollnotify/internal/notification/infrastructure/transport"
	httpserver "github.com/wyfcoding/payrollnotify/internal/notification/interfaces/http"
	"github.com/wyfcoding/payrollnotify/pkg/cache"
	"github.com/wyfcoding/payrollnotify/pkg/config"
	"github.com/wyfcoding/payrollnotify/pkg/db"
	"github.com/wyfcoding/payrollnotify/pkg/metrics"
	"github.com/wyfcoding/payrollnotify/pkg/middleware"
	"github.com/wyfcoding/payrollnotify/pkg/mq"
	"github.com/wyfcoding/payrollnotify/pkg/ratelimit"
)

var configPath = flag.String("config", "configs/notification/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logCfg := logging.Config{
		Service:    cfg.ServiceName,
		Module:     "notification",
		Level:      cfg.Logger.Level,
		File:       cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
	}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.New(cfg.ServiceName, nil)

	// 4. Infrastructure
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := mysql.AutoMigrate(database.DB); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		if cfg.Environment == "dev" {
			if err := payroll.AutoMigrate(database.DB); err != nil {
				slog.Error("failed to migrate payroll tables", "error", err)
			}
		}
	}

	checks := map[string]httpserver.Check{"database": database.Ping}

	var redisCache *cache.RedisCache
	if cfg.Redis.Host != "" {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			slog.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		checks["redis"] = redisCache.Ping
	}

	var producer *mq.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		if err != nil {
			slog.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
	}

	// 5. Application
	nc := cfg.Notification
	gatewayCfg := transport.GatewayConfig{
		Enabled:       nc.Enabled,
		DefaultTarget: nc.DefaultTarget,
		Token:         nc.Token,
		Endpoint:      nc.Endpoint,
		CountryCode:   nc.CountryCode,
		Timeout:       nc.SendTimeout,
		Breaker: transport.BreakerConfig{
			MaxRequests:         nc.Breaker.MaxRequests,
			Interval:            nc.Breaker.Interval,
			Timeout:             nc.Breaker.Timeout,
			ConsecutiveFailures: nc.Breaker.ConsecutiveFailures,
		},
	}
	var sender domain.Transport
	if nc.Simulate {
		slog.Warn("notification gateway simulation enabled, no messages will leave the service")
		sender = transport.NewSimulatedTransport(gatewayCfg)
	} else {
		sender = transport.NewHTTPGateway(gatewayCfg)
	}
	if !sender.IsConfigured() {
		slog.Warn("notification gateway is not configured, sends will fail with incomplete configuration")
	}

	msgComposer, err := composer.NewTemplateComposer(nil, "MAD")
	if err != nil {
		slog.Error("failed to parse message templates", "error", err)
		os.Exit(1)
	}

	repo := mysql.NewNotificationRepository(database.DB)
	payrollSource := payroll.NewGormSource(database.DB)
	deps := application.EngineDeps{
		Repo:      repo,
		Transport: sender,
		Policy:    domain.CanonicalPolicy{CountryCode: nc.CountryCode, SubscriberDigits: nc.SubscriberDigits},
		Composer:  msgComposer,
		Payroll:   payrollSource,
		Throttle:  application.NewIntervalThrottle(nc.ThrottleInterval),
		Recorder:  metricsImpl,
	}
	if producer != nil {
		deps.Publisher = messaging.NewKafkaEventPublisher(producer, nc.EventsTopic)
	}
	if redisCache != nil {
		deps.Lock = lock.NewRedisCampaignLock(redisCache, nc.CampaignLockTTL)
	}
	engine := application.NewDispatchEngine(deps, application.EngineConfig{
		SendTimeout: nc.SendTimeout,
		Workers:     nc.Workers,
	})
	service := application.NewNotificationService(engine, application.NewNotificationQuery(repo), payrollSource)
	retryWorker := application.NewRetryWorker(repo, engine, application.NewIntervalThrottle(nc.ThrottleInterval),
		nc.RetrySweepInterval, nc.RetryMinAge, nc.RetrySweepBatch)

	// 6. Interfaces
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.GinLoggingMiddleware(metricsImpl), middleware.GinRecoveryMiddleware())

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metricsImpl.Handler()
	}
	httpserver.NewSystemHandler(checks, metricsHandler).RegisterRoutes(r, cfg.Metrics.Path)

	api := r.Group("")
	if cfg.RateLimit.Enabled && redisCache != nil {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		api.Use(middleware.RateLimitMiddleware(limiter, ratelimit.PerMinute(cfg.RateLimit.PerMinute)))
	}
	httpserver.NewNotificationHandler(service).RegisterRoutes(api)

	// 7. Start
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		retryWorker.Start(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
