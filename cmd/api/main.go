package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	v1 "go-wabridge/cmd/api/router/v1"
	"go-wabridge/internal/config"
	"go-wabridge/internal/infrastructure/bsp"
	cacheAdapter "go-wabridge/internal/infrastructure/cache/adapter"
	cacheport "go-wabridge/internal/infrastructure/cache/port"
	"go-wabridge/internal/infrastructure/database"
	"go-wabridge/internal/infrastructure/events"
	"go-wabridge/internal/infrastructure/logger"
	"go-wabridge/internal/infrastructure/metrics"
	queueAdapter "go-wabridge/internal/infrastructure/queue/adapter"
	"go-wabridge/internal/infrastructure/realtime"
	"go-wabridge/internal/pkg/chat/application/task"
	"go-wabridge/internal/pkg/chat/application/usecase"
	repoAdapter "go-wabridge/internal/pkg/chat/persistence/repository/adapter"
	httpHandler "go-wabridge/internal/pkg/chat/presentation/http"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env file not loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database on startup
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.NewPool(dbCtx, cfg.DBURL, cfg.DBPassword)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	m := metrics.New()
	repo := repoAdapter.NewPgChatRepository(pool)
	cache := newCache(ctx, cfg, log)
	defer cache.Close()

	var refresher usecase.SummaryRefresher
	if cfg.RedisURL != "" {
		qc, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create task queue client")
		}
		defer qc.Close()
		refresher = task.NewScheduler(qc)

		srv, err := queueAdapter.NewAsynqServer(queueAdapter.ServerConfig{
			RedisURL:    cfg.RedisURL,
			Concurrency: cfg.WorkerConcurrency,
			Queues:      cfg.WorkerQueues,
			Logger:      logger.Component(log, "worker"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create task worker")
		}
		task.RegisterRefreshSummaryTask(srv, repo, logger.Component(log, "worker"))
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("task worker stopped")
			}
		}()
	} else {
		log.Warn().Msg("REDIS_URL not set: summary retries are disabled")
	}

	hub := realtime.NewRouter()
	publisher := newPublisher(ctx, cfg, log, hub)
	defer publisher.Close()

	bspClient := bsp.NewClient(cfg.BSP.BaseURL, cfg.BSP.Timeout, m.ObserveBSP)
	if !cfg.BSP.Configured() {
		log.Warn().Msg("BSP defaults incomplete: sends rely on per-business credentials")
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log), m.GinMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})
	r.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		checks := gin.H{"database": "ok", "cache": "ok"}
		status := http.StatusOK
		if err := pool.Ping(hctx); err != nil {
			checks["database"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := cache.Ping(hctx); err != nil {
			// degraded, not down: dedupe and bot status caching fall back to the store
			checks["cache"] = err.Error()
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks, "sockets": hub.Count()})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1.RegisterRoutes(r, httpHandler.Services{
		Deps: usecase.Deps{
			Repo:              repo,
			Cache:             cache,
			Refresher:         refresher,
			Events:            events.NewDispatcher(publisher, logger.Component(log, "events"), m),
			Metrics:           m,
			Log:               logger.Component(log, "chat"),
			DefaultBusinessID: cfg.DefaultBusinessID,
			BotStatusTTL:      cfg.BotStatusCacheTTL,
		},
		Sender: bspClient,
		SenderDefaults: usecase.SenderDefaults{
			SourceNumber: cfg.BSP.SourceNumber,
			AppName:      cfg.BSP.AppName,
			APIKey:       cfg.BSP.APIKey,
		},
		BSPTimeout: cfg.BSP.Timeout,
		DedupeTTL:  cfg.WebhookDedupeTTL,
		Realtime:   hub,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	// sockets hold their handlers open, so close them before draining
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

func newCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) cacheport.Cache {
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set: using in-process cache")
		return cacheAdapter.NewMemoryCache()
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rc, err := cacheAdapter.NewRedisAdapter(cctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return rc
}

func newPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger, hub *realtime.Router) events.Publisher {
	var broker events.Publisher = events.NewFallback(logger.Component(log, "events"))
	if cfg.AMQPURL != "" {
		rp, err := events.NewRabbitPublisher(ctx, events.RabbitConfig{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Logger:   logger.Component(log, "amqp"),
		})
		if err != nil {
			log.Error().Err(err).Msg("rabbitmq unavailable, events are logged only")
		} else {
			broker = rp
		}
	}
	return events.Multi{broker, events.NewRealtimePublisher(hub)}
}
