package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/events"
	"clinic-appointments-server/internal/logging"
	"clinic-appointments-server/internal/metrics"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/notify"
	"clinic-appointments-server/internal/reminders"
	"clinic-appointments-server/internal/routes"
	"clinic-appointments-server/internal/scheduling"
	"clinic-appointments-server/internal/waitlist"
	"clinic-appointments-server/internal/worker"
)

// memoryQueueSize bounds the in-process intent queue used without Redis.
const memoryQueueSize = 1024

// intentQueue is both ends of the scheduling intent transport.
type intentQueue interface {
	events.Publisher
	events.Queue
}

type stores struct {
	scheduling scheduling.Store
	reminders  reminders.Store
	waitlist   waitlist.Store
}

func main() {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		logger.Info().Msg("no .env file loaded, using process environment")
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error connecting to database")
	}

	redisClient, err := openRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error connecting to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	queue := newIntentQueue(cfg, redisClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sender := newEmailSender(cfg, logger)
	loc := cfg.Scheduling.Location

	slotCache := scheduling.NewSlotCache(cfg.SlotCache.Size, cfg.SlotCache.TTL)
	var invalidations scheduling.InvalidationBroadcaster
	if redisClient != nil && slotCache != nil {
		// Other instances share the database, so their writes must reach this cache too.
		bus := events.NewRedisInvalidationBus(redisClient, cfg.Redis.QueueKey+":slot-invalidations", logger)
		if err := bus.Subscribe(ctx, slotCache.InvalidateDoctor); err != nil {
			logger.Fatal().Err(err).Msg("Error subscribing to slot cache invalidations")
		}
		invalidations = bus
	}

	schedulingService := scheduling.NewService(st.scheduling, queue, scheduling.Options{
		Location:               loc,
		DefaultDurationMinutes: cfg.Scheduling.DefaultDurationMinutes,
		Cache:                  slotCache,
		Metrics:                m,
		Logger:                 logger,
		Invalidations:          invalidations,
	})
	waitlistService := waitlist.NewService(st.waitlist, sender, loc, m, logger)
	reminderScheduler := reminders.NewScheduler(st.reminders, cfg.Reminders.Offsets, logger)
	sweeper := reminders.NewSweeper(st.reminders, sender, loc, cfg.Reminders.SweepInterval, m, logger)
	dispatcher := worker.NewDispatcher(queue, reminderScheduler, waitlistService, m, logger)

	go dispatcher.Run(ctx)
	go sweeper.Start(ctx)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(logger), middleware.Recovery(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		JWTSecret:  cfg.JWTSecret,
		Scheduling: schedulingService,
		Waitlist:   waitlistService,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.Port).Str("timezone", cfg.Scheduling.Timezone).Msg("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStores(cfg *config.Config, logger zerolog.Logger) (stores, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		mem := scheduling.NewMemoryStore()
		return stores{
			scheduling: mem,
			reminders:  reminders.NewMemoryStore(mem.GetAppointment),
			waitlist:   waitlist.NewMemoryStore(mem.User),
		}, nil
	}

	db, err := models.InitDB(models.DatabaseConfig{
		DSN:   cfg.Database.DSN,
		Debug: cfg.IsDevelopment(),
	})
	if err != nil {
		return stores{}, err
	}
	return stores{
		scheduling: scheduling.NewGormStore(db),
		reminders:  reminders.NewGormStore(db),
		waitlist:   waitlist.NewGormStore(db),
	}, nil
}

// openRedis returns nil when Redis is disabled.
func openRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func newIntentQueue(cfg *config.Config, client *redis.Client, logger zerolog.Logger) intentQueue {
	if client == nil {
		logger.Info().Msg("redis disabled, scheduling intents stay in process")
		return events.NewMemoryQueue(memoryQueueSize)
	}
	return events.NewRedisQueue(client, cfg.Redis.QueueKey)
}

func newEmailSender(cfg *config.Config, logger zerolog.Logger) notify.EmailSender {
	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.Mailer.SendGridAPIKey,
		FromEmail: cfg.Mailer.DefaultFrom,
		FromName:  cfg.Mailer.FromName,
	}, logger)
	if sender == nil {
		logger.Warn().Msg("SENDGRID_API_KEY not set, emails are only logged")
		return notify.NewLogSender(logger)
	}
	return sender
}
