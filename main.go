package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	analytics "ms-storefront/internal/analytics"
	analytics_api "ms-storefront/internal/analytics/api"
	"ms-storefront/internal/auth"
	"ms-storefront/internal/catalog"
	"ms-storefront/internal/config"
	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/metrics"
	"ms-storefront/internal/notify"
	"ms-storefront/internal/notify/outbox"
	"ms-storefront/internal/order"
	"ms-storefront/internal/order/db"
	"ms-storefront/internal/order/order_api"
	rediswrap "ms-storefront/internal/order/redis"
	"ms-storefront/internal/qr"
	"ms-storefront/internal/sse"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
)

// loadCatalog prefers CATALOG_URL, then CATALOG_PATH, then the embedded table.
func loadCatalog(ctx context.Context, cfg config.CatalogConfig, log *logger.Logger) (*catalog.Catalog, error) {
	switch {
	case cfg.URL != "":
		log.Info("CATALOG", fmt.Sprintf("Fetching catalog from %s", cfg.URL))
		return catalog.Fetch(ctx, &http.Client{Timeout: 10 * time.Second}, cfg.URL, cfg.Game)
	case cfg.Path != "":
		log.Info("CATALOG", fmt.Sprintf("Loading catalog from %s", cfg.Path))
		return catalog.LoadFile(cfg.Path, cfg.Game)
	default:
		log.Info("CATALOG", "Using embedded catalog")
		return catalog.Default(cfg.Game)
	}
}

func healthHandler(bunDB *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := bunDB.PingContext(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("unhealthy", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	}
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting storefront service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	bunDB, err := connectDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	store := &db.DB{Bun: bunDB}
	if err := prepareSchema(ctx, cfg.Database, store, logger); err != nil {
		logger.Fatal("MIGRATE", fmt.Sprintf("Schema preparation failed: %v", err))
	}

	cat, err := loadCatalog(ctx, cfg.Catalog, logger)
	if err != nil {
		logger.Fatal("CATALOG", fmt.Sprintf("Failed to load catalog: %v", err))
	}
	logger.Info("CATALOG", fmt.Sprintf("Selling %s on %d platforms", cat.GameName(), len(cat.Platforms())))

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// --- Duplicate-submission guard ---
	var guard order.SubmitGuard
	if cfg.Redis.Enabled {
		redisClient, err := rediswrap.Connect(cfg.Redis.Addr, logger)
		if err != nil {
			logger.Warn("REDIS", fmt.Sprintf("Submission guard disabled: %v", err))
		} else {
			defer redisClient.Close()
			guard = rediswrap.NewGuard(redisClient, cfg.Order.SubmitGuardTTL, logger)
		}
	}

	// --- Kafka ---
	var publisher order.KafkaPublisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.OrderCreated, cfg.Kafka.Topics.OrderUpdated}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer producer.Close()
		publisher = producer
		logger.Info("KAFKA", "Kafka producer initialized successfully")
	}

	// --- Notifications ---
	whatsApp := notify.NewWhatsApp(cfg.WhatsApp.BaseURL, cfg.WhatsApp.MerchantNumber)
	telegram := notify.NewTelegram(cfg.Telegram, nil)
	dispatcher := notify.NewDispatcher(whatsApp, telegram, logger, m)
	dispatcher.Timeout = cfg.Telegram.Timeout

	var sweeperDone chan struct{}
	if cfg.Outbox.Enabled {
		policy := outbox.DefaultPolicy()
		policy.MaxAttempts = cfg.Outbox.MaxAttempts
		intents := outbox.NewStore(bunDB, policy)
		dispatcher.Outbox = intents

		sweeper := outbox.NewSweeper(intents, telegram, logger, cfg.Outbox.Interval, cfg.Outbox.BatchSize)
		sweeperDone = make(chan struct{})
		go func() {
			defer close(sweeperDone)
			sweeper.Run(ctx)
		}()
	}

	// --- Services ---
	feed := sse.NewOrderFeedEmitter()
	orderService := order.NewOrderService(
		order.NewBuilder(cat),
		order.NewValidator(cfg.Order.PhoneRule),
		store,
		guard,
		publisher,
		dispatcher,
		logger,
	)
	orderService.Feed = feed
	orderService.Metrics = m
	// the bot process relays order.updated when Kafka carries it
	orderService.NotifyStatusChanges = !cfg.Kafka.Enabled

	analyticsService := analytics.NewService(store)

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		// admin routes expose customer phones and wallet numbers; refuse to start open by accident
		logger.Fatal("AUTH", fmt.Sprintf("Failed to initialise admin token verifier: %v", err))
	}

	handler := order_api.NewHandler(orderService, cat, whatsApp, qr.NewGenerator(512), []byte(cfg.Order.LinkSecret), logger)
	sseHandler := order_api.NewSSEHandler(logger, feed)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	// --- Public Routes ---
	r.Get("/healthz", healthHandler(bunDB))
	r.Handle("/metrics", metrics.Handler(registry))
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
		logger.Info("ROUTER", "Public order routes registered under /api")

		// --- Admin Routes ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Middleware(verifier, logger))
			handler.RegisterAdminRoutes(r, sseHandler)
			analyticsHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Admin routes registered under /api/admin")
		})
	})

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// WriteTimeout would cut the SSE stream; handlers bound their own work
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Storefront service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}

	dispatcher.Wait()
	if sweeperDone != nil {
		<-sweeperDone
	}
	logger.Info("HTTP", "✅ Storefront service shutdown complete")
}
