package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"ms-storefront/internal/analytics"
	"ms-storefront/internal/bot"
	"ms-storefront/internal/config"
	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/order"
	"ms-storefront/internal/order/db"
)

const webhookPath = "/telegram/webhook"

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()
	if !cfg.Telegram.Configured() {
		log.Fatal("BOT", "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
	}
	chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
	if err != nil {
		log.Fatal("BOT", fmt.Sprintf("TELEGRAM_CHAT_ID must be numeric: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage (read side) ---
	bunDB, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
	}
	store := &db.DB{Bun: bunDB}

	orders := order.NewOrderService(nil, nil, store, nil, kafka.NoopPublisher{}, nil, log)
	reports := analytics.NewService(store)

	// --- Bot API ---
	endpoint := strings.TrimRight(cfg.Telegram.APIURL, "/") + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Telegram.BotToken, endpoint)
	if err != nil {
		log.Fatal("BOT", fmt.Sprintf("Failed to reach Telegram: %v", err))
	}
	log.Info("BOT", fmt.Sprintf("Authorized as @%s", api.Self.UserName))

	b := bot.New(api, orders, reports, chatID, log)

	// --- Status relay ---
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.OrderUpdated, cfg.Kafka.GroupID, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx, b.HandleOrderEvent); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("KAFKA", fmt.Sprintf("Order event consumer stopped: %v", err))
			}
		}()
		log.Info("KAFKA", fmt.Sprintf("Relaying %s to the merchant chat", cfg.Kafka.Topics.OrderUpdated))
	}

	if cfg.Telegram.WebhookURL == "" {
		runPolling(ctx, api, b, log)
		return
	}
	runWebhook(ctx, api, b, cfg.Telegram, log)
}

func runPolling(ctx context.Context, api *tgbotapi.BotAPI, b *bot.Bot, log *logger.Logger) {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("BOT", fmt.Sprintf("Could not clear webhook: %v", err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	log.Info("BOT", "Long polling for updates")

	b.Run(ctx, updates)
	api.StopReceivingUpdates()
	log.Info("BOT", "✅ Bot stopped")
}

func runWebhook(ctx context.Context, api *tgbotapi.BotAPI, b *bot.Bot, cfg config.TelegramConfig, log *logger.Logger) {
	params := tgbotapi.Params{"url": strings.TrimRight(cfg.WebhookURL, "/") + webhookPath}
	if cfg.WebhookSecret != "" {
		params["secret_token"] = cfg.WebhookSecret
	}
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		log.Fatal("BOT", fmt.Sprintf("Failed to register webhook: %v", err))
	}

	r := chi.NewRouter()
	r.Post(webhookPath, b.WebhookHandler(cfg.WebhookSecret))

	server := &http.Server{
		Addr:         cfg.WebhookListen,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Webhook listener running on %s", cfg.WebhookListen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("Webhook server error: %v", err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", fmt.Sprintf("Webhook shutdown failed: %v", err))
	}
	log.Info("BOT", "✅ Bot stopped")
}
