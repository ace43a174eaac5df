package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ms-storefront/internal/config"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/notify"
	"ms-storefront/internal/notify/outbox"
	"ms-storefront/internal/order/db"
)

// Retries failed Telegram notifications recorded by the storefront service.
// Use -once from cron, or leave it running next to the service.
func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
	}

	telegram := notify.NewTelegram(cfg.Telegram, nil)
	if !telegram.Configured() {
		log.Fatal("OUTBOX", "Telegram is not configured, nothing to retry")
	}

	policy := outbox.DefaultPolicy()
	policy.MaxAttempts = cfg.Outbox.MaxAttempts
	sweeper := outbox.NewSweeper(outbox.NewStore(bunDB, policy), telegram, log, cfg.Outbox.Interval, cfg.Outbox.BatchSize)

	if *once {
		sent, failed, err := sweeper.SweepOnce(ctx)
		if err != nil {
			log.Fatal("OUTBOX", fmt.Sprintf("Sweep failed: %v", err))
		}
		log.Info("OUTBOX", fmt.Sprintf("Sweep complete: %d sent, %d failed", sent, failed))
		return
	}

	log.Info("OUTBOX", fmt.Sprintf("Sweeping every %s", sweeper.Interval))
	sweeper.Run(ctx)
	log.Info("OUTBOX", "✅ Sweeper stopped")
}
