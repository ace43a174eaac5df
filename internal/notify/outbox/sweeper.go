package outbox

import (
	"context"
	"fmt"
	"time"

	"ms-storefront/internal/logger"
)

type Sender interface {
	Send(ctx context.Context, text string) error
}

// Sweeper periodically retries due intents.
type Sweeper struct {
	Store       *Store
	Sender      Sender
	Logger      *logger.Logger
	Interval    time.Duration
	BatchSize   int
	SendTimeout time.Duration
	Now         func() time.Time
}

func NewSweeper(store *Store, sender Sender, log *logger.Logger, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Sweeper{
		Store:       store,
		Sender:      sender,
		Logger:      log,
		Interval:    interval,
		BatchSize:   batchSize,
		SendTimeout: 10 * time.Second,
		Now:         time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.Logger.Info("OUTBOX", fmt.Sprintf("Sweeper started (interval %s, batch %d)", s.Interval, s.BatchSize))
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("OUTBOX", "Sweeper stopped")
			return
		case <-ticker.C:
			if _, _, err := s.SweepOnce(ctx); err != nil {
				s.Logger.Error("OUTBOX", fmt.Sprintf("Sweep failed: %v", err))
			}
		}
	}
}

// SweepOnce retries one batch and reports how many were sent and how many failed again.
func (s *Sweeper) SweepOnce(ctx context.Context) (sent, failed int, err error) {
	due, err := s.Store.FetchDue(ctx, s.Now().UTC(), s.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch due intents: %w", err)
	}

	for _, intent := range due {
		if ctx.Err() != nil {
			return sent, failed, ctx.Err()
		}

		sendCtx, cancel := context.WithTimeout(ctx, s.SendTimeout)
		sendErr := s.Sender.Send(sendCtx, intent.Payload)
		cancel()

		now := s.Now().UTC()
		if sendErr != nil {
			failed++
			s.Logger.Warn("OUTBOX", fmt.Sprintf("Retry %d for %s (%s) failed: %v", intent.Attempts+1, intent.ID, intent.OrderID, sendErr))
			if err := s.Store.MarkFailed(ctx, intent.ID, sendErr.Error(), now); err != nil {
				return sent, failed, err
			}
			continue
		}

		sent++
		s.Logger.LogNotify(intent.Channel, intent.OrderID, fmt.Sprintf("Delivered on retry %d", intent.Attempts+1))
		if err := s.Store.MarkSent(ctx, intent.ID, now); err != nil {
			return sent, failed, err
		}
	}
	return sent, failed, nil
}
