// Package outbox persists notification intents and retries the ones that never
// got a confirmed delivery.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"ms-storefront/internal/models"

	"github.com/uptrace/bun"
)

var ErrIntentNotFound = errors.New("notification intent not found")

type RetryPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

func DefaultPolicy() RetryPolicy {
	return RetryPolicy{Base: 30 * time.Second, Cap: time.Hour, MaxAttempts: 8}
}

// Backoff is the delay after the given number of failed attempts: Base * 2^(attempts-1), capped.
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Base
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= p.Cap {
			return p.Cap
		}
	}
	if backoff > p.Cap {
		backoff = p.Cap
	}
	return backoff
}

type Store struct {
	Bun    *bun.DB
	Policy RetryPolicy
}

func NewStore(db *bun.DB, policy RetryPolicy) *Store {
	return &Store{Bun: db, Policy: policy}
}

// Enqueue stores a new intent. Its first retry is scheduled one Base interval out,
// which leaves the initial send to the dispatcher.
func (s *Store) Enqueue(ctx context.Context, intent models.NotificationIntent) error {
	if intent.NextAttemptAt.IsZero() {
		intent.NextAttemptAt = intent.CreatedAt.Add(s.Policy.Base)
	}
	_, err := s.Bun.NewInsert().Model(&intent).Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*models.NotificationIntent, error) {
	var intent models.NotificationIntent
	err := s.Bun.NewSelect().Model(&intent).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *Store) MarkSent(ctx context.Context, id string, at time.Time) error {
	res, err := s.Bun.NewUpdate().
		Model((*models.NotificationIntent)(nil)).
		Set("sent_at = ?", at).
		Set("attempts = attempts + 1").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrIntentNotFound
	}
	return nil
}

// MarkFailed counts the attempt and either schedules the next one or abandons the intent.
func (s *Store) MarkFailed(ctx context.Context, id, cause string, at time.Time) error {
	intent, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	attempts := intent.Attempts + 1
	q := s.Bun.NewUpdate().
		Model((*models.NotificationIntent)(nil)).
		Set("attempts = ?", attempts).
		Set("last_error = ?", truncate(cause, 500)).
		Where("id = ?", id)

	if attempts >= s.Policy.MaxAttempts {
		q = q.Set("abandoned_at = ?", at)
	} else {
		q = q.Set("next_attempt_at = ?", at.Add(s.Policy.Backoff(attempts)))
	}

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("update intent %s: %w", id, err)
	}
	return nil
}

// FetchDue returns unsent, unabandoned intents whose next attempt is due.
func (s *Store) FetchDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationIntent, error) {
	intents := []models.NotificationIntent{}
	err := s.Bun.NewSelect().
		Model(&intents).
		Where("sent_at IS NULL").
		Where("abandoned_at IS NULL").
		Where("next_attempt_at <= ?", now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return intents, nil
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
