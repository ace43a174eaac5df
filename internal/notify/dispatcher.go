package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/metrics"
	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"
)

type TelegramSender interface {
	Configured() bool
	Send(ctx context.Context, text string) error
}

// IntentStore records notification intents so failed sends can be retried later.
type IntentStore interface {
	Enqueue(ctx context.Context, intent models.NotificationIntent) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, cause string, at time.Time) error
}

type Result struct {
	WhatsAppURL    string `json:"whatsappUrl"`
	TelegramQueued bool   `json:"telegramQueued"`
}

// Dispatcher fans an order out to the notification channels. The WhatsApp link is
// built synchronously; Telegram runs in the background and never fails the caller.
type Dispatcher struct {
	WhatsApp *WhatsApp
	Telegram TelegramSender
	Outbox   IntentStore // nil disables retries
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Location *time.Location
	Now      func() time.Time

	wg       sync.WaitGroup
	warnOnce sync.Once
}

func NewDispatcher(wa *WhatsApp, tg TelegramSender, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		WhatsApp: wa,
		Telegram: tg,
		Logger:   log,
		Metrics:  m,
		Timeout:  10 * time.Second,
		Location: utils.CairoLocation(),
		Now:      time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, o models.Order) Result {
	res := Result{WhatsAppURL: d.WhatsApp.Link(o)}
	d.Logger.LogNotify("whatsapp", o.OrderID, "Deep link prepared")
	d.Metrics.Notification("whatsapp", "link")

	res.TelegramQueued = d.sendAsync(ctx, o.OrderID, TelegramOrderMessage(o))
	return res
}

// NotifyStatusChange posts a status-update message in the background.
func (d *Dispatcher) NotifyStatusChange(ctx context.Context, o models.Order, previous models.OrderStatus) bool {
	return d.sendAsync(ctx, o.OrderID, StatusUpdateMessage(o, previous, d.Location))
}

// SendDailyReport posts the report synchronously.
func (d *Dispatcher) SendDailyReport(ctx context.Context, r models.DailyReport) error {
	if !d.telegramConfigured() {
		return ErrNotConfigured
	}
	return d.deliver(ctx, "report-"+r.Date, "", DailyReportMessage(r))
}

// Wait blocks until every in-flight background send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) telegramConfigured() bool {
	if d.Telegram != nil && d.Telegram.Configured() {
		return true
	}
	d.warnOnce.Do(func() {
		d.Logger.Warn("NOTIFY", "Telegram channel disabled: bot token or chat id missing")
	})
	return false
}

func (d *Dispatcher) sendAsync(ctx context.Context, orderID, text string) bool {
	if !d.telegramConfigured() {
		d.Metrics.Notification(models.ChannelTelegram, "disabled")
		return false
	}

	intentID := d.enqueue(ctx, orderID, text)

	// detach from the request so a finished HTTP call does not cancel the send
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(base, d.Timeout)
		defer cancel()
		_ = d.deliver(sendCtx, orderID, intentID, text)
	}()
	return true
}

func (d *Dispatcher) enqueue(ctx context.Context, orderID, text string) string {
	if d.Outbox == nil {
		return ""
	}
	now := d.Now().UTC()
	intent := models.NotificationIntent{
		ID:        utils.GenerateUUID(),
		OrderID:   orderID,
		Channel:   models.ChannelTelegram,
		Payload:   text,
		CreatedAt: now,
	}
	if err := d.Outbox.Enqueue(ctx, intent); err != nil {
		d.Logger.Error("NOTIFY", fmt.Sprintf("[telegram] %s - failed to record intent: %v", orderID, err))
		return ""
	}
	return intent.ID
}

func (d *Dispatcher) deliver(ctx context.Context, ref, intentID, text string) error {
	err := d.Telegram.Send(ctx, text)
	now := d.Now().UTC()
	bookkeeping := context.WithoutCancel(ctx)

	if err != nil {
		d.Logger.Error("NOTIFY", fmt.Sprintf("[telegram] %s - send failed: %v", ref, err))
		d.Metrics.Notification(models.ChannelTelegram, "failed")
		if intentID != "" {
			if markErr := d.Outbox.MarkFailed(bookkeeping, intentID, err.Error(), now); markErr != nil {
				d.Logger.Error("NOTIFY", fmt.Sprintf("[telegram] %s - failed to record failure: %v", ref, markErr))
			}
		}
		return err
	}

	d.Logger.LogNotify("telegram", ref, "Delivered to merchant chat")
	d.Metrics.Notification(models.ChannelTelegram, "sent")
	if intentID != "" {
		if markErr := d.Outbox.MarkSent(bookkeeping, intentID, now); markErr != nil {
			d.Logger.Error("NOTIFY", fmt.Sprintf("[telegram] %s - failed to mark sent: %v", ref, markErr))
		}
	}
	return nil
}
