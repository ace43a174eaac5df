// Package bot answers merchant commands in the Telegram chat and relays
// order status changes published on Kafka.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/notify"
	"ms-storefront/internal/order"
	"ms-storefront/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const recentLimit = 5

// Sender is the subset of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type OrderReader interface {
	RecentOrders(ctx context.Context, n int) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	Statistics(ctx context.Context) (models.OrderStats, error)
}

type ReportSource interface {
	Today(ctx context.Context) (models.DailyReport, error)
}

type Bot struct {
	API      Sender
	Orders   OrderReader
	Reports  ReportSource // optional
	ChatID   int64
	Logger   *logger.Logger
	Location *time.Location
}

func New(api Sender, orders OrderReader, reports ReportSource, chatID int64, log *logger.Logger) *Bot {
	return &Bot{
		API:      api,
		Orders:   orders,
		Reports:  reports,
		ChatID:   chatID,
		Logger:   log,
		Location: utils.CairoLocation(),
	}
}

// Run handles updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.Logger.Info("BOT", fmt.Sprintf("Listening for commands from chat %d", b.ChatID))
	for {
		select {
		case <-ctx.Done():
			b.Logger.Info("BOT", "Update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate answers a command message. Messages from any chat other than
// the merchant's are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat.ID != b.ChatID {
		b.Logger.LogSecurity("BOT_FOREIGN_CHAT", fmt.Sprintf("Ignored /%s from chat %d", msg.Command(), msg.Chat.ID))
		return
	}

	reply := b.HandleCommand(ctx, msg.Command(), msg.CommandArguments())
	if err := b.send(reply); err != nil {
		b.Logger.Error("BOT", fmt.Sprintf("Failed to answer /%s: %v", msg.Command(), err))
	}
}

// HandleCommand returns the HTML reply for a command without its leading slash.
func (b *Bot) HandleCommand(ctx context.Context, command, args string) string {
	switch strings.ToLower(command) {
	case "start":
		return "👋 <b>Storefront bot</b>\n\nNew orders are posted here automatically.\n\n" + helpText
	case "help":
		return helpText
	case "orders":
		return b.recentOrders(ctx)
	case "order":
		return b.orderDetails(ctx, strings.TrimSpace(args))
	case "stats":
		return b.statistics(ctx)
	case "report":
		return b.dailyReport(ctx)
	default:
		return "❓ Unknown command. Send /help for the list of commands."
	}
}

// HandleOrderEvent posts a status-change message for order.updated events.
func (b *Bot) HandleOrderEvent(ctx context.Context, event models.OrderEventDto) error {
	if event.Type != models.OrderEventUpdated {
		return nil
	}
	if err := b.send(notify.StatusUpdateMessage(event.Order, event.PreviousStatus, b.Location)); err != nil {
		return fmt.Errorf("post status update for %s: %w", event.Order.OrderID, err)
	}
	b.Logger.LogNotify("telegram", event.Order.OrderID, fmt.Sprintf("Status update %s -> %s posted", event.PreviousStatus, event.Order.Status))
	return nil
}

// WebhookHandler decodes Telegram webhook deliveries. When secret is set the
// X-Telegram-Bot-Api-Secret-Token header must match it.
func (b *Bot) WebhookHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
			b.Logger.LogSecurity("BOT_WEBHOOK_REJECTED", "secret token mismatch")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.Logger.Warn("BOT", fmt.Sprintf("Bad webhook payload: %v", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		b.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Bot) send(text string) error {
	msg := tgbotapi.NewMessage(b.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.API.Send(msg)
	return err
}

func (b *Bot) recentOrders(ctx context.Context) string {
	orders, err := b.Orders.RecentOrders(ctx, recentLimit)
	if err != nil {
		b.Logger.Error("BOT", fmt.Sprintf("Recent orders failed: %v", err))
		return "⚠️ Could not load orders right now."
	}
	if len(orders) == 0 {
		return "📭 No orders yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 <b>Last %d orders</b>\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n<code>%s</code>\n%s - %s · %d EGP · %s\n⏰ %s\n",
			html.EscapeString(o.OrderID),
			html.EscapeString(o.Platform.Label()),
			html.EscapeString(o.AccountType.Label()),
			o.Price,
			html.EscapeString(string(o.Status)),
			html.EscapeString(o.OrderTime))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) orderDetails(ctx context.Context, id string) string {
	if id == "" {
		return "Usage: /order &lt;order id&gt;"
	}
	o, err := b.Orders.GetOrder(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		return fmt.Sprintf("🔍 Order <code>%s</code> not found.", html.EscapeString(id))
	}
	if err != nil {
		b.Logger.Error("BOT", fmt.Sprintf("Order lookup %s failed: %v", id, err))
		return "⚠️ Could not load the order right now."
	}
	return notify.TelegramOrderMessage(*o)
}

func (b *Bot) statistics(ctx context.Context) string {
	stats, err := b.Orders.Statistics(ctx)
	if err != nil {
		b.Logger.Error("BOT", fmt.Sprintf("Statistics failed: %v", err))
		return "⚠️ Could not compute statistics right now."
	}
	return StatsMessage(stats)
}

func (b *Bot) dailyReport(ctx context.Context) string {
	if b.Reports == nil {
		return "📊 Daily reports are not available."
	}
	report, err := b.Reports.Today(ctx)
	if err != nil {
		b.Logger.Error("BOT", fmt.Sprintf("Daily report failed: %v", err))
		return "⚠️ Could not build today's report."
	}
	return notify.DailyReportMessage(report)
}

const helpText = `<b>Commands</b>
/orders - last 5 orders
/order &lt;id&gt; - order details
/stats - totals by status and revenue
/report - today's report
/help - this message`

// StatsMessage renders order statistics for the merchant chat.
func StatsMessage(s models.OrderStats) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Order statistics</b>\n\n")
	fmt.Fprintf(&sb, "📈 Total orders: %d\n", s.Total)
	fmt.Fprintf(&sb, "⏳ Pending: %d\n", s.Pending)
	fmt.Fprintf(&sb, "✅ Confirmed: %d\n", s.Confirmed)
	fmt.Fprintf(&sb, "🎉 Delivered: %d\n", s.Delivered)
	fmt.Fprintf(&sb, "❌ Cancelled: %d\n\n", s.Cancelled)
	fmt.Fprintf(&sb, "💰 Total revenue: %d EGP", s.TotalRevenue)
	return sb.String()
}
