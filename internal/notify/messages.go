package notify

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"
)

const currency = "EGP"

// WhatsAppMessage is the plain-text order summary the customer sends to the merchant.
// WhatsApp renders *text* as bold.
func WhatsAppMessage(o models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎮 *New order - %s*\n\n", o.Game)

	b.WriteString("*Order details:*\n")
	fmt.Fprintf(&b, "Game: %s\n", o.Game)
	fmt.Fprintf(&b, "Platform: %s\n", o.Platform.Label())
	fmt.Fprintf(&b, "Account type: %s\n", o.AccountType.Label())
	fmt.Fprintf(&b, "Price: %d %s\n\n", o.Price, currency)

	b.WriteString("*Customer:*\n")
	fmt.Fprintf(&b, "Phone: %s\n", o.CustomerPhone)
	fmt.Fprintf(&b, "Payment method: %s\n", o.PaymentMethod.Label())
	fmt.Fprintf(&b, "%s: %s\n", o.PaymentMethod.ReferenceLabel(), o.PaymentReference)
	writeOptional(&b, o, func(s string) string { return s })
	b.WriteString("\n")

	b.WriteString("*Order info:*\n")
	fmt.Fprintf(&b, "Order ID: %s\n", o.OrderID)
	fmt.Fprintf(&b, "Order time: %s\n", o.OrderTime)

	return strings.TrimSpace(b.String())
}

// TelegramOrderMessage is the HTML new-order alert for the merchant chat.
func TelegramOrderMessage(o models.Order) string {
	esc := html.EscapeString
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>New order - %s</b>\n\n", esc(o.Game))

	b.WriteString("🎮 <b>Order details</b>\n")
	fmt.Fprintf(&b, "Platform: %s\n", esc(o.Platform.Label()))
	fmt.Fprintf(&b, "Account type: %s\n", esc(o.AccountType.Label()))
	fmt.Fprintf(&b, "Price: %d %s\n\n", o.Price, currency)

	b.WriteString("👤 <b>Customer</b>\n")
	fmt.Fprintf(&b, "Phone: %s\n", esc(o.CustomerPhone))
	fmt.Fprintf(&b, "Payment method: %s\n", esc(o.PaymentMethod.Label()))
	fmt.Fprintf(&b, "%s: %s\n", o.PaymentMethod.ReferenceLabel(), esc(o.PaymentReference))
	writeOptional(&b, o, esc)
	b.WriteString("\n")

	fmt.Fprintf(&b, "🆔 Order ID: <code>%s</code>\n", esc(o.OrderID))
	fmt.Fprintf(&b, "⏰ Order time: %s\n", esc(o.OrderTime))
	fmt.Fprintf(&b, "⚡ Status: %s", esc(string(o.Status)))

	return b.String()
}

func writeOptional(b *strings.Builder, o models.Order, esc func(string) string) {
	if o.CustomerEmail != "" {
		fmt.Fprintf(b, "Email: %s\n", esc(o.CustomerEmail))
	}
	if o.CustomerAddress != "" {
		fmt.Fprintf(b, "Address: %s\n", esc(o.CustomerAddress))
	}
	if o.Notes != "" {
		fmt.Fprintf(b, "Notes: %s\n", esc(o.Notes))
	}
}

// StatusUpdateMessage announces a status change to the merchant chat.
func StatusUpdateMessage(o models.Order, previous models.OrderStatus, loc *time.Location) string {
	esc := html.EscapeString
	var b strings.Builder
	b.WriteString("🔔 <b>Order status update</b>\n\n")
	fmt.Fprintf(&b, "🆔 Order ID: <code>%s</code>\n", esc(o.OrderID))
	fmt.Fprintf(&b, "👤 Customer: %s\n", esc(o.CustomerPhone))
	fmt.Fprintf(&b, "🎮 Product: %s - %s (%s)\n\n", esc(o.Game), esc(o.Platform.Label()), esc(o.AccountType.Label()))
	if previous != "" && previous != o.Status {
		fmt.Fprintf(&b, "📊 Status: %s → <b>%s</b>\n", esc(string(previous)), esc(string(o.Status)))
	} else {
		fmt.Fprintf(&b, "📊 Status: <b>%s</b>\n", esc(string(o.Status)))
	}
	fmt.Fprintf(&b, "⏰ Updated: %s", utils.DisplayTime(o.LastUpdated, loc))

	switch o.Status {
	case models.StatusConfirmed:
		b.WriteString("\n\n⚡ Payment confirmed, prepare the account for delivery")
	case models.StatusDelivered:
		b.WriteString("\n\n🎉 Order completed")
	}
	return b.String()
}

// DailyReportMessage renders a daily summary for the merchant chat.
func DailyReportMessage(r models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Daily report</b> - %s\n\n", html.EscapeString(r.Date))
	fmt.Fprintf(&b, "📈 Total orders: %d\n", r.TotalOrders)
	fmt.Fprintf(&b, "💰 Total revenue: %d %s\n\n", r.TotalRevenue, currency)

	b.WriteString("📱 <b>By platform</b>\n")
	writeCounts(&b, r.ByPlatform, func(k string) string { return models.Platform(k).Label() })
	b.WriteString("\n💎 <b>By account type</b>\n")
	writeCounts(&b, r.ByAccountType, func(k string) string { return models.AccountType(k).Label() })

	if r.TotalOrders > 0 {
		b.WriteString("\n🎉 Productive day!")
	} else {
		b.WriteString("\n📈 No orders yet, looking forward to tomorrow")
	}
	return b.String()
}

func writeCounts(b *strings.Builder, counts map[string]int, label func(string) string) {
	if len(counts) == 0 {
		b.WriteString("No orders\n")
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %d\n", html.EscapeString(label(k)), counts[k])
	}
}
