package notify

import (
	"strings"
	"testing"
	"time"

	"ms-storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func sampleOrder() models.Order {
	created := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	return models.Order{
		OrderID:          "ORD-1736937000000-42",
		Game:             "EA Sports FC 25",
		Platform:         models.PlatformPS5,
		AccountType:      models.AccountFull,
		Price:            100,
		CustomerPhone:    "01112223344",
		PaymentMethod:    models.PaymentVodafone,
		PaymentReference: "01112223344",
		Status:           models.StatusPending,
		OrderTime:        "2025-01-15 12:30",
		CreatedAt:        created,
		LastUpdated:      created,
	}
}

func TestWhatsAppMessage_ContainsOrderFields(t *testing.T) {
	msg := WhatsAppMessage(sampleOrder())

	for _, want := range []string{
		"EA Sports FC 25",
		"PlayStation 5",
		"Full",
		"100 EGP",
		"01112223344",
		"Vodafone Cash",
		"ORD-1736937000000-42",
		"2025-01-15 12:30",
	} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "Email:")
}

func TestTelegramOrderMessage_EscapesHTML(t *testing.T) {
	o := sampleOrder()
	o.Notes = "<script>alert(1)</script> & more"

	msg := TelegramOrderMessage(o)
	assert.Contains(t, msg, "&lt;script&gt;alert(1)&lt;/script&gt; &amp; more")
	assert.NotContains(t, msg, "<script>")
	assert.Contains(t, msg, "<code>ORD-1736937000000-42</code>")
}

func TestStatusUpdateMessage(t *testing.T) {
	o := sampleOrder()
	o.Status = models.StatusDelivered
	o.LastUpdated = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

	msg := StatusUpdateMessage(o, models.StatusConfirmed, time.FixedZone("EET", 2*60*60))
	assert.Contains(t, msg, "confirmed → <b>delivered</b>")
	assert.Contains(t, msg, "2025-01-15 20:00")
	assert.Contains(t, msg, "Order completed")
}

func TestDailyReportMessage(t *testing.T) {
	msg := DailyReportMessage(models.DailyReport{
		Date:          "2025-01-15",
		TotalOrders:   3,
		TotalRevenue:  220,
		ByPlatform:    map[string]int{"ps5": 2, "pc": 1},
		ByAccountType: map[string]int{"primary": 2, "full": 1},
	})
	assert.Contains(t, msg, "Total orders: 3")
	assert.Contains(t, msg, "220 EGP")
	assert.True(t, strings.Index(msg, "PC: 1") < strings.Index(msg, "PlayStation 5: 2"))
	assert.Contains(t, msg, "Full: 1")

	empty := DailyReportMessage(models.DailyReport{Date: "2025-01-16"})
	assert.Contains(t, empty, "No orders")
}
