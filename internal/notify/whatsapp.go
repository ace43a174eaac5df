package notify

import (
	"net/url"
	"strings"

	"ms-storefront/internal/models"
)

// WhatsApp builds click-to-chat links addressed to the merchant. Nothing is sent
// from the server; the client opens the link.
type WhatsApp struct {
	BaseURL        string
	MerchantNumber string
}

func NewWhatsApp(baseURL, merchantNumber string) *WhatsApp {
	if baseURL == "" {
		baseURL = "https://wa.me/"
	}
	return &WhatsApp{BaseURL: baseURL, MerchantNumber: merchantNumber}
}

func (w *WhatsApp) Link(o models.Order) string {
	return w.LinkForText(WhatsAppMessage(o))
}

func (w *WhatsApp) LinkForText(text string) string {
	return strings.TrimRight(w.BaseURL, "/") + "/" + w.MerchantNumber + "?text=" + EncodeURIComponent(text)
}

var uriComponentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent matches the browser function: spaces become %20 and
// the marks !'()* stay literal.
func EncodeURIComponent(s string) string {
	return uriComponentUnescapes.Replace(url.QueryEscape(s))
}
