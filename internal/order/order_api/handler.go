package order_api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/catalog"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/notify"
	"ms-storefront/internal/order"
	"ms-storefront/internal/qr"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes        = 64 << 10
	defaultLinkTokenTTL = 72 * time.Hour
)

type Handler struct {
	OrderService *order.OrderService
	Catalog      *catalog.Catalog
	WhatsApp     *notify.WhatsApp
	QR           *qr.Generator
	Logger       *logger.Logger

	// LinkSecret signs the per-order tokens that unlock the WhatsApp routes.
	LinkSecret   []byte
	LinkTokenTTL time.Duration
}

// NewHandler generates a random link secret when none is given; tokens then
// stop working after a restart.
func NewHandler(orderService *order.OrderService, cat *catalog.Catalog, wa *notify.WhatsApp, qrGen *qr.Generator, linkSecret []byte, log *logger.Logger) *Handler {
	if len(linkSecret) == 0 {
		linkSecret = make([]byte, 32)
		if _, err := rand.Read(linkSecret); err != nil {
			log.Fatal("API", fmt.Sprintf("Failed to generate order link secret: %v", err))
		}
		log.Warn("API", "ORDER_LINK_SECRET not set, order links are valid until restart")
	}
	return &Handler{
		OrderService: orderService,
		Catalog:      cat,
		WhatsApp:     wa,
		QR:           qrGen,
		Logger:       log,
		LinkSecret:   linkSecret,
		LinkTokenTTL: defaultLinkTokenTTL,
	}
}

type catalogResponse struct {
	GameKey   string          `json:"gameKey"`
	Game      string          `json:"game"`
	Platforms []catalog.Entry `json:"platforms"`
}

type whatsAppLinkResponse struct {
	OrderID     string `json:"orderId"`
	WhatsAppURL string `json:"whatsappUrl"`
}

// RegisterRoutes registers the customer-facing routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog", h.GetCatalog)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Get("/{orderId}", h.GetOrder)
		r.Get("/{orderId}/whatsapp", h.GetWhatsAppLink)
		r.Get("/{orderId}/whatsapp.png", h.GetWhatsAppQR)
	})
}

// RegisterAdminRoutes registers the merchant routes; callers mount them behind auth.
func (h *Handler) RegisterAdminRoutes(r chi.Router, feed *SSEHandler) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/last", h.GetLastOrder)
		r.Get("/stats", h.GetStatistics)
		r.Get("/export.csv", h.ExportCSV)
		if feed != nil {
			r.Get("/stream", feed.HandleOrderFeed)
		}
		r.Put("/{orderId}/status", h.UpdateStatus)
	})
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.send(w, http.StatusOK, utils.SuccessResponse("Catalog", catalogResponse{
		GameKey:   h.Catalog.GameKey(),
		Game:      h.Catalog.GameName(),
		Platforms: h.Catalog.Entries(),
	}))
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "PlaceOrder: received request")

	var form models.OrderForm
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("PlaceOrder: failed to decode request body: %v", err))
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	res, err := h.OrderService.PlaceOrder(r.Context(), form)
	if err != nil {
		h.writeError(w, "PlaceOrder", err)
		return
	}

	token, err := auth.IssueOrderToken(h.LinkSecret, res.Order.OrderID, h.LinkTokenTTL)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: no access token for %s: %v", res.Order.OrderID, err))
	}
	res.AccessToken = token

	h.Logger.Info("API", fmt.Sprintf("PlaceOrder: order %s created", res.Order.OrderID))
	h.send(w, http.StatusCreated, utils.SuccessResponse("Order placed", res))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Debug("API", fmt.Sprintf("GetOrder: orderId=%s", orderID))

	o, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, "GetOrder", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order", models.NewPublicOrder(*o)))
}

// authorizeOrderLink requires ?token= issued for this order. The link embeds the
// customer's phone and payment reference.
func (h *Handler) authorizeOrderLink(w http.ResponseWriter, r *http.Request, orderID string) bool {
	if err := auth.VerifyOrderToken(h.LinkSecret, r.URL.Query().Get("token"), orderID); err != nil {
		h.Logger.LogSecurity("ORDER_LINK_REJECTED", fmt.Sprintf("%s: %v", orderID, err))
		h.send(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "missing or invalid order token"))
		return false
	}
	return true
}

// GetWhatsAppLink rebuilds the deep link for a stored order so the client can reopen it.
func (h *Handler) GetWhatsAppLink(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if !h.authorizeOrderLink(w, r, orderID) {
		return
	}

	o, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, "GetWhatsAppLink", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("WhatsApp link", whatsAppLinkResponse{
		OrderID:     o.OrderID,
		WhatsAppURL: h.WhatsApp.Link(*o),
	}))
}

func (h *Handler) GetWhatsAppQR(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if !h.authorizeOrderLink(w, r, orderID) {
		return
	}

	o, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, "GetWhatsAppQR", err)
		return
	}

	png, err := h.QR.PNG(h.WhatsApp.Link(*o))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetWhatsAppQR: %s: %v", orderID, err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render QR code", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetWhatsAppQR: failed to write response: %v", err))
	}
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, "ListOrders", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d orders", len(orders)), orders))
}

func (h *Handler) GetLastOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.OrderService.LastOrder(r.Context())
	if err != nil {
		h.writeError(w, "GetLastOrder", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Last order", o))
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.OrderService.Statistics(r.Context())
	if err != nil {
		h.writeError(w, "GetStatistics", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order statistics", stats))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req models.StatusUpdateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	o, err := h.OrderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order status updated", o))
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	// list before writing headers so a storage error still gets a JSON 500
	orders, err := h.OrderService.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, "ExportCSV", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	if err := order.WriteCSV(w, orders); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ExportCSV: failed to write %d orders: %v", len(orders), err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ExportCSV: exported %d orders", len(orders)))
}

// writeError maps service errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var vErr *order.ValidationError
	var sErr *order.StorageError

	switch {
	case errors.As(err, &vErr):
		h.Logger.Warn("API", fmt.Sprintf("%s: rejected: %s", op, vErr.Reason))
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Order rejected", vErr.Reason))
	case errors.Is(err, order.ErrDuplicateSubmission):
		h.send(w, http.StatusConflict, utils.ErrorResponse("Duplicate submission", err.Error()))
	case errors.Is(err, order.ErrOrderNotFound):
		h.send(w, http.StatusNotFound, utils.ErrorResponse("Order not found", err.Error()))
	case errors.Is(err, order.ErrInvalidStatus):
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid status", err.Error()))
	case errors.As(err, &sErr):
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Storage failure", sErr.Op))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Internal error", "unexpected failure"))
	}
}

func (h *Handler) send(w http.ResponseWriter, status int, body utils.APIResponse) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
