package analytics_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-storefront/internal/analytics"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/stats", h.GetStatistics)
		r.Get("/daily", h.GetDailyReport)
		r.Get("/sales", h.GetDailySales)
	})
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Statistics(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to compute statistics: %v", err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to compute statistics", err.Error()))
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order statistics", stats))
}

// GetDailyReport serves ?date=YYYY-MM-DD, defaulting to today.
func (h *Handler) GetDailyReport(w http.ResponseWriter, r *http.Request) {
	day, err := h.Service.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid date", err.Error()))
		return
	}

	report, err := h.Service.DailyReport(r.Context(), day)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to build daily report: %v", err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to build daily report", err.Error()))
		return
	}
	h.Logger.Debug("ANALYTICS", fmt.Sprintf("Daily report %s: %d orders", report.Date, report.TotalOrders))
	h.send(w, http.StatusOK, utils.SuccessResponse("Daily report", report))
}

// GetDailySales serves ?from=YYYY-MM-DD&to=YYYY-MM-DD. Missing bounds default to today.
func (h *Handler) GetDailySales(w http.ResponseWriter, r *http.Request) {
	from, err := h.Service.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid from date", err.Error()))
		return
	}
	to, err := h.Service.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid to date", err.Error()))
		return
	}
	if to.Before(from) {
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid range", "to is before from"))
		return
	}

	days, err := h.Service.DailySales(r.Context(), from, to)
	if errors.Is(err, analytics.ErrRangeTooLarge) {
		h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid range", err.Error()))
		return
	}
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to compute daily sales: %v", err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to compute daily sales", err.Error()))
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Daily sales", days))
}

func (h *Handler) send(w http.ResponseWriter, status int, body utils.APIResponse) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to encode response: %v", err))
	}
}
