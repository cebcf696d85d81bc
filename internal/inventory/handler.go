package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// RecalcEnqueuer schedules a background recalculation instead of blocking
// the request on a full replay.
type RecalcEnqueuer interface {
	EnqueueStockRecalculation(ctx context.Context, productID *int64) error
}

// Handler exposes stock balances, the stock card and recalculation.
type Handler struct {
	logger  *slog.Logger
	service *Service
	recalc  RecalcEnqueuer
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, recalc RecalcEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, recalc: recalc}
}

// MountRoutes registers HTTP routes for the inventory module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balances/{productID}", h.handleBalances)
	r.Get("/card", h.handleStockCard)
	r.Post("/recalculate", h.handleRecalculate)
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathInt64(w, r, "productID")
	if !ok {
		return
	}
	balances, err := h.service.Balances(r.Context(), productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

func (h *Handler) handleStockCard(w http.ResponseWriter, r *http.Request) {
	filter, err := cardFilter(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	entries, err := h.service.StockCard(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID *int64 `json:"product_id"`
	}
	_ = httpx.DecodeJSON(r, &body)

	if h.recalc != nil {
		if err := h.recalc.EnqueueStockRecalculation(r.Context(), body.ProductID); err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"scheduled": true})
		return
	}

	// No queue configured: run inline.
	if body.ProductID != nil {
		if err := h.service.Recalculate(r.Context(), *body.ProductID); err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"recalculated": 1})
		return
	}
	n, err := h.service.RecalculateAll(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recalculated": n})
}

func cardFilter(r *http.Request) (StockCardFilter, error) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		return StockCardFilter{}, &acctshared.ValidationError{Field: "product_id", Msg: "required"}
	}
	warehouseID, err := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		return StockCardFilter{}, &acctshared.ValidationError{Field: "warehouse_id", Msg: "required"}
	}
	filter := StockCardFilter{ProductID: productID, WarehouseID: warehouseID}
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return StockCardFilter{}, &acctshared.ValidationError{Field: "from", Msg: "expected YYYY-MM-DD"}
		}
		filter.From = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return StockCardFilter{}, &acctshared.ValidationError{Field: "to", Msg: "expected YYYY-MM-DD"}
		}
		filter.To = parsed
	}
	return filter, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var validation *acctshared.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrMovementNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("inventory handler error", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
		return 0, false
	}
	return id, true
}
