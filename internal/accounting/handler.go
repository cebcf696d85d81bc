package accounting

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/accounting/reports"
	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires ledger endpoints: chart bootstrap, journal lifecycle and
// the trial balance.
type Handler struct {
	logger   *slog.Logger
	resolver *accounts.Resolver
	journals *journals.Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, resolver *accounts.Resolver, journalSvc *journals.Service) *Handler {
	return &Handler{logger: logger, resolver: resolver, journals: journalSvc}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.handleListAccounts)
	r.Post("/accounts/bootstrap", h.handleBootstrap)
	r.Get("/journals", h.handleListJournals)
	r.Post("/journals/{id}/post", h.handlePostDraft)
	r.Post("/journals/{id}/cancel", h.handleCancel)
	r.Post("/journals/{id}/reverse", h.handleReverse)
	r.Get("/reports/trial-balance", h.handleTrialBalance)
	r.Get("/reports/trial-balance.csv", h.handleTrialBalanceCSV)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.resolver.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	created, err := h.resolver.EnsureSystemAccounts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"created": created})
}

func (h *Handler) handleListJournals(w http.ResponseWriter, r *http.Request) {
	list, err := h.journals.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handlePostDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.journals.PostDraft(r.Context(), id, 0)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = httpx.DecodeJSON(r, &body)
	entry, err := h.journals.Cancel(r.Context(), id, 0, body.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Memo string `json:"memo"`
	}
	_ = httpx.DecodeJSON(r, &body)
	entry, err := h.journals.Reverse(r.Context(), journals.ReverseInput{EntryID: id, Memo: body.Memo})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.buildTrialBalance(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) handleTrialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	tb, err := h.buildTrialBalance(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trial-balance.csv"`)
	if err := reports.WriteTrialBalanceCSV(w, tb); err != nil {
		h.logger.Error("write trial balance csv", slog.Any("error", err))
	}
}

func (h *Handler) buildTrialBalance(r *http.Request) (reports.TrialBalance, error) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return reports.TrialBalance{}, &acctshared.ValidationError{Field: "as_of", Msg: "expected YYYY-MM-DD"}
		}
		asOf = parsed
	}
	rows, err := h.journals.TrialBalance(r.Context(), asOf)
	if err != nil {
		return reports.TrialBalance{}, err
	}
	return reports.BuildTrialBalance(asOf, rows), nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var unbalanced *acctshared.UnbalancedError
	var validation *acctshared.ValidationError
	var missing *accounts.ConfigurationError
	switch {
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &unbalanced):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unbalanced Entry", err.Error())
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusConflict, "Missing System Accounts", err.Error())
	case errors.Is(err, acctshared.ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Invalid Status", err.Error())
	case errors.Is(err, acctshared.ErrJournalNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("accounting handler error", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}
