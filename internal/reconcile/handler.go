package reconcile

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires bank reconciliation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers reconciliation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{accountID}/worksheet", h.handleWorksheet)
	r.Get("/{accountID}/history", h.handleHistory)
	r.Post("/{accountID}/save", h.handleSave)
	r.Post("/{accountID}/adjust", h.handleAdjust)
}

func (h *Handler) handleWorksheet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathAccountID(w, r)
	if !ok {
		return
	}
	ws, err := h.service.Open(r.Context(), accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathAccountID(w, r)
	if !ok {
		return
	}
	records, err := h.service.History(r.Context(), accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

type saveRequest struct {
	StatementDate    string  `json:"statement_date" validate:"required,datetime=2006-01-02"`
	StatementBalance float64 `json:"statement_balance"`
	Notes            string  `json:"notes"`
	LineIDs          []int64 `json:"line_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathAccountID(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, _ := time.Parse("2006-01-02", req.StatementDate)
	rec, err := h.service.Save(r.Context(), SaveInput{
		AccountID:        accountID,
		StatementDate:    date,
		StatementBalance: req.StatementBalance,
		Notes:            req.Notes,
		LineIDs:          req.LineIDs,
		ActorID:          actorID(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

type adjustRequest struct {
	Kind      string  `json:"kind" validate:"required,oneof=CHARGE INTEREST"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Notes     string  `json:"notes"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathAccountID(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	out, err := h.service.Adjust(r.Context(), AdjustInput{
		AccountID: accountID,
		Kind:      documents.BankAdjustmentKind(req.Kind),
		Amount:    req.Amount,
		Reference: req.Reference,
		Date:      date,
		Notes:     req.Notes,
		ActorID:   actorID(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var validation *acctshared.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNoLinesSelected):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotCashAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Not Reconcilable", err.Error())
	case errors.Is(err, ErrLineAlreadyReconciled):
		httpx.Problem(w, http.StatusConflict, "Line Already Reconciled", err.Error())
	case errors.Is(err, accounts.ErrAccountNotFound), errors.Is(err, ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, documents.ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "Duplicate Reference", err.Error())
	default:
		h.logger.Error("reconcile handler error", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

func (h *Handler) pathAccountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "accountID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return 0, false
	}
	return id, true
}

// actorID extracts the acting user from the X-Actor-Id header, set by the
// gateway in front of this core. A zero actor is recorded as the system user.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)
	return id
}
