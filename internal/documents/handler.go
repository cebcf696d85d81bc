package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires the document posting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers document routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/reverse", h.handleReverse)
	r.Post("/sales-invoices", h.handleSalesInvoice)
	r.Post("/purchase-invoices", h.handlePurchaseInvoice)
	r.Post("/sales-returns", h.handleSalesReturn)
	r.Post("/purchase-returns", h.handlePurchaseReturn)
	r.Post("/stock-transfers", h.handleStockTransfer)
	r.Post("/stock-adjustments", h.handleStockAdjustment)
	r.Post("/production-orders", h.handleProduction)
	r.Post("/payroll-runs", h.handlePayrollRun)
	r.Post("/bank-adjustments", h.handleBankAdjustment)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context(), Kind(r.URL.Query().Get("kind")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}
	var body struct {
		Memo string `json:"memo"`
	}
	_ = httpx.DecodeJSON(r, &body)
	out, err := h.service.Reverse(r.Context(), id, actorID(r), body.Memo)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleSalesInvoice(w http.ResponseWriter, r *http.Request) {
	var req salesInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]InvoiceLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, InvoiceLine{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindSalesInvoice,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:     req.CustomerID,
			WarehouseID:    req.WarehouseID,
			Lines:          lines,
			DiscountAmount: req.DiscountAmount,
			VATRate:        req.VATRate,
			CashSale:       req.CashSale,
		},
	})
}

func (h *Handler) handlePurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	var req purchaseInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]InvoiceLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, InvoiceLine{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindPurchaseInvoice,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		PurchaseInvoice: &PurchaseInvoiceIntent{
			SupplierID:    req.SupplierID,
			WarehouseID:   req.WarehouseID,
			Lines:         lines,
			VATRate:       req.VATRate,
			CashPurchase:  req.CashPurchase,
			FinishedGoods: req.FinishedGoods,
		},
	})
}

func (h *Handler) handleSalesReturn(w http.ResponseWriter, r *http.Request) {
	var req salesReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]ReturnLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, ReturnLine{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice, UnitCost: l.UnitCost})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindSalesReturn,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		SalesReturn: &SalesReturnIntent{
			CustomerID:  req.CustomerID,
			WarehouseID: req.WarehouseID,
			Lines:       lines,
			VATRate:     req.VATRate,
		},
	})
}

func (h *Handler) handlePurchaseReturn(w http.ResponseWriter, r *http.Request) {
	var req purchaseReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]InvoiceLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, InvoiceLine{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindPurchaseReturn,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		PurchaseReturn: &PurchaseReturnIntent{
			SupplierID:  req.SupplierID,
			WarehouseID: req.WarehouseID,
			Lines:       lines,
			VATRate:     req.VATRate,
		},
	})
}

func (h *Handler) handleStockTransfer(w http.ResponseWriter, r *http.Request) {
	var req stockTransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]TransferLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, TransferLine{ProductID: l.ProductID, Qty: l.Qty})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindStockTransfer,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		StockTransfer: &StockTransferIntent{
			SrcWarehouseID: req.SrcWarehouseID,
			DstWarehouseID: req.DstWarehouseID,
			Lines:          lines,
		},
	})
}

func (h *Handler) handleStockAdjustment(w http.ResponseWriter, r *http.Request) {
	var req stockAdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]AdjustmentLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, AdjustmentLine{ProductID: l.ProductID, SystemQty: l.SystemQty, ActualQty: l.ActualQty})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindStockAdjustment,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		StockAdjustment: &StockAdjustmentIntent{
			WarehouseID: req.WarehouseID,
			Lines:       lines,
		},
	})
}

func (h *Handler) handleProduction(w http.ResponseWriter, r *http.Request) {
	var req productionRequest
	if !h.decode(w, r, &req) {
		return
	}
	components := make([]BOMComponent, 0, len(req.Components))
	for _, c := range req.Components {
		components = append(components, BOMComponent{ProductID: c.ProductID, Qty: c.Qty})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindProduction,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		Production: &ProductionIntent{
			WarehouseID:  req.WarehouseID,
			ProductID:    req.ProductID,
			Qty:          req.Qty,
			Components:   components,
			OverheadCost: req.OverheadCost,
		},
	})
}

func (h *Handler) handlePayrollRun(w http.ResponseWriter, r *http.Request) {
	var req payrollRunRequest
	if !h.decode(w, r, &req) {
		return
	}
	employees := make([]PayrollEmployee, 0, len(req.Employees))
	for _, e := range req.Employees {
		employees = append(employees, PayrollEmployee{
			EmployeeID:       e.EmployeeID,
			Gross:            e.Gross,
			Bonuses:          e.Bonuses,
			AdvanceRecovered: e.AdvanceRecovered,
			OtherDeductions:  e.OtherDeductions,
		})
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindPayrollRun,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		PayrollRun: &PayrollRunIntent{
			Period:    req.Period,
			Employees: employees,
		},
	})
}

func (h *Handler) handleBankAdjustment(w http.ResponseWriter, r *http.Request) {
	var req bankAdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyAndRespond(w, r, Intent{
		Kind:        KindBankAdjustment,
		Date:        parseDate(req.Date),
		Reference:   req.Reference,
		Description: req.Description,
		ActorID:     actorID(r),
		BankAdjustment: &BankAdjustmentIntent{
			Kind:      BankAdjustmentKind(req.Kind),
			Amount:    req.Amount,
			AccountID: req.AccountID,
		},
	})
}

func (h *Handler) applyAndRespond(w http.ResponseWriter, r *http.Request, intent Intent) {
	out, err := h.service.ApplyDocument(r.Context(), intent)
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
	case errors.Is(err, ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "Duplicate Reference", err.Error())
	case errors.Is(err, ErrAlreadyReversed):
		httpx.Problem(w, http.StatusConflict, "Already Reversed", err.Error())
	case errors.Is(err, ErrEmptyDocument), errors.Is(err, ErrKindMismatch):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDocumentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("documents handler error", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

// actorID extracts the acting user from the X-Actor-Id header, set by the
// gateway in front of this core. A zero actor is recorded as the system user.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)
	return id
}
