package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind tags a document intent variant.
type Kind string

const (
	KindSalesInvoice    Kind = "SALES_INVOICE"
	KindPurchaseInvoice Kind = "PURCHASE_INVOICE"
	KindSalesReturn     Kind = "SALES_RETURN"
	KindPurchaseReturn  Kind = "PURCHASE_RETURN"
	KindStockTransfer   Kind = "STOCK_TRANSFER"
	KindStockAdjustment Kind = "STOCK_ADJUSTMENT"
	KindProduction      Kind = "PRODUCTION"
	KindPayrollRun      Kind = "PAYROLL_RUN"
	KindBankAdjustment  Kind = "BANK_ADJUSTMENT"
)

// Intent is the tagged-variant input of the posting pipeline. Exactly one
// payload field matching Kind must be set.
type Intent struct {
	Kind        Kind
	Date        time.Time
	Reference   string
	Description string
	ActorID     int64

	SalesInvoice    *SalesInvoiceIntent
	PurchaseInvoice *PurchaseInvoiceIntent
	SalesReturn     *SalesReturnIntent
	PurchaseReturn  *PurchaseReturnIntent
	StockTransfer   *StockTransferIntent
	StockAdjustment *StockAdjustmentIntent
	Production      *ProductionIntent
	PayrollRun      *PayrollRunIntent
	BankAdjustment  *BankAdjustmentIntent
}

// InvoiceLine is one product line of an invoice or return.
type InvoiceLine struct {
	ProductID int64
	Qty       float64
	UnitPrice float64
}

// SalesInvoiceIntent posts a sale: receivable (or cash) against revenue and
// VAT, plus cost of goods sold at the current weighted-average cost.
type SalesInvoiceIntent struct {
	CustomerID     int64
	WarehouseID    int64
	Lines          []InvoiceLine
	DiscountAmount float64
	VATRate        float64
	CashSale       bool
}

// PurchaseInvoiceIntent posts a goods receipt: inventory and VAT input
// against the supplier payable (or cash).
type PurchaseInvoiceIntent struct {
	SupplierID   int64
	WarehouseID  int64
	Lines        []InvoiceLine
	VATRate      float64
	CashPurchase bool
	// FinishedGoods routes the inventory side to the finished-goods account
	// instead of raw materials.
	FinishedGoods bool
}

// ReturnLine is one product line of a sales return; UnitCost restocks the
// goods at the stated cost.
type ReturnLine struct {
	ProductID int64
	Qty       float64
	UnitPrice float64
	UnitCost  float64
}

// SalesReturnIntent reverses revenue and restocks returned goods.
type SalesReturnIntent struct {
	CustomerID  int64
	WarehouseID int64
	Lines       []ReturnLine
	VATRate     float64
}

// PurchaseReturnIntent ships goods back to a supplier at the current
// weighted-average cost; any gap between invoice price and carried cost is
// booked to inventory adjustments.
type PurchaseReturnIntent struct {
	SupplierID  int64
	WarehouseID int64
	Lines       []InvoiceLine
	VATRate     float64
}

// TransferLine moves one product between warehouses.
type TransferLine struct {
	ProductID int64
	Qty       float64
}

// StockTransferIntent moves stock between warehouses at carried cost. It has
// no ledger effect: value stays inside the same inventory account.
type StockTransferIntent struct {
	SrcWarehouseID int64
	DstWarehouseID int64
	Lines          []TransferLine
}

// AdjustmentLine carries one count result; the delta is actual minus system.
type AdjustmentLine struct {
	ProductID int64
	SystemQty float64
	ActualQty float64
}

// StockAdjustmentIntent posts an inventory count: one consolidated entry
// with an inventory vs adjustment-expense pair per non-zero delta.
type StockAdjustmentIntent struct {
	WarehouseID int64
	Lines       []AdjustmentLine
}

// BOMComponent is one consumed raw material of a production order.
type BOMComponent struct {
	ProductID int64
	Qty       float64
}

// ProductionIntent consumes components and receives the finished product at
// unit cost (consumed cost + overhead) / produced qty.
type ProductionIntent struct {
	WarehouseID  int64
	ProductID    int64
	Qty          float64
	Components   []BOMComponent
	OverheadCost float64
}

// PayrollEmployee is one employee's pay composition within a run.
type PayrollEmployee struct {
	EmployeeID       int64
	Gross            float64
	Bonuses          float64
	AdvanceRecovered float64
	OtherDeductions  float64
}

// PayrollRunIntent posts one consolidated entry for the whole run.
type PayrollRunIntent struct {
	Period    string
	Employees []PayrollEmployee
}

// BankAdjustmentKind selects the adjustment direction.
type BankAdjustmentKind string

const (
	BankAdjustmentCharge   BankAdjustmentKind = "CHARGE"
	BankAdjustmentInterest BankAdjustmentKind = "INTEREST"
)

// BankAdjustmentIntent books bank charges or interest directly, the shortcut
// used from the reconciliation screen.
type BankAdjustmentIntent struct {
	Kind   BankAdjustmentKind
	Amount float64
	// AccountID selects the bank account leg. Zero falls back to the
	// default cash account.
	AccountID int64
}

// Document is the persisted record of an applied intent.
type Document struct {
	ID        uuid.UUID
	Kind      Kind
	Reference string
	Date      time.Time
	Status    string
	Payload   []byte
	EntryID   *int64
	CreatedBy int64
	CreatedAt time.Time
}

const (
	StatusPosted   = "POSTED"
	StatusReversed = "REVERSED"
)

// Outcome reports what a successful ApplyDocument produced.
type Outcome struct {
	DocumentID  uuid.UUID
	EntryID     int64
	MovementIDs []int64
	Total       float64
	Warnings    []string
}

var (
	// ErrEmptyDocument indicates an intent without payload lines.
	ErrEmptyDocument = errors.New("documents: intent has no effect")
	// ErrKindMismatch indicates the payload does not match the declared kind.
	ErrKindMismatch = errors.New("documents: payload does not match kind")
	// ErrDuplicateReference indicates the reference was already posted.
	ErrDuplicateReference = errors.New("documents: reference already posted")
	// ErrDocumentNotFound indicates a missing document row.
	ErrDocumentNotFound = errors.New("documents: document not found")
	// ErrAlreadyReversed indicates a second reversal attempt.
	ErrAlreadyReversed = errors.New("documents: document already reversed")
)
