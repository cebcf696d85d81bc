package documents

import "time"

// Request DTOs for the posting endpoints. Each payload mirrors one intent
// variant; validation tags cover shape, the pipeline covers semantics.

type invoiceLineDTO struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type salesInvoiceRequest struct {
	Reference      string           `json:"reference" validate:"required"`
	Date           string           `json:"date" validate:"required,datetime=2006-01-02"`
	Description    string           `json:"description"`
	CustomerID     int64            `json:"customer_id" validate:"required,gt=0"`
	WarehouseID    int64            `json:"warehouse_id" validate:"required,gt=0"`
	Lines          []invoiceLineDTO `json:"lines" validate:"required,min=1,dive"`
	DiscountAmount float64          `json:"discount_amount" validate:"gte=0"`
	VATRate        float64          `json:"vat_rate" validate:"gte=0,lte=1"`
	CashSale       bool             `json:"cash_sale"`
}

type purchaseInvoiceRequest struct {
	Reference     string           `json:"reference" validate:"required"`
	Date          string           `json:"date" validate:"required,datetime=2006-01-02"`
	Description   string           `json:"description"`
	SupplierID    int64            `json:"supplier_id" validate:"required,gt=0"`
	WarehouseID   int64            `json:"warehouse_id" validate:"required,gt=0"`
	Lines         []invoiceLineDTO `json:"lines" validate:"required,min=1,dive"`
	VATRate       float64          `json:"vat_rate" validate:"gte=0,lte=1"`
	CashPurchase  bool             `json:"cash_purchase"`
	FinishedGoods bool             `json:"finished_goods"`
}

type returnLineDTO struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
}

type salesReturnRequest struct {
	Reference   string          `json:"reference" validate:"required"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description"`
	CustomerID  int64           `json:"customer_id" validate:"required,gt=0"`
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	Lines       []returnLineDTO `json:"lines" validate:"required,min=1,dive"`
	VATRate     float64         `json:"vat_rate" validate:"gte=0,lte=1"`
}

type purchaseReturnRequest struct {
	Reference   string           `json:"reference" validate:"required"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	Description string           `json:"description"`
	SupplierID  int64            `json:"supplier_id" validate:"required,gt=0"`
	WarehouseID int64            `json:"warehouse_id" validate:"required,gt=0"`
	Lines       []invoiceLineDTO `json:"lines" validate:"required,min=1,dive"`
	VATRate     float64          `json:"vat_rate" validate:"gte=0,lte=1"`
}

type transferLineDTO struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
}

type stockTransferRequest struct {
	Reference      string            `json:"reference" validate:"required"`
	Date           string            `json:"date" validate:"required,datetime=2006-01-02"`
	Description    string            `json:"description"`
	SrcWarehouseID int64             `json:"src_warehouse_id" validate:"required,gt=0"`
	DstWarehouseID int64             `json:"dst_warehouse_id" validate:"required,gt=0,nefield=SrcWarehouseID"`
	Lines          []transferLineDTO `json:"lines" validate:"required,min=1,dive"`
}

type adjustmentLineDTO struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	SystemQty float64 `json:"system_qty"`
	ActualQty float64 `json:"actual_qty" validate:"gte=0"`
}

type stockAdjustmentRequest struct {
	Reference   string              `json:"reference" validate:"required"`
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	Description string              `json:"description"`
	WarehouseID int64               `json:"warehouse_id" validate:"required,gt=0"`
	Lines       []adjustmentLineDTO `json:"lines" validate:"required,min=1,dive"`
}

type bomComponentDTO struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
}

type productionRequest struct {
	Reference    string            `json:"reference" validate:"required"`
	Date         string            `json:"date" validate:"required,datetime=2006-01-02"`
	Description  string            `json:"description"`
	WarehouseID  int64             `json:"warehouse_id" validate:"required,gt=0"`
	ProductID    int64             `json:"product_id" validate:"required,gt=0"`
	Qty          float64           `json:"qty" validate:"required,gt=0"`
	Components   []bomComponentDTO `json:"components" validate:"required,min=1,dive"`
	OverheadCost float64           `json:"overhead_cost" validate:"gte=0"`
}

type payrollEmployeeDTO struct {
	EmployeeID       int64   `json:"employee_id" validate:"required,gt=0"`
	Gross            float64 `json:"gross" validate:"gte=0"`
	Bonuses          float64 `json:"bonuses" validate:"gte=0"`
	AdvanceRecovered float64 `json:"advance_recovered" validate:"gte=0"`
	OtherDeductions  float64 `json:"other_deductions" validate:"gte=0"`
}

type payrollRunRequest struct {
	Reference   string               `json:"reference" validate:"required"`
	Date        string               `json:"date" validate:"required,datetime=2006-01-02"`
	Description string               `json:"description"`
	Period      string               `json:"period" validate:"required"`
	Employees   []payrollEmployeeDTO `json:"employees" validate:"required,min=1,dive"`
}

type bankAdjustmentRequest struct {
	Reference   string  `json:"reference" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Description string  `json:"description"`
	Kind        string  `json:"kind" validate:"required,oneof=CHARGE INTEREST"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	AccountID   int64   `json:"accountId"`
}

func parseDate(raw string) time.Time {
	t, _ := time.Parse("2006-01-02", raw)
	return t
}
