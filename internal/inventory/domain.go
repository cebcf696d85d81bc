package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	MovementOpening        MovementType = "OPENING"
	MovementPurchase       MovementType = "PURCHASE"
	MovementPurchaseReturn MovementType = "PURCHASE_RETURN"
	MovementSale           MovementType = "SALE"
	MovementSaleReturn     MovementType = "SALE_RETURN"
	MovementTransferOut    MovementType = "TRANSFER_OUT"
	MovementTransferIn     MovementType = "TRANSFER_IN"
	MovementAdjustment     MovementType = "ADJUSTMENT"
	MovementProductionIn   MovementType = "PRODUCTION_IN"
	MovementProductionOut  MovementType = "PRODUCTION_OUT"
)

// Movement is one immutable line of the stock history. Quantity is signed:
// positive inbound, negative outbound. UnitCost is the supplied cost for
// inbound movements and the weighted-average cost captured at application
// time for outbound movements.
type Movement struct {
	ID          int64
	ProductID   int64
	WarehouseID int64
	Type        MovementType
	Quantity    float64
	UnitCost    float64
	SourceRef   string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// Balance summarises stock per product and warehouse. It is derived state:
// the movement stream replayed from zero always reproduces it.
type Balance struct {
	ProductID   int64
	WarehouseID int64
	Qty         float64
	AvgCost     float64
	UpdatedAt   time.Time
}

// MovementResult reports the effect of one applied movement.
type MovementResult struct {
	MovementID  int64
	ProductID   int64
	WarehouseID int64
	Type        MovementType
	Quantity    float64
	UnitCost    float64
	BalanceQty  float64
	BalanceCost float64
	// Shortfall flags that the movement drove stock negative. Posting
	// proceeds; the caller surfaces it as a warning.
	Shortfall bool
}

// InboundInput describes a positive stock movement.
type InboundInput struct {
	ProductID   int64
	WarehouseID int64
	Qty         float64
	UnitCost    float64
	Type        MovementType
	SourceRef   string
	OccurredAt  time.Time
}

// OutboundInput describes a negative stock movement. The unit cost is not
// an input: outbound always leaves at the current weighted-average cost.
type OutboundInput struct {
	ProductID   int64
	WarehouseID int64
	Qty         float64
	Type        MovementType
	SourceRef   string
	OccurredAt  time.Time
}

// StockCardFilter filters card entries.
type StockCardFilter struct {
	ProductID   int64
	WarehouseID int64
	From        time.Time
	To          time.Time
}

// StockCardEntry describes one row of the per-product stock card.
type StockCardEntry struct {
	MovementID  int64
	Type        MovementType
	OccurredAt  time.Time
	QtyIn       float64
	QtyOut      float64
	UnitCost    float64
	BalanceQty  float64
	BalanceCost float64
	SourceRef   string
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrInvalidMovementType indicates a direction/type mismatch.
	ErrInvalidMovementType = errors.New("inventory: movement type does not match direction")
	// ErrNegativeStock is returned when negative stock is disallowed by configuration.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrMovementNotFound indicates a missing movement row.
	ErrMovementNotFound = errors.New("inventory: movement not found")
)

var inboundTypes = map[MovementType]bool{
	MovementOpening:      true,
	MovementPurchase:     true,
	MovementSaleReturn:   true,
	MovementTransferIn:   true,
	MovementAdjustment:   true,
	MovementProductionIn: true,
}

var outboundTypes = map[MovementType]bool{
	MovementPurchaseReturn: true,
	MovementSale:           true,
	MovementTransferOut:    true,
	MovementAdjustment:     true,
	MovementProductionOut:  true,
}
