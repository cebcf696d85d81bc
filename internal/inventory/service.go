package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the perpetual weighted-average valuation. Every applied
// movement updates the running balance in the same transaction that records
// the movement, so the balance table is always consistent with the history.
type Service struct {
	repo               RepositoryPort
	audit              AuditPort
	logger             *slog.Logger
	allowNegativeStock bool
	now                func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger, allowNegativeStock bool) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:               repo,
		audit:              audit,
		logger:             logger,
		allowNegativeStock: allowNegativeStock,
		now:                time.Now,
	}
}

// ApplyInbound records a positive movement and folds its cost into the
// weighted average: newAvg = (oldQty*oldAvg + qty*unitCost) / (oldQty+qty).
// When the resulting quantity is zero the average is left unchanged so the
// next inbound does not divide by zero.
func (s *Service) ApplyInbound(ctx context.Context, in InboundInput) (MovementResult, error) {
	if in.Qty <= 0 {
		return MovementResult{}, ErrInvalidQuantity
	}
	if in.UnitCost < 0 {
		return MovementResult{}, ErrInvalidUnitCost
	}
	if !inboundTypes[in.Type] {
		return MovementResult{}, fmt.Errorf("%w: %s inbound", ErrInvalidMovementType, in.Type)
	}

	var res MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bal, err := tx.GetBalanceForUpdate(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		newQty := bal.Qty + in.Qty
		newCost := bal.AvgCost
		if newQty != 0 {
			newCost = (bal.Qty*bal.AvgCost + in.Qty*in.UnitCost) / newQty
		}
		if newCost < 0 {
			// A negative-quantity balance can push the blended average
			// below zero. Cost is never negative; reset to the incoming cost.
			newCost = in.UnitCost
		}

		mov := Movement{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Type:        in.Type,
			Quantity:    in.Qty,
			UnitCost:    in.UnitCost,
			SourceRef:   in.SourceRef,
			OccurredAt:  in.OccurredAt,
			CreatedAt:   s.now(),
		}
		id, err := tx.InsertMovement(ctx, mov)
		if err != nil {
			return err
		}
		bal.ProductID = in.ProductID
		bal.WarehouseID = in.WarehouseID
		bal.Qty = newQty
		bal.AvgCost = newCost
		bal.UpdatedAt = s.now()
		if err := tx.UpsertBalance(ctx, bal); err != nil {
			return err
		}

		res = MovementResult{
			MovementID:  id,
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Type:        in.Type,
			Quantity:    in.Qty,
			UnitCost:    in.UnitCost,
			BalanceQty:  newQty,
			BalanceCost: newCost,
		}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	return res, nil
}

// ApplyOutbound records a negative movement at the current weighted-average
// cost. The average never changes on the way out; only the quantity drops.
// The cost captured here is final, replays and later recalculations do not
// revise it.
func (s *Service) ApplyOutbound(ctx context.Context, in OutboundInput) (MovementResult, error) {
	if in.Qty <= 0 {
		return MovementResult{}, ErrInvalidQuantity
	}
	if !outboundTypes[in.Type] {
		return MovementResult{}, fmt.Errorf("%w: %s outbound", ErrInvalidMovementType, in.Type)
	}

	var res MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bal, err := tx.GetBalanceForUpdate(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		newQty := bal.Qty - in.Qty
		shortfall := newQty < 0
		if shortfall && !s.allowNegativeStock {
			return fmt.Errorf("%w: product %d warehouse %d has %.3f, requested %.3f",
				ErrNegativeStock, in.ProductID, in.WarehouseID, bal.Qty, in.Qty)
		}
		cost := bal.AvgCost

		mov := Movement{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Type:        in.Type,
			Quantity:    -in.Qty,
			UnitCost:    cost,
			SourceRef:   in.SourceRef,
			OccurredAt:  in.OccurredAt,
			CreatedAt:   s.now(),
		}
		id, err := tx.InsertMovement(ctx, mov)
		if err != nil {
			return err
		}
		bal.ProductID = in.ProductID
		bal.WarehouseID = in.WarehouseID
		bal.Qty = newQty
		bal.UpdatedAt = s.now()
		if err := tx.UpsertBalance(ctx, bal); err != nil {
			return err
		}

		if shortfall {
			s.logger.Warn("stock shortfall",
				slog.Int64("product_id", in.ProductID),
				slog.Int64("warehouse_id", in.WarehouseID),
				slog.Float64("balance_qty", newQty),
				slog.String("source_ref", in.SourceRef))
		}
		res = MovementResult{
			MovementID:  id,
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Type:        in.Type,
			Quantity:    -in.Qty,
			UnitCost:    cost,
			BalanceQty:  newQty,
			BalanceCost: bal.AvgCost,
			Shortfall:   shortfall,
		}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	return res, nil
}

// Revert deletes a movement and rebuilds the product's balances from the
// remaining history. It is the compensation hook for failed document
// postings.
func (s *Service) Revert(ctx context.Context, movementID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		mov, err := tx.DeleteMovement(ctx, movementID)
		if err != nil {
			return err
		}
		if err := s.replayProduct(ctx, tx, mov.ProductID); err != nil {
			return err
		}
		s.logger.Info("stock movement reverted",
			slog.Int64("movement_id", movementID),
			slog.Int64("product_id", mov.ProductID),
			slog.String("type", string(mov.Type)))
		if s.audit != nil {
			_ = s.audit.Record(ctx, shared.AuditLog{
				Action:   "inventory.revert",
				Entity:   "stock_movement",
				EntityID: fmt.Sprintf("%d", movementID),
				Meta: map[string]any{
					"product_id": mov.ProductID,
					"type":       string(mov.Type),
					"quantity":   mov.Quantity,
				},
				At: s.now(),
			})
		}
		return nil
	})
}

// Balances returns the per-warehouse balances of one product.
func (s *Service) Balances(ctx context.Context, productID int64) ([]Balance, error) {
	return s.repo.ListBalances(ctx, productID)
}

// StockCard renders the movement history of a product in one warehouse with
// running quantity and average cost.
func (s *Service) StockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error) {
	movs, err := s.repo.ListCardMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries := make([]StockCardEntry, 0, len(movs))
	var qty, cost float64
	for _, m := range movs {
		qty, cost = fold(qty, cost, m)
		if !filter.From.IsZero() && m.OccurredAt.Before(filter.From) {
			continue
		}
		e := StockCardEntry{
			MovementID:  m.ID,
			Type:        m.Type,
			OccurredAt:  m.OccurredAt,
			UnitCost:    m.UnitCost,
			BalanceQty:  qty,
			BalanceCost: cost,
			SourceRef:   m.SourceRef,
		}
		if m.Quantity >= 0 {
			e.QtyIn = m.Quantity
		} else {
			e.QtyOut = -m.Quantity
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// fold applies one movement to a running (qty, avgCost) pair using the same
// rules as the live path: inbound blends, outbound only reduces quantity,
// a zero resulting quantity keeps the previous cost.
func fold(qty, cost float64, m Movement) (float64, float64) {
	newQty := qty + m.Quantity
	if m.Quantity > 0 {
		if newQty != 0 {
			cost = (qty*cost + m.Quantity*m.UnitCost) / newQty
		}
		if cost < 0 {
			cost = m.UnitCost
		}
	}
	return newQty, cost
}
