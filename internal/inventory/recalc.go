package inventory

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

const recalcConcurrency = 4

// Recalculate rebuilds one product's balances by replaying its full movement
// history from zero. The replay is idempotent: running it twice, or running
// it after incremental updates, converges on the same balances. Outbound
// movements keep the unit cost recorded when they were applied; only the
// derived balances are rewritten.
func (s *Service) Recalculate(ctx context.Context, productID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.replayProduct(ctx, tx, productID)
	})
}

// RecalculateAll replays every product, a handful at a time. Each product
// gets its own transaction so one bad product does not roll back the rest.
func (s *Service) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recalcConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := s.Recalculate(gctx, id); err != nil {
				s.logger.Error("stock recalculation failed",
					slog.Int64("product_id", id),
					slog.String("error", err.Error()))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Service) replayProduct(ctx context.Context, tx TxRepository, productID int64) error {
	movs, err := tx.ListMovementsForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	// Replay order is chronological, ties broken by insertion order.
	sort.SliceStable(movs, func(i, j int) bool {
		if !movs[i].OccurredAt.Equal(movs[j].OccurredAt) {
			return movs[i].OccurredAt.Before(movs[j].OccurredAt)
		}
		return movs[i].ID < movs[j].ID
	})

	type acc struct {
		qty  float64
		cost float64
	}
	perWarehouse := map[int64]*acc{}
	order := []int64{}
	for _, m := range movs {
		a, ok := perWarehouse[m.WarehouseID]
		if !ok {
			a = &acc{}
			perWarehouse[m.WarehouseID] = a
			order = append(order, m.WarehouseID)
		}
		a.qty, a.cost = fold(a.qty, a.cost, m)
	}

	now := s.now()
	balances := make([]Balance, 0, len(order))
	for _, wh := range order {
		a := perWarehouse[wh]
		balances = append(balances, Balance{
			ProductID:   productID,
			WarehouseID: wh,
			Qty:         a.qty,
			AvgCost:     a.cost,
			UpdatedAt:   now,
		})
	}
	return tx.ReplaceBalances(ctx, productID, balances)
}
