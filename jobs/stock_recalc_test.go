package jobs

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeRecalculator struct {
	products []int64
	allCalls int
}

func (f *fakeRecalculator) Recalculate(ctx context.Context, productID int64) error {
	f.products = append(f.products, productID)
	return nil
}

func (f *fakeRecalculator) RecalculateAll(ctx context.Context) (int, error) {
	f.allCalls++
	return 3, nil
}

type fakeRecalcMetrics struct {
	count int
}

func (f *fakeRecalcMetrics) ObserveRecalculation() { f.count++ }

func newTestLock(t *testing.T) (*shared.DistLock, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewDistLock(client), srv
}

func TestStockRecalcSingleProduct(t *testing.T) {
	locks, _ := newTestLock(t)
	stock := &fakeRecalculator{}
	metrics := &fakeRecalcMetrics{}
	job := NewStockRecalcJob(stock, locks, metrics, nil, nil)

	pid := int64(42)
	task, err := NewStockRecalculationTask(&pid, time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{42}, stock.products)
	require.Equal(t, 1, metrics.count)
}

func TestStockRecalcAllProducts(t *testing.T) {
	locks, _ := newTestLock(t)
	stock := &fakeRecalculator{}
	metrics := &fakeRecalcMetrics{}
	job := NewStockRecalcJob(stock, locks, metrics, nil, nil)

	task, err := NewStockRecalculationTask(nil, time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, stock.allCalls)
	require.Equal(t, 3, metrics.count)
}

func TestStockRecalcSkipsWhenLockHeld(t *testing.T) {
	locks, srv := newTestLock(t)
	require.NoError(t, srv.Set(shared.RecalcLockKey(42), "1"))

	stock := &fakeRecalculator{}
	job := NewStockRecalcJob(stock, locks, nil, nil, nil)

	pid := int64(42)
	task, err := NewStockRecalculationTask(&pid, time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, stock.products)
}
