package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	"github.com/meridian-erp/meridian-erp/internal/documents"
)

type memoryRepo struct {
	account accounts.Account
	lines   []CandidateLine
	claimed map[int64]bool
	records []Record
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		account: accounts.Account{ID: 1, Code: "1231", Name: "Cash on Hand", CashEquivalent: true, IsActive: true},
		claimed: map[int64]bool{},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) GetAccount(ctx context.Context, accountID int64) (accounts.Account, error) {
	if accountID != r.account.ID {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}
	return r.account, nil
}

func (r *memoryRepo) UnclaimedLines(ctx context.Context, accountID int64) ([]CandidateLine, error) {
	var out []CandidateLine
	for _, line := range r.lines {
		if !r.claimed[line.LineID] {
			out = append(out, line)
		}
	}
	return out, nil
}

func (r *memoryRepo) LastRecord(ctx context.Context, accountID int64) (Record, bool, error) {
	if len(r.records) == 0 {
		return Record{}, false, nil
	}
	return r.records[len(r.records)-1], true, nil
}

func (r *memoryRepo) History(ctx context.Context, accountID int64) ([]Record, error) {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *memoryRepo) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	r.nextID++
	rec.ID = r.nextID
	r.records = append(r.records, rec)
	return rec.ID, nil
}

func (r *memoryRepo) ClaimLines(ctx context.Context, recordID, accountID int64, lineIDs []int64) error {
	for _, id := range lineIDs {
		if r.claimed[id] {
			return ErrLineAlreadyReconciled
		}
		r.claimed[id] = true
	}
	return nil
}

type fakeDocs struct {
	intents []documents.Intent
}

func (f *fakeDocs) ApplyDocument(ctx context.Context, intent documents.Intent) (documents.Outcome, error) {
	f.intents = append(f.intents, intent)
	return documents.Outcome{EntryID: int64(len(f.intents))}, nil
}

func statementDay(n int) time.Time {
	return time.Date(2025, 5, n, 0, 0, 0, 0, time.UTC)
}

func seedLines(repo *memoryRepo) {
	repo.lines = []CandidateLine{
		{LineID: 1, EntryID: 10, Date: statementDay(1), Reference: "SI-1", Debit: 500},
		{LineID: 2, EntryID: 11, Date: statementDay(2), Reference: "PI-1", Credit: 200},
		{LineID: 3, EntryID: 12, Date: statementDay(3), Reference: "SI-2", Debit: 300},
	}
}

func TestComputeSummary(t *testing.T) {
	lines := []CandidateLine{
		{LineID: 1, Debit: 500},
		{LineID: 2, Credit: 200},
	}
	sum := Compute(100, 400, lines)
	require.InDelta(t, 500.0, sum.TotalDeposits, 0.01)
	require.InDelta(t, 200.0, sum.TotalPayments, 0.01)
	require.InDelta(t, 400.0, sum.CalculatedBalance, 0.01)
	require.InDelta(t, 0.0, sum.Difference, 0.01)
	require.True(t, sum.Balanced)

	sum = Compute(100, 450, lines)
	require.InDelta(t, 50.0, sum.Difference, 0.01)
	require.False(t, sum.Balanced)
}

func TestSaveBalancedSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	seedLines(repo)
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	rec, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(31),
		StatementBalance: 300,
		LineIDs:          []int64{1, 2},
	})
	require.NoError(t, err)
	require.Equal(t, StatusBalanced, rec.Status)
	require.InDelta(t, 500.0, rec.TotalDeposits, 0.01)
	require.InDelta(t, 200.0, rec.TotalPayments, 0.01)
	require.InDelta(t, 0.0, rec.Difference, 0.01)
}

func TestSaveCountsRepeatedLineOnce(t *testing.T) {
	repo := newMemoryRepo()
	seedLines(repo)
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	rec, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(31),
		StatementBalance: 300,
		LineIDs:          []int64{1, 1, 2},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, rec.LineIDs)
	require.InDelta(t, 500.0, rec.TotalDeposits, 0.01)
	require.InDelta(t, 200.0, rec.TotalPayments, 0.01)
	require.Equal(t, StatusBalanced, rec.Status)
}

func TestSaveUnbalancedSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	seedLines(repo)
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	rec, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(31),
		StatementBalance: 1000,
		LineIDs:          []int64{1},
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnbalanced, rec.Status)
	require.InDelta(t, 500.0, rec.Difference, 0.01)
}

func TestLineExclusivity(t *testing.T) {
	repo := newMemoryRepo()
	seedLines(repo)
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	_, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(15),
		StatementBalance: 500,
		LineIDs:          []int64{1},
	})
	require.NoError(t, err)

	// The claimed line never reappears in a later worksheet.
	ws, err := svc.Open(context.Background(), 1)
	require.NoError(t, err)
	for _, line := range ws.Lines {
		require.NotEqual(t, int64(1), line.LineID)
	}

	// And claiming it again is rejected.
	_, err = svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(31),
		StatementBalance: 800,
		LineIDs:          []int64{1, 3},
	})
	require.ErrorIs(t, err, ErrLineAlreadyReconciled)
}

func TestOpeningBalanceCarriedFromLastSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	seedLines(repo)
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	_, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(15),
		StatementBalance: 500,
		LineIDs:          []int64{1},
	})
	require.NoError(t, err)

	ws, err := svc.Open(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 500.0, ws.OpeningBalance, 0.01)

	rec, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(31),
		StatementBalance: 600,
		LineIDs:          []int64{2, 3},
	})
	require.NoError(t, err)
	// 500 opening + 300 deposit - 200 payment = 600
	require.Equal(t, StatusBalanced, rec.Status)
}

func TestNonCashAccountRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.account.CashEquivalent = false
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	_, err := svc.Open(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotCashAccount)
}

func TestAdjustReentersDocumentPipeline(t *testing.T) {
	repo := newMemoryRepo()
	docs := &fakeDocs{}
	svc := NewService(repo, docs, nil, nil, nil)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		AccountID: 42,
		Kind:      documents.BankAdjustmentCharge,
		Amount:    25,
		Reference: "BNK-ADJ-1",
		Date:      statementDay(20),
	})
	require.NoError(t, err)
	require.Len(t, docs.intents, 1)
	require.Equal(t, documents.KindBankAdjustment, docs.intents[0].Kind)
	require.InDelta(t, 25.0, docs.intents[0].BankAdjustment.Amount, 0.01)
	require.Equal(t, int64(42), docs.intents[0].BankAdjustment.AccountID)
}

func TestSaveRequiresLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeDocs{}, nil, nil, nil)

	_, err := svc.Save(context.Background(), SaveInput{
		AccountID:        1,
		StatementDate:    statementDay(31),
		StatementBalance: 100,
	})
	require.ErrorIs(t, err, ErrNoLinesSelected)
}
