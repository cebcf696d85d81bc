package journals

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type memoryRepo struct {
	entries     map[int64]JournalEntry
	lines       map[int64][]JournalLine
	balances    map[int64]float64
	sources     map[string]int64
	nonPostable map[int64]bool
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries:     map[int64]JournalEntry{},
		lines:       map[int64][]JournalLine{},
		balances:    map[int64]float64{},
		sources:     map[string]int64{},
		nonPostable: map[int64]bool{},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	entry.Lines = r.lines[id]
	return entry, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]JournalEntry, error) {
	out := make([]JournalEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) BalanceRows(ctx context.Context, asOf time.Time) ([]BalanceRow, error) {
	byAccount := map[int64]*BalanceRow{}
	for id, entry := range r.entries {
		if entry.Status != EntryStatusPosted || entry.Date.After(asOf) {
			continue
		}
		for _, line := range r.lines[id] {
			row, ok := byAccount[line.AccountID]
			if !ok {
				row = &BalanceRow{AccountID: line.AccountID, Code: fmt.Sprintf("%d", line.AccountID)}
				byAccount[line.AccountID] = row
			}
			row.Debit += line.Debit
			row.Credit += line.Credit
		}
	}
	rows := make([]BalanceRow, 0, len(byAccount))
	for _, row := range byAccount {
		// Net per account the way the SQL aggregation does.
		if row.Debit >= row.Credit {
			row.Debit -= row.Credit
			row.Credit = 0
		} else {
			row.Credit -= row.Debit
			row.Debit = 0
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccountID < rows[j].AccountID })
	return rows, nil
}

func (r *memoryRepo) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	r.nextID++
	entry.ID = r.nextID
	r.entries[entry.ID] = entry
	return entry.ID, nil
}

func (r *memoryRepo) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	stored := make([]JournalLine, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].EntryID = entryID
	}
	r.lines[entryID] = stored
	return nil
}

func (r *memoryRepo) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	return r.GetEntry(ctx, id)
}

func (r *memoryRepo) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return r.lines[entryID], nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, status EntryStatus, postedAt time.Time) error {
	entry, ok := r.entries[id]
	if !ok {
		return shared.ErrJournalNotFound
	}
	entry.Status = status
	entry.PostedAt = postedAt
	r.entries[id] = entry
	return nil
}

func (r *memoryRepo) ApplyBalanceDeltas(ctx context.Context, lines []JournalLine) error {
	for _, line := range lines {
		r.balances[line.AccountID] += line.Debit - line.Credit
	}
	return nil
}

func (r *memoryRepo) AccountPostable(ctx context.Context, accountID int64) (bool, error) {
	return !r.nonPostable[accountID], nil
}

func (r *memoryRepo) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error {
	key := module + ":" + sourceID.String()
	if _, ok := r.sources[key]; ok {
		return shared.ErrSourceConflict
	}
	r.sources[key] = entryID
	return nil
}

func testInput(lines ...PostingLineInput) PostingInput {
	return PostingInput{
		Date:         time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Reference:    "JE-001",
		Description:  "test entry",
		SourceModule: "manual",
		SourceID:     uuid.New(),
		PostedBy:     7,
		Lines:        lines,
	}
}

func TestUnbalancedEntryRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Post(context.Background(), testInput(
		PostingLineInput{AccountID: 1, Debit: 500},
		PostingLineInput{AccountID: 2, Credit: 300},
	))
	var unbalanced *shared.UnbalancedError
	require.ErrorAs(t, err, &unbalanced)
	require.InDelta(t, 200, unbalanced.Delta(), 0.001)

	require.Empty(t, repo.entries)
	require.Empty(t, repo.balances)
}

func TestPostAppliesBalances(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.Post(context.Background(), testInput(
		PostingLineInput{AccountID: 1, Debit: 250},
		PostingLineInput{AccountID: 2, Credit: 250},
	))
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, entry.Status)
	require.Len(t, entry.Lines, 2)
	require.InDelta(t, 250, repo.balances[1], 0.001)
	require.InDelta(t, -250, repo.balances[2], 0.001)
}

func TestLineValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Post(ctx, testInput(PostingLineInput{AccountID: 1, Debit: 100}))
	require.ErrorIs(t, err, shared.ErrTooFewLines)

	_, err = svc.Post(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: 100, Credit: 100},
		PostingLineInput{AccountID: 2, Credit: 0},
	))
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = svc.Post(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: -100},
		PostingLineInput{AccountID: 2, Credit: -100},
	))
	require.ErrorAs(t, err, &validation)
}

func TestGroupAccountRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.nonPostable[9] = true
	svc := NewService(repo, nil)

	_, err := svc.Post(context.Background(), testInput(
		PostingLineInput{AccountID: 9, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	))
	require.ErrorIs(t, err, shared.ErrGroupAccountPosting)
	require.Empty(t, repo.balances)
}

func TestDuplicateSourceRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	input := testInput(
		PostingLineInput{AccountID: 1, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	)
	_, err := svc.Post(ctx, input)
	require.NoError(t, err)

	input.Reference = "JE-002"
	_, err = svc.Post(ctx, input)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestDraftHasNoBalanceEffect(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.CreateDraft(context.Background(), testInput(
		PostingLineInput{AccountID: 1, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	))
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)
	require.Empty(t, repo.balances)
}

func TestPostDraftTransitionsOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	))
	require.NoError(t, err)

	posted, err := svc.PostDraft(ctx, draft.ID, 7)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)
	require.InDelta(t, 100, repo.balances[1], 0.001)

	_, err = svc.PostDraft(ctx, draft.ID, 7)
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
	require.InDelta(t, 100, repo.balances[1], 0.001)
}

func TestCancelDraftOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, draft.ID, 7, "typo")
	require.NoError(t, err)
	require.Equal(t, EntryStatusCancelled, cancelled.Status)
	require.Empty(t, repo.balances)

	_, err = svc.Cancel(ctx, draft.ID, 7, "again")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)

	posted, err := svc.Post(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, posted.ID, 7, "no")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestReverseMirrorsLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	original, err := svc.Post(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: 400},
		PostingLineInput{AccountID: 2, Credit: 400},
	))
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, reversal.Status)
	require.Equal(t, "JE-001-REV", reversal.Reference)
	require.NotNil(t, reversal.ReversalOf)
	require.Equal(t, original.ID, *reversal.ReversalOf)
	require.InDelta(t, 400, reversal.Lines[0].Credit, 0.001)
	require.InDelta(t, 400, reversal.Lines[1].Debit, 0.001)

	// Original stays posted and untouched; net balance effect is zero.
	kept, err := svc.Get(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, kept.Status)
	require.InDelta(t, 0, repo.balances[1], 0.001)
	require.InDelta(t, 0, repo.balances[2], 0.001)
}

func TestReverseRequiresPostedEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, testInput(
		PostingLineInput{AccountID: 1, Debit: 100},
		PostingLineInput{AccountID: 2, Credit: 100},
	))
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, ReverseInput{EntryID: draft.ID, ActorID: 7})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestTrialBalanceStaysBalanced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	postings := [][]PostingLineInput{
		{{AccountID: 1, Debit: 1000}, {AccountID: 3, Credit: 1000}},
		{{AccountID: 2, Debit: 350}, {AccountID: 1, Credit: 350}},
		{{AccountID: 4, Debit: 80}, {AccountID: 2, Credit: 50}, {AccountID: 3, Credit: 30}},
	}
	for i, lines := range postings {
		input := testInput(lines...)
		input.Reference = fmt.Sprintf("JE-%03d", i+1)
		input.SourceID = uuid.New()
		_, err := svc.Post(ctx, input)
		require.NoError(t, err)
	}

	rows, err := svc.TrialBalance(ctx, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var debit, credit float64
	for _, row := range rows {
		debit += row.Debit
		credit += row.Credit
	}
	require.InDelta(t, debit, credit, shared.BalanceTolerance)
}
