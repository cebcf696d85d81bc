package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// DocumentsPort re-enters the normal posting pipeline for reconciliation
// adjustments.
type DocumentsPort interface {
	ApplyDocument(ctx context.Context, intent documents.Intent) (documents.Outcome, error)
}

// LockPort serialises snapshot saves per account.
type LockPort interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the reconciliation state machine: open a worksheet, compute
// the cleared subset, save the snapshot. Claimed lines never reappear.
type Service struct {
	repo   RepositoryPort
	docs   DocumentsPort
	locks  LockPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryPort, docs DocumentsPort, locks LockPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, docs: docs, locks: locks, audit: audit, logger: logger, now: time.Now}
}

// WithNow fixes the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) { s.now = now }

// Open builds the worksheet for one account: its unclaimed posted lines and
// the opening balance carried from the previous snapshot.
func (s *Service) Open(ctx context.Context, accountID int64) (Worksheet, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Worksheet{}, err
	}
	if !account.CashEquivalent {
		return Worksheet{}, fmt.Errorf("%w: %s", ErrNotCashAccount, account.Code)
	}
	opening, err := s.openingBalance(ctx, accountID)
	if err != nil {
		return Worksheet{}, err
	}
	lines, err := s.repo.UnclaimedLines(ctx, accountID)
	if err != nil {
		return Worksheet{}, err
	}
	return Worksheet{
		AccountID:      accountID,
		AccountCode:    account.Code,
		AccountName:    account.Name,
		OpeningBalance: opening,
		Lines:          lines,
	}, nil
}

// SaveInput carries one snapshot save request.
type SaveInput struct {
	AccountID        int64
	StatementDate    time.Time
	StatementBalance float64
	Notes            string
	LineIDs          []int64
	ActorID          int64
}

// Save persists a snapshot after re-checking, inside the transaction, that
// every cleared line is still unclaimed. The per-account lock keeps two
// concurrent saves from racing past each other's claims.
func (s *Service) Save(ctx context.Context, in SaveInput) (Record, error) {
	if in.StatementDate.IsZero() {
		return Record{}, &acctshared.ValidationError{Field: "statement_date", Msg: "required"}
	}
	if len(in.LineIDs) == 0 {
		return Record{}, ErrNoLinesSelected
	}
	// A line submitted twice must clear once, not inflate the totals.
	lineIDs := dedupeIDs(in.LineIDs)
	account, err := s.repo.GetAccount(ctx, in.AccountID)
	if err != nil {
		return Record{}, err
	}
	if !account.CashEquivalent {
		return Record{}, fmt.Errorf("%w: %s", ErrNotCashAccount, account.Code)
	}

	if s.locks != nil {
		release, err := s.locks.Acquire(ctx, shared.ReconcileLockKey(in.AccountID), 30*time.Second)
		if err != nil {
			return Record{}, err
		}
		defer release()
	}

	var rec Record
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		unclaimed, err := tx.UnclaimedLines(ctx, in.AccountID)
		if err != nil {
			return err
		}
		byID := make(map[int64]CandidateLine, len(unclaimed))
		for _, line := range unclaimed {
			byID[line.LineID] = line
		}
		cleared := make([]CandidateLine, 0, len(lineIDs))
		for _, id := range lineIDs {
			line, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: line %d", ErrLineAlreadyReconciled, id)
			}
			cleared = append(cleared, line)
		}

		var opening float64
		if last, ok, err := tx.LastRecord(ctx, in.AccountID); err != nil {
			return err
		} else if ok {
			opening = last.StatementBalance
		}
		summary := Compute(opening, in.StatementBalance, cleared)

		status := StatusUnbalanced
		if summary.Balanced {
			status = StatusBalanced
		}
		rec = Record{
			AccountID:        in.AccountID,
			StatementDate:    in.StatementDate,
			StatementBalance: in.StatementBalance,
			OpeningBalance:   summary.OpeningBalance,
			TotalDeposits:    summary.TotalDeposits,
			TotalPayments:    summary.TotalPayments,
			Difference:       summary.Difference,
			Status:           status,
			Notes:            in.Notes,
			LineIDs:          lineIDs,
			CreatedBy:        in.ActorID,
			CreatedAt:        s.now(),
		}
		id, err := tx.InsertRecord(ctx, rec)
		if err != nil {
			return err
		}
		rec.ID = id
		return tx.ClaimLines(ctx, id, in.AccountID, lineIDs)
	})
	if err != nil {
		return Record{}, err
	}

	s.recordAudit(ctx, in.ActorID, rec)
	s.logger.Info("reconciliation saved",
		slog.Int64("account_id", in.AccountID),
		slog.Int64("record_id", rec.ID),
		slog.String("status", rec.Status),
		slog.Float64("difference", rec.Difference))
	return rec, nil
}

// AdjustInput books a bank charge or interest found on the statement.
type AdjustInput struct {
	AccountID int64
	Kind      documents.BankAdjustmentKind
	Amount    float64
	Reference string
	Date      time.Time
	Notes     string
	ActorID   int64
}

// Adjust synthesizes a bank adjustment document; it re-enters the normal
// posting pipeline, so the new line shows up as unclaimed in the open
// worksheet.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (documents.Outcome, error) {
	return s.docs.ApplyDocument(ctx, documents.Intent{
		Kind:        documents.KindBankAdjustment,
		Date:        in.Date,
		Reference:   in.Reference,
		Description: in.Notes,
		ActorID:     in.ActorID,
		BankAdjustment: &documents.BankAdjustmentIntent{
			Kind:      in.Kind,
			Amount:    in.Amount,
			AccountID: in.AccountID,
		},
	})
}

// History lists saved snapshots for one account, newest first.
func (s *Service) History(ctx context.Context, accountID int64) ([]Record, error) {
	return s.repo.History(ctx, accountID)
}

func (s *Service) openingBalance(ctx context.Context, accountID int64) (float64, error) {
	last, ok, err := s.repo.LastRecord(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last.StatementBalance, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, rec Record) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "reconcile.save",
		Entity:   "bank_reconciliation",
		EntityID: fmt.Sprintf("%d", rec.ID),
		Meta: map[string]any{
			"account_id": rec.AccountID,
			"status":     rec.Status,
			"difference": rec.Difference,
			"lines":      len(rec.LineIDs),
		},
		At: s.now(),
	})
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
