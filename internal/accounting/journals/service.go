package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service is the ledger store: it owns posting, reversal and the trial
// balance. Account balances are mutated only inside Post paths, never
// directly.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns all journal entries.
func (s *Service) List(ctx context.Context) ([]JournalEntry, error) {
	return s.repo.List(ctx)
}

// Get loads one entry with lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, id)
}

// CreateDraft stores a validated entry without any balance effect.
func (s *Service) CreateDraft(ctx context.Context, input PostingInput) (JournalEntry, error) {
	return s.create(ctx, input, EntryStatusDraft)
}

// Post validates and commits an entry in one step: the entry is persisted
// as posted and the balance deltas are applied atomically. On imbalance it
// fails with an UnbalancedError carrying the difference and applies
// nothing.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	return s.create(ctx, input, EntryStatusPosted)
}

func (s *Service) create(ctx context.Context, input PostingInput, status EntryStatus) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	now := s.now()
	entry := JournalEntry{
		Date:         input.Date,
		Reference:    input.Reference,
		Description:  input.Description,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		Status:       status,
		PostedBy:     input.PostedBy,
	}
	if status == EntryStatusPosted {
		entry.PostedAt = now
	}
	lines := toJournalLines(input.Lines)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range lines {
			postable, err := tx.AccountPostable(ctx, line.AccountID)
			if err != nil {
				return err
			}
			if !postable {
				return shared.ErrGroupAccountPosting
			}
		}
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		if err := tx.InsertLines(ctx, id, lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, id); err != nil {
			if errors.Is(err, shared.ErrSourceConflict) {
				return shared.ErrSourceAlreadyLinked
			}
			return err
		}
		if status == EntryStatusPosted {
			if err := tx.ApplyBalanceDeltas(ctx, lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	for i := range lines {
		lines[i].EntryID = entry.ID
	}
	entry.Lines = lines
	s.recordAudit(ctx, input.PostedBy, "journal."+auditVerb(status), entry.ID, map[string]any{
		"reference":     entry.Reference,
		"source_module": entry.SourceModule,
		"source_id":     entry.SourceID.String(),
	})
	return entry, nil
}

// PostDraft transitions a draft to posted. A second transition attempt on
// the same entry fails with ErrInvalidStatus.
func (s *Service) PostDraft(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, &shared.ValidationError{Field: "entry_id", Msg: "required"}
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		lines, err := tx.GetLines(ctx, entryID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, entryID, EntryStatusPosted, now); err != nil {
			return err
		}
		if err := tx.ApplyBalanceDeltas(ctx, lines); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusPosted
		entry.PostedAt = now
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.post", entry.ID, map[string]any{"reference": entry.Reference})
	return entry, nil
}

// Cancel discards a draft. Posted entries cannot be cancelled, only
// reversed.
func (s *Service) Cancel(ctx context.Context, entryID, actorID int64, reason string) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, &shared.ValidationError{Field: "entry_id", Msg: "required"}
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		if err := tx.UpdateStatus(ctx, entryID, EntryStatusCancelled, time.Time{}); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusCancelled
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.cancel", entry.ID, map[string]any{"reason": reason})
	return entry, nil
}

// Reverse creates and posts the exact debit/credit mirror of a posted
// entry, tagged with a back-reference. The original is never mutated.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, &shared.ValidationError{Field: "entry_id", Msg: "required"}
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status != EntryStatusPosted {
			return shared.ErrInvalidStatus
		}
		lines, err := tx.GetLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		now := s.now()
		date := original.Date
		if input.Date != nil {
			date = *input.Date
		}
		mirrored := reverseLines(lines)
		reversal = JournalEntry{
			Date:         date,
			Reference:    fmt.Sprintf("%s-REV", original.Reference),
			Description:  defaultReversalMemo(input.Memo, original.Reference),
			SourceModule: original.SourceModule + ":REVERSAL",
			SourceID:     uuid.New(),
			Status:       EntryStatusPosted,
			ReversalOf:   &original.ID,
			PostedBy:     input.ActorID,
			PostedAt:     now,
		}
		id, err := tx.InsertEntry(ctx, reversal)
		if err != nil {
			return err
		}
		reversal.ID = id
		if err := tx.InsertLines(ctx, id, mirrored); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, reversal.SourceModule, reversal.SourceID, id); err != nil {
			return err
		}
		if err := tx.ApplyBalanceDeltas(ctx, mirrored); err != nil {
			return err
		}
		for i := range mirrored {
			mirrored[i].EntryID = id
		}
		reversal.Lines = mirrored
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.ActorID, "journal.reverse", input.EntryID, map[string]any{
		"reversal_id":        reversal.ID,
		"reversal_reference": reversal.Reference,
	})
	return reversal, nil
}

// TrialBalance nets all posted lines per account up to the date. The debit
// column total always equals the credit column total; callers can rely on
// it as a ledger integrity check.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) ([]BalanceRow, error) {
	return s.repo.BalanceRows(ctx, asOf)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func auditVerb(status EntryStatus) string {
	if status == EntryStatusDraft {
		return "draft"
	}
	return "post"
}

func reverseLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}

func toJournalLines(lines []PostingLineInput) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out
}

func defaultReversalMemo(memo, reference string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", reference)
}
