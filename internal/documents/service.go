package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ResolverPort resolves role accounts strictly; a missing role surfaces as
// an accounts.ConfigurationError the caller can repair with a bootstrap.
type ResolverPort interface {
	ResolveAll(ctx context.Context, roles ...accounts.Role) (map[accounts.Role]accounts.Account, error)
}

// LedgerPort posts and reverses balanced journal entries.
type LedgerPort interface {
	Post(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
	Reverse(ctx context.Context, input journals.ReverseInput) (journals.JournalEntry, error)
}

// StockPort is the valuation engine surface the pipeline needs.
type StockPort interface {
	ApplyInbound(ctx context.Context, in inventory.InboundInput) (inventory.MovementResult, error)
	ApplyOutbound(ctx context.Context, in inventory.OutboundInput) (inventory.MovementResult, error)
	Revert(ctx context.Context, movementID int64) error
	Balances(ctx context.Context, productID int64) ([]inventory.Balance, error)
}

// IdempotencyPort claims and releases posting keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort counts posting outcomes.
type MetricsPort interface {
	ObservePosting(kind string, err error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs every document through one pipeline: resolve accounts, apply
// stock effects, persist the document, post the ledger entry. Any failure
// after the first side effect triggers the recorded compensating actions in
// reverse order, so a document either fully posts or leaves no trace.
type Service struct {
	resolver ResolverPort
	ledger   LedgerPort
	stock    StockPort
	repo     RepositoryPort
	idem     IdempotencyPort
	metrics  MetricsPort
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

type ServiceParams struct {
	Resolver ResolverPort
	Ledger   LedgerPort
	Stock    StockPort
	Repo     RepositoryPort
	Idem     IdempotencyPort
	Metrics  MetricsPort
	Audit    AuditPort
	Logger   *slog.Logger
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resolver: p.Resolver,
		ledger:   p.Ledger,
		stock:    p.Stock,
		repo:     p.Repo,
		idem:     p.Idem,
		metrics:  p.Metrics,
		audit:    p.Audit,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow fixes the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) { s.now = now }

const idempotencyModule = "documents"

// ApplyDocument drives one intent through the posting pipeline.
func (s *Service) ApplyDocument(ctx context.Context, intent Intent) (Outcome, error) {
	out, err := s.apply(ctx, intent)
	if s.metrics != nil {
		s.metrics.ObservePosting(string(intent.Kind), err)
	}
	return out, err
}

func (s *Service) apply(ctx context.Context, intent Intent) (Outcome, error) {
	if err := validateIntent(intent); err != nil {
		return Outcome{}, err
	}

	pl, err := s.planFor(intent)
	if err != nil {
		return Outcome{}, err
	}

	resolved := map[accounts.Role]accounts.Account{}
	if len(pl.roles) > 0 {
		resolved, err = s.resolver.ResolveAll(ctx, pl.roles...)
		if err != nil {
			return Outcome{}, err
		}
	}

	key := idempotencyKey(intent)
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Outcome{}, fmt.Errorf("%w: %s", ErrDuplicateReference, intent.Reference)
			}
			return Outcome{}, err
		}
	}

	r := &runner{svc: s, intent: intent, accounts: resolved}
	if err := s.execute(ctx, r, pl); err != nil {
		r.compensate(ctx)
		if s.idem != nil {
			if derr := s.idem.Delete(ctx, key); derr != nil {
				s.logger.Error("idempotency key release failed",
					slog.String("key", key), slog.String("error", derr.Error()))
			}
		}
		return Outcome{}, err
	}

	s.recordAudit(ctx, intent, r)
	s.logger.Info("document posted",
		slog.String("kind", string(intent.Kind)),
		slog.String("reference", intent.Reference),
		slog.String("document_id", r.documentID.String()),
		slog.Int64("entry_id", r.entryID))

	return Outcome{
		DocumentID:  r.documentID,
		EntryID:     r.entryID,
		MovementIDs: r.movementIDs,
		Total:       r.total,
		Warnings:    r.warnings,
	}, nil
}

func (s *Service) execute(ctx context.Context, r *runner, pl plan) error {
	if err := pl.run(ctx, r); err != nil {
		return err
	}

	r.documentID = uuid.New()
	payload, err := json.Marshal(intentPayload(r.intent))
	if err != nil {
		return err
	}
	doc := Document{
		ID:        r.documentID,
		Kind:      r.intent.Kind,
		Reference: r.intent.Reference,
		Date:      r.intent.Date,
		Status:    StatusPosted,
		Payload:   payload,
		CreatedBy: r.intent.ActorID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, doc); err != nil {
		return err
	}
	r.addCompensator(func(ctx context.Context) error {
		return s.repo.Delete(ctx, doc.ID)
	})
	if len(r.movementIDs) > 0 {
		if err := s.repo.LinkMovements(ctx, doc.ID, r.movementIDs); err != nil {
			return err
		}
	}

	if len(r.lines) == 0 {
		return nil
	}
	entry, err := s.ledger.Post(ctx, journals.PostingInput{
		Date:         r.intent.Date,
		Reference:    r.intent.Reference,
		Description:  r.description(),
		SourceModule: "documents:" + string(r.intent.Kind),
		SourceID:     doc.ID,
		PostedBy:     r.intent.ActorID,
		Lines:        r.lines,
	})
	if err != nil {
		return err
	}
	r.entryID = entry.ID
	r.addCompensator(func(ctx context.Context) error {
		_, err := s.ledger.Reverse(ctx, journals.ReverseInput{
			EntryID: entry.ID,
			ActorID: r.intent.ActorID,
			Memo:    "posting aborted",
		})
		return err
	})
	return s.repo.SetEntryID(ctx, doc.ID, entry.ID)
}

// Reverse undoes a posted document: the ledger entry is reversed and every
// stock movement tied to the document is re-applied with the opposite sign
// via a replay of the product history.
func (s *Service) Reverse(ctx context.Context, documentID uuid.UUID, actorID int64, memo string) (Outcome, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return Outcome{}, err
	}
	if doc.Status == StatusReversed {
		return Outcome{}, ErrAlreadyReversed
	}

	var entryID int64
	if doc.EntryID != nil {
		entry, err := s.ledger.Reverse(ctx, journals.ReverseInput{
			EntryID: *doc.EntryID,
			ActorID: actorID,
			Memo:    memo,
		})
		if err != nil {
			return Outcome{}, err
		}
		entryID = entry.ID
	}

	movementIDs, err := s.repo.MovementIDs(ctx, documentID)
	if err != nil {
		return Outcome{}, err
	}
	for _, id := range movementIDs {
		if err := s.stock.Revert(ctx, id); err != nil && !errors.Is(err, inventory.ErrMovementNotFound) {
			return Outcome{}, err
		}
	}

	if err := s.repo.SetStatus(ctx, documentID, StatusReversed); err != nil {
		return Outcome{}, err
	}
	s.recordReverseAudit(ctx, doc, actorID)
	return Outcome{DocumentID: documentID, EntryID: entryID, MovementIDs: movementIDs}, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	return s.repo.Get(ctx, id)
}

// List returns documents, newest first.
func (s *Service) List(ctx context.Context, kind Kind) ([]Document, error) {
	return s.repo.List(ctx, kind)
}

func (s *Service) recordAudit(ctx context.Context, intent Intent, r *runner) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  intent.ActorID,
		Action:   "documents.post",
		Entity:   "document",
		EntityID: r.documentID.String(),
		Meta: map[string]any{
			"kind":      string(intent.Kind),
			"reference": intent.Reference,
			"entry_id":  r.entryID,
			"total":     r.total,
		},
		At: s.now(),
	})
}

func (s *Service) recordReverseAudit(ctx context.Context, doc Document, actorID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "documents.reverse",
		Entity:   "document",
		EntityID: doc.ID.String(),
		Meta:     map[string]any{"kind": string(doc.Kind), "reference": doc.Reference},
		At:       s.now(),
	})
}

func idempotencyKey(intent Intent) string {
	return fmt.Sprintf("%s:%s", intent.Kind, intent.Reference)
}

// runner accumulates the side effects and compensating actions of one
// pipeline execution.
type runner struct {
	svc      *Service
	intent   Intent
	accounts map[accounts.Role]accounts.Account

	compensators []func(context.Context) error
	lines        []journals.PostingLineInput
	warnings     []string
	movementIDs  []int64
	documentID   uuid.UUID
	entryID      int64
	total        float64
}

func (r *runner) addCompensator(fn func(context.Context) error) {
	r.compensators = append(r.compensators, fn)
}

// compensate unwinds recorded side effects in reverse order. Failures are
// logged and skipped: a stuck compensator must not hide the original error.
func (r *runner) compensate(ctx context.Context) {
	for i := len(r.compensators) - 1; i >= 0; i-- {
		if err := r.compensators[i](ctx); err != nil {
			r.svc.logger.Error("compensation step failed",
				slog.String("kind", string(r.intent.Kind)),
				slog.String("reference", r.intent.Reference),
				slog.String("error", err.Error()))
		}
	}
}

func (r *runner) account(role accounts.Role) int64 {
	return r.accounts[role].ID
}

func (r *runner) inbound(ctx context.Context, in inventory.InboundInput) (inventory.MovementResult, error) {
	in.SourceRef = r.intent.Reference
	in.OccurredAt = r.intent.Date
	res, err := r.svc.stock.ApplyInbound(ctx, in)
	if err != nil {
		return res, err
	}
	r.movementIDs = append(r.movementIDs, res.MovementID)
	r.addCompensator(func(ctx context.Context) error {
		return r.svc.stock.Revert(ctx, res.MovementID)
	})
	return res, nil
}

func (r *runner) outbound(ctx context.Context, in inventory.OutboundInput) (inventory.MovementResult, error) {
	in.SourceRef = r.intent.Reference
	in.OccurredAt = r.intent.Date
	res, err := r.svc.stock.ApplyOutbound(ctx, in)
	if err != nil {
		return res, err
	}
	r.movementIDs = append(r.movementIDs, res.MovementID)
	r.addCompensator(func(ctx context.Context) error {
		return r.svc.stock.Revert(ctx, res.MovementID)
	})
	if res.Shortfall {
		r.warnings = append(r.warnings, fmt.Sprintf(
			"insufficient stock: product %d warehouse %d driven to %.3f", in.ProductID, in.WarehouseID, res.BalanceQty))
	}
	return res, nil
}

// currentCost reads the weighted-average cost carried in a warehouse without
// moving stock, used when an inbound movement must enter at carried cost.
func (r *runner) currentCost(ctx context.Context, productID, warehouseID int64) (float64, error) {
	balances, err := r.svc.stock.Balances(ctx, productID)
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b.WarehouseID == warehouseID {
			return b.AvgCost, nil
		}
	}
	return 0, nil
}

func (r *runner) debit(role accounts.Role, amount float64, desc string) {
	r.debitAccount(r.account(role), amount, desc)
}

func (r *runner) credit(role accounts.Role, amount float64, desc string) {
	r.creditAccount(r.account(role), amount, desc)
}

func (r *runner) debitAccount(accountID int64, amount float64, desc string) {
	if amount <= 0 {
		return
	}
	r.lines = append(r.lines, journals.PostingLineInput{AccountID: accountID, Debit: amount, Description: desc})
}

func (r *runner) creditAccount(accountID int64, amount float64, desc string) {
	if amount <= 0 {
		return
	}
	r.lines = append(r.lines, journals.PostingLineInput{AccountID: accountID, Credit: amount, Description: desc})
}

func (r *runner) description() string {
	if r.intent.Description != "" {
		return r.intent.Description
	}
	return fmt.Sprintf("%s %s", r.intent.Kind, r.intent.Reference)
}
