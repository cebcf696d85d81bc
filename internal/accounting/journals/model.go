package journals

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus enumerates journal lifecycle values. A draft has no balance
// effect; posting makes the entry immutable; only drafts may be cancelled.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusPosted    EntryStatus = "POSTED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

// JournalEntry captures posting metadata.
type JournalEntry struct {
	ID           int64
	Date         time.Time
	Reference    string
	Description  string
	SourceModule string
	SourceID     uuid.UUID
	Status       EntryStatus
	ReversalOf   *int64
	PostedBy     int64
	PostedAt     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a debit or credit amount for an account. Exactly one
// side is non-zero per line.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       float64
	Credit      float64
	Description string
}

// BalanceRow aggregates posted lines per leaf account up to a date.
type BalanceRow struct {
	AccountID int64
	Code      string
	Name      string
	Type      string
	Debit     float64
	Credit    float64
}
