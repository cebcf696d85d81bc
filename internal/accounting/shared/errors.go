package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates the entry was already posted or cancelled
	// when a second lifecycle transition was attempted.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrGroupAccountPosting indicates a line referenced a non-postable group account.
	ErrGroupAccountPosting = errors.New("accounting: group accounts cannot receive postings")
	// ErrSourceAlreadyLinked indicates the source document was already posted.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = errors.New("accounting: source link conflict")
)

// BalanceTolerance is the rounding tolerance applied when comparing debit
// and credit totals. Amounts are currency values carried to two decimals.
const BalanceTolerance = 0.01

// UnbalancedError reports a debit/credit mismatch on a posting attempt.
type UnbalancedError struct {
	Debit  float64
	Credit float64
}

// Delta returns the signed difference between total debit and total credit.
func (e *UnbalancedError) Delta() float64 {
	return e.Debit - e.Credit
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("accounting: journal lines must balance (debit %.2f, credit %.2f, delta %.2f)", e.Debit, e.Credit, e.Delta())
}

// ValidationError reports malformed posting input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("accounting: %s", e.Msg)
	}
	return fmt.Sprintf("accounting: %s: %s", e.Field, e.Msg)
}
