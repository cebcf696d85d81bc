package reconcile

import (
	"errors"
	"math"
	"time"

	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// CandidateLine is a posted journal line on a cash-equivalent account that
// no saved reconciliation has claimed yet.
type CandidateLine struct {
	LineID      int64
	EntryID     int64
	Date        time.Time
	Reference   string
	Description string
	Debit       float64
	Credit      float64
}

// Worksheet is what the user reconciles against a statement.
type Worksheet struct {
	AccountID      int64
	AccountCode    string
	AccountName    string
	OpeningBalance float64
	Lines          []CandidateLine
}

// Summary is the computed result for a cleared subset.
type Summary struct {
	OpeningBalance    float64
	TotalDeposits     float64
	TotalPayments     float64
	CalculatedBalance float64
	StatementBalance  float64
	Difference        float64
	Balanced          bool
}

// Record is a saved reconciliation snapshot. Its line ids are permanently
// excluded from later worksheets for the same account.
type Record struct {
	ID               int64
	AccountID        int64
	StatementDate    time.Time
	StatementBalance float64
	OpeningBalance   float64
	TotalDeposits    float64
	TotalPayments    float64
	Difference       float64
	Status           string
	Notes            string
	LineIDs          []int64
	CreatedBy        int64
	CreatedAt        time.Time
}

const (
	StatusBalanced   = "BALANCED"
	StatusUnbalanced = "UNBALANCED"
)

// Compute derives the summary: opening + cleared deposits - cleared payments
// against the statement balance.
func Compute(opening, statementBalance float64, cleared []CandidateLine) Summary {
	var deposits, payments float64
	for _, line := range cleared {
		deposits += line.Debit
		payments += line.Credit
	}
	calculated := opening + deposits - payments
	diff := statementBalance - calculated
	return Summary{
		OpeningBalance:    opening,
		TotalDeposits:     deposits,
		TotalPayments:     payments,
		CalculatedBalance: calculated,
		StatementBalance:  statementBalance,
		Difference:        diff,
		Balanced:          math.Abs(diff) <= acctshared.BalanceTolerance,
	}
}

var (
	// ErrNotCashAccount indicates the account is not reconcilable.
	ErrNotCashAccount = errors.New("reconcile: account is not cash-equivalent")
	// ErrLineAlreadyReconciled indicates a cleared line was claimed by an
	// earlier snapshot.
	ErrLineAlreadyReconciled = errors.New("reconcile: line already reconciled")
	// ErrNoLinesSelected indicates an empty cleared subset.
	ErrNoLinesSelected = errors.New("reconcile: no lines selected")
	// ErrRecordNotFound indicates a missing snapshot.
	ErrRecordNotFound = errors.New("reconcile: record not found")
)
