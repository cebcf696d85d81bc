package reports

import (
	"sort"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
)

// TrialBalanceAccount represents a row inside a trial balance group. Each
// account is netted into a single debit or credit column.
type TrialBalanceAccount struct {
	Code   string
	Name   string
	Type   string
	Debit  float64
	Credit float64
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string
	Accounts []TrialBalanceAccount
	Debit    float64
	Credit   float64
}

// TrialBalance is the final structure rendered by the caller.
type TrialBalance struct {
	AsOf        time.Time
	Groups      []TrialBalanceGroup
	TotalDebit  float64
	TotalCredit float64
}

// Balanced reports whether total debit equals total credit within the
// two-decimal tolerance. For a ledger that only accepts balanced postings
// this holds for any date.
func (tb TrialBalance) Balanced() bool {
	diff := tb.TotalDebit - tb.TotalCredit
	return diff < 0.01 && diff > -0.01
}

// BuildTrialBalance converts aggregated balance rows into grouped trial
// balance data. Per row, debits and credits are netted: a positive net goes
// to the debit column, a negative net to the credit column.
func BuildTrialBalance(asOf time.Time, rows []journals.BalanceRow) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, row := range rows {
		net := row.Debit - row.Credit
		acc := TrialBalanceAccount{
			Code: row.Code,
			Name: row.Name,
			Type: row.Type,
		}
		if net >= 0 {
			acc.Debit = net
		} else {
			acc.Credit = -net
		}
		key := groupKey(row.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Accounts = append(grp.Accounts, acc)
		grp.Debit += acc.Debit
		grp.Credit += acc.Credit
	}

	sort.Strings(keys)
	result := TrialBalance{AsOf: asOf}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
	}
	return result
}

// groupKey buckets accounts by the root digit of the hierarchical code
// (1 assets .. 5 expenses).
func groupKey(code string) string {
	if len(code) >= 1 {
		return code[:1]
	}
	return code
}
