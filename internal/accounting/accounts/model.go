package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Nature states whether debits or credits increase the account balance.
type Nature string

const (
	NatureDebit  Nature = "DEBIT"
	NatureCredit Nature = "CREDIT"
)

// NatureOf derives the balance nature from the account type.
func NatureOf(t AccountType) Nature {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// TypeFromCode classifies an account by its hierarchical code prefix:
// 1 asset, 2 liability, 3 equity, 4 revenue, 5 expense.
func TypeFromCode(code string) (AccountType, bool) {
	if code == "" {
		return "", false
	}
	switch code[0] {
	case '1':
		return AccountTypeAsset, true
	case '2':
		return AccountTypeLiability, true
	case '3':
		return AccountTypeEquity, true
	case '4':
		return AccountTypeRevenue, true
	case '5':
		return AccountTypeExpense, true
	}
	return "", false
}

// Account models a chart of accounts node. Classification is fixed at
// creation time; reports never infer it from the account name.
type Account struct {
	ID             int64
	Code           string
	Name           string
	Type           AccountType
	Nature         Nature
	ParentID       *int64
	IsGroup        bool
	CashEquivalent bool
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
