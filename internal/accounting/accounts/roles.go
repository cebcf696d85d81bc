package accounts

import (
	"fmt"
	"sort"
)

// Role identifies a ledger account by logical function rather than by
// user-chosen code. Every posting path resolves accounts through roles so
// the chart can be rebuilt on an empty database.
type Role string

const (
	RoleCash                   Role = "CASH"
	RoleCustomers              Role = "CUSTOMERS"
	RoleSuppliers              Role = "SUPPLIERS"
	RoleInventoryRawMaterials  Role = "INVENTORY_RAW_MATERIALS"
	RoleInventoryFinishedGoods Role = "INVENTORY_FINISHED_GOODS"
	RoleVATOutput              Role = "VAT_OUTPUT"
	RoleVATInput               Role = "VAT_INPUT"
	RoleSalesRevenue           Role = "SALES_REVENUE"
	RoleSalesDiscount          Role = "SALES_DISCOUNT"
	RoleOtherRevenue           Role = "OTHER_REVENUE"
	RoleCOGS                   Role = "COGS"
	RoleInventoryAdjustments   Role = "INVENTORY_ADJUSTMENTS"
	RoleSalariesExpense        Role = "SALARIES_EXPENSE"
	RoleEmployeeBonuses        Role = "EMPLOYEE_BONUSES"
	RoleEmployeeDeductions     Role = "EMPLOYEE_DEDUCTIONS"
	RoleEmployeeAdvances       Role = "EMPLOYEE_ADVANCES"
	RoleBankCharges            Role = "BANK_CHARGES"
	RoleBankInterestIncome     Role = "BANK_INTEREST_INCOME"
	RoleRetainedEarnings       Role = "RETAINED_EARNINGS"
)

// RoleSpec prescribes the fixed code and classification for a role account.
type RoleSpec struct {
	Code           string
	Name           string
	Type           AccountType
	CashEquivalent bool
}

var roleTable = map[Role]RoleSpec{
	RoleCash:                   {Code: "1231", Name: "Cash on Hand", Type: AccountTypeAsset, CashEquivalent: true},
	RoleCustomers:              {Code: "10201", Name: "Accounts Receivable", Type: AccountTypeAsset},
	RoleSuppliers:              {Code: "201", Name: "Accounts Payable", Type: AccountTypeLiability},
	RoleInventoryRawMaterials:  {Code: "1211", Name: "Raw Materials Inventory", Type: AccountTypeAsset},
	RoleInventoryFinishedGoods: {Code: "1213", Name: "Finished Goods Inventory", Type: AccountTypeAsset},
	RoleVATOutput:              {Code: "2231", Name: "VAT Output", Type: AccountTypeLiability},
	RoleVATInput:               {Code: "1241", Name: "VAT Input", Type: AccountTypeAsset},
	RoleSalesRevenue:           {Code: "411", Name: "Sales Revenue", Type: AccountTypeRevenue},
	RoleSalesDiscount:          {Code: "413", Name: "Sales Discounts", Type: AccountTypeRevenue},
	RoleOtherRevenue:           {Code: "421", Name: "Other Revenue", Type: AccountTypeRevenue},
	RoleCOGS:                   {Code: "511", Name: "Cost of Goods Sold", Type: AccountTypeExpense},
	RoleInventoryAdjustments:   {Code: "512", Name: "Inventory Adjustments", Type: AccountTypeExpense},
	RoleSalariesExpense:        {Code: "531", Name: "Salaries and Wages", Type: AccountTypeExpense},
	RoleEmployeeBonuses:        {Code: "5312", Name: "Employee Bonuses", Type: AccountTypeExpense},
	RoleEmployeeDeductions:     {Code: "422", Name: "Employee Deductions Income", Type: AccountTypeRevenue},
	RoleEmployeeAdvances:       {Code: "1223", Name: "Employee Advances", Type: AccountTypeAsset},
	RoleBankCharges:            {Code: "534", Name: "Bank Charges", Type: AccountTypeExpense},
	RoleBankInterestIncome:     {Code: "423", Name: "Bank Interest Income", Type: AccountTypeRevenue},
	RoleRetainedEarnings:       {Code: "32", Name: "Retained Earnings", Type: AccountTypeEquity},
}

// Spec returns the fixed code and classification for a role.
func (r Role) Spec() (RoleSpec, bool) {
	spec, ok := roleTable[r]
	return spec, ok
}

// AllRoles lists every role in deterministic order, used by the
// EnsureSystemAccounts bootstrap.
func AllRoles() []Role {
	roles := make([]Role, 0, len(roleTable))
	for role := range roleTable {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// rootGroups are the top level chart groups role accounts hang from.
var rootGroups = map[string]string{
	"1": "Assets",
	"2": "Liabilities",
	"3": "Equity",
	"4": "Revenue",
	"5": "Expenses",
}

// ConfigurationError reports system accounts that are missing from the
// chart and were not auto-created. Callers may run EnsureAll with the
// listed roles and retry the original operation.
type ConfigurationError struct {
	Roles []Role
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("accounts: missing system accounts for roles %v", e.Roles)
}
