package coa

import "strings"

// Role names a well-known slot in the chart of accounts.
type Role string

const (
	RoleCash                 Role = "cash"
	RoleAccountsReceivable   Role = "accounts-receivable"
	RoleSalesRevenue         Role = "sales-revenue"
	RoleOtherIncome          Role = "other-income"
	RoleCostOfGoodsSold      Role = "cost-of-goods-sold"
	RoleSalaries             Role = "salaries"
	RoleRent                 Role = "rent"
	RoleUtilities            Role = "utilities"
	RoleMiscellaneousExpense Role = "miscellaneous-expense"
	RoleCreditCardsPayable   Role = "credit-cards-payable"
	RoleLoansPayable         Role = "loans-payable"
)

// Roles is the resolved set of well-known accounts for one business,
// constructed once before an import starts. Every slot is a named, typed
// field so a missing role is a validation failure up front rather than a
// map lookup miss halfway through a batch.
type Roles struct {
	Cash                 *Account
	AccountsReceivable   *Account
	SalesRevenue         *Account
	OtherIncome          *Account
	CostOfGoodsSold      *Account
	Salaries             *Account
	Rent                 *Account
	Utilities            *Account
	MiscellaneousExpense *Account
	CreditCardsPayable   *Account
	LoansPayable         *Account
}

// Validate checks the mandatory subset: a cash account, at least one income
// account and at least one expense account. Anything less means the business
// is misconfigured and no import may run.
func (r Roles) Validate() error {
	if r.Cash == nil {
		return MissingRoleError{Role: RoleCash}
	}
	if r.IncomeFallback() == nil {
		return MissingRoleError{Role: RoleOtherIncome}
	}
	if r.ExpenseFallback() == nil {
		return MissingRoleError{Role: RoleMiscellaneousExpense}
	}
	return nil
}

// IncomeFallback returns the account used when an income category cannot be
// resolved.
func (r Roles) IncomeFallback() *Account {
	if r.OtherIncome != nil {
		return r.OtherIncome
	}
	return r.SalesRevenue
}

// ExpenseFallback returns the account used when an expense category cannot
// be resolved.
func (r Roles) ExpenseFallback() *Account {
	return r.MiscellaneousExpense
}

// Code ranges follow the conventional small-business numbering: 1000s cash
// and receivables, 2000s payables, 4000s income, 5000s+ expenses.
var roleCodePrefixes = map[Role][]string{
	RoleCash:                 {"100", "101"},
	RoleAccountsReceivable:   {"11"},
	RoleSalesRevenue:         {"40"},
	RoleOtherIncome:          {"49"},
	RoleCostOfGoodsSold:      {"50"},
	RoleSalaries:             {"60"},
	RoleRent:                 {"61"},
	RoleUtilities:            {"62"},
	RoleMiscellaneousExpense: {"69"},
	RoleCreditCardsPayable:   {"20"},
	RoleLoansPayable:         {"21"},
}

var roleNameKeywords = map[Role][]string{
	RoleCash:                 {"cash", "checking", "bank"},
	RoleAccountsReceivable:   {"receivable"},
	RoleSalesRevenue:         {"sales", "revenue"},
	RoleOtherIncome:          {"other income"},
	RoleCostOfGoodsSold:      {"cost of goods", "cogs"},
	RoleSalaries:             {"salaries", "wages", "payroll"},
	RoleRent:                 {"rent"},
	RoleUtilities:            {"utilities"},
	RoleMiscellaneousExpense: {"miscellaneous", "misc"},
	RoleCreditCardsPayable:   {"credit card"},
	RoleLoansPayable:         {"loan"},
}

var roleTypes = map[Role]AccountType{
	RoleCash:                 AccountTypeAsset,
	RoleAccountsReceivable:   AccountTypeAsset,
	RoleSalesRevenue:         AccountTypeIncome,
	RoleOtherIncome:          AccountTypeIncome,
	RoleCostOfGoodsSold:      AccountTypeExpense,
	RoleSalaries:             AccountTypeExpense,
	RoleRent:                 AccountTypeExpense,
	RoleUtilities:            AccountTypeExpense,
	RoleMiscellaneousExpense: AccountTypeExpense,
	RoleCreditCardsPayable:   AccountTypeLiability,
	RoleLoansPayable:         AccountTypeLiability,
}

// BuildRoles scans a business's active accounts and fills each role slot,
// preferring code-range matches over name-keyword matches. Accounts must be
// sorted by code; the first match wins, which keeps the mapping stable for
// a given chart.
func BuildRoles(accounts []Account) Roles {
	var roles Roles
	slots := map[Role]**Account{
		RoleCash:                 &roles.Cash,
		RoleAccountsReceivable:   &roles.AccountsReceivable,
		RoleSalesRevenue:         &roles.SalesRevenue,
		RoleOtherIncome:          &roles.OtherIncome,
		RoleCostOfGoodsSold:      &roles.CostOfGoodsSold,
		RoleSalaries:             &roles.Salaries,
		RoleRent:                 &roles.Rent,
		RoleUtilities:            &roles.Utilities,
		RoleMiscellaneousExpense: &roles.MiscellaneousExpense,
		RoleCreditCardsPayable:   &roles.CreditCardsPayable,
		RoleLoansPayable:         &roles.LoansPayable,
	}

	match := func(role Role, byCode bool) *Account {
		for i := range accounts {
			acc := &accounts[i]
			if !acc.IsActive || acc.Type != roleTypes[role] {
				continue
			}
			if byCode {
				for _, prefix := range roleCodePrefixes[role] {
					if strings.HasPrefix(acc.Code, prefix) {
						return acc
					}
				}
				continue
			}
			name := strings.ToLower(acc.Name)
			for _, kw := range roleNameKeywords[role] {
				if strings.Contains(name, kw) {
					return acc
				}
			}
		}
		return nil
	}

	for role, slot := range slots {
		if acc := match(role, true); acc != nil {
			*slot = acc
			continue
		}
		*slot = match(role, false)
	}
	return roles
}
