package coa

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testChart() []Account {
	mk := func(code, name string, t AccountType, active bool) Account {
		return Account{ID: uuid.New(), BusinessID: uuid.Nil, Code: code, Name: name, Type: t, IsActive: active}
	}
	return []Account{
		mk("1000", "Business Checking", AccountTypeAsset, true),
		mk("1100", "Accounts Receivable", AccountTypeAsset, true),
		mk("2000", "Credit Card Payable", AccountTypeLiability, true),
		mk("4000", "Sales Revenue", AccountTypeIncome, true),
		mk("4900", "Other Income", AccountTypeIncome, true),
		mk("5000", "Cost of Goods Sold", AccountTypeExpense, true),
		mk("6000", "Salaries and Wages", AccountTypeExpense, true),
		mk("6100", "Rent Expense", AccountTypeExpense, true),
		mk("6150", "Old Rent", AccountTypeExpense, false),
		mk("6200", "Utilities", AccountTypeExpense, true),
		mk("6900", "Miscellaneous Expense", AccountTypeExpense, true),
	}
}

func testResolver(t *testing.T) *HeuristicResolver {
	t.Helper()
	chart := testChart()
	return NewHeuristicResolver(chart, BuildRoles(chart))
}

func TestResolveExactNameIsCaseInsensitive(t *testing.T) {
	r := testResolver(t)
	acc, err := r.Resolve("rent expense", AccountTypeExpense)
	require.NoError(t, err)
	require.Equal(t, "6100", acc.Code)
}

func TestResolveByLeadingCode(t *testing.T) {
	r := testResolver(t)
	acc, err := r.Resolve("6200 power bill", AccountTypeExpense)
	require.NoError(t, err)
	require.Equal(t, "6200", acc.Code)
}

func TestResolveByKeywords(t *testing.T) {
	r := testResolver(t)
	acc, err := r.Resolve("monthly office rent payment", AccountTypeExpense)
	require.NoError(t, err)
	require.Equal(t, "6100", acc.Code)

	acc, err = r.Resolve("staff salaries march", AccountTypeExpense)
	require.NoError(t, err)
	require.Equal(t, "6000", acc.Code)
}

func TestResolveFallsBackToRoleAccount(t *testing.T) {
	r := testResolver(t)

	acc, err := r.Resolve("quantum flux capacitors", AccountTypeExpense)
	require.NoError(t, err)
	require.Equal(t, "6900", acc.Code)

	acc, err = r.Resolve("mystery deposit", AccountTypeIncome)
	require.NoError(t, err)
	require.Equal(t, "4900", acc.Code)
}

func TestResolveEmptyCategoryUsesFallback(t *testing.T) {
	r := testResolver(t)
	acc, err := r.Resolve("", AccountTypeExpense)
	require.NoError(t, err)
	require.Equal(t, "6900", acc.Code)
}

func TestResolveWithoutFallbackFails(t *testing.T) {
	chart := []Account{
		{ID: uuid.New(), Code: "1000", Name: "Cash", Type: AccountTypeAsset, IsActive: true},
		{ID: uuid.New(), Code: "6100", Name: "Rent Expense", Type: AccountTypeExpense, IsActive: true},
	}
	r := NewHeuristicResolver(chart, Roles{})
	_, err := r.Resolve("quantum flux capacitors", AccountTypeExpense)
	require.ErrorIs(t, err, ErrUnresolvedCategory)
}

func TestResolveSkipsInactiveAccounts(t *testing.T) {
	r := testResolver(t)
	acc, err := r.Resolve("Old Rent", AccountTypeExpense)
	require.NoError(t, err)
	// The inactive 6150 is never matched; keyword scoring lands on 6100.
	require.Equal(t, "6100", acc.Code)
}

func TestResolveIsDeterministic(t *testing.T) {
	r := testResolver(t)
	first, err := r.Resolve("utilities and misc", AccountTypeExpense)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Resolve("utilities and misc", AccountTypeExpense)
		require.NoError(t, err)
		require.Equal(t, first.ID, again.ID)
	}
}
