package coa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRolesFromCodes(t *testing.T) {
	roles := BuildRoles(testChart())

	require.NotNil(t, roles.Cash)
	require.Equal(t, "1000", roles.Cash.Code)
	require.NotNil(t, roles.AccountsReceivable)
	require.Equal(t, "1100", roles.AccountsReceivable.Code)
	require.NotNil(t, roles.SalesRevenue)
	require.Equal(t, "4000", roles.SalesRevenue.Code)
	require.NotNil(t, roles.OtherIncome)
	require.Equal(t, "4900", roles.OtherIncome.Code)
	require.NotNil(t, roles.Rent)
	require.Equal(t, "6100", roles.Rent.Code)
	require.NotNil(t, roles.MiscellaneousExpense)
	require.Equal(t, "6900", roles.MiscellaneousExpense.Code)
	require.NotNil(t, roles.CreditCardsPayable)
	require.Equal(t, "2000", roles.CreditCardsPayable.Code)
	require.Nil(t, roles.LoansPayable)

	require.NoError(t, roles.Validate())
}

func TestBuildRolesByNameWhenCodesDiffer(t *testing.T) {
	chart := []Account{
		{Code: "300", Name: "Main Cash Account", Type: AccountTypeAsset, IsActive: true},
		{Code: "800", Name: "Misc Spending", Type: AccountTypeExpense, IsActive: true},
		{Code: "900", Name: "Other Income", Type: AccountTypeIncome, IsActive: true},
	}
	roles := BuildRoles(chart)
	require.NotNil(t, roles.Cash)
	require.Equal(t, "300", roles.Cash.Code)
	require.NotNil(t, roles.MiscellaneousExpense)
	require.NotNil(t, roles.OtherIncome)
	require.NoError(t, roles.Validate())
}

func TestRolesValidateReportsMissingRole(t *testing.T) {
	var roles Roles
	err := roles.Validate()
	var missing MissingRoleError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, RoleCash, missing.Role)

	chart := testChart()
	roles = BuildRoles(chart)
	roles.Cash = nil
	err = roles.Validate()
	require.ErrorAs(t, err, &missing)
	require.Equal(t, RoleCash, missing.Role)

	roles = BuildRoles(chart)
	roles.OtherIncome = nil
	roles.SalesRevenue = nil
	err = roles.Validate()
	require.ErrorAs(t, err, &missing)
	require.Equal(t, RoleOtherIncome, missing.Role)
}

func TestIncomeFallbackPrefersOtherIncome(t *testing.T) {
	roles := BuildRoles(testChart())
	require.Equal(t, "4900", roles.IncomeFallback().Code)

	roles.OtherIncome = nil
	require.Equal(t, "4000", roles.IncomeFallback().Code)
}
