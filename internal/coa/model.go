package coa

import (
	"time"

	"github.com/google/uuid"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type is one of the five categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Code is unique per business and
// orders accounts; inactive accounts are excluded from new postings but kept
// for historical balance queries.
type Account struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Code       string
	Name       string
	Type       AccountType
	ParentID   *uuid.UUID
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
