package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/coa"
)

// TransactionType carries the direction of a transaction. Amounts are always
// non-negative magnitudes; direction lives here, never in the sign.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether the type is known.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// ReconciliationStatus tracks whether a transaction has been matched against
// a bank statement.
type ReconciliationStatus string

const (
	ReconStatusUnreconciled ReconciliationStatus = "UNRECONCILED"
	ReconStatusPending      ReconciliationStatus = "PENDING_REVIEW"
	ReconStatusReconciled   ReconciliationStatus = "RECONCILED"
)

// Transaction is one business event. It exclusively owns its postings;
// deleting a transaction cascades them.
type Transaction struct {
	ID            uuid.UUID
	BusinessID    uuid.UUID
	BankAccountID *uuid.UUID
	Type          TransactionType
	Amount        float64
	Date          time.Time
	Description   string
	Reference     string
	ExternalID    string
	ReconStatus   ReconciliationStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Postings      []Posting
}

// Posting is one journal line: a debit or a credit against one account,
// belonging to exactly one transaction.
type Posting struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Debit         float64
	Credit        float64
	CreatedAt     time.Time
}

// BalanceDelta applies the double-entry sign convention: debits increase
// asset and expense accounts, credits increase liability, equity and income
// accounts.
func BalanceDelta(t coa.AccountType, debit, credit float64) float64 {
	switch t {
	case coa.AccountTypeAsset, coa.AccountTypeExpense:
		return debit - credit
	default:
		return credit - debit
	}
}
