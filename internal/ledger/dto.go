package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// RawTransaction is one record produced by a file parser or feed sync,
// before it becomes a Transaction with postings.
type RawTransaction struct {
	Date        time.Time
	Description string
	Amount      float64
	Type        TransactionType
	Category    string
	Reference   string
	ExternalID  string
	// BankAccountID is the bank account the money moved through.
	BankAccountID uuid.UUID
	// TransferAccountID is the chart-of-accounts id of the other transfer
	// leg. Required for transfers, ignored otherwise.
	TransferAccountID *uuid.UUID
}

// Validate applies row-level data checks.
func (r RawTransaction) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRow)
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive number", ErrInvalidRow)
	}
	if r.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidRow)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidRow, r.Type)
	}
	if r.BankAccountID == uuid.Nil {
		return fmt.Errorf("%w: bank account is required", ErrInvalidRow)
	}
	return nil
}

// PostingInput describes one journal line for insertion.
type PostingInput struct {
	AccountID uuid.UUID
	Debit     float64
	Credit    float64
}

// TransactionInput groups fields required to persist a transaction.
type TransactionInput struct {
	ID            uuid.UUID
	BusinessID    uuid.UUID
	BankAccountID *uuid.UUID
	Type          TransactionType
	Amount        float64
	Date          time.Time
	Description   string
	Reference     string
	ExternalID    string
	Postings      []PostingInput
}

// ValidatePostings enforces the journal line invariants: at least two lines,
// each line exactly one-sided with a non-negative amount, and total debits
// equal to total credits at cent precision.
func ValidatePostings(lines []PostingInput) error {
	if len(lines) < 2 {
		return ErrUnbalancedPostings
	}
	var debit, credit float64
	for idx, line := range lines {
		if line.AccountID == uuid.Nil {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		oneSided := (line.Debit > 0) != (line.Credit > 0)
		if !oneSided {
			return fmt.Errorf("ledger: line %d must be either a debit or a credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if !shared.EqualCents(debit, credit) {
		return ErrUnbalancedPostings
	}
	return nil
}
