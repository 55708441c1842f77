package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAccount indicates a required account was not resolved.
	ErrMissingAccount = errors.New("ledger: required account missing")
	// ErrUnbalancedPostings indicates debits != credits. The posting templates
	// make this unreachable; hitting it is a bug, not bad input.
	ErrUnbalancedPostings = errors.New("ledger: postings must balance")
	// ErrInvalidTransferAccount indicates a transfer leg against an income or
	// expense account.
	ErrInvalidTransferAccount = errors.New("ledger: transfer legs must be asset or liability accounts")
	// ErrTransactionNotFound indicates a missing transaction.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrInvalidRow indicates a raw transaction failed validation.
	ErrInvalidRow = errors.New("ledger: invalid transaction row")
	// ErrExternalIDConflict indicates a feed-sourced external id was already
	// imported for the same bank account.
	ErrExternalIDConflict = errors.New("ledger: external id already imported")
)

// MissingAccountError names which account kind was absent when building
// postings. It unwraps to ErrMissingAccount.
type MissingAccountError struct {
	Kind string
}

func (e MissingAccountError) Error() string {
	return fmt.Sprintf("ledger: required account missing: %s", e.Kind)
}

func (e MissingAccountError) Unwrap() error { return ErrMissingAccount }
