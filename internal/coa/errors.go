package coa

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("coa: account not found")
	// ErrCodeTaken indicates the account code is already used within the business.
	ErrCodeTaken = errors.New("coa: account code already in use")
	// ErrTypeImmutable indicates a type change on an account that has postings.
	ErrTypeImmutable = errors.New("coa: account type cannot change once postings exist")
	// ErrAccountReferenced indicates a delete attempt on a referenced account.
	ErrAccountReferenced = errors.New("coa: account is referenced by postings")
	// ErrUnresolvedCategory indicates no account, including the fallback, matched a category.
	ErrUnresolvedCategory = errors.New("coa: category could not be resolved to an account")
)

// MissingRoleError reports which well-known account role is absent from the
// business's chart of accounts. It is a precondition failure: nothing may be
// imported until the chart is fixed.
type MissingRoleError struct {
	Role Role
}

func (e MissingRoleError) Error() string {
	return fmt.Sprintf("coa: missing required account role %q", e.Role)
}
