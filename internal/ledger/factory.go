package ledger

import (
	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// PostingAccounts are the concrete accounts a single transaction posts
// against, resolved by the caller before the factory runs. The factory never
// invents accounts and performs no I/O.
type PostingAccounts struct {
	// BankLedger is the chart-of-accounts representation of the bank account
	// the money moved through.
	BankLedger *coa.Account
	// Category is the income or expense account resolved for the row.
	// Unused for transfers.
	Category *coa.Account
	// TransferTo is the destination account for transfers.
	TransferTo *coa.Account
}

// BuildPostings turns one raw transaction into a balanced set of journal
// lines, or a typed failure when a required account is absent. Templates:
//
//	INCOME:   debit bank, credit income category
//	EXPENSE:  debit expense category, credit bank
//	TRANSFER: debit destination, credit source (both asset/liability)
func BuildPostings(raw RawTransaction, accounts PostingAccounts) ([]PostingInput, error) {
	if accounts.BankLedger == nil {
		return nil, MissingAccountError{Kind: "cash"}
	}
	amount := shared.RoundCents(raw.Amount)

	var lines []PostingInput
	switch raw.Type {
	case TransactionTypeIncome:
		if accounts.Category == nil {
			return nil, MissingAccountError{Kind: "income category"}
		}
		lines = []PostingInput{
			{AccountID: accounts.BankLedger.ID, Debit: amount},
			{AccountID: accounts.Category.ID, Credit: amount},
		}
	case TransactionTypeExpense:
		if accounts.Category == nil {
			return nil, MissingAccountError{Kind: "expense category"}
		}
		lines = []PostingInput{
			{AccountID: accounts.Category.ID, Debit: amount},
			{AccountID: accounts.BankLedger.ID, Credit: amount},
		}
	case TransactionTypeTransfer:
		if accounts.TransferTo == nil {
			return nil, MissingAccountError{Kind: "transfer destination"}
		}
		if !transferable(accounts.BankLedger.Type) || !transferable(accounts.TransferTo.Type) {
			return nil, ErrInvalidTransferAccount
		}
		lines = []PostingInput{
			{AccountID: accounts.TransferTo.ID, Debit: amount},
			{AccountID: accounts.BankLedger.ID, Credit: amount},
		}
	default:
		return nil, ErrInvalidRow
	}

	// Unreachable given the templates above; kept so unbalanced books can
	// never be persisted through this path.
	if err := ValidatePostings(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func transferable(t coa.AccountType) bool {
	return t == coa.AccountTypeAsset || t == coa.AccountTypeLiability
}
