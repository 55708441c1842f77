// Package balances computes account balances from postings, applies the
// double-entry sign conventions and reconciles calculated figures against
// bank-reported ones.
package balances

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/ledgerline/internal/bank"
	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// AccountBalance is one account's position, optionally as of a date.
type AccountBalance struct {
	AccountID uuid.UUID       `json:"accountId"`
	Type      coa.AccountType `json:"type"`
	Debit     float64         `json:"debit"`
	Credit    float64         `json:"credit"`
	// Balance carries the natural sign for the account type: a healthy
	// asset and a healthy liability both read positive.
	Balance float64    `json:"balance"`
	AsOf    *time.Time `json:"asOf,omitempty"`
}

// BankBalance pairs the authoritative figure for a bank account with the
// ledger-derived one.
type BankBalance struct {
	BankAccountID uuid.UUID          `json:"bankAccountId"`
	Source        bank.BalanceSource `json:"source"`
	// Balance is the authoritative figure: the feed-reported balance for
	// synced accounts, the calculated one otherwise.
	Balance      float64    `json:"balance"`
	Calculated   float64    `json:"calculated"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Reconciliation compares a bank-reported balance against the ledger.
type Reconciliation struct {
	BankAccountID     uuid.UUID `json:"bankAccountId"`
	ExternalBalance   float64   `json:"externalBalance"`
	CalculatedBalance float64   `json:"calculatedBalance"`
	// Difference is external minus calculated.
	Difference      float64  `json:"difference"`
	IsReconciled    bool     `json:"isReconciled"`
	PossibleReasons []string `json:"possibleReasons,omitempty"`
}

// LedgerSource reads posting sums.
type LedgerSource interface {
	SumPostings(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (debit, credit float64, err error)
}

// AccountSource reads chart-of-accounts entries.
type AccountSource interface {
	Get(ctx context.Context, id uuid.UUID) (coa.Account, error)
}

// BankSource reads and updates bank accounts.
type BankSource interface {
	Get(ctx context.Context, id uuid.UUID) (bank.BankAccount, error)
	UpdateSyncedBalance(ctx context.Context, id uuid.UUID, balance float64, syncedAt time.Time) error
}

// Service computes and reconciles balances. Concurrent requests for the
// same account share one computation via singleflight.
type Service struct {
	logger   *slog.Logger
	ledger   LedgerSource
	accounts AccountSource
	banks    BankSource
	cache    *Cache
	group    singleflight.Group
}

func NewService(logger *slog.Logger, ledgerSrc LedgerSource, accounts AccountSource, banks BankSource, cache *Cache) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, ledger: ledgerSrc, accounts: accounts, banks: banks, cache: cache}
}

// AccountBalance sums the account's postings and applies the sign
// convention for its type. A nil asOf means the current balance.
func (s *Service) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (AccountBalance, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return AccountBalance{}, err
	}
	if cached, ok := s.cache.GetAccount(ctx, account.BusinessID, accountID, asOf); ok {
		return cached, nil
	}

	key := accountID.String()
	if asOf != nil {
		key += "@" + asOf.UTC().Format("2006-01-02")
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		debit, credit, err := s.ledger.SumPostings(ctx, accountID, asOf)
		if err != nil {
			return nil, err
		}
		b := AccountBalance{
			AccountID: accountID,
			Type:      account.Type,
			Debit:     shared.RoundCents(debit),
			Credit:    shared.RoundCents(credit),
			Balance:   shared.RoundCents(ledger.BalanceDelta(account.Type, debit, credit)),
			AsOf:      asOf,
		}
		s.cache.SetAccount(ctx, account.BusinessID, b)
		return b, nil
	})
	if err != nil {
		return AccountBalance{}, err
	}
	return v.(AccountBalance), nil
}

// BankBalance returns the figure callers should display. For externally
// synced accounts the feed-reported balance wins; the calculated one rides
// along for comparison.
func (s *Service) BankBalance(ctx context.Context, bankAccountID uuid.UUID) (BankBalance, error) {
	ba, err := s.banks.Get(ctx, bankAccountID)
	if err != nil {
		return BankBalance{}, err
	}
	calc, err := s.AccountBalance(ctx, ba.AccountID, nil)
	if err != nil {
		return BankBalance{}, err
	}
	out := BankBalance{
		BankAccountID: ba.ID,
		Source:        ba.BalanceSource,
		Balance:       calc.Balance,
		Calculated:    calc.Balance,
		LastSyncedAt:  ba.LastSyncedAt,
	}
	if ba.Synced() && ba.ExternalBalance != nil {
		out.Balance = *ba.ExternalBalance
	}
	return out, nil
}

// ErrNoExternalBalance indicates a reconcile attempt before any feed sync
// reported a balance for the account.
var ErrNoExternalBalance = errors.New("balances: no externally reported balance recorded")

// Reconcile compares the stored feed-reported balance against the
// calculated one. Balances within a cent of each other count as reconciled.
func (s *Service) Reconcile(ctx context.Context, bankAccountID uuid.UUID) (Reconciliation, error) {
	ba, err := s.banks.Get(ctx, bankAccountID)
	if err != nil {
		return Reconciliation{}, err
	}
	if ba.ExternalBalance == nil {
		return Reconciliation{}, ErrNoExternalBalance
	}
	externalBalance := *ba.ExternalBalance
	calc, err := s.AccountBalance(ctx, ba.AccountID, nil)
	if err != nil {
		return Reconciliation{}, err
	}
	rec := Reconciliation{
		BankAccountID:     bankAccountID,
		ExternalBalance:   externalBalance,
		CalculatedBalance: calc.Balance,
		Difference:        shared.RoundCents(externalBalance - calc.Balance),
		IsReconciled:      shared.WithinTolerance(externalBalance, calc.Balance),
	}
	if !rec.IsReconciled {
		rec.PossibleReasons = reconcileReasons(rec.Difference)
	}
	return rec, nil
}

// RecordSyncedBalance stores a feed-reported balance and drops cached
// figures for the business.
func (s *Service) RecordSyncedBalance(ctx context.Context, bankAccountID uuid.UUID, balance float64, syncedAt time.Time) error {
	ba, err := s.banks.Get(ctx, bankAccountID)
	if err != nil {
		return err
	}
	if err := s.banks.UpdateSyncedBalance(ctx, bankAccountID, balance, syncedAt); err != nil {
		return err
	}
	s.cache.InvalidateBusiness(ctx, ba.BusinessID)
	s.logger.Info("recorded synced balance",
		slog.String("bank_account_id", bankAccountID.String()),
		slog.Float64("balance", balance))
	return nil
}

func reconcileReasons(difference float64) []string {
	if difference > 0 {
		return []string{
			"deposits or interest recorded by the bank but not yet in the ledger",
			"transactions still pending import",
		}
	}
	return []string{
		"payments or fees recorded by the bank but not yet in the ledger",
		"transactions imported more than once",
	}
}
