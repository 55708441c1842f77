package bank

import (
	"time"

	"github.com/google/uuid"
)

// BalanceSource says which figure is authoritative for a bank account.
type BalanceSource string

const (
	// BalanceSourceSynced marks accounts whose balance is reported by a live
	// feed connection and treated as authoritative.
	BalanceSourceSynced BalanceSource = "externally-synced"
	// BalanceSourceCalculated marks accounts whose balance is derived purely
	// from postings.
	BalanceSourceCalculated BalanceSource = "locally-calculated"
)

// BankAccount links a real-world bank account to its chart-of-accounts
// representation.
type BankAccount struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	// AccountID is the chart-of-accounts account postings go against.
	AccountID     uuid.UUID
	Name          string
	BalanceSource BalanceSource
	// ExternalBalance and LastSyncedAt are set for externally-synced
	// accounts only.
	ExternalBalance *float64
	LastSyncedAt    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Synced reports whether an external system of record drives this account.
func (b BankAccount) Synced() bool {
	return b.BalanceSource == BalanceSourceSynced
}
