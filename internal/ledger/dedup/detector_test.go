package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

type memorySource struct {
	transactions []ledger.Transaction
}

func (s *memorySource) Window(_ context.Context, q ledger.WindowQuery) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range s.transactions {
		if tx.BankAccountID == nil || *tx.BankAccountID != q.BankAccountID {
			continue
		}
		if tx.Type != q.Type {
			continue
		}
		if tx.Date.Before(q.From) || tx.Date.After(q.To) {
			continue
		}
		if tx.Amount < q.MinAmount || tx.Amount > q.MaxAmount {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func existing(bankAccountID uuid.UUID, date time.Time, amount float64) ledger.Transaction {
	return ledger.Transaction{
		ID:            uuid.New(),
		BankAccountID: &bankAccountID,
		Type:          ledger.TransactionTypeExpense,
		Amount:        amount,
		Date:          date,
	}
}

func candidate(bankAccountID uuid.UUID, date time.Time, amount float64) ledger.RawTransaction {
	return ledger.RawTransaction{
		Date:          date,
		Description:   "candidate",
		Amount:        amount,
		Type:          ledger.TransactionTypeExpense,
		BankAccountID: bankAccountID,
	}
}

func TestCheckExactMatchScoresOne(t *testing.T) {
	bank := uuid.New()
	src := &memorySource{transactions: []ledger.Transaction{
		existing(bank, day(2024, 2, 1), 100.00),
	}}
	det := NewDetector(src, DefaultConfig())

	res, err := det.Check(context.Background(), candidate(bank, day(2024, 2, 1), 100.00))
	require.NoError(t, err)
	require.Equal(t, VerdictDuplicate, res.Verdict)
	require.NotNil(t, res.Best)
	require.Equal(t, 1.0, res.Best.Confidence)
}

func TestCheckNearMatchIsPossibleNotDuplicate(t *testing.T) {
	bank := uuid.New()
	src := &memorySource{transactions: []ledger.Transaction{
		existing(bank, day(2024, 2, 1), 100.00),
	}}
	det := NewDetector(src, DefaultConfig())

	// One day off, fifty cents off: amountMatch≈0.995, dateMatch=0.5.
	res, err := det.Check(context.Background(), candidate(bank, day(2024, 2, 2), 99.50))
	require.NoError(t, err)
	require.Equal(t, VerdictPossible, res.Verdict)
	require.InDelta(t, 0.847, res.Best.Confidence, 0.002)
}

func TestCheckWindowBoundaryScoresLow(t *testing.T) {
	bank := uuid.New()
	src := &memorySource{transactions: []ledger.Transaction{
		existing(bank, day(2024, 2, 1), 101.00),
	}}
	det := NewDetector(src, DefaultConfig())

	// Exactly 2 days and 1% off sits at the bottom of the window:
	// amountMatch=0.99, dateMatch=0 → confidence≈0.693.
	res, err := det.Check(context.Background(), candidate(bank, day(2024, 2, 3), 100.00))
	require.NoError(t, err)
	require.Equal(t, VerdictPossible, res.Verdict)
	require.InDelta(t, 0.693, res.Best.Confidence, 0.002)
	require.InDelta(t, 0.0, res.Best.DateMatch, 1e-9)
}

func TestCheckNoCandidates(t *testing.T) {
	bank := uuid.New()
	src := &memorySource{transactions: []ledger.Transaction{
		existing(bank, day(2024, 1, 1), 100.00),         // outside date window
		existing(uuid.New(), day(2024, 2, 1), 100.00),   // different bank account
		{ID: uuid.New(), BankAccountID: &bank, Type: ledger.TransactionTypeIncome, Amount: 100, Date: day(2024, 2, 1)}, // opposite direction
	}}
	det := NewDetector(src, DefaultConfig())

	res, err := det.Check(context.Background(), candidate(bank, day(2024, 2, 1), 100.00))
	require.NoError(t, err)
	require.Equal(t, VerdictNone, res.Verdict)
	require.Nil(t, res.Best)
}

func TestCheckPicksHighestConfidence(t *testing.T) {
	bank := uuid.New()
	far := existing(bank, day(2024, 2, 3), 100.00)
	near := existing(bank, day(2024, 2, 1), 100.00)
	src := &memorySource{transactions: []ledger.Transaction{far, near}}
	det := NewDetector(src, DefaultConfig())

	res, err := det.Check(context.Background(), candidate(bank, day(2024, 2, 1), 100.00))
	require.NoError(t, err)
	require.Equal(t, near.ID, res.Best.Transaction.ID)
	require.Equal(t, VerdictDuplicate, res.Verdict)
}

func TestConfigOverrides(t *testing.T) {
	bank := uuid.New()
	src := &memorySource{transactions: []ledger.Transaction{
		existing(bank, day(2024, 2, 2), 100.00),
	}}
	// A lax threshold turns the same possible match into a duplicate.
	det := NewDetector(src, Config{DuplicateThreshold: 0.5})

	res, err := det.Check(context.Background(), candidate(bank, day(2024, 2, 2), 99.50))
	require.NoError(t, err)
	require.Equal(t, VerdictDuplicate, res.Verdict)
}

func TestConfigZeroValuesFallBackToDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, DefaultConfig(), cfg)
}
