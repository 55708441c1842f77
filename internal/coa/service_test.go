package coa

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryAccounts struct {
	accounts map[uuid.UUID]Account
	postings map[uuid.UUID]bool
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{
		accounts: map[uuid.UUID]Account{},
		postings: map[uuid.UUID]bool{},
	}
}

func (m *memoryAccounts) ListByBusiness(_ context.Context, businessID uuid.UUID) ([]Account, error) {
	var out []Account
	for _, acc := range m.accounts {
		if acc.BusinessID == businessID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *memoryAccounts) Get(_ context.Context, id uuid.UUID) (Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (m *memoryAccounts) Create(_ context.Context, acc Account) (Account, error) {
	for _, existing := range m.accounts {
		if existing.BusinessID == acc.BusinessID && existing.Code == acc.Code {
			return Account{}, ErrCodeTaken
		}
	}
	m.accounts[acc.ID] = acc
	return acc, nil
}

func (m *memoryAccounts) UpdateType(_ context.Context, id uuid.UUID, newType AccountType) error {
	acc, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acc.Type = newType
	m.accounts[id] = acc
	return nil
}

func (m *memoryAccounts) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	acc, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acc.IsActive = active
	m.accounts[id] = acc
	return nil
}

func (m *memoryAccounts) HasPostings(_ context.Context, accountID uuid.UUID) (bool, error) {
	return m.postings[accountID], nil
}

func (m *memoryAccounts) add(acc Account) Account {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	m.accounts[acc.ID] = acc
	return acc
}

func TestChangeTypeBeforeAnyPostings(t *testing.T) {
	repo := newMemoryAccounts()
	acc := repo.add(Account{BusinessID: uuid.New(), Code: "6900", Name: "Misc Expense", Type: AccountTypeExpense, IsActive: true})
	svc := NewService(repo)

	err := svc.ChangeType(context.Background(), acc.ID, AccountTypeLiability)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, AccountTypeLiability, got.Type)
}

func TestChangeTypeRefusedOncePostingsExist(t *testing.T) {
	repo := newMemoryAccounts()
	acc := repo.add(Account{BusinessID: uuid.New(), Code: "4000", Name: "Sales Revenue", Type: AccountTypeIncome, IsActive: true})
	repo.postings[acc.ID] = true
	svc := NewService(repo)

	err := svc.ChangeType(context.Background(), acc.ID, AccountTypeExpense)
	require.ErrorIs(t, err, ErrTypeImmutable)

	got, err := svc.Get(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, AccountTypeIncome, got.Type, "type must stay put after the refusal")
}

func TestChangeTypeUnknownAccount(t *testing.T) {
	svc := NewService(newMemoryAccounts())
	err := svc.ChangeType(context.Background(), uuid.New(), AccountTypeAsset)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestChangeTypeRouteConflictsWhenPosted(t *testing.T) {
	repo := newMemoryAccounts()
	acc := repo.add(Account{BusinessID: uuid.New(), Code: "1000", Name: "Business Checking", Type: AccountTypeAsset, IsActive: true})
	repo.postings[acc.ID] = true

	r := chi.NewRouter()
	NewHandler(discardLogger(), NewService(repo)).MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/"+acc.ID.String()+"/type", bytes.NewBufferString(`{"type":"EXPENSE"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestChangeTypeRouteSucceedsOnFreshAccount(t *testing.T) {
	repo := newMemoryAccounts()
	acc := repo.add(Account{BusinessID: uuid.New(), Code: "2000", Name: "CC Payable", Type: AccountTypeLiability, IsActive: true})

	r := chi.NewRouter()
	NewHandler(discardLogger(), NewService(repo)).MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/"+acc.ID.String()+"/type", bytes.NewBufferString(`{"type":"EQUITY"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, AccountTypeEquity, repo.accounts[acc.ID].Type)
}
