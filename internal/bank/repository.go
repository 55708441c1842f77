package bank

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBankAccountNotFound indicates a missing bank account.
var ErrBankAccountNotFound = errors.New("bank: bank account not found")

// Repository encapsulates DB operations for bank accounts.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (BankAccount, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]BankAccount, error)
	Create(ctx context.Context, acc BankAccount) (BankAccount, error)
	UpdateSyncedBalance(ctx context.Context, id uuid.UUID, balance float64, syncedAt time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, business_id, account_id, name, balance_source, external_balance, last_synced_at, created_at, updated_at`

func scan(row pgx.Row) (BankAccount, error) {
	var b BankAccount
	err := row.Scan(&b.ID, &b.BusinessID, &b.AccountID, &b.Name, &b.BalanceSource,
		&b.ExternalBalance, &b.LastSyncedAt, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (BankAccount, error) {
	b, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM bank_accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrBankAccountNotFound
		}
		return BankAccount{}, err
	}
	return b, nil
}

func (r *repository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]BankAccount, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM bank_accounts WHERE business_id=$1 ORDER BY name ASC`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankAccount
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, acc BankAccount) (BankAccount, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO bank_accounts (id, business_id, account_id, name, balance_source)
VALUES ($1,$2,$3,$4,$5) RETURNING created_at, updated_at`,
		acc.ID, acc.BusinessID, acc.AccountID, acc.Name, acc.BalanceSource)
	if err := row.Scan(&acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return BankAccount{}, err
	}
	return acc, nil
}

func (r *repository) UpdateSyncedBalance(ctx context.Context, id uuid.UUID, balance float64, syncedAt time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_accounts SET external_balance=$2, last_synced_at=$3, updated_at=NOW() WHERE id=$1`,
		id, balance, syncedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}
