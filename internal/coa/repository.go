package coa

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]Account, error)
	Get(ctx context.Context, id uuid.UUID) (Account, error)
	Create(ctx context.Context, acc Account) (Account, error)
	UpdateType(ctx context.Context, id uuid.UUID, newType AccountType) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	HasPostings(ctx context.Context, accountID uuid.UUID) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, business_id, code, name, type, parent_id, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.BusinessID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE business_id=$1 ORDER BY code ASC`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, acc Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (id, business_id, code, name, type, parent_id, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`,
		acc.ID, acc.BusinessID, acc.Code, acc.Name, acc.Type, acc.ParentID, acc.IsActive)
	if err := row.Scan(&acc.CreatedAt, &acc.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_business_code" {
			return Account{}, ErrCodeTaken
		}
		return Account{}, err
	}
	return acc, nil
}

func (r *repository) UpdateType(ctx context.Context, id uuid.UUID, newType AccountType) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET type=$2, updated_at=NOW() WHERE id=$1`, id, newType)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *repository) HasPostings(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM postings WHERE account_id=$1)`, accountID).Scan(&exists)
	return exists, err
}
