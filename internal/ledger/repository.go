package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// WindowQuery selects candidate transactions for duplicate detection:
// same bank account, a date window and an amount band, same direction.
type WindowQuery struct {
	BankAccountID uuid.UUID
	From          time.Time
	To            time.Time
	MinAmount     float64
	MaxAmount     float64
	Type          TransactionType
}

// Repository encapsulates DB operations for transactions and postings.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Window(ctx context.Context, q WindowQuery) ([]Transaction, error)
	SumPostings(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (debit, credit float64, err error)
	GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
}

// TxRepository exposes methods available within one batch transaction.
type TxRepository interface {
	InsertTransaction(ctx context.Context, in TransactionInput) error
	InsertPostings(ctx context.Context, transactionID uuid.UUID, lines []PostingInput) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const transactionColumns = `id, business_id, bank_account_id, type, amount, date, description, reference, external_id, recon_status, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.BusinessID, &t.BankAccountID, &t.Type, &t.Amount, &t.Date,
		&t.Description, &t.Reference, &t.ExternalID, &t.ReconStatus, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *repository) Window(ctx context.Context, q WindowQuery) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
WHERE bank_account_id=$1 AND type=$2 AND date BETWEEN $3 AND $4 AND amount BETWEEN $5 AND $6
ORDER BY date ASC, id ASC`, q.BankAccountID, q.Type, q.From, q.To, q.MinAmount, q.MaxAmount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) SumPostings(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (float64, float64, error) {
	query := `SELECT COALESCE(SUM(p.debit),0), COALESCE(SUM(p.credit),0)
FROM postings p JOIN transactions t ON t.id = p.transaction_id
WHERE p.account_id=$1`
	args := []any{accountID}
	if asOf != nil {
		query += ` AND t.date <= $2`
		args = append(args, *asOf)
	}
	var debit, credit float64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&debit, &credit); err != nil {
		return 0, 0, err
	}
	return debit, credit, nil
}

func (r *repository) GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, transaction_id, account_id, debit, credit, created_at
FROM postings WHERE transaction_id=$1 ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.AccountID, &p.Debit, &p.Credit, &p.CreatedAt); err != nil {
			return Transaction{}, err
		}
		t.Postings = append(t.Postings, p)
	}
	return t, rows.Err()
}

// DeleteTransaction removes a transaction; postings cascade via FK.
func (r *repository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertTransaction(ctx context.Context, in TransactionInput) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO transactions (id, business_id, bank_account_id, type, amount, date, description, reference, external_id, recon_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),'UNRECONCILED')`,
		in.ID, in.BusinessID, in.BankAccountID, in.Type, in.Amount, in.Date, in.Description, in.Reference, in.ExternalID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_transactions_bank_external" {
			return ErrExternalIDConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertPostings(ctx context.Context, transactionID uuid.UUID, lines []PostingInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO postings (id, transaction_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4,$5)`, uuid.New(), transactionID, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}
