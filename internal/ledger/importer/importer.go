// Package importer turns lists of raw transactions into persisted ledger
// entries: bounded atomic batches, retry on transient failure, row-level
// error reporting. A bad row or a bad batch never aborts the whole run.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/bank"
	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/dedup"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Row is one input record. Unselected rows were filtered out by the caller
// (deselected in the import preview) and count as skipped.
type Row struct {
	ledger.RawTransaction
	Unselected bool
}

// Options tune one import run. Zero values fall back to the processor's
// defaults.
type Options struct {
	// BatchSize bounds how many transactions share one atomic write.
	BatchSize int
	// MaxRetries bounds transient-failure retries per batch.
	MaxRetries int
	// RetryBackoff is the initial delay between retries; it doubles each time.
	RetryBackoff time.Duration
	// BatchTimeout bounds each batch write attempt.
	BatchTimeout time.Duration
	// CheckDuplicates runs each row through the duplicate detector before
	// posting. Used on the bank-feed path; bulk imports accept rows directly.
	CheckDuplicates bool
	// Progress, when set, is invoked after every batch with the number of
	// input rows consumed so far. Purely advisory.
	Progress func(processed, total int)
}

// DefaultOptions are the stock import tuning values.
func DefaultOptions() Options {
	return Options{
		BatchSize:    20,
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

func (o Options) merged(defaults Options) Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaults.BatchSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaults.MaxRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaults.RetryBackoff
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = defaults.BatchTimeout
	}
	if !o.CheckDuplicates {
		o.CheckDuplicates = defaults.CheckDuplicates
	}
	if o.Progress == nil {
		o.Progress = defaults.Progress
	}
	return o
}

// RowError reports one failed row. Row is the 1-based position in the input
// list; callers importing files with a header row offset it themselves.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ReviewItem surfaces a duplicate or possible match for manual review. The
// row was excluded from the write, not silently imported or discarded.
type ReviewItem struct {
	Row                   int           `json:"row"`
	Verdict               dedup.Verdict `json:"verdict"`
	Confidence            float64       `json:"confidence"`
	ExistingTransactionID uuid.UUID     `json:"existingTransactionId"`
}

// Result summarises an import run. ImportedCount + FailedCount +
// SkippedCount equals the number of input rows for a run that was not
// cancelled. TransactionIDs follow input order modulo skipped and failed
// rows.
type Result struct {
	Success        bool        `json:"success"`
	ImportedCount  int         `json:"importedCount"`
	FailedCount    int         `json:"failedCount"`
	SkippedCount   int         `json:"skippedCount"`
	TransactionIDs []uuid.UUID `json:"transactionIds"`
	Errors         []RowError  `json:"errors"`
	Review         []ReviewItem `json:"review,omitempty"`
}

// Request is one import job.
type Request struct {
	BusinessID uuid.UUID
	Rows       []Row
	Options    Options
}

// RolesSource binds the well-known account roles for a business.
type RolesSource interface {
	RolesFor(ctx context.Context, businessID uuid.UUID) (coa.Roles, []coa.Account, error)
}

// BankSource looks up bank accounts referenced by rows.
type BankSource interface {
	Get(ctx context.Context, id uuid.UUID) (bank.BankAccount, error)
}

// DuplicateChecker scores a candidate row against the existing ledger.
type DuplicateChecker interface {
	Check(ctx context.Context, candidate ledger.RawTransaction) (dedup.Result, error)
}

// BalanceInvalidator drops cached balances once new postings land.
type BalanceInvalidator interface {
	InvalidateBusiness(ctx context.Context, businessID uuid.UUID)
}

// ProcessorConfig collects the processor's collaborators.
type ProcessorConfig struct {
	Logger   *slog.Logger
	Ledger   ledger.Repository
	Roles    RolesSource
	Banks    BankSource
	Detector DuplicateChecker
	Balances BalanceInvalidator
	Metrics  *observability.Metrics
	Defaults Options
}

// Processor runs import jobs. Batches within one run are sequential; they
// share the category-resolution cache and each write must stay atomic.
// Independent runs are isolated by business id and may overlap.
type Processor struct {
	logger   *slog.Logger
	ledger   ledger.Repository
	roles    RolesSource
	banks    BankSource
	detector DuplicateChecker
	balances BalanceInvalidator
	metrics  *observability.Metrics
	defaults Options
}

// NewProcessor constructs a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults := cfg.Defaults.merged(DefaultOptions())
	return &Processor{
		logger:   logger,
		ledger:   cfg.Ledger,
		roles:    cfg.Roles,
		banks:    cfg.Banks,
		detector: cfg.Detector,
		balances: cfg.Balances,
		metrics:  cfg.Metrics,
		defaults: defaults,
	}
}

// Run processes all rows. A missing mandatory account role is a
// precondition failure returned as an error before any write. Cancellation
// stops issuing new batches, lets the in-flight batch finish and returns
// the partial result alongside ctx.Err().
func (p *Processor) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	opts := req.Options.merged(p.defaults)
	total := len(req.Rows)
	var res Result

	roles, accounts, err := p.roles.RolesFor(ctx, req.BusinessID)
	if err != nil {
		return Result{}, err
	}
	if err := roles.Validate(); err != nil {
		return Result{}, err
	}

	run := &importRun{
		processor:  p,
		opts:       opts,
		resolver:   coa.NewHeuristicResolver(accounts, roles),
		byID:       make(map[uuid.UUID]*coa.Account, len(accounts)),
		bankLedger: make(map[uuid.UUID]*coa.Account),
		resolved:   make(map[string]*coa.Account),
	}
	for i := range accounts {
		run.byID[accounts[i].ID] = &accounts[i]
	}

	for start := 0; start < total; start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			p.finish(&res, started)
			if res.ImportedCount > 0 && p.balances != nil {
				// Cached balances are stale even for a partial import.
				p.balances.InvalidateBusiness(context.WithoutCancel(ctx), req.BusinessID)
			}
			return res, err
		}
		end := min(start+opts.BatchSize, total)
		run.processBatch(ctx, req, &res, start, req.Rows[start:end])
		if opts.Progress != nil {
			opts.Progress(end, total)
		}
	}

	p.finish(&res, started)
	if res.ImportedCount > 0 && p.balances != nil {
		p.balances.InvalidateBusiness(ctx, req.BusinessID)
	}
	p.logger.Info("import finished",
		slog.String("business_id", req.BusinessID.String()),
		slog.Int("imported", res.ImportedCount),
		slog.Int("failed", res.FailedCount),
		slog.Int("skipped", res.SkippedCount),
		slog.Duration("elapsed", time.Since(started)))
	return res, nil
}

func (p *Processor) finish(res *Result, started time.Time) {
	res.Success = res.FailedCount == 0
	p.metrics.ObserveImport(res.ImportedCount, res.FailedCount, res.SkippedCount, time.Since(started))
}

type importRun struct {
	processor *Processor
	opts      Options
	resolver  coa.CategoryResolver
	byID      map[uuid.UUID]*coa.Account
	// bankLedger caches bank account id → chart account for the run.
	bankLedger map[uuid.UUID]*coa.Account
	// resolved caches category resolution per (type, category) for the run.
	resolved map[string]*coa.Account
}

func (r *importRun) processBatch(ctx context.Context, req Request, res *Result, offset int, rows []Row) {
	p := r.processor

	var writes []ledger.TransactionInput
	var writeRows []int

	fail := func(rowNum int, err error) {
		res.FailedCount++
		res.Errors = append(res.Errors, RowError{Row: rowNum, Message: err.Error()})
	}

	for i, row := range rows {
		rowNum := offset + i + 1
		if row.Unselected {
			res.SkippedCount++
			continue
		}
		if err := row.Validate(); err != nil {
			fail(rowNum, err)
			continue
		}
		accounts, err := r.postingAccounts(ctx, row.RawTransaction)
		if err != nil {
			fail(rowNum, err)
			continue
		}
		if r.opts.CheckDuplicates && p.detector != nil {
			check, err := p.detector.Check(ctx, row.RawTransaction)
			if err != nil {
				// Cannot prove the row is new; fail it rather than risk a
				// double posting.
				fail(rowNum, fmt.Errorf("duplicate check: %w", err))
				continue
			}
			if check.Verdict != dedup.VerdictNone {
				res.SkippedCount++
				res.Review = append(res.Review, ReviewItem{
					Row:                   rowNum,
					Verdict:               check.Verdict,
					Confidence:            check.Best.Confidence,
					ExistingTransactionID: check.Best.Transaction.ID,
				})
				continue
			}
		}
		lines, err := ledger.BuildPostings(row.RawTransaction, accounts)
		if err != nil {
			fail(rowNum, err)
			continue
		}
		bankAccountID := row.BankAccountID
		writes = append(writes, ledger.TransactionInput{
			ID:            uuid.New(),
			BusinessID:    req.BusinessID,
			BankAccountID: &bankAccountID,
			Type:          row.Type,
			Amount:        row.Amount,
			Date:          row.Date,
			Description:   row.Description,
			Reference:     row.Reference,
			ExternalID:    row.ExternalID,
			Postings:      lines,
		})
		writeRows = append(writeRows, rowNum)
	}

	if len(writes) == 0 {
		return
	}
	if err := p.writeBatch(ctx, r.opts, writes); err != nil {
		p.logger.Warn("batch write failed",
			slog.Int("rows", len(writes)),
			slog.Any("error", err))
		for _, rowNum := range writeRows {
			fail(rowNum, err)
		}
		return
	}
	for _, w := range writes {
		res.TransactionIDs = append(res.TransactionIDs, w.ID)
	}
	res.ImportedCount += len(writes)
}

// postingAccounts resolves the concrete accounts one row posts against.
func (r *importRun) postingAccounts(ctx context.Context, raw ledger.RawTransaction) (ledger.PostingAccounts, error) {
	bankLedger, err := r.bankLedgerAccount(ctx, raw.BankAccountID)
	if err != nil {
		return ledger.PostingAccounts{}, err
	}
	out := ledger.PostingAccounts{BankLedger: bankLedger}

	switch raw.Type {
	case ledger.TransactionTypeIncome:
		out.Category, err = r.resolveCategory(raw.Category, coa.AccountTypeIncome)
	case ledger.TransactionTypeExpense:
		out.Category, err = r.resolveCategory(raw.Category, coa.AccountTypeExpense)
	case ledger.TransactionTypeTransfer:
		if raw.TransferAccountID == nil {
			return ledger.PostingAccounts{}, ledger.MissingAccountError{Kind: "transfer destination"}
		}
		dest, ok := r.byID[*raw.TransferAccountID]
		if !ok {
			return ledger.PostingAccounts{}, ledger.MissingAccountError{Kind: "transfer destination"}
		}
		out.TransferTo = dest
	}
	if err != nil {
		return ledger.PostingAccounts{}, err
	}
	return out, nil
}

func (r *importRun) bankLedgerAccount(ctx context.Context, bankAccountID uuid.UUID) (*coa.Account, error) {
	if acc, ok := r.bankLedger[bankAccountID]; ok {
		return acc, nil
	}
	ba, err := r.processor.banks.Get(ctx, bankAccountID)
	if err != nil {
		return nil, err
	}
	acc, ok := r.byID[ba.AccountID]
	if !ok {
		return nil, fmt.Errorf("%w: bank account %s is not linked to the chart of accounts",
			ledger.ErrMissingAccount, bankAccountID)
	}
	r.bankLedger[bankAccountID] = acc
	return acc, nil
}

func (r *importRun) resolveCategory(category string, want coa.AccountType) (*coa.Account, error) {
	key := string(want) + ":" + strings.ToLower(strings.TrimSpace(category))
	if acc, ok := r.resolved[key]; ok {
		return acc, nil
	}
	acc, err := r.resolver.Resolve(category, want)
	if err != nil {
		return nil, err
	}
	r.resolved[key] = acc
	return acc, nil
}

// writeBatch persists one batch atomically, retrying transient failures
// with doubling backoff.
func (p *Processor) writeBatch(ctx context.Context, opts Options, writes []ledger.TransactionInput) error {
	backoff := opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := p.tryWrite(ctx, opts, writes)
		if err == nil {
			return nil
		}
		if !db.IsTransient(err) || attempt >= opts.MaxRetries {
			return err
		}
		p.metrics.ObserveBatchRetry()
		p.logger.Warn("transient batch failure, retrying",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (p *Processor) tryWrite(ctx context.Context, opts Options, writes []ledger.TransactionInput) error {
	if opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.BatchTimeout)
		defer cancel()
	}
	return p.ledger.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		for _, w := range writes {
			// The factory already balanced these lines; an unbalanced set
			// here is a bug and must abort before anything persists.
			if err := ledger.ValidatePostings(w.Postings); err != nil {
				return err
			}
			if err := tx.InsertTransaction(ctx, w); err != nil {
				return err
			}
			if err := tx.InsertPostings(ctx, w.ID, w.Postings); err != nil {
				return err
			}
		}
		return nil
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
