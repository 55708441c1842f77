package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/ledger/importer"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLedgerImport is the task type for asynchronous ledger imports.
	TaskTypeLedgerImport = "ledger:import"
)

// ImportPayload carries one queued import job.
type ImportPayload struct {
	BusinessID      uuid.UUID      `json:"businessId"`
	CheckDuplicates bool           `json:"checkDuplicates"`
	Rows            []importer.Row `json:"rows"`
}

// NewImportTask constructs an Asynq task for a ledger import.
func NewImportTask(payload ImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLedgerImport, data), nil
}

// LedgerImportJob processes TaskTypeLedgerImport tasks.
type LedgerImportJob struct {
	processor *importer.Processor
	lock      *shared.ImportLock
	logger    *slog.Logger
}

// NewLedgerImportJob constructs the job. The lock is optional; when set,
// queued imports touching the same bank account run one at a time.
func NewLedgerImportJob(processor *importer.Processor, lock *shared.ImportLock, logger *slog.Logger) *LedgerImportJob {
	return &LedgerImportJob{processor: processor, lock: lock, logger: logger}
}

// Handle runs one queued import. Malformed payloads and chart
// misconfiguration never retry; the processor handles transient database
// failures itself, so a returned error here means the run was interrupted.
func (j *LedgerImportJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	release, err := j.acquireLocks(ctx, payload.Rows)
	if err != nil {
		return err
	}
	defer release()
	res, err := j.processor.Run(ctx, importer.Request{
		BusinessID: payload.BusinessID,
		Rows:       payload.Rows,
		Options:    importer.Options{CheckDuplicates: payload.CheckDuplicates},
	})
	if err != nil {
		var missing coa.MissingRoleError
		if errors.As(err, &missing) {
			j.logger.Error("import rejected, chart misconfigured",
				slog.String("business_id", payload.BusinessID.String()),
				slog.String("role", string(missing.Role)))
			return asynq.SkipRetry
		}
		return err
	}
	j.logger.Info("queued import finished",
		slog.String("business_id", payload.BusinessID.String()),
		slog.Int("imported", res.ImportedCount),
		slog.Int("failed", res.FailedCount),
		slog.Int("skipped", res.SkippedCount))
	return nil
}

// acquireLocks takes the advisory lock for every bank account the payload
// touches. A held lock means another queued import is mid-flight; returning
// an error lets Asynq retry once it finishes.
func (j *LedgerImportJob) acquireLocks(ctx context.Context, rows []importer.Row) (func(), error) {
	var releases []func(context.Context) error
	releaseAll := func() {
		for _, release := range releases {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				j.logger.Warn("release import lock", slog.Any("error", err))
			}
		}
	}
	seen := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if _, ok := seen[row.BankAccountID]; ok {
			continue
		}
		seen[row.BankAccountID] = struct{}{}
		release, acquired, err := j.lock.Acquire(ctx, row.BankAccountID)
		if err != nil {
			releaseAll()
			return nil, err
		}
		if !acquired {
			releaseAll()
			return nil, fmt.Errorf("jobs: import already running for bank account %s", row.BankAccountID)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
