package importer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Enqueuer hands an import off to the background worker.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, req Request) (jobID string, err error)
}

// Handler serves the import endpoint. Small payloads run inline; anything
// above inlineMaxRows goes to the worker queue when one is wired.
type Handler struct {
	logger        *slog.Logger
	processor     *Processor
	enqueuer      Enqueuer
	validate      *validator.Validate
	inlineMaxRows int
}

func NewHandler(logger *slog.Logger, processor *Processor, enqueuer Enqueuer, inlineMaxRows int) *Handler {
	return &Handler{
		logger:        logger,
		processor:     processor,
		enqueuer:      enqueuer,
		validate:      validator.New(),
		inlineMaxRows: inlineMaxRows,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.runImport)
}

type importRowRequest struct {
	Date              string     `json:"date" validate:"required"`
	Description       string     `json:"description" validate:"required"`
	Amount            float64    `json:"amount" validate:"required,gt=0"`
	Type              string     `json:"type" validate:"required,oneof=INCOME EXPENSE TRANSFER"`
	Category          string     `json:"category"`
	Reference         string     `json:"reference"`
	ExternalID        string     `json:"externalId"`
	BankAccountID     uuid.UUID  `json:"bankAccountId" validate:"required"`
	TransferAccountID *uuid.UUID `json:"transferAccountId"`
	Unselected        bool       `json:"unselected"`
}

type importRequest struct {
	BusinessID      uuid.UUID          `json:"businessId" validate:"required"`
	CheckDuplicates bool               `json:"checkDuplicates"`
	Rows            []importRowRequest `json:"rows" validate:"required,min=1,dive"`
}

type enqueuedResponse struct {
	JobID string `json:"jobId"`
}

func (h *Handler) runImport(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	req, err := body.toRequest()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if h.enqueuer != nil && len(req.Rows) > h.inlineMaxRows {
		jobID, err := h.enqueuer.EnqueueImport(r.Context(), req)
		if err != nil {
			h.logger.Error("enqueue import", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, enqueuedResponse{JobID: jobID})
		return
	}

	res, err := h.processor.Run(r.Context(), req)
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) respondRunError(w http.ResponseWriter, err error) {
	var missing coa.MissingRoleError
	switch {
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Account Role", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.Problem(w, http.StatusServiceUnavailable, "Import Interrupted", "import interrupted before completion")
	default:
		h.logger.Error("import failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (b importRequest) toRequest() (Request, error) {
	req := Request{
		BusinessID: b.BusinessID,
		Rows:       make([]Row, 0, len(b.Rows)),
		Options:    Options{CheckDuplicates: b.CheckDuplicates},
	}
	for _, in := range b.Rows {
		row, err := in.toRow()
		if err != nil {
			return Request{}, err
		}
		req.Rows = append(req.Rows, row)
	}
	return req, nil
}

func (in importRowRequest) toRow() (Row, error) {
	date, err := time.Parse(dateLayout, in.Date)
	if err != nil {
		return Row{}, errors.New("row date must be formatted YYYY-MM-DD")
	}
	return Row{
		RawTransaction: ledger.RawTransaction{
			Date:              date,
			Description:       in.Description,
			Amount:            in.Amount,
			Type:              ledger.TransactionType(in.Type),
			Category:          in.Category,
			Reference:         in.Reference,
			ExternalID:        in.ExternalID,
			BankAccountID:     in.BankAccountID,
			TransferAccountID: in.TransferAccountID,
		},
		Unselected: in.Unselected,
	}, nil
}
