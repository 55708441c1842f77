package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// BalanceInvalidator drops cached balances after a transaction is removed.
type BalanceInvalidator interface {
	InvalidateBusiness(ctx context.Context, businessID uuid.UUID)
}

type Handler struct {
	logger   *slog.Logger
	repo     Repository
	balances BalanceInvalidator
}

func NewHandler(logger *slog.Logger, repo Repository, balances BalanceInvalidator) *Handler {
	return &Handler{logger: logger, repo: repo, balances: balances}
}

// MountRoutes attaches transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{transactionID}", h.get)
	r.Delete("/{transactionID}", h.delete)
}

type postingResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	Debit     float64   `json:"debit"`
	Credit    float64   `json:"credit"`
}

type transactionResponse struct {
	ID            uuid.UUID         `json:"id"`
	BusinessID    uuid.UUID         `json:"businessId"`
	BankAccountID *uuid.UUID        `json:"bankAccountId,omitempty"`
	Type          TransactionType   `json:"type"`
	Amount        float64           `json:"amount"`
	Date          string            `json:"date"`
	Description   string            `json:"description"`
	Reference     string            `json:"reference,omitempty"`
	ExternalID    string            `json:"externalId,omitempty"`
	ReconStatus   string            `json:"reconStatus"`
	CreatedAt     time.Time         `json:"createdAt"`
	Postings      []postingResponse `json:"postings"`
}

func toTransactionResponse(t Transaction) transactionResponse {
	out := transactionResponse{
		ID:            t.ID,
		BusinessID:    t.BusinessID,
		BankAccountID: t.BankAccountID,
		Type:          t.Type,
		Amount:        t.Amount,
		Date:          t.Date.Format("2006-01-02"),
		Description:   t.Description,
		Reference:     t.Reference,
		ExternalID:    t.ExternalID,
		ReconStatus:   string(t.ReconStatus),
		CreatedAt:     t.CreatedAt,
		Postings:      make([]postingResponse, 0, len(t.Postings)),
	}
	for _, p := range t.Postings {
		out.Postings = append(out.Postings, postingResponse{
			ID: p.ID, AccountID: p.AccountID, Debit: p.Debit, Credit: p.Credit,
		})
	}
	return out
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transactionID must be a UUID")
		return
	}
	t, err := h.repo.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transactionID must be a UUID")
		return
	}
	// Loaded first so the owning business is known for cache invalidation.
	t, err := h.repo.GetTransaction(r.Context(), id)
	if err == nil {
		err = h.repo.DeleteTransaction(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("delete transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.balances != nil {
		h.balances.InvalidateBusiness(r.Context(), t.BusinessID)
	}
	h.logger.Info("deleted transaction",
		slog.String("transaction_id", id.String()),
		slog.String("business_id", t.BusinessID.String()))
	w.WriteHeader(http.StatusNoContent)
}
