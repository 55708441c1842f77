package balances

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/bank"
	"github.com/ledgerline/ledgerline/internal/coa"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches balance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{accountID}", h.accountBalance)
	r.Get("/bank-accounts/{bankAccountID}", h.bankBalance)
	r.Post("/bank-accounts/{bankAccountID}/reconcile", h.reconcile)
	r.Post("/bank-accounts/{bankAccountID}/synced-balance", h.recordSyncedBalance)
}

func (h *Handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountID must be a UUID")
		return
	}
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be formatted YYYY-MM-DD")
			return
		}
		asOf = &parsed
	}
	balance, err := h.service.AccountBalance(r.Context(), id, asOf)
	if err != nil {
		if errors.Is(err, coa.ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("account balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) bankBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bankAccountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bankAccountID must be a UUID")
		return
	}
	balance, err := h.service.BankBalance(r.Context(), id)
	if err != nil {
		if errors.Is(err, bank.ErrBankAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("bank balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bankAccountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bankAccountID must be a UUID")
		return
	}
	rec, err := h.service.Reconcile(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, bank.ErrBankAccountNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrNoExternalBalance):
			httpx.Problem(w, http.StatusConflict, "No Synced Balance", err.Error())
		default:
			h.logger.Error("reconcile", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

type syncedBalanceRequest struct {
	Balance  float64   `json:"balance"`
	SyncedAt time.Time `json:"syncedAt" validate:"required"`
}

func (h *Handler) recordSyncedBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bankAccountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bankAccountID must be a UUID")
		return
	}
	var req syncedBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.RecordSyncedBalance(r.Context(), id, req.Balance, req.SyncedAt); err != nil {
		if errors.Is(err, bank.ErrBankAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("record synced balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
