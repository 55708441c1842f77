package coa

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

// MountRoutes attaches chart-of-accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{accountID}/type", h.changeType)
	r.Post("/{accountID}/deactivate", h.deactivate)
}

type accountResponse struct {
	ID       uuid.UUID  `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
	IsActive bool       `json:"isActive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(r.URL.Query().Get("business_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "business_id must be a UUID")
		return
	}
	accounts, err := h.service.List(r.Context(), businessID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			ID: a.ID, Code: a.Code, Name: a.Name, Type: string(a.Type), ParentID: a.ParentID, IsActive: a.IsActive,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}

type createAccountRequest struct {
	BusinessID uuid.UUID  `json:"businessId" validate:"required"`
	Code       string     `json:"code" validate:"required,numeric,min=3,max=6"`
	Name       string     `json:"name" validate:"required,min=2"`
	Type       string     `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	ParentID   *uuid.UUID `json:"parentId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acc, err := h.service.Create(r.Context(), Account{
		BusinessID: req.BusinessID,
		Code:       req.Code,
		Name:       req.Name,
		Type:       AccountType(req.Type),
		ParentID:   req.ParentID,
	})
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
			return
		}
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, accountResponse{
		ID: acc.ID, Code: acc.Code, Name: acc.Name, Type: string(acc.Type), ParentID: acc.ParentID, IsActive: acc.IsActive,
	})
}

type changeTypeRequest struct {
	Type string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
}

func (h *Handler) changeType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountID must be a UUID")
		return
	}
	var req changeTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ChangeType(r.Context(), id, AccountType(req.Type)); err != nil {
		switch {
		case errors.Is(err, ErrTypeImmutable):
			httpx.Problem(w, http.StatusConflict, "Type Locked", err.Error())
		case errors.Is(err, ErrAccountNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		default:
			h.logger.Error("change account type", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountID must be a UUID")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("deactivate account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
