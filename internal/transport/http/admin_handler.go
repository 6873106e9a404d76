package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	poolapp "github.com/textcircle/backend/internal/numberpool/app"
	numberdomain "github.com/textcircle/backend/internal/numberpool/domain"
)

// AdminHandler exposes the phone number pool inventory surface.
type AdminHandler struct {
	pool     *poolapp.PoolService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(pool *poolapp.PoolService, logger *slog.Logger, validate *validator.Validate) *AdminHandler {
	return &AdminHandler{
		pool:     pool,
		logger:   logger.With("handler", "admin"),
		validate: validate,
	}
}

// RegisterRoutes registers pool administration routes with the given router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/numbers", h.handleRegister)
	r.Get("/numbers", h.handleList)
	r.Get("/numbers/{number_id}", h.handleGet)
	r.Delete("/numbers/{number_id}", h.handleRemove)
	r.Post("/numbers/{number_id}/disable", h.handleDisable)
	r.Post("/numbers/{number_id}/enable", h.handleEnable)
	r.Post("/numbers/{number_id}/release", h.handleRelease)
}

func (h *AdminHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.StructCtx(r.Context(), req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	pn, err := h.pool.Register(r.Context(), req.Number)
	if err != nil {
		if errors.Is(err, numberdomain.ErrDuplicateNumber) {
			respondError(w, http.StatusConflict, "Number already in the pool")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to register number", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to register number")
		return
	}

	respondJSON(w, http.StatusCreated, toPoolNumberResponse(pn))
}

func (h *AdminHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		numbers []*numberdomain.PhoneNumber
		err     error
	)
	if r.URL.Query().Get("status") == string(numberdomain.StatusAvailable) {
		numbers, err = h.pool.ListAvailable(r.Context())
	} else {
		numbers, err = h.pool.List(r.Context())
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list pool numbers", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list numbers")
		return
	}

	out := make([]PoolNumberResponse, 0, len(numbers))
	for _, pn := range numbers {
		out = append(out, toPoolNumberResponse(pn))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.numberID(w, r)
	if !ok {
		return
	}
	pn, err := h.pool.Get(r.Context(), id)
	if err != nil {
		h.respondPoolError(w, r, err, "Failed to load number")
		return
	}
	respondJSON(w, http.StatusOK, toPoolNumberResponse(pn))
}

func (h *AdminHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.numberID(w, r)
	if !ok {
		return
	}
	if err := h.pool.Remove(r.Context(), id); err != nil {
		h.respondPoolError(w, r, err, "Failed to remove number")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleDisable(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.pool.Disable, "Failed to disable number")
}

func (h *AdminHandler) handleEnable(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.pool.Enable, "Failed to enable number")
}

func (h *AdminHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	id, ok := h.numberID(w, r)
	if !ok {
		return
	}
	if err := h.pool.Release(r.Context(), id); err != nil {
		if errors.Is(err, numberdomain.ErrNotAssigned) {
			respondError(w, http.StatusConflict, "Number is not assigned")
			return
		}
		h.respondPoolError(w, r, err, "Failed to release number")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Number released"})
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error, fallback string) {
	id, ok := h.numberID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		h.respondPoolError(w, r, err, fallback)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

func (h *AdminHandler) numberID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "number_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid number id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *AdminHandler) respondPoolError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, numberdomain.ErrNotFound):
		respondError(w, http.StatusNotFound, "Number not found")
	case errors.Is(err, numberdomain.ErrInvalidState):
		respondError(w, http.StatusConflict, "Number is in the wrong state for this operation")
	default:
		h.logger.ErrorContext(r.Context(), fallback, "error", err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

func toPoolNumberResponse(pn *numberdomain.PhoneNumber) PoolNumberResponse {
	out := PoolNumberResponse{
		ID:        pn.ID,
		Number:    pn.Number,
		Status:    string(pn.Status),
		CreatedAt: pn.CreatedAt,
	}
	if pn.AssignedGroupID.Valid {
		id := pn.AssignedGroupID.UUID
		out.AssignedGroupID = &id
	}
	return out
}
