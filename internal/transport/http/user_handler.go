package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/textcircle/backend/internal/chat/app"
	"github.com/textcircle/backend/internal/chat/domain"
	"github.com/textcircle/backend/internal/transport/middleware"
)

// UserHandler exposes the user registry: the caller's own record plus lookup
// by id and by phone number.
type UserHandler struct {
	users  *app.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *app.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With("handler", "user"),
	}
}

// RegisterRoutes registers user routes with the given router. The router is
// expected to already carry AuthMiddleware.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/me", h.handleMe)
	r.Get("/{user_id}", h.handleGet)
	r.Get("/phone/{phone}", h.handleGetByPhone)
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list users", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleMe returns the caller's own user record.
func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.respondUser(w, r, func() (*domain.User, error) {
		return h.users.Get(r.Context(), authUser.ID)
	})
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	h.respondUser(w, r, func() (*domain.User, error) {
		return h.users.Get(r.Context(), id)
	})
}

func (h *UserHandler) handleGetByPhone(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if phone == "" {
		respondError(w, http.StatusBadRequest, "Invalid phone number")
		return
	}
	h.respondUser(w, r, func() (*domain.User, error) {
		return h.users.GetByPhone(r.Context(), phone)
	})
}

func (h *UserHandler) respondUser(w http.ResponseWriter, r *http.Request, load func() (*domain.User, error)) {
	u, err := load()
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to load user", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}
