package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/textcircle/backend/internal/chat/app"
	"github.com/textcircle/backend/internal/chat/domain"
	otpdomain "github.com/textcircle/backend/internal/otp/domain"
)

// AuthHandler handles phone-based registration and login. Both flows are
// two-step: start issues an OTP to the phone, verify completes the action.
type AuthHandler struct {
	users    *app.UserService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *app.UserService, logger *slog.Logger, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		users:    users,
		logger:   logger.With("handler", "auth"),
		validate: validate,
	}
}

// RegisterRoutes registers authentication routes with the given router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleStartRegistration)
	r.Post("/register/verify", h.handleCompleteRegistration)
	r.Post("/login", h.handleStartLogin)
	r.Post("/login/verify", h.handleCompleteLogin)
}

func (h *AuthHandler) handleStartRegistration(w http.ResponseWriter, r *http.Request) {
	var req StartRegistrationRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.users.StartRegistration(r.Context(), req.PhoneNumber); err != nil {
		if errors.Is(err, domain.ErrDuplicatePhone) {
			respondError(w, http.StatusConflict, "Phone number already registered")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to start registration", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to start registration")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Verification code sent"})
}

func (h *AuthHandler) handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req CompleteRegistrationRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.users.CompleteRegistration(r.Context(), req.Name, req.PhoneNumber, req.Code)
	if err != nil {
		h.respondOtpError(w, r, err, "Registration")
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *AuthHandler) handleStartLogin(w http.ResponseWriter, r *http.Request) {
	var req StartLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.users.StartLogin(r.Context(), req.PhoneNumber); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "No account for this phone number")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to start login", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Verification code sent"})
}

func (h *AuthHandler) handleCompleteLogin(w http.ResponseWriter, r *http.Request) {
	var req CompleteLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, token, err := h.users.CompleteLogin(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "No account for this phone number")
			return
		}
		h.respondOtpError(w, r, err, "Login")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{AccessToken: token, User: toUserResponse(u)})
}

// respondOtpError maps the OTP error taxonomy onto user-facing replies.
func (h *AuthHandler) respondOtpError(w http.ResponseWriter, r *http.Request, err error, flow string) {
	switch {
	case errors.Is(err, otpdomain.ErrCodeExpired):
		respondError(w, http.StatusUnauthorized, "Verification code expired, request a new one")
	case errors.Is(err, otpdomain.ErrCodeConsumed):
		respondError(w, http.StatusUnauthorized, "Verification code already used, request a new one")
	case errors.Is(err, otpdomain.ErrCodeInvalid):
		respondError(w, http.StatusUnauthorized, "Invalid verification code")
	case errors.Is(err, domain.ErrDuplicatePhone):
		respondError(w, http.StatusConflict, "Phone number already registered")
	default:
		h.logger.ErrorContext(r.Context(), "Verification failed", "error", err, "flow", flow)
		respondError(w, http.StatusInternalServerError, flow+" failed")
	}
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.StructCtx(r.Context(), req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}
