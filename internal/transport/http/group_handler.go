package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/textcircle/backend/internal/chat/app"
	"github.com/textcircle/backend/internal/chat/domain"
	"github.com/textcircle/backend/internal/transport/middleware"
)

const defaultHistoryLimit = 50

// GroupHandler exposes group lifecycle, membership and message history.
type GroupHandler struct {
	groups   *app.GroupService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groups *app.GroupService, logger *slog.Logger, validate *validator.Validate) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		logger:   logger.With("handler", "group"),
		validate: validate,
	}
}

// RegisterRoutes registers group routes with the given router. The router is
// expected to already carry AuthMiddleware.
func (h *GroupHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{group_id}", h.handleGet)
	r.Delete("/{group_id}", h.handleDelete)
	r.Post("/{group_id}/join", h.handleJoin)
	r.Post("/{group_id}/leave", h.handleLeave)
	r.Get("/{group_id}/members", h.handleListMembers)
	r.Get("/{group_id}/messages", h.handleListMessages)
	r.Post("/{group_id}/messages", h.handlePostMessage)
}

func (h *GroupHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.StructCtx(r.Context(), req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	g, err := h.groups.CreateGroup(r.Context(), req.Name)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to create group", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create group")
		return
	}

	respondJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (h *GroupHandler) handleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListGroups(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list groups", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list groups")
		return
	}

	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *GroupHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	g, err := h.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		h.respondGroupError(w, r, err, "Failed to load group")
		return
	}
	respondJSON(w, http.StatusOK, toGroupResponse(g))
}

func (h *GroupHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), groupID); err != nil {
		h.respondGroupError(w, r, err, "Failed to delete group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	authUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	err := h.groups.JoinGroup(r.Context(), groupID, authUser.ID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"message": "Joined group"})
	case errors.Is(err, domain.ErrAlreadyMember):
		respondError(w, http.StatusConflict, "Already a member of this group")
	case errors.Is(err, domain.ErrGroupLimitReached):
		respondError(w, http.StatusConflict, "Group limit reached for this user")
	default:
		h.respondGroupError(w, r, err, "Failed to join group")
	}
}

func (h *GroupHandler) handleLeave(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	authUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	err := h.groups.LeaveGroup(r.Context(), groupID, authUser.ID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"message": "Left group"})
	case errors.Is(err, domain.ErrNotAMember):
		respondError(w, http.StatusConflict, "Not a member of this group")
	default:
		h.respondGroupError(w, r, err, "Failed to leave group")
	}
}

func (h *GroupHandler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	members, err := h.groups.ListMembers(r.Context(), groupID)
	if err != nil {
		h.respondGroupError(w, r, err, "Failed to list members")
		return
	}

	out := make([]UserResponse, 0, len(members))
	for _, u := range members {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *GroupHandler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	messages, err := h.groups.ListMessages(r.Context(), groupID, limit)
	if err != nil {
		h.respondGroupError(w, r, err, "Failed to list messages")
		return
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *GroupHandler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	authUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.StructCtx(r.Context(), req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	msg, err := h.groups.PostMessage(r.Context(), groupID, authUser.ID, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrNotAMember) {
			respondError(w, http.StatusForbidden, "Not a member of this group")
			return
		}
		h.respondGroupError(w, r, err, "Failed to post message")
		return
	}

	respondJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *GroupHandler) groupID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "group_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid group id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *GroupHandler) respondGroupError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, domain.ErrGroupNotFound) {
		respondError(w, http.StatusNotFound, "Group not found")
		return
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	h.logger.ErrorContext(r.Context(), fallback, "error", err)
	respondError(w, http.StatusInternalServerError, fallback)
}
