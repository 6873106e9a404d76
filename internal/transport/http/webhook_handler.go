package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/textcircle/backend/internal/chat/app"
	"github.com/textcircle/backend/internal/chat/domain"
	"github.com/textcircle/backend/internal/smsprovider"
)

// WebhookHandler receives inbound SMS callbacks from the provider
// (Twilio-style form fields From, To, Body), routes them, and hands accepted
// messages to the dispatcher. Routing failures answer the sender with a
// clarifying text; the webhook itself always acknowledges with 200 so the
// provider does not retry.
type WebhookHandler struct {
	router     *app.Router
	dispatcher *app.Dispatcher
	groups     *app.GroupService
	sender     smsprovider.Adapter
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(
	router *app.Router,
	dispatcher *app.Dispatcher,
	groups *app.GroupService,
	sender smsprovider.Adapter,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		router:     router,
		dispatcher: dispatcher,
		groups:     groups,
		sender:     sender,
		logger:     logger.With("handler", "webhook"),
	}
}

// RegisterRoutes registers the inbound SMS webhook with the given router.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.HandleInboundSMS)
}

// HandleInboundSMS is the provider callback for a text received on any of our
// numbers.
func (h *WebhookHandler) HandleInboundSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form payload")
		return
	}

	from := r.PostFormValue("From")
	to := r.PostFormValue("To")
	body := r.PostFormValue("Body")
	if from == "" || to == "" || body == "" {
		respondError(w, http.StatusBadRequest, "From, To and Body are required")
		return
	}

	res, err := h.router.Route(ctx, to, from, body)
	if err != nil {
		h.handleRoutingFailure(ctx, w, to, from, err)
		return
	}

	msg, err := h.dispatcher.Deliver(ctx, res.GroupID, res.SenderUserID, res.Body)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to deliver routed message", "error", err, "group_id", res.GroupID)
		respondError(w, http.StatusInternalServerError, "Failed to deliver message")
		return
	}

	groupName := ""
	if g, gerr := h.groups.GetGroup(ctx, res.GroupID); gerr == nil {
		groupName = g.Name
	}
	h.logger.InfoContext(ctx, "Inbound message delivered", "message_id", msg.ID, "group_id", res.GroupID)
	respondJSON(w, http.StatusOK, WebhookResponse{Message: fmt.Sprintf("Message sent to %s group", groupName)})
}

// handleRoutingFailure answers every routable failure with 200 plus a
// human-readable message, and texts the same clarification back to the
// sender. Routing errors are expected traffic, never 5xx.
func (h *WebhookHandler) handleRoutingFailure(ctx context.Context, w http.ResponseWriter, to, from string, err error) {
	var reply string
	switch {
	case errors.Is(err, domain.ErrUnknownSender):
		reply = "User not registered"
	case errors.Is(err, domain.ErrAmbiguousSender):
		reply = `Multiple groups detected. Prefix message with @"Group Name" to specify destination.`
	case errors.Is(err, domain.ErrUnknownGroup):
		reply = "Group not found or you are not a member"
	case errors.Is(err, domain.ErrNotAMember):
		reply = "You are not a member of this group"
	default:
		h.logger.ErrorContext(ctx, "Routing failed", "error", err, "from", from, "to", to)
		respondError(w, http.StatusInternalServerError, "Failed to route message")
		return
	}

	// Unregistered numbers get no reply text; anyone could text the shared
	// number and we will not SMS strangers back.
	if !errors.Is(err, domain.ErrUnknownSender) {
		if _, sendErr := h.sender.Send(ctx, smsprovider.SendRequest{
			To:      from,
			From:    to,
			Content: reply,
		}); sendErr != nil {
			h.logger.WarnContext(ctx, "Failed to send clarifying reply", "error", sendErr, "to", from)
		}
	}

	respondJSON(w, http.StatusOK, WebhookResponse{Message: reply})
}
