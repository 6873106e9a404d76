package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/textcircle/backend/internal/chat/domain"
	numberdomain "github.com/textcircle/backend/internal/numberpool/domain"
)

// RouteResult is a successful routing decision: the group the inbound text
// belongs to, the sender it is attributed to, and the body with any
// addressing prefix stripped.
type RouteResult struct {
	GroupID      uuid.UUID
	SenderUserID uuid.UUID
	Body         string
}

// Router resolves which group an inbound SMS belongs to. It holds no state of
// its own; correctness depends on the current pool and membership state, so
// membership is re-validated even after a syntactically valid match.
type Router struct {
	numbers     numberdomain.PhoneNumberRepository
	users       domain.UserRepository
	memberships domain.MembershipRepository
	logger      *slog.Logger
}

// NewRouter creates a new Router.
func NewRouter(
	numbers numberdomain.PhoneNumberRepository,
	users domain.UserRepository,
	memberships domain.MembershipRepository,
	logger *slog.Logger,
) *Router {
	return &Router{
		numbers:     numbers,
		users:       users,
		memberships: memberships,
		logger:      logger.With("component", "router"),
	}
}

// Route decides the target group for a text sent from `from` to the service
// number `to`.
//
// A dedicated (ASSIGNED) receiving number pins the group unconditionally and
// the body passes through verbatim; no prefix parsing happens on that path.
// Any other receiving number is treated as the shared number: a leading
// @"Group Name" or @name prefix selects among the sender's own groups,
// otherwise the message routes only if the sender has exactly one group.
func (r *Router) Route(ctx context.Context, to, from, rawText string) (*RouteResult, error) {
	sender, err := r.users.GetByPhone(ctx, from)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			routeResultsTotal.WithLabelValues("unknown_sender").Inc()
			r.logger.InfoContext(ctx, "Inbound text from unregistered number", "from", from)
			return nil, domain.ErrUnknownSender
		}
		routeResultsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("look up sender: %w", err)
	}

	pn, err := r.numbers.FindByNumber(ctx, to)
	if err != nil {
		routeResultsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("look up receiving number: %w", err)
	}
	if pn != nil && pn.Status == numberdomain.StatusAssigned && pn.AssignedGroupID.Valid {
		return r.routeDedicated(ctx, pn.AssignedGroupID.UUID, sender, rawText)
	}

	return r.routeShared(ctx, sender, rawText)
}

func (r *Router) routeDedicated(ctx context.Context, groupID uuid.UUID, sender *domain.User, rawText string) (*RouteResult, error) {
	ok, err := r.memberships.IsMember(ctx, groupID, sender.ID)
	if err != nil {
		routeResultsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		routeResultsTotal.WithLabelValues("not_a_member").Inc()
		r.logger.InfoContext(ctx, "Non-member texted a dedicated number",
			"group_id", groupID, "sender_id", sender.ID)
		return nil, domain.ErrNotAMember
	}

	routeResultsTotal.WithLabelValues("dedicated").Inc()
	return &RouteResult{GroupID: groupID, SenderUserID: sender.ID, Body: rawText}, nil
}

func (r *Router) routeShared(ctx context.Context, sender *domain.User, rawText string) (*RouteResult, error) {
	candidates, err := r.memberships.ListGroupsForUser(ctx, sender.ID)
	if err != nil {
		routeResultsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list sender groups: %w", err)
	}

	if name, body, ok := parseGroupPrefix(rawText); ok {
		// Exact, case-insensitive match scoped to the sender's own
		// memberships, so a group cannot be reached by guessing its name.
		for _, g := range candidates {
			if strings.EqualFold(g.Name, name) {
				routeResultsTotal.WithLabelValues("prefixed").Inc()
				return &RouteResult{GroupID: g.ID, SenderUserID: sender.ID, Body: body}, nil
			}
		}
		routeResultsTotal.WithLabelValues("unknown_group").Inc()
		r.logger.InfoContext(ctx, "Prefix named no group of the sender", "prefix", name, "sender_id", sender.ID)
		return nil, domain.ErrUnknownGroup
	}

	switch len(candidates) {
	case 1:
		routeResultsTotal.WithLabelValues("single_group").Inc()
		return &RouteResult{GroupID: candidates[0].ID, SenderUserID: sender.ID, Body: rawText}, nil
	case 0:
		routeResultsTotal.WithLabelValues("unknown_group").Inc()
		return nil, domain.ErrUnknownGroup
	default:
		// Never guess between candidates; the caller asks the sender to
		// specify a group.
		routeResultsTotal.WithLabelValues("ambiguous").Inc()
		return nil, domain.ErrAmbiguousSender
	}
}

// parseGroupPrefix extracts a leading @"Group Name" or @name addressing
// prefix. The quoted form allows spaces in the name; the bare form takes the
// token up to the first whitespace. Returns ok=false when no prefix is
// present, in which case the text is the body as-is.
func parseGroupPrefix(text string) (name, body string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "@") {
		return "", text, false
	}
	rest := trimmed[1:]

	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return "", text, false // unterminated quote, not a prefix
		}
		name = rest[1 : 1+end]
		body = strings.TrimSpace(rest[2+end:])
	} else {
		fields := strings.SplitN(rest, " ", 2)
		name = strings.TrimSpace(fields[0])
		if len(fields) == 2 {
			body = strings.TrimSpace(fields[1])
		}
	}
	if name == "" {
		return "", text, false
	}
	return name, body, true
}
