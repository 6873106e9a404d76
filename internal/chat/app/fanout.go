package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/textcircle/backend/internal/chat/domain"
	"github.com/textcircle/backend/internal/platform/messagebroker"
	"github.com/textcircle/backend/internal/smsprovider"
)

// maxParallelSends bounds the per-message fanout concurrency.
const maxParallelSends = 8

// Dispatcher records an accepted message and fans it out to every other
// member of the group. Persistence happens-before any send; per-recipient
// delivery is best-effort and a failed send never rolls the message back.
type Dispatcher struct {
	messages    domain.MessageRepository
	memberships domain.MembershipRepository
	groups      domain.GroupRepository
	users       domain.UserRepository
	sender      smsprovider.Adapter
	events      messagebroker.NATSClient // optional, may be nil
	sharedNum   string
	logger      *slog.Logger
}

// NewDispatcher creates a new Dispatcher. events may be nil when no broker is
// configured.
func NewDispatcher(
	messages domain.MessageRepository,
	memberships domain.MembershipRepository,
	groups domain.GroupRepository,
	users domain.UserRepository,
	sender smsprovider.Adapter,
	events messagebroker.NATSClient,
	sharedNumber string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		messages:    messages,
		memberships: memberships,
		groups:      groups,
		users:       users,
		sender:      sender,
		events:      events,
		sharedNum:   sharedNumber,
		logger:      logger.With("component", "dispatcher"),
	}
}

// Deliver persists the message and sends one text per remaining member. The
// returned message is durably recorded even when some sends fail.
func (d *Dispatcher) Deliver(ctx context.Context, groupID, senderID uuid.UUID, body string) (*domain.Message, error) {
	group, err := d.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sender, err := d.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	isMember, err := d.memberships.IsMember(ctx, groupID, senderID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !isMember {
		return nil, domain.ErrNotAMember
	}

	msg := domain.NewMessage(uuid.New(), groupID, senderID, body)
	if err := d.messages.Create(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "Failed to persist message", "error", err, "group_id", groupID, "sender_id", senderID)
		return nil, fmt.Errorf("persist message: %w", err)
	}
	msg.SenderName = sender.Name
	messagesAcceptedTotal.Inc()

	d.fanOut(ctx, group, sender, body)
	d.publishAccepted(ctx, msg)

	return msg, nil
}

// fanOut texts every member except the sender. Sends run in parallel; each
// failure is logged and counted, never returned.
func (d *Dispatcher) fanOut(ctx context.Context, group *domain.Group, sender *domain.User, body string) {
	members, err := d.memberships.ListMembers(ctx, group.ID)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to list members for fanout", "error", err, "group_id", group.ID)
		return
	}

	from := d.fromNumber(group)
	text := fmt.Sprintf("%s: %s", sender.Name, body)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSends)
	for _, member := range members {
		if member.ID == sender.ID {
			continue
		}
		member := member
		g.Go(func() error {
			if _, err := d.sender.Send(gctx, smsprovider.SendRequest{
				To:      member.PhoneNumber,
				From:    from,
				Content: text,
			}); err != nil {
				fanoutSendsTotal.WithLabelValues("failed").Inc()
				d.logger.WarnContext(gctx, "Fanout send failed",
					"error", err, "group_id", group.ID, "recipient", member.PhoneNumber)
				return nil
			}
			fanoutSendsTotal.WithLabelValues("delivered").Inc()
			return nil
		})
	}
	_ = g.Wait()
}

// SendWelcome texts the joining user, and only the joining user, from the
// number the group is reached on.
func (d *Dispatcher) SendWelcome(ctx context.Context, group *domain.Group, user *domain.User) error {
	text := fmt.Sprintf("Welcome to %s! Reply to this number to send a message.", group.Name)
	_, err := d.sender.Send(ctx, smsprovider.SendRequest{
		To:      user.PhoneNumber,
		From:    d.fromNumber(group),
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	return nil
}

func (d *Dispatcher) fromNumber(group *domain.Group) string {
	if group.DedicatedNumber != "" {
		return group.DedicatedNumber
	}
	return d.sharedNum
}

func (d *Dispatcher) publishAccepted(ctx context.Context, msg *domain.Message) {
	if d.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"message_id": msg.ID.String(),
		"group_id":   msg.GroupID.String(),
		"sender_id":  msg.SenderUserID.String(),
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to marshal message accepted event", "error", err, "message_id", msg.ID)
		return
	}
	if err := d.events.Publish(ctx, "chat.message.accepted", payload); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish message accepted event", "error", err, "message_id", msg.ID)
	}
}
