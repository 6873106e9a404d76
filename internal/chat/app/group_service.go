package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/textcircle/backend/internal/chat/domain"
	poolapp "github.com/textcircle/backend/internal/numberpool/app"
	numberdomain "github.com/textcircle/backend/internal/numberpool/domain"
)

// GroupService manages group lifecycle and membership. Creating a group tries
// to claim a dedicated number from the pool; an exhausted pool is not an
// error, the group simply lives on the shared number.
type GroupService struct {
	groups      domain.GroupRepository
	memberships domain.MembershipRepository
	users       domain.UserRepository
	messages    domain.MessageRepository
	pool        *poolapp.PoolService
	dispatcher  *Dispatcher
	maxGroups   int
	logger      *slog.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(
	groups domain.GroupRepository,
	memberships domain.MembershipRepository,
	users domain.UserRepository,
	messages domain.MessageRepository,
	pool *poolapp.PoolService,
	dispatcher *Dispatcher,
	maxGroupsPerUser int,
	logger *slog.Logger,
) *GroupService {
	return &GroupService{
		groups:      groups,
		memberships: memberships,
		users:       users,
		messages:    messages,
		pool:        pool,
		dispatcher:  dispatcher,
		maxGroups:   maxGroupsPerUser,
		logger:      logger.With("component", "group_service"),
	}
}

// CreateGroup persists the group, then tries to assign a dedicated pool
// number. Pool exhaustion falls back to the shared number.
func (s *GroupService) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	g := domain.NewGroup(uuid.New(), name)
	if err := s.groups.Create(ctx, g); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create group", "error", err, "name", name)
		return nil, fmt.Errorf("create group: %w", err)
	}

	pn, err := s.pool.Acquire(ctx, g.ID)
	if err != nil {
		if errors.Is(err, numberdomain.ErrPoolExhausted) {
			s.logger.InfoContext(ctx, "Group created on shared number", "group_id", g.ID, "name", name)
			return g, nil
		}
		// Claim failed for an operational reason; the group still exists and
		// is reachable on the shared number.
		s.logger.ErrorContext(ctx, "Number claim failed, group stays on shared number", "error", err, "group_id", g.ID)
		return g, nil
	}

	if err := s.groups.SetDedicatedNumber(ctx, g.ID, pn.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to link dedicated number, releasing", "error", err, "group_id", g.ID, "number_id", pn.ID)
		if relErr := s.pool.Release(ctx, pn.ID); relErr != nil {
			s.logger.ErrorContext(ctx, "Failed to release number after link failure", "error", relErr, "number_id", pn.ID)
		}
		return g, nil
	}

	g.DedicatedNumberID = uuid.NullUUID{UUID: pn.ID, Valid: true}
	g.DedicatedNumber = pn.Number
	s.logger.InfoContext(ctx, "Group created with dedicated number",
		"group_id", g.ID, "name", name, "number", pn.Number)
	return g, nil
}

// DeleteGroup removes the group, releasing its dedicated number first so the
// pool never points at a dangling group.
func (s *GroupService) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if g.DedicatedNumberID.Valid {
		if err := s.pool.Release(ctx, g.DedicatedNumberID.UUID); err != nil &&
			!errors.Is(err, numberdomain.ErrNotAssigned) {
			return fmt.Errorf("release dedicated number: %w", err)
		}
	}

	if err := s.groups.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete group", "error", err, "group_id", id)
		return fmt.Errorf("delete group: %w", err)
	}
	s.logger.InfoContext(ctx, "Group deleted", "group_id", id, "name", g.Name)
	return nil
}

// JoinGroup adds the user, posts the join system message to the history, and
// texts the joiner a welcome. The per-user group cap is checked before the
// membership row is written, so a refused join mutates nothing.
func (s *GroupService) JoinGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	isMember, err := s.memberships.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if isMember {
		return domain.ErrAlreadyMember
	}

	count, err := s.memberships.CountGroupsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count memberships: %w", err)
	}
	if count >= s.maxGroups {
		return domain.ErrGroupLimitReached
	}

	if err := s.memberships.AddMember(ctx, groupID, userID); err != nil {
		return err
	}

	joined := domain.NewMessage(uuid.New(), groupID, userID, fmt.Sprintf("%s joined the group!", user.Name))
	if err := s.messages.Create(ctx, joined); err != nil {
		s.logger.WarnContext(ctx, "Failed to record join message", "error", err, "group_id", groupID, "user_id", userID)
	}

	if err := s.dispatcher.SendWelcome(ctx, group, user); err != nil {
		s.logger.WarnContext(ctx, "Failed to send welcome text", "error", err, "group_id", groupID, "user_id", userID)
	}

	s.logger.InfoContext(ctx, "User joined group", "group_id", groupID, "user_id", userID)
	return nil
}

// LeaveGroup removes the user's membership.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return err
	}
	if err := s.memberships.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User left group", "group_id", groupID, "user_id", userID)
	return nil
}

// GetGroup returns a single group.
func (s *GroupService) GetGroup(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	return s.groups.GetByID(ctx, id)
}

// ListGroups returns all groups, optionally filtered by a name substring.
func (s *GroupService) ListGroups(ctx context.Context, nameFilter string) ([]*domain.Group, error) {
	return s.groups.List(ctx, nameFilter)
}

// ListMembers returns the group's current members.
func (s *GroupService) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.User, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.memberships.ListMembers(ctx, groupID)
}

// ListMessages returns the newest messages in the group, at most limit.
func (s *GroupService) ListMessages(ctx context.Context, groupID uuid.UUID, limit int) ([]*domain.Message, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.messages.ListByGroup(ctx, groupID, limit)
}

// PostMessage records and fans out a message authored through the API rather
// than over SMS.
func (s *GroupService) PostMessage(ctx context.Context, groupID, senderID uuid.UUID, body string) (*domain.Message, error) {
	return s.dispatcher.Deliver(ctx, groupID, senderID, body)
}
