package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textcircle/backend/internal/chat/domain"
)

type dispatchFixture struct {
	dispatcher  *Dispatcher
	users       *fakeUserRepo
	groups      *fakeGroupRepo
	memberships *fakeMembershipRepo
	messages    *fakeMessageRepo
	sender      *recordingSender
	broker      *fakeBroker
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	users := newFakeUserRepo()
	groups := newFakeGroupRepo()
	memberships := newFakeMembershipRepo(users, groups)
	messages := newFakeMessageRepo()
	sender := newRecordingSender()
	broker := &fakeBroker{}
	return &dispatchFixture{
		dispatcher:  NewDispatcher(messages, memberships, groups, users, sender, broker, testSharedNumber, discardLogger()),
		users:       users,
		groups:      groups,
		memberships: memberships,
		messages:    messages,
		sender:      sender,
		broker:      broker,
	}
}

func (f *dispatchFixture) seedGroup(t *testing.T, names ...string) (*domain.Group, []*domain.User) {
	t.Helper()
	g := domain.NewGroup(uuid.New(), "Book Club")
	require.NoError(t, f.groups.Create(context.Background(), g))

	members := make([]*domain.User, 0, len(names))
	for i, name := range names {
		u := domain.NewUser(uuid.New(), name, "+1555777000"+string(rune('0'+i)))
		require.NoError(t, f.users.Create(context.Background(), u))
		require.NoError(t, f.memberships.AddMember(context.Background(), g.ID, u.ID))
		members = append(members, u)
	}
	return g, members
}

func TestDispatcher_DeliverFansOutToOtherMembers(t *testing.T) {
	f := newDispatchFixture(t)
	g, members := f.seedGroup(t, "Alice", "Bob", "Carol")

	msg, err := f.dispatcher.Deliver(context.Background(), g.ID, members[0].ID, "meeting moved to 7")
	require.NoError(t, err)
	assert.Equal(t, "meeting moved to 7", msg.Content)
	assert.Equal(t, "Alice", msg.SenderName)

	assert.Equal(t, 1, f.messages.count(g.ID), "message persisted exactly once")

	sent := f.sender.all()
	require.Len(t, sent, 2, "one text per member excluding the sender")
	for _, s := range sent {
		assert.Equal(t, "Alice: meeting moved to 7", s.Content)
		assert.Equal(t, testSharedNumber, s.From)
		assert.NotEqual(t, members[0].PhoneNumber, s.To, "sender must not receive their own message")
	}

	assert.Equal(t, []string{"chat.message.accepted"}, f.broker.subjects())
}

func TestDispatcher_DeliverUsesDedicatedNumberAsFrom(t *testing.T) {
	f := newDispatchFixture(t)
	g, members := f.seedGroup(t, "Alice", "Bob")

	numberID := uuid.New()
	require.NoError(t, f.groups.SetDedicatedNumber(context.Background(), g.ID, numberID))
	f.groups.numberE164[numberID] = "+15559990001"

	_, err := f.dispatcher.Deliver(context.Background(), g.ID, members[0].ID, "hi")
	require.NoError(t, err)

	sent := f.sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "+15559990001", sent[0].From)
}

func TestDispatcher_PartialSendFailureStillDelivers(t *testing.T) {
	f := newDispatchFixture(t)
	g, members := f.seedGroup(t, "Alice", "Bob", "Carol")

	// Bob's carrier rejects the send; the message is still recorded and Carol
	// still gets her copy.
	f.sender.failTo[members[1].PhoneNumber] = true

	msg, err := f.dispatcher.Deliver(context.Background(), g.ID, members[0].ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, 1, f.messages.count(g.ID))
	assert.Len(t, f.sender.sentTo(members[2].PhoneNumber), 1)
	assert.Empty(t, f.sender.sentTo(members[1].PhoneNumber))
}

func TestDispatcher_PersistFailureAbortsFanout(t *testing.T) {
	f := newDispatchFixture(t)
	g, members := f.seedGroup(t, "Alice", "Bob")

	f.messages.failNext = true
	_, err := f.dispatcher.Deliver(context.Background(), g.ID, members[0].ID, "hello")
	require.Error(t, err)

	// Nothing persisted, nothing sent, nothing published.
	assert.Equal(t, 0, f.messages.count(g.ID))
	assert.Empty(t, f.sender.all())
	assert.Empty(t, f.broker.subjects())
}

func TestDispatcher_DeliverRejectsNonMember(t *testing.T) {
	f := newDispatchFixture(t)
	g, _ := f.seedGroup(t, "Alice")

	outsider := domain.NewUser(uuid.New(), "Eve", "+15557779999")
	require.NoError(t, f.users.Create(context.Background(), outsider))

	_, err := f.dispatcher.Deliver(context.Background(), g.ID, outsider.ID, "let me in")
	assert.ErrorIs(t, err, domain.ErrNotAMember)
	assert.Equal(t, 0, f.messages.count(g.ID))
}

func TestDispatcher_SendWelcomeTextsOnlyTheJoiner(t *testing.T) {
	f := newDispatchFixture(t)
	g, members := f.seedGroup(t, "Alice", "Bob")

	require.NoError(t, f.dispatcher.SendWelcome(context.Background(), g, members[1]))

	sent := f.sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, members[1].PhoneNumber, sent[0].To)
	assert.Contains(t, sent[0].Content, "Welcome to Book Club!")
}

func TestDispatcher_NilBrokerIsFine(t *testing.T) {
	f := newDispatchFixture(t)
	f.dispatcher = NewDispatcher(f.messages, f.memberships, f.groups, f.users, f.sender, nil, testSharedNumber, discardLogger())
	g, members := f.seedGroup(t, "Alice", "Bob")

	_, err := f.dispatcher.Deliver(context.Background(), g.ID, members[0].ID, "hi")
	assert.NoError(t, err)
}
