package app

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/textcircle/backend/internal/chat/domain"
	"github.com/textcircle/backend/internal/smsprovider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.PhoneNumber == u.PhoneNumber {
			return domain.ErrDuplicatePhone
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*domain.Group
	// numberE164 lets GetByID resolve the dedicated number string the way the
	// SQL repository does with a join; memberCount mirrors its inline count.
	numberE164  map[uuid.UUID]string
	memberCount map[uuid.UUID]int
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:      make(map[uuid.UUID]*domain.Group),
		numberE164:  make(map[uuid.UUID]string),
		memberCount: make(map[uuid.UUID]int),
	}
}

func (r *fakeGroupRepo) Create(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.groups[g.ID] = &cp
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	cp := *g
	if cp.DedicatedNumberID.Valid {
		cp.DedicatedNumber = r.numberE164[cp.DedicatedNumberID.UUID]
	}
	cp.MemberCount = r.memberCount[id]
	return &cp, nil
}

func (r *fakeGroupRepo) SetDedicatedNumber(_ context.Context, groupID, numberID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	g.DedicatedNumberID = uuid.NullUUID{UUID: numberID, Valid: true}
	return nil
}

func (r *fakeGroupRepo) List(_ context.Context, _ string) ([]*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Group, 0, len(r.groups))
	for _, g := range r.groups {
		cp := *g
		cp.MemberCount = r.memberCount[g.ID]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeGroupRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return domain.ErrGroupNotFound
	}
	delete(r.groups, id)
	return nil
}

type memberPair struct {
	groupID uuid.UUID
	userID  uuid.UUID
}

type fakeMembershipRepo struct {
	mu     sync.Mutex
	pairs  map[memberPair]bool
	users  *fakeUserRepo
	groups *fakeGroupRepo
}

func newFakeMembershipRepo(users *fakeUserRepo, groups *fakeGroupRepo) *fakeMembershipRepo {
	return &fakeMembershipRepo{
		pairs:  make(map[memberPair]bool),
		users:  users,
		groups: groups,
	}
}

func (r *fakeMembershipRepo) AddMember(_ context.Context, groupID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := memberPair{groupID, userID}
	if r.pairs[p] {
		return domain.ErrAlreadyMember
	}
	r.pairs[p] = true
	r.groups.mu.Lock()
	r.groups.memberCount[groupID]++
	r.groups.mu.Unlock()
	return nil
}

func (r *fakeMembershipRepo) RemoveMember(_ context.Context, groupID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := memberPair{groupID, userID}
	if !r.pairs[p] {
		return domain.ErrNotAMember
	}
	delete(r.pairs, p)
	r.groups.mu.Lock()
	r.groups.memberCount[groupID]--
	r.groups.mu.Unlock()
	return nil
}

func (r *fakeMembershipRepo) IsMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pairs[memberPair{groupID, userID}], nil
}

func (r *fakeMembershipRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.User, error) {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0)
	for p := range r.pairs {
		if p.groupID == groupID {
			ids = append(ids, p.userID)
		}
	}
	r.mu.Unlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out, nil
}

func (r *fakeMembershipRepo) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error) {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0)
	for p := range r.pairs {
		if p.userID == userID {
			ids = append(ids, p.groupID)
		}
	}
	r.mu.Unlock()

	out := make([]*domain.Group, 0, len(ids))
	for _, id := range ids {
		g, err := r.groups.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeMembershipRepo) CountGroupsForUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for p := range r.pairs {
		if p.userID == userID {
			n++
		}
	}
	return n, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*domain.Message
	failNext bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return context.DeadlineExceeded
	}
	cp := *m
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) ListByGroup(_ context.Context, groupID uuid.UUID, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Message, 0)
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if r.messages[i].GroupID == groupID {
			cp := *r.messages[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) count(groupID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.GroupID == groupID {
			n++
		}
	}
	return n
}

type sentText struct {
	To      string
	From    string
	Content string
}

// recordingSender captures outbound texts and can be told to fail for
// specific recipients.
type recordingSender struct {
	mu     sync.Mutex
	sent   []sentText
	failTo map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{failTo: make(map[string]bool)}
}

func (s *recordingSender) Send(_ context.Context, req smsprovider.SendRequest) (*smsprovider.SendResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTo[req.To] {
		return nil, context.DeadlineExceeded
	}
	s.sent = append(s.sent, sentText{To: req.To, From: req.From, Content: req.Content})
	return &smsprovider.SendResponse{ProviderMessageID: "test-" + uuid.NewString()}, nil
}

func (s *recordingSender) GetName() string { return "recording" }

func (s *recordingSender) sentTo(number string) []sentText {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentText, 0)
	for _, msg := range s.sent {
		if msg.To == number {
			out = append(out, msg)
		}
	}
	return out
}

func (s *recordingSender) all() []sentText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentText(nil), s.sent...)
}

type publishedEvent struct {
	Subject string
	Data    []byte
}

type fakeBroker struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *fakeBroker) Publish(_ context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (b *fakeBroker) Close() {}

func (b *fakeBroker) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Subject)
	}
	return out
}
