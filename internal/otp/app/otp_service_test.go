package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textcircle/backend/internal/otp/domain"
	"github.com/textcircle/backend/internal/smsprovider"
)

// fakeChallengeStore is a mutex-guarded in-memory ChallengeRepository with
// the same consume-if-unconsumed-and-unexpired semantics the real stores
// have. now is injectable so the consume-side expiry guard can be exercised
// independently of the service clock.
type fakeChallengeStore struct {
	mu  sync.Mutex
	m   map[string]*domain.Challenge
	now func() time.Time
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{m: make(map[string]*domain.Challenge), now: time.Now}
}

func key(phone string, purpose domain.Purpose) string { return string(purpose) + ":" + phone }

func (s *fakeChallengeStore) Put(_ context.Context, ch *domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.m[key(ch.PhoneNumber, ch.Purpose)] = &cp
	return nil
}

func (s *fakeChallengeStore) GetLatest(_ context.Context, phone string, purpose domain.Purpose) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.m[key(phone, purpose)]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (s *fakeChallengeStore) Consume(_ context.Context, phone string, purpose domain.Purpose, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.m[key(phone, purpose)]
	if !ok || ch.ID != id || ch.Consumed || s.now().UTC().After(ch.ExpiresAt) {
		return false, nil
	}
	ch.Consumed = true
	return true, nil
}

func (s *fakeChallengeStore) IncrementAttempts(_ context.Context, phone string, purpose domain.Purpose, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.m[key(phone, purpose)]
	if !ok || ch.ID != id {
		return 0, nil
	}
	ch.Attempts++
	return ch.Attempts, nil
}

// recordingSender captures outbound texts.
type recordingSender struct {
	mu   sync.Mutex
	sent []smsprovider.SendRequest
}

func (r *recordingSender) GetName() string { return "recording" }

func (r *recordingSender) Send(_ context.Context, req smsprovider.SendRequest) (*smsprovider.SendResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
	return &smsprovider.SendResponse{ProviderMessageID: "rec-1"}, nil
}

func newTestOtp(t *testing.T, cfg Config) (*OtpService, *fakeChallengeStore, *recordingSender) {
	t.Helper()
	store := newFakeChallengeStore()
	sender := &recordingSender{}
	svc := NewOtpService(store, sender, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store, sender
}

const testPhone = "+15551234567"

func TestOtpService_IssueThenVerifySucceedsExactlyOnce(t *testing.T) {
	svc, _, sender := newTestOtp(t, Config{TTL: 10 * time.Minute, FromNumber: "+15550000000"})

	code, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, testPhone, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Content, code)

	require.NoError(t, svc.Verify(context.Background(), testPhone, domain.PurposeRegister, code))

	// Replay with the same code fails as already consumed.
	err = svc.Verify(context.Background(), testPhone, domain.PurposeRegister, code)
	assert.ErrorIs(t, err, domain.ErrCodeConsumed)
}

func TestOtpService_VerifyWrongCode(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{TTL: 10 * time.Minute})

	code, err := svc.Issue(context.Background(), testPhone, domain.PurposeLogin)
	require.NoError(t, err)

	err = svc.Verify(context.Background(), testPhone, domain.PurposeLogin, "000000")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	// The challenge survives a wrong guess; the right code still works.
	assert.NoError(t, svc.Verify(context.Background(), testPhone, domain.PurposeLogin, code))
}

func TestOtpService_VerifyWithoutChallenge(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{})
	err := svc.Verify(context.Background(), testPhone, domain.PurposeLogin, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestOtpService_VerifyExpiredCode(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{TTL: 5 * time.Minute})

	code, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)

	// Move the clock past expiry; the correct code must still be refused.
	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	err = svc.Verify(context.Background(), testPhone, domain.PurposeRegister, code)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestOtpService_ConsumeRefusesChallengeExpiringMidVerify(t *testing.T) {
	svc, store, _ := newTestOtp(t, Config{TTL: 5 * time.Minute})

	code, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)

	// The service clock still sees the challenge as live, but by consume time
	// the store's clock has passed expiry. The store-side guard must refuse.
	store.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	err = svc.Verify(context.Background(), testPhone, domain.PurposeRegister, code)
	assert.Error(t, err)

	ch, err := store.GetLatest(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)
	assert.False(t, ch.Consumed, "expired challenge must never be consumed")
}

func TestOtpService_IssueInvalidatesPriorChallenge(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{TTL: 10 * time.Minute})

	first, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)

	// With random codes first and second almost surely differ, but the
	// invariant holds regardless: only the latest challenge is live.
	if first != second {
		assert.ErrorIs(t, svc.Verify(context.Background(), testPhone, domain.PurposeRegister, first), domain.ErrCodeInvalid)
	}
	assert.NoError(t, svc.Verify(context.Background(), testPhone, domain.PurposeRegister, second))
}

func TestOtpService_PurposesAreIndependent(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{TTL: 10 * time.Minute})

	regCode, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)
	loginCode, err := svc.Issue(context.Background(), testPhone, domain.PurposeLogin)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(context.Background(), testPhone, domain.PurposeRegister, regCode))
	require.NoError(t, svc.Verify(context.Background(), testPhone, domain.PurposeLogin, loginCode))
}

func TestOtpService_MockModeUsesFixedCode(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{TTL: 10 * time.Minute, MockMode: true})

	code, err := svc.Issue(context.Background(), testPhone, domain.PurposeRegister)
	require.NoError(t, err)
	assert.Equal(t, MockCode, code)

	assert.NoError(t, svc.Verify(context.Background(), testPhone, domain.PurposeRegister, MockCode))
}

func TestOtpService_ConcurrentVerifySingleWinner(t *testing.T) {
	svc, _, _ := newTestOtp(t, Config{TTL: 10 * time.Minute, MockMode: true})

	_, err := svc.Issue(context.Background(), testPhone, domain.PurposeLogin)
	require.NoError(t, err)

	const goroutines = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Verify(context.Background(), testPhone, domain.PurposeLogin, MockCode) == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Equal(t, 1, len(wins), "exactly one concurrent verify may win")
}
