package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/textcircle/backend/internal/otp/domain"
	"github.com/textcircle/backend/internal/smsprovider"
)

// MockCode is the well-known code issued in mock mode so local and test flows
// never need a real SMS leg.
const MockCode = "111111"

// Config carries the OTP authenticator settings.
type Config struct {
	CodeLength int
	TTL        time.Duration
	// MockMode pins every issued code to MockCode.
	MockMode bool
	// FromNumber is the sending number for verification texts.
	FromNumber string
}

// OtpService issues and verifies one-time codes. Verification is single-use:
// the check and the consume are one atomic step in the repository, so the
// same code can never be replayed, even under concurrent verify calls.
type OtpService struct {
	store  domain.ChallengeRepository
	sender smsprovider.Adapter
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewOtpService creates a new OtpService.
func NewOtpService(store domain.ChallengeRepository, sender smsprovider.Adapter, cfg Config, logger *slog.Logger) *OtpService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &OtpService{
		store:  store,
		sender: sender,
		cfg:    cfg,
		logger: logger.With("component", "otp"),
		now:    time.Now,
	}
}

// Issue generates a fresh code for the (phone, purpose) pair, invalidating any
// prior unconsumed challenge, stores it hashed, and texts it to the phone.
// The code is returned so callers can hand it to an alternate delivery
// channel; the SMS leg itself is best-effort.
func (s *OtpService) Issue(ctx context.Context, phoneNumber string, purpose domain.Purpose) (string, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	ch := domain.NewChallenge(uuid.New(), phoneNumber, hashCode(code), purpose, s.now().UTC(), s.cfg.TTL)
	if err := s.store.Put(ctx, ch); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store OTP challenge", "error", err, "phone", phoneNumber, "purpose", purpose)
		return "", fmt.Errorf("store challenge: %w", err)
	}

	text := fmt.Sprintf("Your TextCircle verification code is: %s. Valid for %d minutes.", code, int(s.cfg.TTL.Minutes()))
	if _, err := s.sender.Send(ctx, smsprovider.SendRequest{
		To:      phoneNumber,
		From:    s.cfg.FromNumber,
		Content: text,
	}); err != nil {
		// Delivery is best-effort at the carrier level anyway; the challenge
		// stays valid and can be re-issued.
		s.logger.WarnContext(ctx, "Failed to send OTP text", "error", err, "phone", phoneNumber, "purpose", purpose)
	}

	s.logger.InfoContext(ctx, "OTP challenge issued",
		"phone", phoneNumber, "purpose", purpose, "expires_at", ch.ExpiresAt)
	return code, nil
}

// Verify checks code against the latest challenge for the pair and consumes
// it on success. Failures are typed: domain.ErrCodeExpired past the expiry,
// domain.ErrCodeConsumed for replays, domain.ErrCodeInvalid on mismatch or
// when no challenge exists.
func (s *OtpService) Verify(ctx context.Context, phoneNumber string, purpose domain.Purpose, code string) error {
	ch, err := s.store.GetLatest(ctx, phoneNumber, purpose)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if ch == nil {
		return domain.ErrCodeInvalid
	}
	if ch.Consumed {
		return domain.ErrCodeConsumed
	}
	if s.now().UTC().After(ch.ExpiresAt) {
		return domain.ErrCodeExpired
	}

	attempts, err := s.store.IncrementAttempts(ctx, phoneNumber, purpose, ch.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to count verification attempt", "error", err, "phone", phoneNumber)
	} else if attempts > 1 {
		// Rate limiting hook: repeated failures are visible here but not yet
		// throttled.
		s.logger.InfoContext(ctx, "Repeated verification attempt", "phone", phoneNumber, "purpose", purpose, "attempts", attempts)
	}

	if hashCode(code) != ch.CodeHash {
		return domain.ErrCodeInvalid
	}

	won, err := s.store.Consume(ctx, phoneNumber, purpose, ch.ID)
	if err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	if !won {
		// A concurrent verify got there first; for this caller the code is
		// already spent.
		return domain.ErrCodeConsumed
	}

	s.logger.InfoContext(ctx, "OTP verified", "phone", phoneNumber, "purpose", purpose)
	return nil
}

func (s *OtpService) generateCode() (string, error) {
	if s.cfg.MockMode {
		return MockCode, nil
	}
	digits := make([]byte, s.cfg.CodeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func hashCode(code string) string {
	sum := sha3.Sum256([]byte(code))
	return base64.URLEncoding.EncodeToString(sum[:])
}
