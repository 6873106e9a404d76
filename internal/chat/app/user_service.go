package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/textcircle/backend/internal/chat/domain"
	otpapp "github.com/textcircle/backend/internal/otp/app"
	otpdomain "github.com/textcircle/backend/internal/otp/domain"
	"github.com/textcircle/backend/internal/platform/messagebroker"
)

// TokenConfig carries the access-token settings.
type TokenConfig struct {
	Secret      string
	ExpiryHours int
}

// UserService handles registration and login. Both flows are two-step: an OTP
// challenge is issued to the phone, and the user record (or the access token)
// materializes only after the code verifies.
type UserService struct {
	users  domain.UserRepository
	otp    *otpapp.OtpService
	events messagebroker.NATSClient // optional, may be nil
	tokens TokenConfig
	logger *slog.Logger
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(
	users domain.UserRepository,
	otp *otpapp.OtpService,
	events messagebroker.NATSClient,
	tokens TokenConfig,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		otp:    otp,
		events: events,
		tokens: tokens,
		logger: logger.With("component", "user_service"),
	}
}

// StartRegistration issues a REGISTER challenge for a phone number that is not
// yet taken.
func (s *UserService) StartRegistration(ctx context.Context, phoneNumber string) error {
	_, err := s.users.GetByPhone(ctx, phoneNumber)
	if err == nil {
		return domain.ErrDuplicatePhone
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("check phone: %w", err)
	}

	if _, err := s.otp.Issue(ctx, phoneNumber, otpdomain.PurposeRegister); err != nil {
		return fmt.Errorf("issue registration code: %w", err)
	}
	return nil
}

// CompleteRegistration verifies the REGISTER code and creates the user.
// OTP errors pass through typed so the transport can answer precisely.
func (s *UserService) CompleteRegistration(ctx context.Context, name, phoneNumber, code string) (*domain.User, error) {
	if err := s.otp.Verify(ctx, phoneNumber, otpdomain.PurposeRegister, code); err != nil {
		return nil, err
	}

	u := domain.NewUser(uuid.New(), name, phoneNumber)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicatePhone) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Failed to create user", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publishRegistered(ctx, u)
	s.logger.InfoContext(ctx, "User registered", "user_id", u.ID, "phone", phoneNumber)
	return u, nil
}

// StartLogin issues a LOGIN challenge to an existing user's phone.
func (s *UserService) StartLogin(ctx context.Context, phoneNumber string) error {
	if _, err := s.users.GetByPhone(ctx, phoneNumber); err != nil {
		return err
	}
	if _, err := s.otp.Issue(ctx, phoneNumber, otpdomain.PurposeLogin); err != nil {
		return fmt.Errorf("issue login code: %w", err)
	}
	return nil
}

// CompleteLogin verifies the LOGIN code and mints an access token.
func (s *UserService) CompleteLogin(ctx context.Context, phoneNumber, code string) (*domain.User, string, error) {
	u, err := s.users.GetByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, "", err
	}
	if err := s.otp.Verify(ctx, phoneNumber, otpdomain.PurposeLogin, code); err != nil {
		return nil, "", err
	}

	token, err := s.mintAccessToken(u)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to mint access token", "error", err, "user_id", u.ID)
		return nil, "", fmt.Errorf("mint access token: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return u, token, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByPhone returns the user holding a phone number.
func (s *UserService) GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	return s.users.GetByPhone(ctx, phoneNumber)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) mintAccessToken(u *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   u.ID.String(),
		"name":  u.Name,
		"phone": u.PhoneNumber,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(s.tokens.ExpiryHours) * time.Hour).Unix(),
		"iss":   "textcircle",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokens.Secret))
}

func (s *UserService) publishRegistered(ctx context.Context, u *domain.User) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"user_id":      u.ID.String(),
		"phone_number": u.PhoneNumber,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal user registered event", "error", err, "user_id", u.ID)
		return
	}
	if err := s.events.Publish(ctx, "user.registered", payload); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish user registered event", "error", err, "user_id", u.ID)
	}
}
