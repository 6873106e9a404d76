package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/textcircle/backend/internal/numberpool/domain"
)

// PoolService owns the inventory of SMS-capable numbers and their assignment
// state. The atomicity guarantees live in the repository; this layer adds
// validation, logging and metrics.
type PoolService struct {
	repo   domain.PhoneNumberRepository
	logger *slog.Logger
}

// NewPoolService creates a new PoolService.
func NewPoolService(repo domain.PhoneNumberRepository, logger *slog.Logger) *PoolService {
	return &PoolService{
		repo:   repo,
		logger: logger.With("component", "number_pool"),
	}
}

// Acquire claims one AVAILABLE number for the group. domain.ErrPoolExhausted
// is an expected outcome the caller uses to fall back to the shared number.
func (s *PoolService) Acquire(ctx context.Context, groupID uuid.UUID) (*domain.PhoneNumber, error) {
	pn, err := s.repo.ClaimAvailable(ctx, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrPoolExhausted) {
			poolClaimsTotal.WithLabelValues("exhausted").Inc()
			s.logger.InfoContext(ctx, "Pool exhausted, caller falls back to shared number", "group_id", groupID)
			return nil, err
		}
		poolClaimsTotal.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "Failed to claim number from pool", "error", err, "group_id", groupID)
		return nil, fmt.Errorf("claim available number: %w", err)
	}

	poolClaimsTotal.WithLabelValues("assigned").Inc()
	s.logger.InfoContext(ctx, "Number assigned to group",
		"number_id", pn.ID, "number", pn.Number, "group_id", groupID)
	return pn, nil
}

// Release returns an ASSIGNED number to the pool.
func (s *PoolService) Release(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Release(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotAssigned) {
			return err
		}
		s.logger.ErrorContext(ctx, "Failed to release number", "error", err, "number_id", id)
		return fmt.Errorf("release number: %w", err)
	}
	s.logger.InfoContext(ctx, "Number released back to pool", "number_id", id)
	return nil
}

// Disable takes an AVAILABLE number out of rotation. An ASSIGNED number must
// be released first.
func (s *PoolService) Disable(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, domain.StatusAvailable, domain.StatusDisabled)
}

// Enable puts a DISABLED number back into rotation.
func (s *PoolService) Enable(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, domain.StatusDisabled, domain.StatusAvailable)
}

// Register adds a new number to the pool in the AVAILABLE state.
func (s *PoolService) Register(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	pn := domain.NewPhoneNumber(uuid.New(), number)
	if err := s.repo.Create(ctx, pn); err != nil {
		if errors.Is(err, domain.ErrDuplicateNumber) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Failed to register pool number", "error", err, "number", number)
		return nil, fmt.Errorf("register number: %w", err)
	}
	s.logger.InfoContext(ctx, "Pool number registered", "number_id", pn.ID, "number", pn.Number)
	return pn, nil
}

// Remove deletes a number from the pool. ASSIGNED numbers are refused.
func (s *PoolService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// List returns the whole inventory.
func (s *PoolService) List(ctx context.Context) ([]*domain.PhoneNumber, error) {
	return s.repo.List(ctx)
}

// ListAvailable returns the AVAILABLE subset.
func (s *PoolService) ListAvailable(ctx context.Context) ([]*domain.PhoneNumber, error) {
	return s.repo.ListByStatus(ctx, domain.StatusAvailable)
}

// Get returns a single pool entry.
func (s *PoolService) Get(ctx context.Context, id uuid.UUID) (*domain.PhoneNumber, error) {
	return s.repo.GetByID(ctx, id)
}
