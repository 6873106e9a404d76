package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/textcircle/backend/internal/otp/domain"
)

type PgChallengeRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgChallengeRepository creates the PostgreSQL implementation of
// domain.ChallengeRepository.
func NewPgChallengeRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgChallengeRepository {
	return &PgChallengeRepository{db: dbPool, logger: logger}
}

// Put deletes any unconsumed challenge for the pair and inserts the new one
// in a single transaction, so there is never more than one live challenge.
func (r *PgChallengeRepository) Put(ctx context.Context, ch *domain.Challenge) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM otp_challenges WHERE phone_number = $1 AND purpose = $2 AND consumed = false`,
		ch.PhoneNumber, ch.Purpose,
	)
	if err != nil {
		return fmt.Errorf("invalidate prior challenges: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO otp_challenges (id, phone_number, code_hash, purpose, attempts, consumed, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ch.ID, ch.PhoneNumber, ch.CodeHash, ch.Purpose, ch.Attempts, ch.Consumed, ch.CreatedAt, ch.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgChallengeRepository) GetLatest(ctx context.Context, phoneNumber string, purpose domain.Purpose) (*domain.Challenge, error) {
	query := `
		SELECT id, phone_number, code_hash, purpose, attempts, consumed, created_at, expires_at
		FROM otp_challenges
		WHERE phone_number = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var ch domain.Challenge
	err := r.db.QueryRow(ctx, query, phoneNumber, purpose).Scan(
		&ch.ID, &ch.PhoneNumber, &ch.CodeHash, &ch.Purpose, &ch.Attempts, &ch.Consumed, &ch.CreatedAt, &ch.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error querying latest OTP challenge", "error", err, "phone", phoneNumber)
		return nil, err
	}
	return &ch, nil
}

// Consume flips consumed exactly once; the conditional UPDATE plus the
// rows-affected check is the atomic check-and-consume step. The expiry guard
// lives in the same UPDATE so a challenge expiring mid-verify cannot win.
func (r *PgChallengeRepository) Consume(ctx context.Context, _ string, _ domain.Purpose, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE otp_challenges SET consumed = true WHERE id = $1 AND consumed = false AND expires_at > now()`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error consuming OTP challenge", "error", err, "challenge_id", id)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgChallengeRepository) IncrementAttempts(ctx context.Context, _ string, _ domain.Purpose, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx,
		`UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id).Scan(&attempts)
	if err != nil {
		return 0, err
	}
	return attempts, nil
}
