package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/textcircle/backend/internal/numberpool/domain"
)

const uniqueViolationCode = "23505"

type PgPhoneNumberRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgPhoneNumberRepository creates the PostgreSQL implementation of
// domain.PhoneNumberRepository.
func NewPgPhoneNumberRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgPhoneNumberRepository {
	return &PgPhoneNumberRepository{db: dbPool, logger: logger}
}

func (r *PgPhoneNumberRepository) Create(ctx context.Context, pn *domain.PhoneNumber) error {
	query := `
		INSERT INTO phone_numbers (id, number, status, assigned_group_id, assigned_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, pn.ID, pn.Number, pn.Status, pn.AssignedGroupID, pn.AssignedAt, pn.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateNumber
		}
		r.logger.ErrorContext(ctx, "Error inserting phone number", "error", err, "number", pn.Number)
		return err
	}
	return nil
}

// ClaimAvailable selects and assigns one AVAILABLE row in a single statement.
// FOR UPDATE SKIP LOCKED makes concurrent claims pick distinct rows, so two
// simultaneous group creations can never receive the same number.
func (r *PgPhoneNumberRepository) ClaimAvailable(ctx context.Context, groupID uuid.UUID) (*domain.PhoneNumber, error) {
	query := `
		UPDATE phone_numbers
		SET status = $1, assigned_group_id = $2, assigned_at = now()
		WHERE id = (
			SELECT id FROM phone_numbers
			WHERE status = $3
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, number, status, assigned_group_id, assigned_at, created_at
	`
	var pn domain.PhoneNumber
	err := r.db.QueryRow(ctx, query, domain.StatusAssigned, groupID, domain.StatusAvailable).Scan(
		&pn.ID, &pn.Number, &pn.Status, &pn.AssignedGroupID, &pn.AssignedAt, &pn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPoolExhausted
		}
		r.logger.ErrorContext(ctx, "Error claiming available phone number", "error", err, "group_id", groupID)
		return nil, err
	}
	return &pn, nil
}

func (r *PgPhoneNumberRepository) Release(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE phone_numbers
		SET status = $1, assigned_group_id = NULL, assigned_at = NULL
		WHERE id = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, domain.StatusAvailable, id, domain.StatusAssigned)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error releasing phone number", "error", err, "number_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotAssigned
	}
	return nil
}

func (r *PgPhoneNumberRepository) SetStatus(ctx context.Context, id uuid.UUID, expected, next domain.NumberStatus) error {
	query := `UPDATE phone_numbers SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, next, id, expected)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating phone number status", "error", err, "number_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a row in the wrong state.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PgPhoneNumberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PhoneNumber, error) {
	query := `
		SELECT id, number, status, assigned_group_id, assigned_at, created_at
		FROM phone_numbers WHERE id = $1
	`
	var pn domain.PhoneNumber
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pn.ID, &pn.Number, &pn.Status, &pn.AssignedGroupID, &pn.AssignedAt, &pn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &pn, nil
}

func (r *PgPhoneNumberRepository) FindByNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	query := `
		SELECT id, number, status, assigned_group_id, assigned_at, created_at
		FROM phone_numbers WHERE number = $1
		LIMIT 1
	`
	var pn domain.PhoneNumber
	err := r.db.QueryRow(ctx, query, number).Scan(
		&pn.ID, &pn.Number, &pn.Status, &pn.AssignedGroupID, &pn.AssignedAt, &pn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // not part of the pool; the router handles this
		}
		r.logger.ErrorContext(ctx, "Error querying phone number by number", "error", err, "number", number)
		return nil, err
	}
	return &pn, nil
}

func (r *PgPhoneNumberRepository) List(ctx context.Context) ([]*domain.PhoneNumber, error) {
	query := `
		SELECT id, number, status, assigned_group_id, assigned_at, created_at
		FROM phone_numbers ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPhoneNumbers(rows)
}

func (r *PgPhoneNumberRepository) ListByStatus(ctx context.Context, status domain.NumberStatus) ([]*domain.PhoneNumber, error) {
	query := `
		SELECT id, number, status, assigned_group_id, assigned_at, created_at
		FROM phone_numbers WHERE status = $1 ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPhoneNumbers(rows)
}

func (r *PgPhoneNumberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM phone_numbers WHERE id = $1 AND status <> $2`
	tag, err := r.db.Exec(ctx, query, id, domain.StatusAssigned)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting phone number", "error", err, "number_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidState
	}
	return nil
}

func scanPhoneNumbers(rows pgx.Rows) ([]*domain.PhoneNumber, error) {
	var out []*domain.PhoneNumber
	for rows.Next() {
		var pn domain.PhoneNumber
		if err := rows.Scan(&pn.ID, &pn.Number, &pn.Status, &pn.AssignedGroupID, &pn.AssignedAt, &pn.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &pn)
	}
	return out, rows.Err()
}
