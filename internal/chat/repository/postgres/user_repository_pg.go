package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/textcircle/backend/internal/chat/domain"
)

const uniqueViolationCode = "23505"

type PgUserRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgUserRepository creates the PostgreSQL implementation of
// domain.UserRepository.
func NewPgUserRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgUserRepository {
	return &PgUserRepository{db: dbPool, logger: logger}
}

func (r *PgUserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, phone_number, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, u.ID, u.Name, u.PhoneNumber, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicatePhone
		}
		r.logger.ErrorContext(ctx, "Error inserting user", "error", err, "phone", u.PhoneNumber)
		return err
	}
	return nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, phone_number, created_at FROM users WHERE id = $1`
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.PhoneNumber, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	query := `SELECT id, name, phone_number, created_at FROM users WHERE phone_number = $1`
	var u domain.User
	err := r.db.QueryRow(ctx, query, phoneNumber).Scan(&u.ID, &u.Name, &u.PhoneNumber, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.logger.ErrorContext(ctx, "Error querying user by phone", "error", err)
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT id, name, phone_number, created_at FROM users ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.PhoneNumber, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
