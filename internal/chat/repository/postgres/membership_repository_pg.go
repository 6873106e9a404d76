package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/textcircle/backend/internal/chat/domain"
)

type PgMembershipRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgMembershipRepository creates the PostgreSQL implementation of
// domain.MembershipRepository. The UNIQUE (group_id, user_id) constraint
// carries the duplicate-join invariant, so AddMember needs no read first.
func NewPgMembershipRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgMembershipRepository {
	return &PgMembershipRepository{db: dbPool, logger: logger}
}

func (r *PgMembershipRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	query := `
		INSERT INTO memberships (id, group_id, user_id, joined_at)
		VALUES ($1, $2, $3, now())
	`
	_, err := r.db.Exec(ctx, query, uuid.New(), groupID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrAlreadyMember
		}
		r.logger.ErrorContext(ctx, "Error inserting membership", "error", err, "group_id", groupID, "user_id", userID)
		return err
	}
	return nil
}

func (r *PgMembershipRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE group_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, groupID, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting membership", "error", err, "group_id", groupID, "user_id", userID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotAMember
	}
	return nil
}

func (r *PgMembershipRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM memberships WHERE group_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, groupID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgMembershipRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.name, u.phone_number, u.created_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at
	`
	rows, err := r.db.Query(ctx, query, groupID)
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

func (r *PgMembershipRepository) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM memberships m
		JOIN groups g ON g.id = m.group_id
		LEFT JOIN phone_numbers pn ON pn.id = g.dedicated_number_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

func (r *PgMembershipRepository) CountGroupsForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT count(*) FROM memberships WHERE user_id = $1`
	var n int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
