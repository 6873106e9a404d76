package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/textcircle/backend/internal/chat/domain"
)

// groupColumns joins phone_numbers so reads come back with the dedicated
// number's E.164 string resolved, and counts members inline.
const groupColumns = `
	g.id, g.name, g.dedicated_number_id, COALESCE(pn.number, ''), g.created_at,
	(SELECT count(*) FROM memberships mc WHERE mc.group_id = g.id)
`

type PgGroupRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgGroupRepository creates the PostgreSQL implementation of
// domain.GroupRepository.
func NewPgGroupRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgGroupRepository {
	return &PgGroupRepository{db: dbPool, logger: logger}
}

func (r *PgGroupRepository) Create(ctx context.Context, g *domain.Group) error {
	query := `
		INSERT INTO groups (id, name, dedicated_number_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, g.ID, g.Name, g.DedicatedNumberID, g.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting group", "error", err, "name", g.Name)
		return err
	}
	return nil
}

func (r *PgGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM groups g
		LEFT JOIN phone_numbers pn ON pn.id = g.dedicated_number_id
		WHERE g.id = $1
	`
	var g domain.Group
	err := r.db.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.DedicatedNumberID, &g.DedicatedNumber, &g.CreatedAt, &g.MemberCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *PgGroupRepository) SetDedicatedNumber(ctx context.Context, groupID, numberID uuid.UUID) error {
	query := `UPDATE groups SET dedicated_number_id = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, numberID, groupID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error linking dedicated number", "error", err, "group_id", groupID, "number_id", numberID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *PgGroupRepository) List(ctx context.Context, nameFilter string) ([]*domain.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM groups g
		LEFT JOIN phone_numbers pn ON pn.id = g.dedicated_number_id
		WHERE $1 = '' OR g.name ILIKE '%' || $1 || '%'
		ORDER BY g.created_at
	`
	rows, err := r.db.Query(ctx, query, nameFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

func (r *PgGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Memberships and messages go with the group via ON DELETE CASCADE.
	query := `DELETE FROM groups WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting group", "error", err, "group_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func scanGroups(rows pgx.Rows) ([]*domain.Group, error) {
	var out []*domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.DedicatedNumberID, &g.DedicatedNumber, &g.CreatedAt, &g.MemberCount); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}
