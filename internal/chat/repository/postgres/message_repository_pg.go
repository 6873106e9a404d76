package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/textcircle/backend/internal/chat/domain"
)

type PgMessageRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgMessageRepository creates the PostgreSQL implementation of
// domain.MessageRepository.
func NewPgMessageRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: dbPool, logger: logger}
}

func (r *PgMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (id, group_id, sender_user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.GroupID, m.SenderUserID, m.Content, m.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting message", "error", err, "group_id", m.GroupID)
		return err
	}
	return nil
}

func (r *PgMessageRepository) ListByGroup(ctx context.Context, groupID uuid.UUID, limit int) ([]*domain.Message, error) {
	// Sender name resolves through a join; deleted senders would need a LEFT
	// JOIN, but users are never deleted here.
	query := `
		SELECT m.id, m.group_id, m.sender_user_id, m.content, m.created_at, u.name
		FROM messages m
		JOIN users u ON u.id = m.sender_user_id
		WHERE m.group_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderUserID, &m.Content, &m.CreatedAt, &m.SenderName); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
