package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-feed/internal/models"
)

// MessageRepository keeps the local archive of messages sent through this
// service. The live feed never reads from it.
type MessageRepository interface {
	Archive(ctx context.Context, channelName string, author string, content string) (models.StoredMessage, error)
	ListRecentByAuthor(ctx context.Context, author string, limit int) ([]models.StoredMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Archive stores a copy of an outgoing message.
func (r *MessageRepo) Archive(ctx context.Context, channelName string, author string, content string) (models.StoredMessage, error) {
	var msg models.StoredMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, channel_name, author, content) VALUES ($1, $2, $3, $4)
        RETURNING id, channel_name, author, content, created_at`, uuid.NewString(), channelName, author, content).
		StructScan(&msg)
	return msg, err
}

// ListRecentByAuthor returns the author's newest archived messages first.
func (r *MessageRepo) ListRecentByAuthor(ctx context.Context, author string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []models.StoredMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, channel_name, author, content, created_at
        FROM messages WHERE author=$1 ORDER BY created_at DESC LIMIT $2`, author, limit)
	return msgs, err
}
