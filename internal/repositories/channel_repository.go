package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-feed/internal/models"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository abstracts channel catalog persistence.
type ChannelRepository interface {
	ListChannels(ctx context.Context) ([]models.ChannelSummary, error)
	GetByName(ctx context.Context, name string) (models.Channel, error)
	Join(ctx context.Context, channelID int, userID int) error
	IsMember(ctx context.Context, channelID int, userID int) (bool, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// ListChannels returns every channel with its member count.
func (r *ChannelRepo) ListChannels(ctx context.Context) ([]models.ChannelSummary, error) {
	query := `SELECT c.id, c.name, c.description, c.video_id, c.created_at, COUNT(cm.user_id) AS members
        FROM channels c
        LEFT JOIN channel_members cm ON cm.channel_id = c.id
        GROUP BY c.id
        ORDER BY c.name ASC`
	var channels []models.ChannelSummary
	err := r.db.SelectContext(ctx, &channels, query)
	return channels, err
}

func (r *ChannelRepo) GetByName(ctx context.Context, name string) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT id, name, description, video_id, created_at FROM channels WHERE name=$1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// Join adds the user to the channel; joining twice is not an error.
func (r *ChannelRepo) Join(ctx context.Context, channelID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)
        ON CONFLICT (channel_id, user_id) DO NOTHING`, channelID, userID)
	return err
}

func (r *ChannelRepo) IsMember(ctx context.Context, channelID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2)`, channelID, userID)
	return exists, err
}
