package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-feed/internal/models"
)

var ErrVideoNotFound = errors.New("video not found")

// VideoRepository abstracts the video catalog and per-user favorites.
type VideoRepository interface {
	ListVideos(ctx context.Context) ([]models.Video, error)
	GetVideo(ctx context.Context, videoID int) (models.Video, error)
	AddFavorite(ctx context.Context, userID int, videoID int) error
	RemoveFavorite(ctx context.Context, userID int, videoID int) error
	ListFavorites(ctx context.Context, userID int) ([]models.Video, error)
}

type VideoRepo struct {
	db *sqlx.DB
}

func NewVideoRepo(db *sqlx.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

func (r *VideoRepo) ListVideos(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.SelectContext(ctx, &videos, `SELECT id, title, url, description, created_at FROM videos ORDER BY created_at DESC`)
	return videos, err
}

func (r *VideoRepo) GetVideo(ctx context.Context, videoID int) (models.Video, error) {
	var video models.Video
	err := r.db.GetContext(ctx, &video, `SELECT id, title, url, description, created_at FROM videos WHERE id=$1`, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Video{}, ErrVideoNotFound
	}
	return video, err
}

// AddFavorite is idempotent.
func (r *VideoRepo) AddFavorite(ctx context.Context, userID int, videoID int) error {
	if _, err := r.GetVideo(ctx, videoID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO favorites (user_id, video_id) VALUES ($1, $2)
        ON CONFLICT (user_id, video_id) DO NOTHING`, userID, videoID)
	return err
}

func (r *VideoRepo) RemoveFavorite(ctx context.Context, userID int, videoID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id=$1 AND video_id=$2`, userID, videoID)
	return err
}

func (r *VideoRepo) ListFavorites(ctx context.Context, userID int) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.SelectContext(ctx, &videos, `SELECT v.id, v.title, v.url, v.description, v.created_at FROM videos v
        INNER JOIN favorites f ON f.video_id = v.id
        WHERE f.user_id=$1 ORDER BY f.created_at DESC`, userID)
	return videos, err
}
