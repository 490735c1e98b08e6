package models

import "time"

// Channel is a named conversation in the catalog.
type Channel struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	VideoID     *int      `db:"video_id" json:"video_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChannelSummary is a channel with its member count.
type ChannelSummary struct {
	Channel
	Members int `db:"members" json:"members"`
}

// Video is a catalog entry a channel can be attached to.
type Video struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	URL         string    `db:"url" json:"url"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
